package stream

// Int64FromAny converts a JSON-decoded numeric value to int64. Handles the
// shapes encoding/json produces when unmarshaling into map[string]any.
func Int64FromAny(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	}
	return 0
}

// UsageFromMessageStart extracts input_tokens from a message_start event's
// message.usage object.
func UsageFromMessageStart(data map[string]any) (inputTokens int64, ok bool) {
	msg, _ := data["message"].(map[string]any)
	if msg == nil {
		return 0, false
	}
	usage, _ := msg["usage"].(map[string]any)
	if usage == nil {
		return 0, false
	}
	return Int64FromAny(usage["input_tokens"]), true
}

// UsageFromMessageDelta extracts output_tokens from a message_delta event's
// usage object.
func UsageFromMessageDelta(data map[string]any) (outputTokens int64, ok bool) {
	usage, _ := data["usage"].(map[string]any)
	if usage == nil {
		return 0, false
	}
	return Int64FromAny(usage["output_tokens"]), true
}

// StopReasonFromMessageDelta extracts delta.stop_reason from a message_delta event.
func StopReasonFromMessageDelta(data map[string]any) string {
	delta, _ := data["delta"].(map[string]any)
	if delta == nil {
		return ""
	}
	sr, _ := delta["stop_reason"].(string)
	return sr
}
