package stream

import (
	"encoding/json"
	"io"
	"strings"
	"testing"
)

func TestReader_ParsesSequentialEvents(t *testing.T) {
	body := "data: {\"type\":\"message_start\"}\n\ndata: {\"type\":\"content_block_stop\",\"index\":0}\n\n"
	r := NewReader(strings.NewReader(body))

	ev1, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ev1.Type != "message_start" {
		t.Errorf("got type %q, want message_start", ev1.Type)
	}

	ev2, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ev2.Type != "content_block_stop" {
		t.Errorf("got type %q, want content_block_stop", ev2.Type)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("got %v, want io.EOF at end of stream", err)
	}
}

func TestReader_StopsAtDoneSentinel(t *testing.T) {
	body := "data: {\"type\":\"message_stop\"}\n\ndata: [DONE]\n\ndata: {\"type\":\"should_not_be_reached\"}\n\n"
	r := NewReader(strings.NewReader(body))

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ev.Type != "message_stop" {
		t.Fatalf("got type %q, want message_stop", ev.Type)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("got %v, want io.EOF at [DONE]", err)
	}
}

func TestReader_SkipsNonDataLines(t *testing.T) {
	body := "event: message_start\ndata: {\"type\":\"message_start\"}\n\n"
	r := NewReader(strings.NewReader(body))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ev.Type != "message_start" {
		t.Errorf("got type %q, want message_start", ev.Type)
	}
}

func TestReader_SkipsUnparseableData(t *testing.T) {
	body := "data: not-json\n\ndata: {\"type\":\"ok\"}\n\n"
	r := NewReader(strings.NewReader(body))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ev.Type != "ok" {
		t.Errorf("got type %q, want ok (malformed line should be skipped)", ev.Type)
	}
}

func TestReader_RawPreservesOriginalBytes(t *testing.T) {
	body := `data: {"type":"x","z":1,"a":2}` + "\n\n"
	r := NewReader(strings.NewReader(body))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	var roundTrip map[string]any
	if err := json.Unmarshal(ev.Raw, &roundTrip); err != nil {
		t.Fatalf("Raw is not valid JSON: %v", err)
	}
	if roundTrip["z"].(float64) != 1 {
		t.Error("expected Raw to preserve the original payload")
	}
}

func TestInt64FromAny_HandlesJSONNumberShapes(t *testing.T) {
	if got := Int64FromAny(float64(42)); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if got := Int64FromAny(nil); got != 0 {
		t.Errorf("got %d, want 0 for unsupported type", got)
	}
}

func TestUsageFromMessageStart(t *testing.T) {
	data := map[string]any{"message": map[string]any{"usage": map[string]any{"input_tokens": float64(10)}}}
	got, ok := UsageFromMessageStart(data)
	if !ok || got != 10 {
		t.Errorf("got (%d, %v), want (10, true)", got, ok)
	}

	if _, ok := UsageFromMessageStart(map[string]any{}); ok {
		t.Error("expected ok=false when message is absent")
	}
}

func TestUsageFromMessageDelta(t *testing.T) {
	data := map[string]any{"usage": map[string]any{"output_tokens": float64(7)}}
	got, ok := UsageFromMessageDelta(data)
	if !ok || got != 7 {
		t.Errorf("got (%d, %v), want (7, true)", got, ok)
	}
}

func TestStopReasonFromMessageDelta(t *testing.T) {
	data := map[string]any{"delta": map[string]any{"stop_reason": "end_turn"}}
	if got := StopReasonFromMessageDelta(data); got != "end_turn" {
		t.Errorf("got %q, want end_turn", got)
	}
	if got := StopReasonFromMessageDelta(map[string]any{}); got != "" {
		t.Errorf("got %q, want empty string when delta is absent", got)
	}
}
