package stream

import "encoding/json"

// Event is one decoded SSE frame from the upstream Messages API. Type comes
// from the JSON payload's own "type" field rather than the "event:" line,
// since Anthropic's streaming responses carry the event name in both places
// and every emitter only ever needs the parsed one.
type Event struct {
	Type string
	Raw  json.RawMessage
	Data map[string]any
}
