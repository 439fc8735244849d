// Package telemetry implements the optional sink the design notes call out
// (§9): the core exposes hook points, but no sink's presence is a
// correctness requirement. A Sink is something C8's teardown path can
// flush an Event to after every request, success, failure, or disconnect.
package telemetry

import "time"

// Event is one request's outcome, the unit every Sink records.
type Event struct {
	Endpoint     string    `json:"endpoint"`
	SessionKey   string    `json:"session_key"`
	Model        string    `json:"model"`
	Status       string    `json:"status"` // ok | error | throttled | client_disconnected
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	DurationMS   int64     `json:"duration_ms"`
	At           time.Time `json:"at"`
}

// Sink records telemetry events. Record must not block the request path for
// long; implementations that do I/O should buffer or fail silently.
type Sink interface {
	Record(ev Event)
}

// NopSink discards every event; the default when no sink is configured.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(Event) {}
