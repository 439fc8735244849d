// Package schema is the Schema Translator (C4): it reduces each of the
// three inbound wire shapes to the canonical conversation (internal/types)
// and renders the canonical form plus tools/choice/model back into the
// native Messages request body, and renders a collected upstream result
// back into each outbound wire shape.
package schema

import (
	"github.com/kalehub/claude-relay/internal/proxyerr"
	"github.com/kalehub/claude-relay/internal/types"
)

// SessionShape selects which of §3's three session-key derivations applies
// to a decoded request.
type SessionShape string

const (
	ShapeMessage SessionShape = "message" // Chat-Completions, Messages
	ShapeInput   SessionShape = "input"   // Responses
	ShapeOpaque  SessionShape = "opaque"  // fallback
)

// Decoded is what every inbound-shape decoder produces: the canonical
// conversation plus everything C3/C6 need that isn't conversation content.
type Decoded struct {
	Conversation *types.Conversation
	Tools        []types.ToolDescriptor
	ToolChoice   Choice
	Model        string
	Stream       bool
	MaxTokens    int
	// DisableParallelToolUse mirrors the inbound parallel_tool_calls:false ->
	// upstream disableParallelToolUse:true mapping verbatim; nil means the
	// field was not supplied.
	DisableParallelToolUse *bool

	SessionExplicit  string
	SessionShape     SessionShape
	SequenceLen      int
	FirstElementJSON []byte

	// RawBody is set only by DecodeMessages: the original request body,
	// already native-shaped, decorated directly instead of being rebuilt
	// from Conversation.
	RawBody []byte
}

func badRequest(field, message string) error {
	return proxyerr.NewBadRequest(field, message)
}

// disableParallelToolUse implements spec.md's parallel_tool_calls mapping:
// false inverts to upstream disableParallelToolUse:true, true inverts to
// false, and an absent field or an empty tool list is left unmapped (nil)
// rather than inferred.
func disableParallelToolUse(parallelToolCalls *bool, toolCount int) *bool {
	if parallelToolCalls == nil || toolCount == 0 {
		return nil
	}
	disable := !*parallelToolCalls
	return &disable
}
