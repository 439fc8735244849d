// Package rewriter is the Streaming Rewriter (C5): it consumes the
// upstream's native Messages SSE vocabulary and emits one of the three
// outbound event vocabularies, sharing a single State per response across
// every delta/start/stop handler the way a hand-written state machine would
// rather than a series of independent async callbacks.
package rewriter

import (
	"strings"

	"github.com/kalehub/claude-relay/internal/decorator"
	"github.com/kalehub/claude-relay/internal/stream"
	"github.com/kalehub/claude-relay/internal/types"
)

// Block is the rewriter's view of one upstream content_block.
type Block struct {
	Kind string // text | tool_use
	ID   string
	Name string
	Text strings.Builder
	Args strings.Builder
}

// State accumulates everything about one response that every emitter's
// handlers need, regardless of which outbound vocabulary is being written.
type State struct {
	MessageID string
	Model     string

	Blocks map[int]*Block
	Order  []int // block index insertion order

	SawToolUse   bool
	InputTokens  int64
	OutputTokens int64
	StopReason   string
	ErrorMessage string
}

// NewState creates a State for one response.
func NewState(model string) *State {
	return &State{Model: model, Blocks: map[int]*Block{}}
}

func intFromAny(v any) int {
	return int(stream.Int64FromAny(v))
}

// OnMessageStart records the message id and prompt token count from
// message_start.
func (s *State) OnMessageStart(data map[string]any) {
	if msg, ok := data["message"].(map[string]any); ok {
		if id, ok := msg["id"].(string); ok {
			s.MessageID = id
		}
	}
	if in, ok := stream.UsageFromMessageStart(data); ok {
		s.InputTokens = in
	}
}

// OnContentBlockStart opens a new block, returning its index and kind.
func (s *State) OnContentBlockStart(data map[string]any) (index int, kind string) {
	index = intFromAny(data["index"])
	cb, _ := data["content_block"].(map[string]any)
	kind, _ = cb["type"].(string)

	b := &Block{Kind: kind}
	if kind == "tool_use" {
		b.ID, _ = cb["id"].(string)
		name, _ := cb["name"].(string)
		b.Name = strings.TrimPrefix(name, decorator.ToolNamePrefix)
	}
	s.Blocks[index] = b
	s.Order = append(s.Order, index)
	return index, kind
}

// OnContentBlockDelta applies a delta to the block it targets, returning the
// block's index, the delta kind, and whichever of textDelta/jsonDelta applies.
func (s *State) OnContentBlockDelta(data map[string]any) (index int, kind, textDelta, jsonDelta string) {
	index = intFromAny(data["index"])
	delta, _ := data["delta"].(map[string]any)
	kind, _ = delta["type"].(string)
	b := s.Blocks[index]

	switch kind {
	case "text_delta":
		textDelta, _ = delta["text"].(string)
		if b != nil {
			b.Text.WriteString(textDelta)
		}
	case "input_json_delta":
		jsonDelta, _ = delta["partial_json"].(string)
		if b != nil {
			b.Args.WriteString(jsonDelta)
		}
	}
	return
}

// OnContentBlockStop closes a block, marking SawToolUse if it was a
// tool_use block, and returns the block's index.
func (s *State) OnContentBlockStop(data map[string]any) int {
	index := intFromAny(data["index"])
	if b, ok := s.Blocks[index]; ok && b.Kind == "tool_use" {
		s.SawToolUse = true
	}
	return index
}

// OnMessageDelta records the completion token count and stop reason.
func (s *State) OnMessageDelta(data map[string]any) {
	if out, ok := stream.UsageFromMessageDelta(data); ok {
		s.OutputTokens = out
	}
	if sr := stream.StopReasonFromMessageDelta(data); sr != "" {
		s.StopReason = sr
	}
}

// OnError records a stream-level error part.
func (s *State) OnError(data map[string]any) {
	if errObj, ok := data["error"].(map[string]any); ok {
		if msg, ok := errObj["message"].(string); ok {
			s.ErrorMessage = msg
		}
	}
	if s.ErrorMessage == "" {
		s.ErrorMessage = "upstream stream error"
	}
}

// Text concatenates every text block's accumulated text, in block order.
func (s *State) Text() string {
	var out strings.Builder
	for _, idx := range s.Order {
		if b := s.Blocks[idx]; b.Kind == "text" {
			out.WriteString(b.Text.String())
		}
	}
	return out.String()
}

// ToolCalls returns every tool_use block as a canonical tool call, in
// block order.
func (s *State) ToolCalls() []types.ToolCall {
	var calls []types.ToolCall
	for _, idx := range s.Order {
		b := s.Blocks[idx]
		if b.Kind == "tool_use" {
			calls = append(calls, types.ToolCall{CallID: b.ID, ToolName: b.Name, Arguments: b.Args.String()})
		}
	}
	return calls
}

// Collected renders the accumulated state into the protocol-independent
// collected result every outbound encoder starts from.
func (s *State) Collected() *types.CollectedResponse {
	return &types.CollectedResponse{
		Text:         s.Text(),
		ToolCalls:    s.ToolCalls(),
		StopReason:   s.canonicalStopReason(),
		InputTokens:  s.InputTokens,
		OutputTokens: s.OutputTokens,
		ErrorMessage: s.ErrorMessage,
	}
}

func (s *State) canonicalStopReason() string {
	switch {
	case s.ErrorMessage != "":
		return "error"
	case s.SawToolUse:
		return "tool_calls"
	default:
		return "stop"
	}
}
