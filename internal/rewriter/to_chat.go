package rewriter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/kalehub/claude-relay/internal/decorator"
	"github.com/kalehub/claude-relay/internal/stream"
	"github.com/kalehub/claude-relay/internal/types"
)

// ChatEmitter rewrites the upstream Messages SSE vocabulary into
// Chat-Completions chunks. A tool_use block's arguments are buffered and
// emitted as a single tool_calls delta at content_block_stop rather than
// dribbled out as input_json_delta arrives, matching how real clients expect
// to parse a tool call's arguments as one JSON document.
type ChatEmitter struct {
	st        *State
	w         io.Writer
	flush     func()
	streamOut bool
	id        string

	toolIndex     map[int]int
	nextToolIndex int
	wroteRole     bool
	terminated    bool
}

// NewChatEmitter creates a Chat-Completions emitter. When streamOut is
// false, Handle only updates bookkeeping; no bytes are written and Finish
// skips the terminal framing.
func NewChatEmitter(w io.Writer, flush func(), streamOut bool, id, model string) *ChatEmitter {
	return &ChatEmitter{
		st:        NewState(model),
		w:         w,
		flush:     flush,
		streamOut: streamOut,
		id:        id,
		toolIndex: map[int]int{},
	}
}

// Handle applies one upstream event, writing the corresponding
// Chat-Completions chunk when streaming.
func (e *ChatEmitter) Handle(ev *stream.Event) error {
	switch ev.Type {
	case "message_start":
		e.st.OnMessageStart(ev.Data)
	case "content_block_start":
		idx, kind := e.st.OnContentBlockStart(ev.Data)
		if kind == "tool_use" {
			e.toolIndex[idx] = e.nextToolIndex
			e.nextToolIndex++
		}
	case "content_block_delta":
		_, kind, textDelta, _ := e.st.OnContentBlockDelta(ev.Data)
		if kind == "text_delta" && textDelta != "" {
			delta := types.ChatDelta{Content: textDelta}
			if !e.wroteRole {
				delta.Role = "assistant"
				e.wroteRole = true
			}
			return e.writeDelta(delta)
		}
	case "content_block_stop":
		idx := e.st.OnContentBlockStop(ev.Data)
		if b := e.st.Blocks[idx]; b != nil && b.Kind == "tool_use" {
			tcIdx := e.toolIndex[idx]
			return e.writeDelta(types.ChatDelta{
				ToolCalls: []types.ChatToolCall{{
					Index: &tcIdx,
					ID:    b.ID,
					Type:  "function",
					Function: types.FunctionCall{
						Name:      b.Name,
						Arguments: b.Args.String(),
					},
				}},
			})
		}
	case "message_delta":
		e.st.OnMessageDelta(ev.Data)
	case "error":
		e.st.OnError(ev.Data)
		logrus.WithField("error", e.st.ErrorMessage).Warn("rewriter: upstream stream error")
		e.terminated = true
		fr := "error"
		return e.writeRaw(types.ChatCompletionChunk{
			ID:     e.id,
			Object: "chat.completion.chunk",
			Model:  e.st.Model,
			Choices: []types.ChatChunkChoice{{
				Index:        0,
				FinishReason: &fr,
				Error:        &types.ErrorDetail{Message: e.st.ErrorMessage, Type: "upstream_error"},
			}},
		})
	}
	return nil
}

// Finish writes the terminal finish_reason chunk and [DONE] marker, and
// returns the accumulated CollectedResponse for non-stream rendering.
func (e *ChatEmitter) Finish() *types.CollectedResponse {
	collected := e.st.Collected()
	if e.streamOut {
		if !e.terminated {
			fr := chatFinishReason(collected)
			_ = e.writeRaw(types.ChatCompletionChunk{
				ID:      e.id,
				Object:  "chat.completion.chunk",
				Model:   e.st.Model,
				Choices: []types.ChatChunkChoice{{Index: 0, FinishReason: &fr}},
			})
		}
		fmt.Fprint(e.w, "data: [DONE]\n\n")
		if e.flush != nil {
			e.flush()
		}
	}
	return collected
}

func chatFinishReason(c *types.CollectedResponse) string {
	switch {
	case c.ErrorMessage != "":
		return "error"
	case len(c.ToolCalls) > 0:
		return "tool_calls"
	default:
		return "stop"
	}
}

func (e *ChatEmitter) writeDelta(delta types.ChatDelta) error {
	return e.writeRaw(types.ChatCompletionChunk{
		ID:      e.id,
		Object:  "chat.completion.chunk",
		Model:   e.st.Model,
		Choices: []types.ChatChunkChoice{{Index: 0, Delta: delta}},
	})
}

func (e *ChatEmitter) writeRaw(v any) error {
	if !e.streamOut {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = decorator.StripPrefix(b)
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", b); err != nil {
		return err
	}
	if e.flush != nil {
		e.flush()
	}
	return nil
}
