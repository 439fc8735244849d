package rewriter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kalehub/claude-relay/internal/decorator"
	"github.com/kalehub/claude-relay/internal/stream"
	"github.com/kalehub/claude-relay/internal/types"
)

// ResponsesEmitter rewrites the upstream Messages SSE vocabulary into the
// Responses event vocabulary. The assistant message item and its content
// part are created lazily, on the first text delta, so a response made
// entirely of tool calls never creates a message item at all. Every event
// this emitter writes carries a strictly increasing sequence_number,
// starting at 0, with no gaps.
type ResponsesEmitter struct {
	st        *State
	w         io.Writer
	flush     func()
	streamOut bool
	id, model string

	seq         int
	outputIndex int

	messageItemCreated bool
	messageItemID      string
	messageOutputIndex int
	textPartOpen       bool

	toolOutputIndex map[int]int
}

// NewResponsesEmitter creates a Responses emitter.
func NewResponsesEmitter(w io.Writer, flush func(), streamOut bool, id, model string) *ResponsesEmitter {
	e := &ResponsesEmitter{
		st:              NewState(model),
		w:               w,
		flush:           flush,
		streamOut:       streamOut,
		id:              id,
		model:           model,
		toolOutputIndex: map[int]int{},
	}
	e.emit("response.created", types.ResponsesEvent{
		Response: &types.ResponsesObject{ID: id, Object: "response", Model: model, Status: "in_progress"},
	})
	return e
}

// Handle applies one upstream event, writing the corresponding Responses
// event(s) when streaming.
func (e *ResponsesEmitter) Handle(ev *stream.Event) error {
	switch ev.Type {
	case "message_start":
		e.st.OnMessageStart(ev.Data)

	case "content_block_start":
		idx, kind := e.st.OnContentBlockStart(ev.Data)
		if kind == "tool_use" {
			oi := e.nextOutputIndex()
			e.toolOutputIndex[idx] = oi
			b := e.st.Blocks[idx]
			return e.emit("response.output_item.added", types.ResponsesEvent{
				OutputIndex: oi,
				Item:        &types.ResponsesOutputItem{Type: "function_call", CallID: b.ID, Name: b.Name},
			})
		}

	case "content_block_delta":
		idx, kind, textDelta, _ := e.st.OnContentBlockDelta(ev.Data)
		if kind != "text_delta" || textDelta == "" {
			return nil
		}
		if !e.messageItemCreated {
			if err := e.openMessageItem(); err != nil {
				return err
			}
		}
		_ = idx
		return e.emit("response.output_text.delta", types.ResponsesEvent{
			ItemID:      e.messageItemID,
			OutputIndex: e.messageOutputIndex,
			Delta:       textDelta,
		})

	case "content_block_stop":
		idx := e.st.OnContentBlockStop(ev.Data)
		b := e.st.Blocks[idx]
		if b == nil {
			return nil
		}
		switch b.Kind {
		case "text":
			return e.closeMessageItem(b.Text.String())
		case "tool_use":
			oi := e.toolOutputIndex[idx]
			if err := e.emit("response.function_call_arguments.done", types.ResponsesEvent{
				ItemID:      b.ID,
				OutputIndex: oi,
				Arguments:   b.Args.String(),
			}); err != nil {
				return err
			}
			return e.emit("response.output_item.done", types.ResponsesEvent{
				OutputIndex: oi,
				Item:        &types.ResponsesOutputItem{Type: "function_call", CallID: b.ID, Name: b.Name, Arguments: b.Args.String()},
			})
		}

	case "message_delta":
		e.st.OnMessageDelta(ev.Data)

	case "error":
		e.st.OnError(ev.Data)
		logrus.WithField("error", e.st.ErrorMessage).Warn("rewriter: upstream stream error")
		return e.emit("response.error", types.ResponsesEvent{
			Error: &types.ErrorDetail{Message: e.st.ErrorMessage, Type: "upstream_error"},
		})
	}
	return nil
}

func (e *ResponsesEmitter) openMessageItem() error {
	e.messageItemID = "msg_" + uuid.NewString()
	e.messageOutputIndex = e.nextOutputIndex()
	if err := e.emit("response.output_item.added", types.ResponsesEvent{
		OutputIndex: e.messageOutputIndex,
		Item:        &types.ResponsesOutputItem{Type: "message", ID: e.messageItemID, Role: "assistant"},
	}); err != nil {
		return err
	}
	if err := e.emit("response.content_part.added", types.ResponsesEvent{
		ItemID:      e.messageItemID,
		OutputIndex: e.messageOutputIndex,
		Part:        &types.ResponsesContent{Type: "output_text"},
	}); err != nil {
		return err
	}
	e.messageItemCreated = true
	e.textPartOpen = true
	return nil
}

func (e *ResponsesEmitter) closeMessageItem(fullText string) error {
	if !e.textPartOpen {
		return nil
	}
	if err := e.emit("response.content_part.done", types.ResponsesEvent{
		ItemID:      e.messageItemID,
		OutputIndex: e.messageOutputIndex,
		Part:        &types.ResponsesContent{Type: "output_text", Text: fullText},
	}); err != nil {
		return err
	}
	e.textPartOpen = false
	return e.emit("response.output_item.done", types.ResponsesEvent{
		OutputIndex: e.messageOutputIndex,
		Item: &types.ResponsesOutputItem{
			Type: "message", ID: e.messageItemID, Role: "assistant",
			Content: []types.ResponsesContent{{Type: "output_text", Text: fullText}},
		},
	})
}

// Finish closes any still-open message item (the stream ended mid-text, via
// an error), emits response.completed with the assembled output and usage,
// and returns the accumulated CollectedResponse for non-stream rendering.
func (e *ResponsesEmitter) Finish() *types.CollectedResponse {
	collected := e.st.Collected()
	if e.textPartOpen {
		_ = e.closeMessageItem(e.st.Text())
	}

	status := "completed"
	if collected.ErrorMessage != "" {
		status = "failed"
	}

	var output []types.ResponsesOutputItem
	for _, idx := range e.st.Order {
		b := e.st.Blocks[idx]
		switch b.Kind {
		case "text":
			if b.Text.Len() == 0 {
				continue
			}
			output = append(output, types.ResponsesOutputItem{
				Type: "message", ID: e.messageItemID, Role: "assistant",
				Content: []types.ResponsesContent{{Type: "output_text", Text: b.Text.String()}},
			})
		case "tool_use":
			output = append(output, types.ResponsesOutputItem{
				Type: "function_call", CallID: b.ID, Name: b.Name, Arguments: b.Args.String(),
			})
		}
	}

	resp := &types.ResponsesObject{
		ID:     e.id,
		Object: "response",
		Model:  e.model,
		Status: status,
		Output: output,
		Usage: &types.ResponsesUsage{
			InputTokens:  collected.InputTokens,
			OutputTokens: collected.OutputTokens,
			TotalTokens:  collected.InputTokens + collected.OutputTokens,
		},
	}
	if collected.ErrorMessage != "" {
		resp.Error = &types.ErrorDetail{Message: collected.ErrorMessage, Type: "upstream_error"}
	}
	_ = e.emit("response.completed", types.ResponsesEvent{Response: resp})
	return collected
}

func (e *ResponsesEmitter) nextOutputIndex() int {
	idx := e.outputIndex
	e.outputIndex++
	return idx
}

func (e *ResponsesEmitter) emit(eventType string, ev types.ResponsesEvent) error {
	ev.Type = eventType
	ev.SequenceNumber = e.seq
	e.seq++
	if !e.streamOut {
		return nil
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	b = decorator.StripPrefix(b)
	if _, err := fmt.Fprintf(e.w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", b); err != nil {
		return err
	}
	if e.flush != nil {
		e.flush()
	}
	return nil
}
