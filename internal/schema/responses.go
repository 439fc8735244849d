package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kalehub/claude-relay/internal/types"
)

// DecodeResponses reduces a Responses request to the canonical conversation
// using spec §4.4's "From Responses" algorithm: real tool-calling-loop
// clients emit function_call/function_call_output items in wire orders
// that do not natively satisfy the canonical model's invariant 1, so calls
// are always paired with their matching outputs (looked up across the
// whole input, not just adjacent items) at the moment they're turned into a
// turn, rather than emitted speculatively and spliced together afterward.
func DecodeResponses(req *types.ResponsesRequest) (*Decoded, error) {
	if req.Model == "" {
		return nil, badRequest("model", "model must not be empty")
	}
	if len(req.Input) == 0 {
		return nil, badRequest("input", "input must not be empty")
	}

	items := req.Input

	// Pass 1: every function_call_output's text, keyed by call id, gathered
	// from anywhere in the input.
	pendingOutputs := map[string]string{}
	for _, it := range items {
		if it.Type == "function_call_output" {
			pendingOutputs[it.CallID] = it.Output
		}
	}

	conv := &types.Conversation{}
	seenCalls := map[string]bool{}
	consumedOutputs := map[string]bool{}
	var buffered []types.ToolCall

	flushPaired := func(calls []types.ToolCall) {
		if len(calls) == 0 {
			return
		}
		conv.AppendAssistantToolCalls(calls)
		results := make([]types.ToolResult, 0, len(calls))
		for _, c := range calls {
			results = append(results, types.ToolResult{
				CallID:   c.CallID,
				ToolName: c.ToolName,
				Output:   pendingOutputs[c.CallID],
			})
			consumedOutputs[c.CallID] = true
		}
		conv.AppendToolResults(results)
	}

	for i := 0; i < len(items); i++ {
		it := items[i]

		switch it.Type {
		case "message":
			role := normalizeResponsesRole(it.Role)

			if role == "assistant" {
				// Rule 2: orphan calls buffered before this message.
				if len(buffered) > 0 {
					flushPaired(buffered)
					buffered = nil
				}

				if text := responsesContentText(it.Content); text != "" {
					conv.AppendAssistantText(text)
				}

				// Rule 3: batching window up to (not including) the next message.
				nextMsg := indexOfNextResponsesMessage(items, i+1)
				windowCalls, windowOutputs := collectWindow(items, i+1, nextMsg, seenCalls)
				var inWindow, leftover []types.ToolCall
				for _, c := range windowCalls {
					if _, ok := windowOutputs[c.CallID]; ok {
						inWindow = append(inWindow, c)
					} else {
						leftover = append(leftover, c)
					}
				}
				flushPaired(inWindow)
				buffered = append(buffered, leftover...)
				continue
			}

			if role == "user" {
				conv.AppendUser(responsesContentToUserParts(it.Content))
				continue
			}

			// system / developer
			if text := responsesContentText(it.Content); text != "" {
				conv.AppendSystemFragment(text)
			}

		case "function_call":
			if seenCalls[it.CallID] {
				continue
			}
			seenCalls[it.CallID] = true
			buffered = append(buffered, types.ToolCall{CallID: it.CallID, ToolName: it.Name, Arguments: it.Arguments})

		case "function_call_output":
			if consumedOutputs[it.CallID] {
				continue
			}
			if len(buffered) > 0 {
				// Rule 4: this output terminates the current bare-call run.
				flushPaired(buffered)
				buffered = nil
			} else {
				// Orphan output with no pending call: still surfaced so its
				// text is not silently lost.
				conv.AppendToolResults([]types.ToolResult{{CallID: it.CallID, Output: it.Output}})
				consumedOutputs[it.CallID] = true
			}

		default:
			return nil, badRequest("input[].type", fmt.Sprintf("unsupported item type %q", it.Type))
		}
	}

	if len(buffered) > 0 {
		flushPaired(buffered)
	}

	tools := make([]types.ToolDescriptor, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, types.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	maxTokens := DefaultMaxTokens
	if req.MaxOutputTokens != nil && *req.MaxOutputTokens > 0 {
		maxTokens = *req.MaxOutputTokens
	}

	firstJSON, _ := json.Marshal(req.Input[0])

	return &Decoded{
		Conversation:           conv,
		Tools:                  tools,
		ToolChoice:             TranslateToolChoice(req.ToolChoice, tools),
		Model:                  req.Model,
		Stream:                 req.Stream,
		MaxTokens:              maxTokens,
		DisableParallelToolUse: disableParallelToolUse(req.ParallelToolCalls, len(tools)),
		SessionExplicit:        req.SessionID,
		SessionShape:           ShapeInput,
		SequenceLen:            len(req.Input),
		FirstElementJSON:       firstJSON,
	}, nil
}

// indexOfNextResponsesMessage returns the index of the next message-type
// item at or after start, or len(items) if there is none.
func indexOfNextResponsesMessage(items []types.ResponsesInputItem, start int) int {
	for i := start; i < len(items); i++ {
		if items[i].Type == "message" {
			return i
		}
	}
	return len(items)
}

// collectWindow gathers the function_call items and function_call_output
// texts in items[start:end], skipping calls already seen elsewhere.
func collectWindow(items []types.ResponsesInputItem, start, end int, seenCalls map[string]bool) ([]types.ToolCall, map[string]string) {
	var calls []types.ToolCall
	outputs := map[string]string{}
	for i := start; i < end; i++ {
		it := items[i]
		switch it.Type {
		case "function_call":
			if seenCalls[it.CallID] {
				continue
			}
			seenCalls[it.CallID] = true
			calls = append(calls, types.ToolCall{CallID: it.CallID, ToolName: it.Name, Arguments: it.Arguments})
		case "function_call_output":
			outputs[it.CallID] = it.Output
		}
	}
	return calls, outputs
}

func normalizeResponsesRole(role string) string {
	switch role {
	case "system", "developer":
		return "system"
	case "assistant", "user":
		return role
	default:
		return "user"
	}
}

func responsesContentText(content []types.ResponsesContent) string {
	var b strings.Builder
	for _, c := range content {
		switch c.Type {
		case "input_text", "output_text":
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

func responsesContentToUserParts(content []types.ResponsesContent) []types.UserPart {
	parts := make([]types.UserPart, 0, len(content))
	for _, c := range content {
		switch c.Type {
		case "input_text", "output_text":
			parts = append(parts, types.UserPart{Kind: types.UserPartText, Text: c.Text})
		case "input_image":
			parts = append(parts, types.UserPart{Kind: types.UserPartImageRef, ImageRef: c.ImageURL})
		}
	}
	return parts
}

// EncodeResponsesObject renders a collected upstream result into the
// non-streaming Responses response shape.
func EncodeResponsesObject(id, model string, c *types.CollectedResponse) *types.ResponsesObject {
	var output []types.ResponsesOutputItem
	if c.Text != "" {
		output = append(output, types.ResponsesOutputItem{
			Type: "message",
			Role: "assistant",
			Content: []types.ResponsesContent{{Type: "output_text", Text: c.Text}},
		})
	}
	for _, tc := range c.ToolCalls {
		output = append(output, types.ResponsesOutputItem{
			Type:      "function_call",
			Name:      tc.ToolName,
			Arguments: tc.Arguments,
			CallID:    tc.CallID,
		})
	}

	status := "completed"
	var errDetail *types.ErrorDetail
	if c.ErrorMessage != "" {
		status = "failed"
		errDetail = &types.ErrorDetail{Message: c.ErrorMessage, Type: "upstream_fatal"}
	}

	return &types.ResponsesObject{
		ID:     id,
		Object: "response",
		Model:  model,
		Status: status,
		Output: output,
		Usage: &types.ResponsesUsage{
			InputTokens:  c.InputTokens,
			OutputTokens: c.OutputTokens,
			TotalTokens:  c.InputTokens + c.OutputTokens,
		},
		Error: errDetail,
	}
}
