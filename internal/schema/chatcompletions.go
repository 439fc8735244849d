package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kalehub/claude-relay/internal/types"
)

// DefaultMaxTokens is used when a caller's request carries no max_tokens;
// the upstream requires a positive value on every native call.
const DefaultMaxTokens = 4096

// DecodeChatCompletions reduces a Chat-Completions request to the canonical
// conversation (spec §4.4 "From Chat-Completions").
func DecodeChatCompletions(req *types.ChatCompletionRequest) (*Decoded, error) {
	if len(req.Messages) == 0 {
		return nil, badRequest("messages", "messages must not be empty")
	}

	// Pass 1: collect callId -> toolName from every assistant tool_calls list.
	toolNameByCallID := map[string]string{}
	for _, m := range req.Messages {
		for _, tc := range m.ToolCalls {
			toolNameByCallID[tc.ID] = tc.Function.Name
		}
	}

	conv := &types.Conversation{}

	for i := 0; i < len(req.Messages); {
		m := req.Messages[i]

		if m.Role == "tool" {
			var results []types.ToolResult
			j := i
			for j < len(req.Messages) && req.Messages[j].Role == "tool" {
				tm := req.Messages[j]
				text, err := contentText(tm.Content)
				if err != nil {
					return nil, badRequest("messages[].content", "tool message content must be a string or content-part array")
				}
				results = append(results, types.ToolResult{
					CallID:   tm.ToolCallID,
					ToolName: toolNameByCallID[tm.ToolCallID],
					Output:   text,
				})
				j++
			}
			conv.AppendToolResults(results)
			i = j
			continue
		}

		switch m.Role {
		case "system", "developer":
			text, err := contentText(m.Content)
			if err != nil {
				return nil, badRequest("messages[].content", "system message content must be a string or content-part array")
			}
			conv.AppendSystemFragment(text)
		case "user":
			parts, err := contentUserParts(m.Content)
			if err != nil {
				return nil, badRequest("messages[].content", "user message content must be a string or content-part array")
			}
			conv.AppendUser(parts)
		case "assistant":
			text, err := contentText(m.Content)
			if err != nil {
				return nil, badRequest("messages[].content", "assistant message content must be a string or content-part array")
			}
			conv.AppendAssistantText(text)
			if len(m.ToolCalls) > 0 {
				calls := make([]types.ToolCall, 0, len(m.ToolCalls))
				for _, tc := range m.ToolCalls {
					calls = append(calls, types.ToolCall{
						CallID:    tc.ID,
						ToolName:  tc.Function.Name,
						Arguments: tc.Function.Arguments,
					})
				}
				conv.AppendAssistantToolCalls(calls)
			}
		default:
			return nil, badRequest("messages[].role", fmt.Sprintf("unsupported role %q", m.Role))
		}
		i++
	}

	tools := make([]types.ToolDescriptor, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, types.ToolDescriptor{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}

	maxTokens := DefaultMaxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	firstJSON, _ := json.Marshal(req.Messages[0])

	return &Decoded{
		Conversation:           conv,
		Tools:                  tools,
		ToolChoice:             TranslateToolChoice(req.ToolChoice, tools),
		Model:                  req.Model,
		Stream:                 req.Stream,
		MaxTokens:              maxTokens,
		DisableParallelToolUse: disableParallelToolUse(req.ParallelToolCalls, len(tools)),
		SessionExplicit:        req.SessionID,
		SessionShape:           ShapeMessage,
		SequenceLen:            len(req.Messages),
		FirstElementJSON:       firstJSON,
	}, nil
}

// EncodeChatCompletionResponse renders a collected upstream result into the
// non-streaming Chat-Completions response shape.
func EncodeChatCompletionResponse(id, model string, c *types.CollectedResponse) *types.ChatCompletionResponse {
	finish := finishReason(c)

	msg := types.ChatResponseMsg{
		Role:    "assistant",
		Content: c.Text,
	}
	for i, tc := range c.ToolCalls {
		idx := i
		msg.ToolCalls = append(msg.ToolCalls, types.ChatToolCall{
			Index: &idx,
			ID:    tc.CallID,
			Type:  "function",
			Function: types.FunctionCall{
				Name:      tc.ToolName,
				Arguments: tc.Arguments,
			},
		})
	}

	return &types.ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Model:   model,
		Choices: []types.ChatChoice{{Index: 0, Message: msg, FinishReason: finish}},
		Usage: &types.Usage{
			PromptTokens:     c.InputTokens,
			CompletionTokens: c.OutputTokens,
			TotalTokens:      c.InputTokens + c.OutputTokens,
		},
	}
}

func finishReason(c *types.CollectedResponse) string {
	switch {
	case c.ErrorMessage != "":
		return "error"
	case len(c.ToolCalls) > 0:
		return "tool_calls"
	default:
		return "stop"
	}
}

func contentText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var parts []types.ContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String(), nil
}

func contentUserParts(raw json.RawMessage) ([]types.UserPart, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if s == "" {
			return nil, nil
		}
		return []types.UserPart{{Kind: types.UserPartText, Text: s}}, nil
	}
	var parts []types.ContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, err
	}
	out := make([]types.UserPart, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "text":
			out = append(out, types.UserPart{Kind: types.UserPartText, Text: p.Text})
		case "image_url":
			url := ""
			if p.ImageURL != nil {
				url = p.ImageURL.URL
			}
			out = append(out, types.UserPart{Kind: types.UserPartImageRef, ImageRef: url})
		}
	}
	return out, nil
}
