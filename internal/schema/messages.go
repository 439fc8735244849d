package schema

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/kalehub/claude-relay/internal/types"
)

// DecodeMessages extracts routing metadata from a native Messages request.
// Per spec §4.4 "From Messages: the canonical form already; only apply C3" —
// the body needs no conversation-model round trip, since it is already the
// shape the upstream accepts. Decoded.Conversation is left nil; the proxy
// decorates RawBody directly instead of calling EncodeNativeRequest.
func DecodeMessages(req *types.MessagesRequest, rawBody []byte) (*Decoded, error) {
	if req.Model == "" {
		return nil, badRequest("model", "model must not be empty")
	}
	if len(req.Messages) == 0 {
		return nil, badRequest("messages", "messages must not be empty")
	}

	tools := make([]types.ToolDescriptor, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, types.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	sessionExplicit := gjson.GetBytes(rawBody, "session_id").String()
	firstJSON, _ := json.Marshal(req.Messages[0])

	return &Decoded{
		Tools:            tools,
		ToolChoice:       TranslateToolChoice(req.ToolChoice, tools),
		Model:            req.Model,
		Stream:           req.Stream,
		MaxTokens:        req.MaxTokens,
		SessionExplicit:  sessionExplicit,
		SessionShape:     ShapeMessage,
		SequenceLen:      len(req.Messages),
		FirstElementJSON: firstJSON,
		RawBody:          rawBody,
	}, nil
}

// EncodeMessagesResponse renders a collected upstream result into the
// non-streaming Messages response shape. Only called when c.ErrorMessage is
// empty; a non-stream error renders as the protocol's error envelope
// instead (spec §7).
func EncodeMessagesResponse(id, model string, c *types.CollectedResponse) *types.MessagesResponse {
	var content []types.AnthropicContentBlock
	if c.Text != "" {
		content = append(content, types.AnthropicContentBlock{Type: "text", Text: c.Text})
	}
	for _, tc := range c.ToolCalls {
		var input map[string]any
		_ = json.Unmarshal([]byte(tc.Arguments), &input)
		content = append(content, types.AnthropicContentBlock{
			Type:  "tool_use",
			ID:    tc.CallID,
			Name:  tc.ToolName,
			Input: input,
		})
	}

	stopReason := "end_turn"
	if len(c.ToolCalls) > 0 {
		stopReason = "tool_use"
	}

	return &types.MessagesResponse{
		ID:         id,
		Type:       "message",
		Role:       "assistant",
		Model:      model,
		Content:    content,
		StopReason: stopReason,
		Usage: &types.AnthropicUsage{
			InputTokens:  c.InputTokens,
			OutputTokens: c.OutputTokens,
		},
	}
}
