package types

import "encoding/json"

// MessagesRequest is the POST /v1/messages request body, Anthropic's native
// Messages wire shape.
type MessagesRequest struct {
	Model                  string             `json:"model"`
	System                 json.RawMessage    `json:"system,omitempty"`
	Messages               []AnthropicMessage `json:"messages"`
	Stream                 bool               `json:"stream,omitempty"`
	MaxTokens              int                `json:"max_tokens,omitempty"`
	Tools                  []AnthropicTool    `json:"tools,omitempty"`
	ToolChoice             any                `json:"tool_choice,omitempty"`
	Metadata               map[string]any     `json:"metadata,omitempty"`
	DisableParallelToolUse *bool              `json:"disable_parallel_tool_use,omitempty"`
}

// AnthropicMessage is one entry of MessagesRequest.Messages. Content may be
// a bare string or a list of content blocks; ParseContent normalizes both.
type AnthropicMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// AnthropicContentBlock is one element of a message's content block list.
type AnthropicContentBlock struct {
	Type         string          `json:"type"`
	Text         string          `json:"text,omitempty"`
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name,omitempty"`
	Input        map[string]any  `json:"input,omitempty"`
	ToolUseID    string          `json:"tool_use_id,omitempty"`
	Content      json.RawMessage `json:"content,omitempty"`
	Source       json.RawMessage `json:"source,omitempty"`
	CacheControl *CacheControl   `json:"cache_control,omitempty"`
}

// CacheControl is the ephemeral cache marker the decorator attaches.
type CacheControl struct {
	Type string `json:"type"`
}

// AnthropicTool is one entry of MessagesRequest.Tools.
type AnthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// ParseContent normalizes AnthropicMessage.Content into a content block
// list whether the wire sent a bare string or an array of blocks.
func (m AnthropicMessage) ParseContent() ([]AnthropicContentBlock, error) {
	trimmed := trimLeadingSpace(m.Content)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(m.Content, &s); err != nil {
			return nil, err
		}
		if s == "" {
			return nil, nil
		}
		return []AnthropicContentBlock{{Type: "text", Text: s}}, nil
	}
	var blocks []AnthropicContentBlock
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func trimLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return b[i:]
}

// ParseToolResultText extracts the text of a tool_result block's content,
// which may be a bare string or a list of {type:text} blocks.
func ParseToolResultText(raw json.RawMessage) string {
	trimmed := trimLeadingSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		return ""
	}
	var blocks []AnthropicContentBlock
	if json.Unmarshal(raw, &blocks) == nil {
		var out string
		for _, b := range blocks {
			if b.Type == "text" || b.Type == "" {
				out += b.Text
			}
		}
		return out
	}
	return ""
}

// MessagesResponse is the non-streaming POST /v1/messages response body.
type MessagesResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Model      string                  `json:"model"`
	Content    []AnthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      *AnthropicUsage         `json:"usage,omitempty"`
}

// AnthropicUsage is the Messages-shaped usage object.
type AnthropicUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// AnthropicEvent is one SSE event of the upstream's native Messages
// streaming vocabulary. The "to Messages" rewriter forwards upstream event
// bytes as they are and does not build this type. Fields not used by a
// given Type are omitted on the wire.
type AnthropicEvent struct {
	Type         string                 `json:"type"`
	Message      *AnthropicEventMessage `json:"message,omitempty"`
	Index        *int                   `json:"index,omitempty"`
	ContentBlock *AnthropicContentBlock `json:"content_block,omitempty"`
	Delta        *AnthropicEventDelta   `json:"delta,omitempty"`
	Usage        *AnthropicUsage        `json:"usage,omitempty"`
	Error        *ErrorDetail           `json:"error,omitempty"`
}

// AnthropicEventMessage is the message envelope of a message_start event.
type AnthropicEventMessage struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Model      string                  `json:"model"`
	Content    []AnthropicContentBlock `json:"content"`
	StopReason *string                 `json:"stop_reason"`
	Usage      *AnthropicUsage         `json:"usage,omitempty"`
}

// AnthropicEventDelta is the delta payload of content_block_delta and
// message_delta events. Only the fields relevant to the event's content
// block kind are populated.
type AnthropicEventDelta struct {
	Type        string          `json:"type,omitempty"` // text_delta | input_json_delta
	Text        string          `json:"text,omitempty"`
	PartialJSON string          `json:"partial_json,omitempty"`
	StopReason  *string         `json:"stop_reason,omitempty"`
}
