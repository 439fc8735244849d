package schema

import (
	"encoding/json"
	"strings"

	"github.com/kalehub/claude-relay/internal/types"
)

// wireMsg accumulates canonical turns that render to the same native
// message: spec §4.4 separates assistant-text and assistant-tool-calls into
// distinct canonical turns, but the native wire wants them in one message's
// content array when they're adjacent, same for consecutive tool-results
// and user turns (both render as role "user").
type wireMsg struct {
	role   string
	blocks []types.AnthropicContentBlock
}

// EncodeNativeRequest renders a canonical conversation plus its tools,
// tool-choice, model, and max-tokens into the native Messages request body.
// Used for the Chat-Completions and Responses inbound shapes; the native
// Messages shape itself skips this and decorates its raw body directly.
func EncodeNativeRequest(d *Decoded) *types.MessagesRequest {
	var msgs []wireMsg
	appendBlocks := func(role string, blocks []types.AnthropicContentBlock) {
		if len(blocks) == 0 {
			return
		}
		if n := len(msgs); n > 0 && msgs[n-1].role == role {
			msgs[n-1].blocks = append(msgs[n-1].blocks, blocks...)
			return
		}
		msgs = append(msgs, wireMsg{role: role, blocks: blocks})
	}

	for _, t := range d.Conversation.NonSystemTurns() {
		switch t.Kind {
		case types.TurnUser:
			appendBlocks("user", userPartsToBlocks(t.UserParts))
		case types.TurnAssistantText:
			appendBlocks("assistant", []types.AnthropicContentBlock{{Type: "text", Text: t.Text}})
		case types.TurnAssistantToolCalls:
			blocks := make([]types.AnthropicContentBlock, 0, len(t.ToolCalls))
			for _, call := range t.ToolCalls {
				var input map[string]any
				_ = json.Unmarshal([]byte(call.Arguments), &input)
				blocks = append(blocks, types.AnthropicContentBlock{
					Type:  "tool_use",
					ID:    call.CallID,
					Name:  call.ToolName,
					Input: input,
				})
			}
			appendBlocks("assistant", blocks)
		case types.TurnToolResults:
			blocks := make([]types.AnthropicContentBlock, 0, len(t.ToolResults))
			for _, r := range t.ToolResults {
				outputJSON, _ := json.Marshal(r.Output)
				blocks = append(blocks, types.AnthropicContentBlock{
					Type:      "tool_result",
					ToolUseID: r.CallID,
					Content:   outputJSON,
				})
			}
			appendBlocks("user", blocks)
		}
	}

	messages := make([]types.AnthropicMessage, 0, len(msgs))
	for _, m := range msgs {
		content, _ := json.Marshal(m.blocks)
		messages = append(messages, types.AnthropicMessage{Role: m.role, Content: content})
	}

	tools := make([]types.AnthropicTool, 0, len(d.Tools))
	for _, t := range d.Tools {
		tools = append(tools, types.AnthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	var system json.RawMessage
	if text := d.Conversation.SystemText(); text != "" {
		system, _ = json.Marshal(text)
	}

	return &types.MessagesRequest{
		Model:                  d.Model,
		System:                 system,
		Messages:               messages,
		Stream:                 true, // C6 always streams upstream; C5 collects for non-stream callers
		MaxTokens:              d.MaxTokens,
		Tools:                  tools,
		ToolChoice:             d.ToolChoice.Native(),
		DisableParallelToolUse: d.DisableParallelToolUse,
	}
}

func userPartsToBlocks(parts []types.UserPart) []types.AnthropicContentBlock {
	blocks := make([]types.AnthropicContentBlock, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case types.UserPartText:
			blocks = append(blocks, types.AnthropicContentBlock{Type: "text", Text: p.Text})
		case types.UserPartImageRef:
			blocks = append(blocks, imageBlock(p.ImageRef))
		}
	}
	return blocks
}

// imageBlock renders a URL or data: URI image reference into the native
// image content block shape.
func imageBlock(ref string) types.AnthropicContentBlock {
	if strings.HasPrefix(ref, "data:") {
		mediaType, data := splitDataURI(ref)
		source, _ := json.Marshal(map[string]any{
			"type":       "base64",
			"media_type": mediaType,
			"data":       data,
		})
		return types.AnthropicContentBlock{Type: "image", Source: source}
	}
	source, _ := json.Marshal(map[string]any{"type": "url", "url": ref})
	return types.AnthropicContentBlock{Type: "image", Source: source}
}

// splitDataURI splits "data:<mediaType>;base64,<data>" into its parts.
func splitDataURI(uri string) (mediaType, data string) {
	rest := strings.TrimPrefix(uri, "data:")
	semi := strings.IndexByte(rest, ';')
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", ""
	}
	if semi >= 0 && semi < comma {
		mediaType = rest[:semi]
	}
	data = rest[comma+1:]
	return mediaType, data
}
