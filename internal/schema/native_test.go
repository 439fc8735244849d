package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalehub/claude-relay/internal/types"
)

func TestEncodeNativeRequest_MergesAdjacentAssistantTurns(t *testing.T) {
	conv := &types.Conversation{}
	conv.AppendSystemFragment("be helpful")
	conv.AppendUser([]types.UserPart{{Kind: types.UserPartText, Text: "weather?"}})
	conv.AppendAssistantText("checking")
	conv.AppendAssistantToolCalls([]types.ToolCall{{CallID: "call_1", ToolName: "get_weather", Arguments: `{"city":"NYC"}`}})
	conv.AppendToolResults([]types.ToolResult{{CallID: "call_1", ToolName: "get_weather", Output: "sunny"}})

	d := &Decoded{
		Conversation: conv,
		Model:        "claude-x",
		MaxTokens:    1024,
		ToolChoice:   Choice{},
	}

	req := EncodeNativeRequest(d)
	require.Len(t, req.Messages, 3) // user, merged-assistant(text+tool_use), user(tool_result)

	var sys string
	require.NoError(t, json.Unmarshal(req.System, &sys))
	assert.Equal(t, "be helpful", sys)

	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "assistant", req.Messages[1].Role)

	var assistantBlocks []types.AnthropicContentBlock
	require.NoError(t, json.Unmarshal(req.Messages[1].Content, &assistantBlocks))
	require.Len(t, assistantBlocks, 2)
	assert.Equal(t, "text", assistantBlocks[0].Type)
	assert.Equal(t, "tool_use", assistantBlocks[1].Type)

	assert.Equal(t, "user", req.Messages[2].Role)
	var resultBlocks []types.AnthropicContentBlock
	require.NoError(t, json.Unmarshal(req.Messages[2].Content, &resultBlocks))
	require.Len(t, resultBlocks, 1)
	assert.Equal(t, "tool_result", resultBlocks[0].Type)
	assert.Equal(t, "call_1", resultBlocks[0].ToolUseID)
}

func TestSplitDataURI(t *testing.T) {
	mt, data := splitDataURI("data:image/png;base64,QUJD")
	assert.Equal(t, "image/png", mt)
	assert.Equal(t, "QUJD", data)
}
