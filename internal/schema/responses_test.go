package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalehub/claude-relay/internal/types"
)

func textContent(s string) []types.ResponsesContent {
	return []types.ResponsesContent{{Type: "input_text", Text: s}}
}

func TestDecodeResponses_ParallelToolCallsFalseInvertsToDisable(t *testing.T) {
	req := &types.ResponsesRequest{
		Model: "gpt-4",
		Input: []types.ResponsesInputItem{
			{Type: "message", Role: "user", Content: textContent("hi")},
		},
		Tools:             []types.ResponsesTool{{Type: "function", Name: "lookup"}},
		ParallelToolCalls: boolPtr(false),
	}

	d, err := DecodeResponses(req)
	require.NoError(t, err)
	require.NotNil(t, d.DisableParallelToolUse)
	assert.True(t, *d.DisableParallelToolUse)
}

func TestDecodeResponses_ParallelToolCallsDroppedWhenToolsEmpty(t *testing.T) {
	req := &types.ResponsesRequest{
		Model: "gpt-4",
		Input: []types.ResponsesInputItem{
			{Type: "message", Role: "user", Content: textContent("hi")},
		},
		ParallelToolCalls: boolPtr(false),
	}

	d, err := DecodeResponses(req)
	require.NoError(t, err)
	assert.Nil(t, d.DisableParallelToolUse)
}

// TestDecodeResponses_ToolCallingLoop is scenario S3: the outputs for two
// bare function_calls arrive after an intervening assistant message, so the
// "planning" text must follow the spliced-together tool-calls/tool-results
// pair rather than precede it.
func TestDecodeResponses_ToolCallingLoop(t *testing.T) {
	req := &types.ResponsesRequest{
		Model: "gpt-4",
		Input: []types.ResponsesInputItem{
			{Type: "message", Role: "developer", Content: textContent("be nice")},
			{Type: "message", Role: "user", Content: textContent("weather in nyc and sf?")},
			{Type: "function_call", CallID: "call_A", Name: "get_weather", Arguments: `{"city":"NYC"}`},
			{Type: "function_call", CallID: "call_B", Name: "get_weather", Arguments: `{"city":"SF"}`},
			{Type: "message", Role: "assistant", Content: textContent("planning")},
			{Type: "function_call_output", CallID: "call_A", Output: "sunny"},
			{Type: "function_call_output", CallID: "call_B", Output: "foggy"},
		},
	}

	d, err := DecodeResponses(req)
	require.NoError(t, err)

	turns := d.Conversation.Turns
	require.Len(t, turns, 5)
	assert.Equal(t, types.TurnSystemFragment, turns[0].Kind)
	assert.Equal(t, types.TurnUser, turns[1].Kind)

	assert.Equal(t, types.TurnAssistantToolCalls, turns[2].Kind)
	require.Len(t, turns[2].ToolCalls, 2)
	assert.Equal(t, "call_A", turns[2].ToolCalls[0].CallID)
	assert.Equal(t, "call_B", turns[2].ToolCalls[1].CallID)

	assert.Equal(t, types.TurnToolResults, turns[3].Kind)
	require.Len(t, turns[3].ToolResults, 2)
	assert.Equal(t, "sunny", turns[3].ToolResults[0].Output)
	assert.Equal(t, "foggy", turns[3].ToolResults[1].Output)

	assert.Equal(t, types.TurnAssistantText, turns[4].Kind)
	assert.Equal(t, "planning", turns[4].Text)
}

func TestDecodeResponses_BatchingWindow(t *testing.T) {
	// call C's output is in the window (before the next message); call D's
	// output never arrives in this input at all, so D stands alone.
	req := &types.ResponsesRequest{
		Model: "gpt-4",
		Input: []types.ResponsesInputItem{
			{Type: "message", Role: "user", Content: textContent("go")},
			{Type: "message", Role: "assistant", Content: textContent("checking")},
			{Type: "function_call", CallID: "call_C", Name: "c"},
			{Type: "function_call_output", CallID: "call_C", Output: "c-out"},
			{Type: "function_call", CallID: "call_D", Name: "d"},
			{Type: "message", Role: "assistant", Content: textContent("done")},
		},
	}

	d, err := DecodeResponses(req)
	require.NoError(t, err)

	var kinds []types.TurnKind
	for _, t := range d.Conversation.Turns {
		kinds = append(kinds, t.Kind)
	}
	assert.Equal(t, []types.TurnKind{
		types.TurnUser,
		types.TurnAssistantText,      // "checking"
		types.TurnAssistantToolCalls, // call_C, paired in-window
		types.TurnToolResults,
		types.TurnAssistantToolCalls, // call_D, an orphan flushed before "done" is appended
		types.TurnToolResults,        // empty output: D never got one in this input
		types.TurnAssistantText,      // "done"
	}, kinds)
}

func TestDecodeResponses_RequiresNonEmptyInput(t *testing.T) {
	_, err := DecodeResponses(&types.ResponsesRequest{Model: "gpt-4"})
	require.Error(t, err)
}
