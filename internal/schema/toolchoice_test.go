package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kalehub/claude-relay/internal/types"
)

func TestTranslateToolChoice(t *testing.T) {
	tools := []types.ToolDescriptor{{Name: "get_weather"}}

	assert.Equal(t, Choice{Kind: "none"}, TranslateToolChoice("none", tools))
	assert.Equal(t, Choice{Kind: "auto"}, TranslateToolChoice("auto", tools))
	assert.Equal(t, Choice{Kind: "required"}, TranslateToolChoice("required", tools))

	assert.Equal(t, Choice{Kind: "tool", Name: "get_weather"}, TranslateToolChoice(
		map[string]any{"type": "function", "function": map[string]any{"name": "get_weather"}}, tools))

	assert.Equal(t, Choice{Kind: "required"}, TranslateToolChoice(map[string]any{"type": "function"}, tools))
	assert.Equal(t, Choice{Kind: "required"}, TranslateToolChoice(map[string]any{"type": "any"}, tools))

	// names a tool not in the list: downgrade to auto.
	assert.Equal(t, Choice{Kind: "auto"}, TranslateToolChoice(
		map[string]any{"type": "function", "function": map[string]any{"name": "nonexistent"}}, tools))

	// no tools supplied, choice other than none: dropped.
	assert.Equal(t, Choice{}, TranslateToolChoice("auto", nil))
	// no tools supplied, none: passes through.
	assert.Equal(t, Choice{Kind: "none"}, TranslateToolChoice("none", nil))
}

func TestChoiceNative(t *testing.T) {
	assert.Nil(t, Choice{}.Native())
	assert.Equal(t, map[string]any{"type": "none"}, Choice{Kind: "none"}.Native())
	assert.Equal(t, map[string]any{"type": "auto"}, Choice{Kind: "auto"}.Native())
	assert.Equal(t, map[string]any{"type": "any"}, Choice{Kind: "required"}.Native())
	assert.Equal(t, map[string]any{"type": "tool", "name": "x"}, Choice{Kind: "tool", Name: "x"}.Native())
}
