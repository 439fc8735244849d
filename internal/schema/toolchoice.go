package schema

import (
	"github.com/sirupsen/logrus"

	"github.com/kalehub/claude-relay/internal/types"
)

// Choice is the canonical tool-choice token every inbound shape reduces to
// before being rendered into the native Messages wire form. Kind "" means
// "omit the field entirely" — the choice was dropped because no tools were
// supplied.
type Choice struct {
	Kind string // "" | none | auto | required | tool
	Name string // set only when Kind == "tool"
}

// TranslateToolChoice implements spec §4.4's tool-choice translation,
// shared by all three decoders.
func TranslateToolChoice(raw any, tools []types.ToolDescriptor) Choice {
	c := parseRawChoice(raw, len(tools))

	if c.Kind == "tool" {
		found := false
		for _, t := range tools {
			if t.Name == c.Name {
				found = true
				break
			}
		}
		if !found {
			logrus.WithField("tool", c.Name).Warn("schema.tool_choice: named tool not in tool list, downgrading to auto")
			c = Choice{Kind: "auto"}
		}
	}

	if len(tools) == 0 && c.Kind != "none" {
		return Choice{}
	}

	return c
}

func parseRawChoice(raw any, toolCount int) Choice {
	switch v := raw.(type) {
	case nil:
		if toolCount == 0 {
			return Choice{}
		}
		return Choice{Kind: "auto"}
	case string:
		switch v {
		case "none", "auto", "required":
			return Choice{Kind: v}
		default:
			return Choice{Kind: "auto"}
		}
	case map[string]any:
		t, _ := v["type"].(string)
		switch t {
		case "function":
			if fn, ok := v["function"].(map[string]any); ok {
				if name, ok := fn["name"].(string); ok && name != "" {
					return Choice{Kind: "tool", Name: name}
				}
			}
			return Choice{Kind: "required"}
		case "any":
			return Choice{Kind: "required"}
		case "none":
			return Choice{Kind: "none"}
		case "auto":
			return Choice{Kind: "auto"}
		case "tool":
			name, _ := v["name"].(string)
			return Choice{Kind: "tool", Name: name}
		default:
			return Choice{Kind: "auto"}
		}
	default:
		return Choice{Kind: "auto"}
	}
}

// Native renders the canonical choice into the native Messages wire shape.
// A nil return means the field should be omitted.
func (c Choice) Native() any {
	switch c.Kind {
	case "none":
		return map[string]any{"type": "none"}
	case "auto":
		return map[string]any{"type": "auto"}
	case "required":
		return map[string]any{"type": "any"}
	case "tool":
		return map[string]any{"type": "tool", "name": c.Name}
	default:
		return nil
	}
}
