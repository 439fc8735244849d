// Package decorator implements the Request Decorator (C3): it rewrites a
// native-format (Messages-shaped) request body so the upstream recognizes
// it as first-party-CLI traffic. Every rule is applied idempotently by
// guarding each mutation with a check that it was not already applied, so
// decorate(decorate(x)) is byte-exact decorate(x): sjson only rewrites the
// path it touches, leaving every untouched byte of the document in place.
package decorator

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ephemeralCacheControl is the JSON object attached to a block to opt it
// into upstream-side prompt caching.
var ephemeralCacheControl = map[string]any{"type": "ephemeral"}

// Decorate applies rules 1-5 to a native Messages-shaped request body.
// endpoint distinguishes "messages" (the native route, which gets the
// placeholder-tool rule) from the other routes, which never get one
// injected because a Chat-Completions/Responses caller that supplied no
// tools did not intend to call any.
func Decorate(body []byte, endpoint string, cacheMessageCount int) ([]byte, error) {
	var err error

	body, err = decorateSystemBanner(body)
	if err != nil {
		return nil, fmt.Errorf("decorate system banner: %w", err)
	}

	body, err = decoratePlaceholderTool(body, endpoint)
	if err != nil {
		return nil, fmt.Errorf("decorate placeholder tool: %w", err)
	}

	body, err = decorateTools(body)
	if err != nil {
		return nil, fmt.Errorf("decorate tools: %w", err)
	}

	body, err = decorateToolUseNames(body)
	if err != nil {
		return nil, fmt.Errorf("decorate tool_use names: %w", err)
	}

	body, err = decorateCacheMarkers(body, cacheMessageCount)
	if err != nil {
		return nil, fmt.Errorf("decorate cache markers: %w", err)
	}

	return body, nil
}

// decorateSystemBanner implements rule 1: ensure the banner is the first
// text block of the system field, preserving any existing content after it.
func decorateSystemBanner(body []byte) ([]byte, error) {
	sys := gjson.GetBytes(body, "system")

	var blocks []map[string]any
	switch {
	case !sys.Exists():
		// no-op: blocks stays nil
	case sys.IsArray():
		for _, v := range sys.Array() {
			m, ok := v.Value().(map[string]any)
			if ok {
				blocks = append(blocks, m)
			}
		}
	case sys.Type == gjson.String:
		if sys.Str != "" {
			blocks = []map[string]any{{"type": "text", "text": sys.Str}}
		}
	}

	if len(blocks) > 0 {
		if t, _ := blocks[0]["type"].(string); t == "text" {
			if text, _ := blocks[0]["text"].(string); text == Banner {
				return body, nil // already decorated
			}
		}
	}

	bannerBlock := map[string]any{
		"type":          "text",
		"text":          Banner,
		"cache_control": ephemeralCacheControl,
	}
	blocks = append([]map[string]any{bannerBlock}, blocks...)

	return sjson.SetBytes(body, "system", blocks)
}

// decoratePlaceholderTool implements rule 2.
func decoratePlaceholderTool(body []byte, endpoint string) ([]byte, error) {
	if endpoint != "messages" {
		return body, nil
	}
	tools := gjson.GetBytes(body, "tools")
	if tools.Exists() && len(tools.Array()) > 0 {
		return body, nil
	}
	placeholder := []map[string]any{
		{
			"name":        PlaceholderToolName,
			"description": "",
			"input_schema": map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
	return sjson.SetBytes(body, "tools", placeholder)
}

// decorateTools implements rule 3: mcp_ prefix, object-typed schema with an
// explicit properties field, and a cache marker on the last tool only.
func decorateTools(body []byte) ([]byte, error) {
	tools := gjson.GetBytes(body, "tools")
	if !tools.IsArray() {
		return body, nil
	}
	arr := tools.Array()
	var err error

	for i, tool := range arr {
		name := tool.Get("name").String()
		if name != "" && !hasPrefix(name, ToolNamePrefix) {
			body, err = sjson.SetBytes(body, fmt.Sprintf("tools.%d.name", i), ToolNamePrefix+name)
			if err != nil {
				return nil, err
			}
		}

		schema := tool.Get("input_schema")
		schemaType := schema.Get("type").String()
		hasProps := schema.Get("properties").Exists()
		if schemaType != "object" {
			body, err = sjson.SetBytes(body, fmt.Sprintf("tools.%d.input_schema.type", i), "object")
			if err != nil {
				return nil, err
			}
		}
		if !hasProps {
			body, err = sjson.SetBytes(body, fmt.Sprintf("tools.%d.input_schema.properties", i), map[string]any{})
			if err != nil {
				return nil, err
			}
		}
	}

	if n := len(arr); n > 0 {
		last := n - 1
		if !gjson.GetBytes(body, fmt.Sprintf("tools.%d.cache_control", last)).Exists() {
			body, err = sjson.SetBytes(body, fmt.Sprintf("tools.%d.cache_control", last), ephemeralCacheControl)
			if err != nil {
				return nil, err
			}
		}
	}

	return body, nil
}

// decorateToolUseNames implements rule 4: prefix tool_use block names.
func decorateToolUseNames(body []byte) ([]byte, error) {
	messages := gjson.GetBytes(body, "messages")
	if !messages.IsArray() {
		return body, nil
	}
	var err error
	for i, msg := range messages.Array() {
		content := msg.Get("content")
		if !content.IsArray() {
			continue
		}
		for j, block := range content.Array() {
			if block.Get("type").String() != "tool_use" {
				continue
			}
			name := block.Get("name").String()
			if name == "" || hasPrefix(name, ToolNamePrefix) {
				continue
			}
			path := fmt.Sprintf("messages.%d.content.%d.name", i, j)
			body, err = sjson.SetBytes(body, path, ToolNamePrefix+name)
			if err != nil {
				return nil, err
			}
		}
	}
	return body, nil
}

// decorateCacheMarkers implements rule 5: attach an ephemeral cache marker
// to the last content block of the last cacheMessageCount messages, lifting
// bare string content to a single text block first.
func decorateCacheMarkers(body []byte, cacheMessageCount int) ([]byte, error) {
	if cacheMessageCount <= 0 {
		cacheMessageCount = 3
	}
	messages := gjson.GetBytes(body, "messages")
	if !messages.IsArray() {
		return body, nil
	}
	arr := messages.Array()
	start := len(arr) - cacheMessageCount
	if start < 0 {
		start = 0
	}

	var err error
	for i := start; i < len(arr); i++ {
		contentPath := fmt.Sprintf("messages.%d.content", i)
		content := gjson.GetBytes(body, contentPath)

		if content.Type == gjson.String {
			text := content.Str
			lifted := []map[string]any{{"type": "text", "text": text}}
			body, err = sjson.SetBytes(body, contentPath, lifted)
			if err != nil {
				return nil, err
			}
			content = gjson.GetBytes(body, contentPath)
		}

		if !content.IsArray() {
			continue
		}
		blocks := content.Array()
		if len(blocks) == 0 {
			continue
		}
		lastIdx := len(blocks) - 1
		markerPath := fmt.Sprintf("messages.%d.content.%d.cache_control", i, lastIdx)
		if gjson.GetBytes(body, markerPath).Exists() {
			continue
		}
		body, err = sjson.SetBytes(body, markerPath, ephemeralCacheControl)
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
