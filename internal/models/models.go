// Package models holds the client-id -> upstream-id mapping table and the
// static list of models reported to GET /v1/models. Unknown keys pass
// through unchanged, per the data model's Model-mapping definition.
package models

// StaticCatalog is the fixed set of upstream model ids reported when no
// mapping overrides list a different set.
var StaticCatalog = []string{
	"claude-opus-4-5-20251101",
	"claude-sonnet-4-5-20250929",
	"claude-haiku-4-5-20251001",
}

// Mapping is a model-mapping table: client-supplied model id -> upstream
// model id. It is an ordinary map wrapped in a type so C9 can publish a
// whole replacement value atomically.
type Mapping map[string]string

// Resolve maps a client-supplied model id to the upstream id. Unknown keys
// pass through unchanged.
func (m Mapping) Resolve(clientModel string) string {
	if m == nil {
		return clientModel
	}
	if upstream, ok := m[clientModel]; ok && upstream != "" {
		return upstream
	}
	return clientModel
}

// DefaultMapping is used until C9 publishes a value loaded from config.json.
func DefaultMapping() Mapping {
	return Mapping{
		"gpt-4":         "claude-sonnet-4-5-20250929",
		"gpt-4o":        "claude-sonnet-4-5-20250929",
		"gpt-4-turbo":   "claude-sonnet-4-5-20250929",
		"gpt-3.5-turbo": "claude-haiku-4-5-20251001",
	}
}
