package decorator

import "regexp"

// namePattern matches a JSON `"name":"mcp_X"` occurrence, capturing the
// remainder of the name after the prefix. Rule 6 strips the prefix on the
// way out by textual substitution rather than by parsing: the same
// substitution must run unmodified over full response bodies and over
// individual streamed SSE chunk payloads.
var namePattern = regexp.MustCompile(`"name"\s*:\s*"mcp_([^"\\]*)"`)

// StripPrefix removes the mcp_ tool-name prefix from every "name":"mcp_X"
// occurrence in b. Idempotent: a body with no remaining mcp_-prefixed names
// is returned unchanged.
func StripPrefix(b []byte) []byte {
	return namePattern.ReplaceAll(b, []byte(`"name":"$1"`))
}

// StripPrefixString is the string convenience form of StripPrefix, used by
// the streaming rewriter which builds chunk payloads as strings.
func StripPrefixString(s string) string {
	return string(StripPrefix([]byte(s)))
}
