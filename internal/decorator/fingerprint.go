package decorator

import "net/http"

// UpstreamHeaders is the static first-party-CLI header set the upstream
// checks for OAuth-credentialed traffic. Unlike the teacher's dynamic
// terminal-introspecting User-Agent builder, this header set is fixed: the
// upstream matches against a literal string, not a grammar.
func UpstreamHeaders(accessToken string) http.Header {
	h := http.Header{}
	h.Set("authorization", "Bearer "+accessToken)
	h.Set("anthropic-beta", "oauth-2025-04-20,interleaved-thinking-2025-05-14,claude-code-20250219")
	h.Set("user-agent", "claude-cli/2.1.2 (external, cli)")
	h.Set("anthropic-version", "2023-06-01")
	h.Set("content-type", "application/json")
	return h
}
