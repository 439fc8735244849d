package decorator

// Banner is the exact literal system-prompt prefix the upstream expects to
// recognize first-party-CLI traffic.
const Banner = "You are Claude Code, Anthropic's official CLI for Claude."

// PlaceholderToolName is injected when the native endpoint is called with no
// tools so the upstream always sees a non-empty tools list from CLI-shaped
// traffic.
const PlaceholderToolName = "mcp_placeholder"

// ToolNamePrefix is the literal prefix the upstream recognizes on tool
// names; stripped on the way out so clients see their original names.
const ToolNamePrefix = "mcp_"
