package types

// CollectedResponse is the fully-assembled result of one upstream response,
// built by the Streaming Rewriter whether or not the caller asked for a
// stream. Non-streaming callers get this rendered into their wire shape;
// streaming callers never see it directly, only the events that built it.
type CollectedResponse struct {
	Text         string
	ToolCalls    []ToolCall
	StopReason   string // stop | tool_calls | error, in canonical form
	InputTokens  int64
	OutputTokens int64
	ErrorMessage string
}
