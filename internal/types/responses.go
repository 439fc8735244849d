package types

// ResponsesRequest is the POST /v1/responses request body.
type ResponsesRequest struct {
	Model             string             `json:"model"`
	Instructions      string             `json:"instructions,omitempty"`
	Input             []ResponsesInputItem `json:"input"`
	Stream            bool               `json:"stream,omitempty"`
	MaxOutputTokens   *int               `json:"max_output_tokens,omitempty"`
	Tools             []ResponsesTool    `json:"tools,omitempty"`
	ToolChoice        any                `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool              `json:"parallel_tool_calls,omitempty"`
	Store             *bool              `json:"store,omitempty"`
	Include           []string           `json:"include,omitempty"`
	SessionID         string             `json:"session_id,omitempty"`
}

// ResponsesInputItem is one heterogeneous entry of ResponsesRequest.Input.
// Type selects which fields are meaningful: "message" uses Role/Content,
// "function_call" uses Name/Arguments/CallID, "function_call_output" uses
// CallID/Output.
type ResponsesInputItem struct {
	Type      string              `json:"type"`
	Role      string              `json:"role,omitempty"`
	Content   []ResponsesContent  `json:"content,omitempty"`
	Name      string              `json:"name,omitempty"`
	Arguments string              `json:"arguments,omitempty"`
	CallID    string              `json:"call_id,omitempty"`
	Output    string              `json:"output,omitempty"`
}

// ResponsesContent is one element of a "message" item's content array.
type ResponsesContent struct {
	Type     string `json:"type"` // input_text | output_text | input_image
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// ResponsesTool is one entry of ResponsesRequest.Tools.
type ResponsesTool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ResponsesObject is the non-streaming POST /v1/responses response body.
type ResponsesObject struct {
	ID        string               `json:"id"`
	Object    string               `json:"object"`
	Model     string               `json:"model"`
	Status    string               `json:"status"`
	Output    []ResponsesOutputItem `json:"output"`
	Usage     *ResponsesUsage      `json:"usage,omitempty"`
	Error     *ErrorDetail         `json:"error,omitempty"`
}

// ResponsesOutputItem is one entry of ResponsesObject.Output.
type ResponsesOutputItem struct {
	Type      string             `json:"type"`
	ID        string             `json:"id,omitempty"`
	Role      string             `json:"role,omitempty"`
	Content   []ResponsesContent `json:"content,omitempty"`
	Name      string             `json:"name,omitempty"`
	Arguments string             `json:"arguments,omitempty"`
	CallID    string             `json:"call_id,omitempty"`
}

// ResponsesUsage is the Responses-shaped usage object.
type ResponsesUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// ResponsesEvent is one SSE event of the Responses streaming vocabulary.
// Type selects the event name sent on the "event:" line; the struct is
// marshaled whole as the "data:" payload, matching how the upstream's own
// event bodies embed their own "type" field.
type ResponsesEvent struct {
	Type           string               `json:"type"`
	SequenceNumber int                  `json:"sequence_number"`
	Response       *ResponsesObject     `json:"response,omitempty"`
	Item           *ResponsesOutputItem `json:"item,omitempty"`
	ItemID         string               `json:"item_id,omitempty"`
	OutputIndex    int                  `json:"output_index,omitempty"`
	ContentIndex   int                  `json:"content_index,omitempty"`
	Delta          string               `json:"delta,omitempty"`
	Part           *ResponsesContent    `json:"part,omitempty"`
	Arguments      string               `json:"arguments,omitempty"`
	Error          *ErrorDetail         `json:"error,omitempty"`
}
