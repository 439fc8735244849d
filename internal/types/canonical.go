package types

import "strings"

// TurnKind identifies which of the five canonical turn shapes a Turn carries.
type TurnKind string

const (
	TurnSystemFragment      TurnKind = "system-fragment"
	TurnUser                TurnKind = "user"
	TurnAssistantText       TurnKind = "assistant-text"
	TurnAssistantToolCalls  TurnKind = "assistant-tool-calls"
	TurnToolResults         TurnKind = "tool-results"
)

// UserPartKind distinguishes the two part shapes a user turn may carry.
type UserPartKind string

const (
	UserPartText     UserPartKind = "text"
	UserPartImageRef UserPartKind = "image-ref"
)

// UserPart is one element of a user turn's content list.
type UserPart struct {
	Kind UserPartKind
	Text string
	// ImageRef holds a URL or a data: URI, the two shapes the wire protocols allow.
	ImageRef string
}

// ToolCall is one entry of an assistant-tool-calls turn.
type ToolCall struct {
	CallID    string
	ToolName  string
	Arguments string // raw JSON object text
}

// ToolResult is one entry of a tool-results turn.
type ToolResult struct {
	CallID   string
	ToolName string
	Output   string
}

// Turn is one element of a canonical conversation. Exactly one of the
// payload fields is populated, selected by Kind.
type Turn struct {
	Kind TurnKind

	// TurnSystemFragment, TurnAssistantText
	Text string

	// TurnUser
	UserParts []UserPart

	// TurnAssistantToolCalls
	ToolCalls []ToolCall

	// TurnToolResults
	ToolResults []ToolResult
}

// Conversation is the canonical, protocol-independent turn sequence (§3 of
// the data model). It is rebuilt fresh per request and never mutated by
// more than one translator at a time.
type Conversation struct {
	Turns []Turn
}

// ToolDescriptor is the protocol-independent tool shape. On the upstream
// wire Name is prefixed with "mcp_" and InputSchema is forced object-typed
// with an explicit properties field.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// appendTextTurn appends a turn of the given kind carrying text unchanged;
// whitespace-only text is dropped per canonical conversation invariant 4.
func (c *Conversation) appendTextTurn(kind TurnKind, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.Turns = append(c.Turns, Turn{Kind: kind, Text: text})
}

// AppendSystemFragment appends a system-fragment turn, dropping whitespace-only text.
func (c *Conversation) AppendSystemFragment(text string) {
	c.appendTextTurn(TurnSystemFragment, text)
}

// AppendAssistantText appends an assistant-text turn, dropping whitespace-only text.
func (c *Conversation) AppendAssistantText(text string) {
	c.appendTextTurn(TurnAssistantText, text)
}

// AppendUser appends a user turn built from non-empty parts only.
func (c *Conversation) AppendUser(parts []UserPart) {
	var kept []UserPart
	for _, p := range parts {
		if p.Kind == UserPartText && strings.TrimSpace(p.Text) == "" {
			continue
		}
		if p.Kind == UserPartImageRef && strings.TrimSpace(p.ImageRef) == "" {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return
	}
	c.Turns = append(c.Turns, Turn{Kind: TurnUser, UserParts: kept})
}

// AppendAssistantToolCalls appends an assistant-tool-calls turn.
func (c *Conversation) AppendAssistantToolCalls(calls []ToolCall) {
	if len(calls) == 0 {
		return
	}
	c.Turns = append(c.Turns, Turn{Kind: TurnAssistantToolCalls, ToolCalls: calls})
}

// AppendToolResults appends a tool-results turn.
func (c *Conversation) AppendToolResults(results []ToolResult) {
	if len(results) == 0 {
		return
	}
	c.Turns = append(c.Turns, Turn{Kind: TurnToolResults, ToolResults: results})
}

// SystemText concatenates every system-fragment turn's text, in order,
// separated by a blank line, ready to merge into the upstream's system field.
func (c *Conversation) SystemText() string {
	var parts []string
	for _, t := range c.Turns {
		if t.Kind == TurnSystemFragment {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// NonSystemTurns returns every turn that is not a system-fragment, preserving order.
func (c *Conversation) NonSystemTurns() []Turn {
	var out []Turn
	for _, t := range c.Turns {
		if t.Kind != TurnSystemFragment {
			out = append(out, t)
		}
	}
	return out
}
