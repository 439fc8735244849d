package rewriter

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/kalehub/claude-relay/internal/decorator"
	"github.com/kalehub/claude-relay/internal/stream"
	"github.com/kalehub/claude-relay/internal/types"
)

// MessagesEmitter passes the upstream's own SSE vocabulary straight through
// to a native Messages caller, applying only the mcp_ prefix strip, while
// sniffing every event for telemetry the way the other two emitters do.
// The "event:" line is reconstructed from the decoded type rather than
// forwarded byte-for-byte, since the upstream reader already discards it.
type MessagesEmitter struct {
	st        *State
	w         io.Writer
	flush     func()
	streamOut bool
}

// NewMessagesEmitter creates a Messages pass-through emitter.
func NewMessagesEmitter(w io.Writer, flush func(), streamOut bool, model string) *MessagesEmitter {
	return &MessagesEmitter{st: NewState(model), w: w, flush: flush, streamOut: streamOut}
}

// Handle records bookkeeping for ev and, when streaming, forwards it
// unchanged except for mcp_ prefix stripping.
func (e *MessagesEmitter) Handle(ev *stream.Event) error {
	switch ev.Type {
	case "message_start":
		e.st.OnMessageStart(ev.Data)
	case "content_block_start":
		e.st.OnContentBlockStart(ev.Data)
	case "content_block_delta":
		e.st.OnContentBlockDelta(ev.Data)
	case "content_block_stop":
		e.st.OnContentBlockStop(ev.Data)
	case "message_delta":
		e.st.OnMessageDelta(ev.Data)
	case "error":
		e.st.OnError(ev.Data)
		logrus.WithField("error", e.st.ErrorMessage).Warn("rewriter: upstream stream error")
	}

	if !e.streamOut {
		return nil
	}
	stripped := decorator.StripPrefix(ev.Raw)
	if _, err := fmt.Fprintf(e.w, "event: %s\n", ev.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", stripped); err != nil {
		return err
	}
	if e.flush != nil {
		e.flush()
	}
	return nil
}

// Finish returns the accumulated CollectedResponse; the upstream's own
// message_stop event, already forwarded by Handle, is this vocabulary's
// terminator, so no extra framing is written here.
func (e *MessagesEmitter) Finish() *types.CollectedResponse {
	return e.st.Collected()
}
