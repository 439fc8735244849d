package rewriter

import (
	"io"

	"github.com/kalehub/claude-relay/internal/stream"
	"github.com/kalehub/claude-relay/internal/types"
)

// Vocabulary names one of the three outbound event shapes C8 can request.
type Vocabulary string

const (
	VocabChatCompletions Vocabulary = "chat_completions"
	VocabResponses       Vocabulary = "responses"
	VocabMessages        Vocabulary = "messages"
)

// Emitter consumes upstream Messages-vocabulary SSE events one at a time
// and, when constructed with streamOut true, writes the matching outbound
// SSE frame(s) to its writer as it goes. Finish closes out any open
// framing and returns the response collected along the way, which the
// caller renders into a non-streaming body when the original request
// didn't ask for streaming.
type Emitter interface {
	Handle(ev *stream.Event) error
	Finish() *types.CollectedResponse
}

// New constructs the Emitter for vocab. flush is called after every write
// that should reach the client immediately; pass a no-op when streamOut is
// false. id is the response/message id to stamp on outbound frames.
func New(vocab Vocabulary, w io.Writer, flush func(), streamOut bool, id, model string) Emitter {
	switch vocab {
	case VocabResponses:
		return NewResponsesEmitter(w, flush, streamOut, id, model)
	case VocabMessages:
		return NewMessagesEmitter(w, flush, streamOut, model)
	default:
		return NewChatEmitter(w, flush, streamOut, id, model)
	}
}
