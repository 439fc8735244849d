package proxy

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kalehub/claude-relay/internal/proxyerr"
	"github.com/kalehub/claude-relay/internal/rewriter"
	"github.com/kalehub/claude-relay/internal/stream"
	"github.com/kalehub/claude-relay/internal/telemetry"
	"github.com/kalehub/claude-relay/internal/types"
)

// maxBodyBytes bounds one request body; the admission/dedupe tables and the
// translator both need the whole body in memory before anything streams.
const maxBodyBytes = 16 << 20

// runUpstream sends decoratedBody upstream and drives the rewriter over its
// SSE response. opened reports whether the outbound stream's headers were
// already written by the time an error occurred, so the caller knows
// whether it may still fall back to a JSON error body.
func (s *Server) runUpstream(c *gin.Context, ctx context.Context, vocab rewriter.Vocabulary, decoratedBody []byte, id, model string, wantStream bool) (collected *types.CollectedResponse, opened bool, err error) {
	resp, sendErr := s.client.Send(ctx, s.tokens, decoratedBody)
	if sendErr != nil {
		return nil, false, sendErr
	}
	defer resp.Body.Close()

	var w io.Writer = io.Discard
	flush := func() {}
	if wantStream {
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.WriteHeader(http.StatusOK)
		opened = true
		w = c.Writer
		flush = c.Writer.Flush
	}

	emitter := rewriter.New(vocab, w, flush, wantStream, id, model)
	reader := stream.NewReader(resp.Body)
	for {
		ev, readErr := reader.Next()
		if readErr != nil {
			if readErr != io.EOF {
				logrus.WithError(readErr).Warn("proxy: error reading upstream stream")
			}
			break
		}
		if handleErr := emitter.Handle(ev); handleErr != nil {
			logrus.WithError(handleErr).Warn("proxy: error writing rewritten event")
			break
		}
	}

	collected = emitter.Finish()
	if ctx.Err() != nil {
		err = proxyerr.New(proxyerr.Cancelled, ctx.Err().Error())
	}
	return collected, opened, err
}

func statusFor(collected *types.CollectedResponse, err error) string {
	if err != nil {
		if pe, ok := proxyerr.As(err); ok && pe.Kind == proxyerr.Cancelled {
			return "client_disconnected"
		}
		return "error"
	}
	if collected != nil && collected.ErrorMessage != "" {
		return "error"
	}
	return "ok"
}

func (s *Server) record(endpoint, sessionKey, model, status string, in, out int64, start time.Time) {
	if s.sink == nil {
		return
	}
	s.sink.Record(telemetry.Event{
		Endpoint:     endpoint,
		SessionKey:   sessionKey,
		Model:        model,
		Status:       status,
		InputTokens:  in,
		OutputTokens: out,
		DurationMS:   time.Since(start).Milliseconds(),
		At:           start,
	})
}
