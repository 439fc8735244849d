package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/kalehub/claude-relay/internal/decorator"
	"github.com/kalehub/claude-relay/internal/proxyerr"
	"github.com/kalehub/claude-relay/internal/rewriter"
	"github.com/kalehub/claude-relay/internal/schema"
	"github.com/kalehub/claude-relay/internal/session"
	"github.com/kalehub/claude-relay/internal/types"
)

// handleMessages serves the native Anthropic-shaped endpoint. The request
// body is already upstream-shaped, so it is decorated directly instead of
// being rebuilt from the canonical conversation.
func (s *Server) handleMessages(c *gin.Context) {
	start := time.Now()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		writeMessagesStyleError(c, proxyerr.NewBadRequest("body", err.Error()))
		return
	}

	var req types.MessagesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeMessagesStyleError(c, proxyerr.NewBadRequest("body", "invalid JSON"))
		return
	}

	decoded, err := schema.DecodeMessages(&req, body)
	if err != nil {
		writeMessagesStyleError(c, err)
		return
	}

	sessionKey := session.ForMessageShaped(decoded.SessionExplicit, decoded.SequenceLen, decoded.FirstElementJSON)
	contentHash := session.ContentHash(body)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	decision := s.admission.Begin(sessionKey, contentHash, cancel)
	if !decision.Accepted {
		s.record("messages", sessionKey, req.Model, "throttled", 0, 0, start)
		writeMessagesStyleError(c, proxyerr.NewThrottled(decision.Reason))
		return
	}
	defer s.admission.End(sessionKey, contentHash)

	resolvedModel := s.resolveModel(req.Model)

	rawBody, err := sjson.SetBytes(decoded.RawBody, "model", resolvedModel)
	if err != nil {
		writeMessagesStyleError(c, proxyerr.New(proxyerr.UpstreamFatal, err.Error()))
		return
	}
	rawBody, err = sjson.SetBytes(rawBody, "stream", true)
	if err != nil {
		writeMessagesStyleError(c, proxyerr.New(proxyerr.UpstreamFatal, err.Error()))
		return
	}

	decoratedBody, err := decorator.Decorate(rawBody, "messages", s.cacheMessageCount)
	if err != nil {
		writeMessagesStyleError(c, proxyerr.New(proxyerr.UpstreamFatal, err.Error()))
		return
	}

	id := "msg_" + uuid.NewString()
	collected, opened, err := s.runUpstream(c, ctx, rewriter.VocabMessages, decoratedBody, id, resolvedModel, decoded.Stream)
	in, out := tokensOf(collected)
	s.record("messages", sessionKey, resolvedModel, statusFor(collected, err), in, out, start)
	if err != nil {
		if !opened {
			writeMessagesStyleError(c, err)
		}
		return
	}

	if !decoded.Stream {
		if collected.ErrorMessage != "" {
			writeMessagesStyleError(c, proxyerr.New(proxyerr.UpstreamFatal, collected.ErrorMessage))
			return
		}
		c.JSON(http.StatusOK, schema.EncodeMessagesResponse(id, resolvedModel, collected))
	}
}
