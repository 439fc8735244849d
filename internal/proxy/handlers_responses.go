package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kalehub/claude-relay/internal/decorator"
	"github.com/kalehub/claude-relay/internal/proxyerr"
	"github.com/kalehub/claude-relay/internal/rewriter"
	"github.com/kalehub/claude-relay/internal/schema"
	"github.com/kalehub/claude-relay/internal/session"
	"github.com/kalehub/claude-relay/internal/types"
)

func (s *Server) handleResponses(c *gin.Context) {
	start := time.Now()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		writeOpenAIStyleError(c, proxyerr.NewBadRequest("body", err.Error()))
		return
	}

	var req types.ResponsesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeOpenAIStyleError(c, proxyerr.NewBadRequest("body", "invalid JSON"))
		return
	}

	decoded, err := schema.DecodeResponses(&req)
	if err != nil {
		writeOpenAIStyleError(c, err)
		return
	}

	sessionKey := session.ForInputShaped(decoded.SessionExplicit, decoded.SequenceLen, decoded.FirstElementJSON)
	contentHash := session.ContentHash(body)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	decision := s.admission.Begin(sessionKey, contentHash, cancel)
	if !decision.Accepted {
		s.record("responses", sessionKey, req.Model, "throttled", 0, 0, start)
		writeOpenAIStyleError(c, proxyerr.NewThrottled(decision.Reason))
		return
	}
	defer s.admission.End(sessionKey, contentHash)

	resolvedModel := s.resolveModel(req.Model)
	decoded.Model = resolvedModel

	nativeJSON, err := json.Marshal(schema.EncodeNativeRequest(decoded))
	if err != nil {
		writeOpenAIStyleError(c, proxyerr.New(proxyerr.BadRequest, err.Error()))
		return
	}
	decoratedBody, err := decorator.Decorate(nativeJSON, "responses", s.cacheMessageCount)
	if err != nil {
		writeOpenAIStyleError(c, proxyerr.New(proxyerr.UpstreamFatal, err.Error()))
		return
	}

	id := "resp_" + uuid.NewString()
	collected, opened, err := s.runUpstream(c, ctx, rewriter.VocabResponses, decoratedBody, id, resolvedModel, decoded.Stream)
	in, out := tokensOf(collected)
	s.record("responses", sessionKey, resolvedModel, statusFor(collected, err), in, out, start)
	if err != nil {
		if !opened {
			writeOpenAIStyleError(c, err)
		}
		return
	}

	if !decoded.Stream {
		c.JSON(http.StatusOK, schema.EncodeResponsesObject(id, resolvedModel, collected))
	}
}
