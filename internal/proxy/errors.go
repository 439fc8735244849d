package proxy

import (
	"github.com/gin-gonic/gin"

	"github.com/kalehub/claude-relay/internal/proxyerr"
	"github.com/kalehub/claude-relay/internal/types"
)

// asProxyErr normalizes any error into a *proxyerr.Error so every handler
// renders a consistent envelope even for errors C4/C6 didn't wrap.
func asProxyErr(err error) *proxyerr.Error {
	if pe, ok := proxyerr.As(err); ok {
		return pe
	}
	return proxyerr.New(proxyerr.UpstreamFatal, err.Error())
}

// writeOpenAIStyleError renders a Chat-Completions/Responses-shaped error
// envelope, used for the two OpenAI-wire endpoints' non-stream error path.
func writeOpenAIStyleError(c *gin.Context, err error) {
	pe := asProxyErr(err)
	c.JSON(pe.HTTPStatus(), types.ErrorResponse{
		Error: types.ErrorDetail{
			Message: pe.Message,
			Type:    string(pe.Kind),
			Param:   pe.Field,
		},
	})
}

// writeMessagesStyleError renders a native Messages-shaped error envelope.
func writeMessagesStyleError(c *gin.Context, err error) {
	pe := asProxyErr(err)
	c.JSON(pe.HTTPStatus(), gin.H{
		"type": "error",
		"error": gin.H{
			"type":    string(pe.Kind),
			"message": pe.Message,
		},
	})
}
