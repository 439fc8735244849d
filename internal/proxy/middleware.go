package proxy

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// requireLocalAPIKey enforces §6's local auth rule: if a key is configured
// (apikey.json exists), every /v1/* request must present it via either
// header. No key configured means "accept all local callers".
func (s *Server) requireLocalAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec := s.watcher.APIKey()
		if rec == nil || rec.Key == "" {
			c.Next()
			return
		}

		supplied := extractAPIKey(c.Request)
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(rec.Key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "invalid_api_key", "message": "invalid API key"},
			})
			return
		}
		c.Next()
	}
}

func extractAPIKey(r *http.Request) string {
	if v := r.Header.Get("x-api-key"); v != "" {
		return v
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
