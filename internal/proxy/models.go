package proxy

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kalehub/claude-relay/internal/models"
	"github.com/kalehub/claude-relay/internal/types"
)

func (s *Server) handleModels(c *gin.Context) {
	data := make([]types.ModelObject, 0, len(models.StaticCatalog))
	for _, id := range models.StaticCatalog {
		data = append(data, types.ModelObject{ID: id, Object: "model", OwnedBy: "anthropic"})
	}
	c.JSON(http.StatusOK, types.ModelList{Object: "list", Data: data})
}

// resolveModel maps a client-supplied model id through C9's current
// config.json mapping, falling back to the built-in defaults when
// config.json carries none.
func (s *Server) resolveModel(clientModel string) string {
	cf := s.watcher.Config()
	mapping := models.Mapping(nil)
	if cf != nil && len(cf.ModelMapping) > 0 {
		mapping = models.Mapping(cf.ModelMapping)
	} else {
		mapping = models.DefaultMapping()
	}
	return mapping.Resolve(clientModel)
}
