package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	linksessiondomain "github.com/smallbiznis/rolegate/internal/linksession/domain"
)

// GetLinkSession lets the storefront poll a pending link by its session key.
func (s *Server) GetLinkSession(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		AbortWithError(c, linksessiondomain.ErrInvalidSessionID)
		return
	}

	session, err := s.linkSessionSvc.GetBySessionKey(c.Request.Context(), key)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}
