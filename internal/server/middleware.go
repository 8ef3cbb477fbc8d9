package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS allows the storefront origin to call the auth and link-session
// endpoints from the browser. Webhooks are server-to-server and unaffected.
func (s *Server) CORS() gin.HandlerFunc {
	origin := s.cfg.WebsiteURL
	return func(c *gin.Context) {
		if origin != "" && c.GetHeader("Origin") == origin {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
