package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health reports process liveness and the bot's last-known Discord status.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"bot":       s.discordSvc.Status(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
