package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	linksessiondomain "github.com/smallbiznis/rolegate/internal/linksession/domain"
	"github.com/smallbiznis/rolegate/internal/oauth"
)

// DiscordAuth hands the storefront the authorize URL buyers are sent to.
func (s *Server) DiscordAuth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"authUrl": s.oauthSvc.AuthURL()})
}

// DiscordCallback completes the code exchange, records a pending link
// session, and bounces the buyer back to checkout with the session key.
func (s *Server) DiscordCallback(c *gin.Context) {
	if strings.TrimSpace(c.Query("error")) != "" {
		AbortWithError(c, oauth.ErrMissingCode)
		return
	}

	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		AbortWithError(c, oauth.ErrMissingCode)
		return
	}

	identity, err := s.oauthSvc.Login(c.Request.Context(), code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	session, err := s.linkSessionSvc.Create(c.Request.Context(), linksessiondomain.CreateLinkSessionRequest{
		DiscordID:       identity.ID,
		DiscordUsername: identity.Username,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, s.cfg.WebsiteURL+"/checkout?session="+session.SessionKey)
}
