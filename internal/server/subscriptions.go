package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	subscriptiondomain "github.com/smallbiznis/rolegate/internal/subscription/domain"
	"github.com/smallbiznis/rolegate/pkg/db/pagination"
)

func (s *Server) ListSubscriptions(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status    string `form:"status"`
		DiscordID string `form:"discord_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.List(c.Request.Context(), subscriptiondomain.ListSubscriptionRequest{
		Status:    strings.TrimSpace(query.Status),
		DiscordID: strings.TrimSpace(query.DiscordID),
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Subscriptions, "page_info": resp.PageInfo})
}

func (s *Server) GetSubscriptionByOrderID(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("orderId"))
	if orderID == "" {
		AbortWithError(c, subscriptiondomain.ErrInvalidOrder)
		return
	}

	resp, err := s.subscriptionSvc.GetByOrderID(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
