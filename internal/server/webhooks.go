package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	obsmetrics "github.com/smallbiznis/rolegate/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/rolegate/internal/subscription/domain"
)

const signatureHeader = "X-Storefront-Signature"

type purchaseWebhookPayload struct {
	OrderID      string         `json:"id"`
	PlanCode     string         `json:"planCode"`
	DiscordID    string         `json:"discordUserId"`
	Metadata     map[string]any `json:"metadata"`
	CustomFields struct {
		DiscordID string `json:"discordUserId"`
	} `json:"customFields"`
}

type cancellationWebhookPayload struct {
	OrderID string `json:"id"`
}

// HandlePurchaseWebhook grants the premium role and records the entitlement
// for a completed storefront order.
func (s *Server) HandlePurchaseWebhook(c *gin.Context) {
	payload, err := s.readSignedPayload(c)
	if err != nil {
		obsmetrics.Entitlement().WebhookEvents.WithLabelValues("purchase", "rejected").Inc()
		AbortWithError(c, err)
		return
	}

	var body purchaseWebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		obsmetrics.Entitlement().WebhookEvents.WithLabelValues("purchase", "rejected").Inc()
		AbortWithError(c, invalidRequestError())
		return
	}

	discordID := strings.TrimSpace(body.DiscordID)
	if discordID == "" {
		discordID = strings.TrimSpace(body.CustomFields.DiscordID)
	}

	resp, err := s.subscriptionSvc.Activate(c.Request.Context(), subscriptiondomain.ActivateSubscriptionRequest{
		OrderID:   body.OrderID,
		DiscordID: discordID,
		PlanCode:  body.PlanCode,
		Metadata:  body.Metadata,
	})
	if err != nil {
		obsmetrics.Entitlement().WebhookEvents.WithLabelValues("purchase", "error").Inc()
		AbortWithError(c, err)
		return
	}

	obsmetrics.Entitlement().WebhookEvents.WithLabelValues("purchase", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "orderId": resp.OrderID})
}

// HandleCancellationWebhook revokes the premium role for a canceled order.
func (s *Server) HandleCancellationWebhook(c *gin.Context) {
	payload, err := s.readSignedPayload(c)
	if err != nil {
		obsmetrics.Entitlement().WebhookEvents.WithLabelValues("cancellation", "rejected").Inc()
		AbortWithError(c, err)
		return
	}

	var body cancellationWebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		obsmetrics.Entitlement().WebhookEvents.WithLabelValues("cancellation", "rejected").Inc()
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Cancel(c.Request.Context(), subscriptiondomain.CancelSubscriptionRequest{
		OrderID: body.OrderID,
	})
	if err != nil {
		obsmetrics.Entitlement().WebhookEvents.WithLabelValues("cancellation", "error").Inc()
		AbortWithError(c, err)
		return
	}

	obsmetrics.Entitlement().WebhookEvents.WithLabelValues("cancellation", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "orderId": resp.OrderID})
}

// readSignedPayload drains the body and checks the storefront signature.
// Verification is skipped when no shared secret is configured.
func (s *Server) readSignedPayload(c *gin.Context) ([]byte, error) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, invalidRequestError()
	}

	if !s.verifier.Enabled() {
		zap.L().Warn("webhook signature verification skipped, no secret configured",
			zap.String("path", c.FullPath()),
		)
		return payload, nil
	}

	if err := s.verifier.Verify(payload, c.GetHeader(signatureHeader), time.Now().UTC()); err != nil {
		return nil, err
	}
	return payload, nil
}
