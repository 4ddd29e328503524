package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/common/logger"
	"github.com/petalmart/commerce-backend/services"
)

type WebhookController struct {
	webhooks *services.WebhookService
}

func NewWebhookController(webhooks *services.WebhookService) *WebhookController {
	return &WebhookController{webhooks: webhooks}
}

// HandleOrderWebhook ingests checkout-provider order events. The response is
// always 200: the provider retries non-2xx responses aggressively, and a
// rejected event is already safe to drop because every handler is
// idempotent. Failures are logged for the operator instead.
func (ctl *WebhookController) HandleOrderWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to read webhook body", err)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	signature := c.GetHeader("X-Api-HMAC-SHA256")
	if err := ctl.webhooks.HandleOrderWebhook(c.Request.Context(), body, signature); err != nil {
		logger.Error(c.Request.Context(), "order webhook rejected", err,
			zap.Int("body_bytes", len(body)))
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleRazorpayWebhook ingests payment-gateway events. Requests without the
// gateway's identifying headers are malformed and rejected outright.
func (ctl *WebhookController) HandleRazorpayWebhook(c *gin.Context) {
	eventID := c.GetHeader("X-Razorpay-Event-Id")
	eventName := c.GetHeader("X-Razorpay-Event")
	signature := c.GetHeader("X-Razorpay-Signature")
	if eventID == "" || eventName == "" || signature == "" {
		errors.HandleError(c, errors.BadRequest("Missing webhook headers"))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Unreadable webhook body"))
		return
	}

	if err := ctl.webhooks.HandleRazorpayWebhook(c.Request.Context(), body, signature, eventID); err != nil {
		logger.Error(c.Request.Context(), "gateway webhook rejected", err,
			zap.String("event_id", eventID))
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
