package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/common/logger"
	"github.com/petalmart/commerce-backend/models"
)

const webhookDedupTTL = 24 * time.Hour

// WebhookService ingests events from the checkout provider and the payment
// gateway. Signatures are verified over the raw body before any parsing, and
// every handler tolerates replays.
type WebhookService struct {
	shiprocketSecret string
	razorpaySecret   string
	carts            *CartService
	orders           *OrderService
	payments         *PaymentService
	deduper          EventDeduper
}

func NewWebhookService(shiprocketSecret, razorpaySecret string, carts *CartService, orders *OrderService, payments *PaymentService, deduper EventDeduper) *WebhookService {
	return &WebhookService{
		shiprocketSecret: shiprocketSecret,
		razorpaySecret:   razorpaySecret,
		carts:            carts,
		orders:           orders,
		payments:         payments,
		deduper:          deduper,
	}
}

// VerifyOrderWebhook checks the provider's base64 HMAC-SHA256 over the exact
// raw body bytes. Constant-time comparison.
func (s *WebhookService) VerifyOrderWebhook(body []byte, signature string) error {
	if signature == "" {
		return errors.ErrMissingSignature
	}
	mac := hmac.New(sha256.New, []byte(s.shiprocketSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.ErrInvalidSignature
	}
	return nil
}

// HandleOrderWebhook verifies, parses, and dispatches one checkout-provider
// event. Events referencing unknown orders are dropped silently: the provider
// fans out events for more shops than this one.
func (s *WebhookService) HandleOrderWebhook(ctx context.Context, body []byte, signature string) error {
	if err := s.VerifyOrderWebhook(body, signature); err != nil {
		return err
	}

	var payload models.OrderWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return errors.BadRequest("Malformed webhook payload")
	}

	event := payload.Normalize()
	logger.Info(ctx, "order webhook received",
		zap.String("event", string(event)),
		zap.String("shiprocket_order_id", payload.OrderID))

	switch event {
	case models.EventOrderSuccess:
		return s.handleOrderSuccess(ctx, &payload)
	case models.EventOrderFailed:
		return s.handleOrderFailed(ctx, &payload)
	case models.EventOrderCancelled:
		return s.handleOrderCancelled(ctx, &payload)
	case models.EventOrderStatusUpdate:
		return s.orders.ApplyShipmentStatus(ctx, payload.OrderID, payload.ShipmentStatus)
	default:
		logger.Warn(ctx, "unknown webhook event, ignoring",
			zap.String("event", payload.Event),
			zap.String("status", payload.Status))
		return nil
	}
}

// handleOrderSuccess retires the originating cart and creates the order. Cart
// cleanup failures do not block order creation.
func (s *WebhookService) handleOrderSuccess(ctx context.Context, payload *models.OrderWebhookPayload) error {
	owner := models.OwnerKey{UserID: payload.UserID, SessionID: payload.SessionID}
	if owner.Valid() {
		if err := s.carts.DeactivateByOwner(ctx, owner); err != nil {
			logger.Error(ctx, "failed to deactivate cart after checkout", err,
				zap.String("shiprocket_order_id", payload.OrderID))
		}
	}

	_, err := s.orders.CreateFromCheckoutConfirmation(ctx, payload)
	return err
}

func (s *WebhookService) handleOrderFailed(ctx context.Context, payload *models.OrderWebhookPayload) error {
	order, err := s.orders.orders.FindByShiprocketOrderID(ctx, payload.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	return s.orders.UpdatePaymentStatus(ctx, order.ID, models.PaymentFailed)
}

func (s *WebhookService) handleOrderCancelled(ctx context.Context, payload *models.OrderWebhookPayload) error {
	order, err := s.orders.orders.FindByShiprocketOrderID(ctx, payload.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	if order.OrderStatus == models.OrderCancelled {
		return nil
	}

	reason := payload.Reason
	if len(reason) < 10 {
		reason = "Cancelled by the checkout provider"
	}
	_, err = s.orders.Cancel(ctx, order.ID, reason)
	return err
}

// HandleRazorpayWebhook verifies and dispatches one payment-gateway event.
// Events are deduplicated by the gateway's event id before any side effect.
func (s *WebhookService) HandleRazorpayWebhook(ctx context.Context, body []byte, signature, eventID string) error {
	if signature == "" {
		return errors.ErrMissingSignature
	}
	if !VerifyWebhookSignature(body, signature, s.razorpaySecret) {
		return errors.ErrInvalidSignature
	}

	if eventID != "" && s.deduper != nil {
		first, err := s.deduper.MarkOnce(ctx, eventID, webhookDedupTTL)
		if err != nil {
			logger.Error(ctx, "webhook dedup check failed, processing anyway", err,
				zap.String("event_id", eventID))
		} else if !first {
			logger.Info(ctx, "duplicate gateway webhook dropped", zap.String("event_id", eventID))
			return nil
		}
	}

	var event models.RazorpayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.BadRequest("Malformed webhook payload")
	}

	entity := event.Payload.Payment.Entity
	switch event.Event {
	case "payment.captured":
		_, err := s.payments.capture(ctx, entity.OrderID, entity.ID)
		return err
	case "payment.failed":
		return s.payments.MarkFailed(ctx, entity.OrderID, entity.ID)
	default:
		logger.Info(ctx, "ignoring gateway webhook event", zap.String("event", event.Event))
		return nil
	}
}
