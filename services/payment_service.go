package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/common/logger"
	"github.com/petalmart/commerce-backend/models"
	"github.com/petalmart/commerce-backend/repository"
)

// PaymentService owns the payment lifecycle: at most one payment record per
// order, idempotent capture, and the append-only refund ledger.
type PaymentService struct {
	payments  repository.PaymentRepository
	orders    *OrderService
	gateway   PaymentGateway
	keySecret string
	email     EmailSender
}

func NewPaymentService(payments repository.PaymentRepository, orders *OrderService, gateway PaymentGateway, keySecret string, email EmailSender) *PaymentService {
	return &PaymentService{
		payments:  payments,
		orders:    orders,
		gateway:   gateway,
		keySecret: keySecret,
		email:     email,
	}
}

// Initiate creates the single payment record for an order. COD orders are
// captured immediately with no gateway round trip; prepaid orders get a
// gateway order id for the client to pay against.
func (s *PaymentService) Initiate(ctx context.Context, orderID primitive.ObjectID, method models.PaymentType) (*models.Payment, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.OrderStatus.IsTerminal() {
		return nil, errors.Conflict("Order is no longer payable")
	}

	existing, err := s.payments.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.ErrPaymentAlreadyInitiated
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		ID:          primitive.NewObjectID(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      order.Pricing.Total,
		Currency:    "INR",
		Method:      method,
		Refunds:     []models.Refund{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if method == models.PaymentTypeCOD {
		payment.Status = models.PaymentStateCaptured
		payment.CapturedAt = &now
		if err := s.insertPayment(ctx, payment); err != nil {
			return nil, err
		}
		if _, err := s.orders.UpdateStatus(ctx, order.ID, string(models.OrderProcessing)); err != nil {
			logger.Error(ctx, "failed to advance COD order to processing", err,
				zap.String("order_number", order.OrderNumber))
		}
		return payment, nil
	}

	gatewayOrderID, err := s.gateway.CreateOrder(ctx, payment.Amount, payment.Currency, order.OrderNumber)
	if err != nil {
		return nil, errors.Internal("Failed to create payment with gateway", err)
	}

	payment.Status = models.PaymentStateCreated
	payment.RazorpayOrderID = gatewayOrderID
	if err := s.insertPayment(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) insertPayment(ctx context.Context, payment *models.Payment) error {
	if err := s.payments.Create(ctx, payment); err != nil {
		if err == repository.ErrDuplicateKey {
			return errors.ErrPaymentAlreadyInitiated
		}
		return err
	}
	return nil
}

// ConfirmCapture handles the client-side capture callback. The signature is
// verified first; the gateway is then re-queried for the authoritative status
// so a forged or stale callback can never mark a payment captured.
func (s *PaymentService) ConfirmCapture(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) (*models.Payment, error) {
	if !VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature, s.keySecret) {
		return nil, errors.ErrInvalidSignature
	}
	return s.capture(ctx, gatewayOrderID, gatewayPaymentID)
}

// capture is the single idempotent capture path, shared by the client
// callback and the gateway webhook.
func (s *PaymentService) capture(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*models.Payment, error) {
	payment, err := s.payments.FindByRazorpayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, errors.NotFound("Payment not found")
	}
	if payment.Status == models.PaymentStateCaptured {
		return payment, nil
	}

	status, err := s.gateway.FetchPaymentStatus(ctx, gatewayPaymentID)
	if err != nil {
		return nil, errors.Internal("Failed to verify payment with gateway", err)
	}
	if status != "captured" {
		return nil, errors.ErrPaymentNotCaptured
	}

	won, err := s.payments.MarkCaptured(ctx, payment.ID, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	payment, err = s.payments.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race to a concurrent capture; the winner already ran
		// the post-capture effects.
		return payment, nil
	}

	s.afterCapture(ctx, payment)
	return payment, nil
}

// afterCapture runs the post-payment effects. Shipment creation and email are
// best effort: a captured payment is never rolled back because a downstream
// call failed.
func (s *PaymentService) afterCapture(ctx context.Context, payment *models.Payment) {
	if err := s.orders.UpdatePaymentStatus(ctx, payment.OrderID, models.PaymentPaid); err != nil {
		logger.Error(ctx, "failed to mark order paid", err,
			zap.String("order_number", payment.OrderNumber))
	}

	order, err := s.orders.GetByID(ctx, payment.OrderID)
	if err == nil && order.OrderStatus == models.OrderPending {
		if _, err := s.orders.UpdateStatus(ctx, payment.OrderID, string(models.OrderConfirmed)); err != nil {
			logger.Error(ctx, "failed to confirm paid order", err,
				zap.String("order_number", payment.OrderNumber))
		}
	}

	if err := s.orders.CreateShipment(ctx, payment.OrderID); err != nil {
		logger.Error(ctx, "failed to create shipment for paid order", err,
			zap.String("order_number", payment.OrderNumber))
	}

	if s.email != nil && order != nil && order.ShippingAddress.Email != "" {
		go func(o models.Order) {
			if err := s.email.SendOrderConfirmation(context.Background(), &o); err != nil {
				logger.Error(context.Background(), "failed to send order confirmation email", err,
					zap.String("order_number", o.OrderNumber))
			}
		}(*order)
	}
}

// MarkFailed records a failed payment attempt. Captured payments are never
// demoted.
func (s *PaymentService) MarkFailed(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error {
	payment, err := s.payments.FindByRazorpayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return err
	}
	if payment == nil {
		return nil
	}
	if payment.Status == models.PaymentStateCaptured || payment.Status == models.PaymentStateFailed {
		return nil
	}

	now := time.Now().UTC()
	updates := bson.M{
		"status":    models.PaymentStateFailed,
		"failed_at": now,
	}
	if gatewayPaymentID != "" {
		updates["razorpay_payment_id"] = gatewayPaymentID
	}
	if err := s.payments.Update(ctx, payment.ID, updates); err != nil {
		return err
	}
	return s.orders.UpdatePaymentStatus(ctx, payment.OrderID, models.PaymentFailed)
}

// InitiateRefund appends a pending refund entry after checking the aggregate
// invariant: the sum of non-failed refunds never exceeds the captured amount.
func (s *PaymentService) InitiateRefund(ctx context.Context, paymentID primitive.ObjectID, amount int64, reason string) (*models.Payment, error) {
	if amount <= 0 {
		return nil, errors.BadRequest("Refund amount must be positive")
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, errors.NotFound("Payment not found")
	}
	if payment.Status != models.PaymentStateCaptured {
		return nil, errors.BadRequest("Only captured payments can be refunded")
	}
	if payment.RefundedTotal()+amount > payment.Amount {
		return nil, errors.BadRequest("Refund amount exceeds the refundable balance")
	}

	gatewayRefundID, err := s.gateway.CreateRefund(ctx, payment.RazorpayPaymentID, amount)
	if err != nil {
		return nil, errors.Internal("Failed to create refund with gateway", err)
	}

	refund := models.Refund{
		ID:               primitive.NewObjectID(),
		Amount:           amount,
		Status:           models.RefundPending,
		RazorpayRefundID: gatewayRefundID,
		Reason:           reason,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.payments.AppendRefund(ctx, payment.ID, refund); err != nil {
		return nil, err
	}
	return s.payments.FindByID(ctx, payment.ID)
}

// ResolveRefund settles a pending refund entry as processed or failed. When
// processed refunds cover the full captured amount the order is marked
// REFUNDED.
func (s *PaymentService) ResolveRefund(ctx context.Context, paymentID, refundID primitive.ObjectID, status models.RefundStatus) (*models.Payment, error) {
	if status != models.RefundProcessed && status != models.RefundFailed {
		return nil, errors.BadRequest("Refund status must be processed or failed")
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, errors.NotFound("Payment not found")
	}
	refund := payment.FindRefund(refundID)
	if refund == nil {
		return nil, errors.NotFound("Refund not found")
	}
	if refund.Status != models.RefundPending {
		return nil, errors.Conflict("Refund has already been resolved")
	}

	if err := s.payments.UpdateRefund(ctx, paymentID, refundID, bson.M{"status": status}); err != nil {
		return nil, err
	}

	payment, err = s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if status == models.RefundProcessed {
		var processed int64
		for _, r := range payment.Refunds {
			if r.Status == models.RefundProcessed {
				processed += r.Amount
			}
		}
		if processed >= payment.Amount {
			if err := s.orders.UpdatePaymentStatus(ctx, payment.OrderID, models.PaymentRefunded); err != nil {
				logger.Error(ctx, "failed to mark order refunded", err,
					zap.String("order_number", payment.OrderNumber))
			}
		}
	}

	return payment, nil
}

func (s *PaymentService) GetByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error) {
	payment, err := s.payments.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, errors.NotFound("Payment not found")
	}
	return payment, nil
}
