package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/common/logger"
	"github.com/petalmart/commerce-backend/models"
	"github.com/petalmart/commerce-backend/repository"
)

// shipmentStatusMap translates provider shipment statuses into the order
// lifecycle. Unmapped statuses are ignored.
var shipmentStatusMap = map[string]models.OrderStatus{
	"PICKED_UP":        models.OrderProcessing,
	"IN_TRANSIT":       models.OrderShipped,
	"OUT_FOR_DELIVERY": models.OrderOutForDelivery,
	"DELIVERED":        models.OrderDelivered,
	"RTO":              models.OrderReturned,
	"RTO_DELIVERED":    models.OrderReturned,
}

// MapShipmentStatus resolves a provider shipment status to an order status.
func MapShipmentStatus(providerStatus string) (models.OrderStatus, bool) {
	status, ok := shipmentStatusMap[strings.ToUpper(providerStatus)]
	return status, ok
}

// OrderService owns order creation and the order lifecycle state machine.
type OrderService struct {
	orders   repository.OrderRepository
	variants repository.VariantRepository
	products repository.ProductRepository
	provider CheckoutProvider
}

func NewOrderService(orders repository.OrderRepository, variants repository.VariantRepository, products repository.ProductRepository, provider CheckoutProvider) *OrderService {
	return &OrderService{orders: orders, variants: variants, products: products, provider: provider}
}

// CreateFromCheckoutConfirmation builds an order from a confirmed checkout.
// Creation is idempotent on the provider order id: a replay returns the
// existing order untouched. Stock is reserved per line after the order record
// exists; a partial reservation failure releases everything already taken and
// cancels the order.
func (s *OrderService) CreateFromCheckoutConfirmation(ctx context.Context, payload *models.OrderWebhookPayload) (*models.Order, error) {
	if payload.OrderID == "" {
		return nil, errors.BadRequest("Order id is required")
	}
	if len(payload.Items) == 0 {
		return nil, errors.BadRequest("Order must contain at least one item")
	}

	existing, err := s.orders.FindByShiprocketOrderID(ctx, payload.OrderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	order, err := s.buildOrder(ctx, payload)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		if err == repository.ErrDuplicateKey {
			return s.orders.FindByShiprocketOrderID(ctx, payload.OrderID)
		}
		return nil, err
	}

	if err := s.reserveStock(ctx, order); err != nil {
		return nil, err
	}

	logger.Info(ctx, "order created",
		zap.String("order_number", order.OrderNumber),
		zap.String("shiprocket_order_id", order.ShiprocketOrderID),
		zap.Int64("total", order.Pricing.Total))
	return order, nil
}

func (s *OrderService) buildOrder(ctx context.Context, payload *models.OrderWebhookPayload) (*models.Order, error) {
	now := time.Now().UTC()
	order := &models.Order{
		ID:                primitive.NewObjectID(),
		OrderNumber:       newOrderNumber(),
		ShiprocketOrderID: payload.OrderID,
		UserID:            payload.UserID,
		SessionID:         payload.SessionID,
		ShippingAddress:   payload.ShippingAddress,
		PaymentType:       resolvePaymentType(payload.PaymentType),
		PaymentStatus:     models.PaymentPending,
		OrderStatus:       models.OrderPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var subtotal int64
	for _, line := range payload.Items {
		if line.Quantity < 1 {
			return nil, errors.ErrInvalidQuantity
		}
		variant, err := s.variants.FindByShiprocketID(ctx, line.VariantID)
		if err != nil {
			return nil, err
		}
		if variant == nil {
			return nil, errors.ErrVariantNotFound
		}

		productName := ""
		if product, err := s.products.FindByID(ctx, variant.ProductID); err == nil && product != nil {
			productName = product.Name
		}

		lineTotal := variant.Price * int64(line.Quantity)
		subtotal += lineTotal
		order.Items = append(order.Items, models.OrderItem{
			VariantID:           variant.ID,
			ShiprocketVariantID: variant.ShiprocketVariantID,
			ProductName:         productName,
			SKU:                 variant.SKU,
			Attributes:          variant.Attributes,
			Image:               variant.Image,
			Quantity:            line.Quantity,
			Price:               variant.Price,
			Subtotal:            lineTotal,
		})
	}

	order.Pricing = models.Pricing{
		Subtotal:        subtotal,
		Discount:        payload.Discount,
		ShippingCharges: payload.ShippingCharges,
		Tax:             payload.Tax,
		Total:           subtotal - payload.Discount + payload.ShippingCharges + payload.Tax,
	}

	// The asserted amount must match the total recomputed from our own
	// catalog prices. A mismatch means tampering or drift and is fatal.
	if payload.Amount != 0 && payload.Amount != order.Pricing.Total {
		return nil, errors.ErrAmountMismatch
	}

	return order, nil
}

func (s *OrderService) reserveStock(ctx context.Context, order *models.Order) error {
	reserved := make([]models.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if err := s.variants.Reserve(ctx, item.VariantID, item.Quantity); err != nil {
			for _, taken := range reserved {
				if relErr := s.variants.Release(ctx, taken.VariantID, taken.Quantity); relErr != nil {
					logger.Error(ctx, "failed to release stock after reservation failure", relErr,
						zap.String("sku", taken.SKU),
						zap.Int("quantity", taken.Quantity))
				}
			}
			s.cancelUnstocked(ctx, order, err)
			return err
		}
		reserved = append(reserved, item)
	}
	return nil
}

// cancelUnstocked retires an order whose stock could not be reserved. The
// record is kept for audit; no stock is held against it.
func (s *OrderService) cancelUnstocked(ctx context.Context, order *models.Order, cause error) {
	now := time.Now().UTC()
	updates := bson.M{
		"order_status":        models.OrderCancelled,
		"cancellation_reason": "Stock reservation failed at order confirmation",
		"cancelled_at":        now,
	}
	if err := s.orders.Update(ctx, order.ID, updates); err != nil {
		logger.Error(ctx, "failed to cancel unstocked order", err,
			zap.String("order_number", order.OrderNumber))
		return
	}
	logger.Warn(ctx, "order cancelled: stock reservation failed",
		zap.String("order_number", order.OrderNumber),
		zap.String("cause", cause.Error()))
}

func (s *OrderService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.NotFound("Order not found")
	}
	return order, nil
}

func (s *OrderService) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.NotFound("Order not found")
	}
	return order, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	return s.orders.FindByUser(ctx, userID, page, limit)
}

func (s *OrderService) ListAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	return s.orders.FindAll(ctx, page, limit)
}

// UpdateStatus moves the order along the lifecycle state machine. Illegal
// transitions are rejected; DELIVERED stamps the delivery time.
func (s *OrderService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, errors.BadRequest(fmt.Sprintf("Unknown order status %q", status))
	}
	next := models.OrderStatus(status)

	order, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.OrderStatus == next {
		return order, nil
	}
	if !order.OrderStatus.CanTransition(next) {
		return nil, errors.ErrInvalidTransition
	}

	updates := bson.M{"order_status": next}
	if next == models.OrderDelivered {
		updates["delivered_at"] = time.Now().UTC()
	}
	if err := s.orders.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Cancel moves a cancellable order to CANCELLED, records the reason, and
// releases all reserved stock.
func (s *OrderService) Cancel(ctx context.Context, id primitive.ObjectID, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < 10 || len(reason) > 500 {
		return nil, errors.BadRequest("Cancellation reason must be between 10 and 500 characters")
	}

	order, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.OrderStatus.CanCancel() {
		return nil, errors.BadRequest(fmt.Sprintf("Order in status %s cannot be cancelled", order.OrderStatus))
	}

	updates := bson.M{
		"order_status":        models.OrderCancelled,
		"cancellation_reason": reason,
		"cancelled_at":        time.Now().UTC(),
	}
	if err := s.orders.Update(ctx, id, updates); err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		if err := s.variants.Release(ctx, item.VariantID, item.Quantity); err != nil {
			logger.Error(ctx, "failed to release stock on cancellation", err,
				zap.String("order_number", order.OrderNumber),
				zap.String("sku", item.SKU),
				zap.Int("quantity", item.Quantity))
		}
	}

	return s.GetByID(ctx, id)
}

// UpdateTracking records shipment identifiers from the logistics provider.
func (s *OrderService) UpdateTracking(ctx context.Context, id primitive.ObjectID, trackingNumber, shipmentID, courierName string) (*models.Order, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	updates := bson.M{}
	if trackingNumber != "" {
		updates["tracking_number"] = trackingNumber
	}
	if shipmentID != "" {
		updates["shiprocket_shipment_id"] = shipmentID
	}
	if courierName != "" {
		updates["courier_name"] = courierName
	}
	if len(updates) == 0 {
		return nil, errors.BadRequest("No tracking fields provided")
	}
	if err := s.orders.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// UpdatePaymentStatus sets the order's money lifecycle field.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus) error {
	return s.orders.Update(ctx, id, bson.M{"payment_status": status})
}

// ApplyShipmentStatus maps a provider shipment status onto the order
// lifecycle. Unmapped statuses and out-of-order replays are ignored.
func (s *OrderService) ApplyShipmentStatus(ctx context.Context, shiprocketOrderID, shipmentStatus string) error {
	next, ok := MapShipmentStatus(shipmentStatus)
	if !ok {
		logger.Info(ctx, "ignoring unmapped shipment status",
			zap.String("shipment_status", shipmentStatus),
			zap.String("shiprocket_order_id", shiprocketOrderID))
		return nil
	}

	order, err := s.orders.FindByShiprocketOrderID(ctx, shiprocketOrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	if order.OrderStatus == next || !order.OrderStatus.CanTransition(next) {
		return nil
	}

	updates := bson.M{"order_status": next}
	if next == models.OrderDelivered {
		updates["delivered_at"] = time.Now().UTC()
	}
	return s.orders.Update(ctx, order.ID, updates)
}

// CreateShipment asks the logistics provider to create a shipment for a paid
// order. Idempotent: an order that already carries a shipment id is left
// alone.
func (s *OrderService) CreateShipment(ctx context.Context, id primitive.ObjectID) error {
	order, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order.ShiprocketShipmentID != "" {
		return nil
	}

	req := ShipmentRequest{
		OrderID:             order.ShiprocketOrderID,
		BillingCustomerName: order.ShippingAddress.Name,
		BillingPhone:        order.ShippingAddress.Phone,
		BillingAddress:      order.ShippingAddress.AddressLine1,
		BillingCity:         order.ShippingAddress.City,
		BillingState:        order.ShippingAddress.State,
		BillingPincode:      order.ShippingAddress.PinCode,
	}
	for _, item := range order.Items {
		req.OrderItems = append(req.OrderItems, ShipmentLineItem{
			Name:         item.ProductName,
			SKU:          item.SKU,
			Units:        item.Quantity,
			SellingPrice: RupeeString(item.Price),
		})
	}

	result, err := s.provider.CreateShipment(ctx, req)
	if err != nil {
		return err
	}

	_, err = s.UpdateTracking(ctx, id, result.AWBCode, result.ShipmentID, result.CourierName)
	return err
}

func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}

func resolvePaymentType(raw string) models.PaymentType {
	switch models.PaymentType(strings.ToUpper(raw)) {
	case models.PaymentTypeCOD, models.PaymentTypePrepaid, models.PaymentTypeUPI,
		models.PaymentTypeCard, models.PaymentTypeWallet:
		return models.PaymentType(strings.ToUpper(raw))
	}
	return models.PaymentTypePrepaid
}
