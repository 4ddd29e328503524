package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/models"
)

func newOrderService(provider *fakeProvider, variants ...*models.ProductVariant) (*OrderService, *fakeOrderRepo, *fakeVariantRepo) {
	orderRepo := newFakeOrderRepo()
	variantRepo := newFakeVariantRepo(variants...)
	productRepo := newFakeProductRepo()
	svc := NewOrderService(orderRepo, variantRepo, productRepo, provider)
	return svc, orderRepo, variantRepo
}

func confirmationPayload(variants ...*models.ProductVariant) *models.OrderWebhookPayload {
	payload := &models.OrderWebhookPayload{
		Event:   string(models.EventOrderSuccess),
		OrderID: "sr_order_1",
		UserID:  "user-1",
	}
	for _, v := range variants {
		payload.Items = append(payload.Items, models.CheckoutConfirmationItem{
			VariantID: v.ShiprocketVariantID,
			Quantity:  2,
		})
		payload.Amount += v.Price * 2
	}
	return payload
}

func TestCreateFromCheckoutConfirmation(t *testing.T) {
	v := testVariant("SKU-1", 10, 1000)
	svc, _, variantRepo := newOrderService(&fakeProvider{}, v)

	order, err := svc.CreateFromCheckoutConfirmation(context.Background(), confirmationPayload(v))
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.OrderStatus)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, int64(2000), order.Pricing.Total)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "SKU-1", order.Items[0].SKU)

	// Stock was reserved.
	assert.Equal(t, 8, variantRepo.stock(v.ID))
}

func TestCreateFromCheckoutConfirmationIsIdempotent(t *testing.T) {
	v := testVariant("SKU-1", 10, 1000)
	svc, _, variantRepo := newOrderService(&fakeProvider{}, v)
	payload := confirmationPayload(v)

	first, err := svc.CreateFromCheckoutConfirmation(context.Background(), payload)
	require.NoError(t, err)

	second, err := svc.CreateFromCheckoutConfirmation(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// The replay reserved nothing.
	assert.Equal(t, 8, variantRepo.stock(v.ID))
}

func TestCreateReleasesStockOnPartialReservationFailure(t *testing.T) {
	v1 := testVariant("SKU-1", 10, 1000)
	v2 := testVariant("SKU-2", 1, 1000) // short by one
	svc, orderRepo, variantRepo := newOrderService(&fakeProvider{}, v1, v2)

	_, err := svc.CreateFromCheckoutConfirmation(context.Background(), confirmationPayload(v1, v2))
	var stockErr *errors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "SKU-2", stockErr.SKU)

	// The first line's reservation was rolled back.
	assert.Equal(t, 10, variantRepo.stock(v1.ID))
	assert.Equal(t, 1, variantRepo.stock(v2.ID))

	// The order record survives for audit, cancelled and unstocked.
	order, ferr := orderRepo.FindByShiprocketOrderID(context.Background(), "sr_order_1")
	require.NoError(t, ferr)
	require.NotNil(t, order)
	assert.Equal(t, models.OrderCancelled, order.OrderStatus)
}

func TestCreateRejectsAmountMismatch(t *testing.T) {
	v := testVariant("SKU-1", 10, 1000)
	svc, _, variantRepo := newOrderService(&fakeProvider{}, v)

	payload := confirmationPayload(v)
	payload.Amount = 1 // asserted total disagrees with catalog prices

	_, err := svc.CreateFromCheckoutConfirmation(context.Background(), payload)
	assert.ErrorIs(t, err, errors.ErrAmountMismatch)
	assert.Equal(t, 10, variantRepo.stock(v.ID))
}

func TestCreateRejectsUnknownVariant(t *testing.T) {
	svc, _, _ := newOrderService(&fakeProvider{})

	payload := &models.OrderWebhookPayload{
		OrderID: "sr_order_1",
		Items:   []models.CheckoutConfirmationItem{{VariantID: "srv_missing", Quantity: 1}},
	}
	_, err := svc.CreateFromCheckoutConfirmation(context.Background(), payload)
	assert.ErrorIs(t, err, errors.ErrVariantNotFound)
}

func TestUpdateStatusFollowsTransitionTable(t *testing.T) {
	v := testVariant("SKU-1", 10, 1000)
	svc, _, _ := newOrderService(&fakeProvider{}, v)

	order, err := svc.CreateFromCheckoutConfirmation(context.Background(), confirmationPayload(v))
	require.NoError(t, err)

	order, err = svc.UpdateStatus(context.Background(), order.ID, "CONFIRMED")
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, order.OrderStatus)

	// CONFIRMED cannot jump straight to DELIVERED.
	_, err = svc.UpdateStatus(context.Background(), order.ID, "DELIVERED")
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)

	order, err = svc.UpdateStatus(context.Background(), order.ID, "SHIPPED")
	require.NoError(t, err)
	order, err = svc.UpdateStatus(context.Background(), order.ID, "DELIVERED")
	require.NoError(t, err)
	assert.NotNil(t, order.DeliveredAt)

	// Setting the current status again is a no-op.
	_, err = svc.UpdateStatus(context.Background(), order.ID, "DELIVERED")
	assert.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), order.ID, "NONSENSE")
	assert.Error(t, err)
}

func TestCancelValidatesReasonAndRestoresStock(t *testing.T) {
	v := testVariant("SKU-1", 10, 1000)
	svc, _, variantRepo := newOrderService(&fakeProvider{}, v)

	order, err := svc.CreateFromCheckoutConfirmation(context.Background(), confirmationPayload(v))
	require.NoError(t, err)
	require.Equal(t, 8, variantRepo.stock(v.ID))

	_, err = svc.Cancel(context.Background(), order.ID, "short")
	assert.Error(t, err)
	assert.Equal(t, 8, variantRepo.stock(v.ID))

	reason := "The courier could not deliver to this address at all"
	cancelled, err := svc.Cancel(context.Background(), order.ID, reason)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.OrderStatus)
	assert.Equal(t, reason, cancelled.CancellationReason)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 10, variantRepo.stock(v.ID))

	// A cancelled order cannot be cancelled again.
	_, err = svc.Cancel(context.Background(), order.ID, reason)
	assert.Error(t, err)
}

func TestCancelShippedOrderAllowed(t *testing.T) {
	v := testVariant("SKU-1", 10, 1000)
	svc, _, variantRepo := newOrderService(&fakeProvider{}, v)

	order, err := svc.CreateFromCheckoutConfirmation(context.Background(), confirmationPayload(v))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), order.ID, "CONFIRMED")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), order.ID, "SHIPPED")
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), order.ID, "Changed my mind about this purchase entirely")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.OrderStatus)
	assert.Equal(t, 10, variantRepo.stock(v.ID))
}

func TestMapShipmentStatus(t *testing.T) {
	cases := map[string]models.OrderStatus{
		"PICKED_UP":        models.OrderProcessing,
		"IN_TRANSIT":       models.OrderShipped,
		"OUT_FOR_DELIVERY": models.OrderOutForDelivery,
		"DELIVERED":        models.OrderDelivered,
		"RTO":              models.OrderReturned,
	}
	for input, want := range cases {
		got, ok := MapShipmentStatus(input)
		require.True(t, ok, input)
		assert.Equal(t, want, got)
	}

	_, ok := MapShipmentStatus("LOST_IN_SPACE")
	assert.False(t, ok)
}

func TestApplyShipmentStatusIgnoresUnknownOrderAndReplays(t *testing.T) {
	v := testVariant("SKU-1", 10, 1000)
	svc, orderRepo, _ := newOrderService(&fakeProvider{}, v)
	ctx := context.Background()

	// Unknown order: silent no-op.
	require.NoError(t, svc.ApplyShipmentStatus(ctx, "sr_missing", "IN_TRANSIT"))

	order, err := svc.CreateFromCheckoutConfirmation(ctx, confirmationPayload(v))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, order.ID, "CONFIRMED")
	require.NoError(t, err)

	require.NoError(t, svc.ApplyShipmentStatus(ctx, "sr_order_1", "IN_TRANSIT"))
	updated, _ := orderRepo.FindByID(ctx, order.ID)
	assert.Equal(t, models.OrderShipped, updated.OrderStatus)

	// An out-of-order PICKED_UP replay cannot move the order backwards.
	require.NoError(t, svc.ApplyShipmentStatus(ctx, "sr_order_1", "PICKED_UP"))
	updated, _ = orderRepo.FindByID(ctx, order.ID)
	assert.Equal(t, models.OrderShipped, updated.OrderStatus)
}

func TestCreateShipmentIsIdempotent(t *testing.T) {
	v := testVariant("SKU-1", 10, 1000)
	provider := &fakeProvider{}
	svc, orderRepo, _ := newOrderService(provider, v)
	ctx := context.Background()

	order, err := svc.CreateFromCheckoutConfirmation(ctx, confirmationPayload(v))
	require.NoError(t, err)

	require.NoError(t, svc.CreateShipment(ctx, order.ID))
	require.Len(t, provider.shipments, 1)

	updated, _ := orderRepo.FindByID(ctx, order.ID)
	assert.Equal(t, "ship_1", updated.ShiprocketShipmentID)
	assert.Equal(t, "AWB1", updated.TrackingNumber)

	// Second call sees the shipment id and does not call the provider again.
	require.NoError(t, svc.CreateShipment(ctx, order.ID))
	assert.Len(t, provider.shipments, 1)
}
