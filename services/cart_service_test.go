package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/models"
)

func testVariant(sku string, stock int, price int64) *models.ProductVariant {
	return &models.ProductVariant{
		ID:                  primitive.NewObjectID(),
		ProductID:           primitive.NewObjectID(),
		SKU:                 sku,
		ShiprocketVariantID: "srv_" + sku,
		Price:               price,
		Stock:               stock,
		IsActive:            true,
	}
}

func newCartService(variants ...*models.ProductVariant) (*CartService, *fakeCartRepo, *fakeVariantRepo) {
	cartRepo := newFakeCartRepo()
	variantRepo := newFakeVariantRepo(variants...)
	svc := NewCartService(cartRepo, variantRepo, &fakeDiscounts{amount: 500}, 30*24*time.Hour)
	return svc, cartRepo, variantRepo
}

func TestAddItemMergesLines(t *testing.T) {
	v := testVariant("SKU-1", 10, 19900)
	svc, _, _ := newCartService(v)
	owner := models.OwnerKey{UserID: "user-1"}

	cart, err := svc.AddItem(context.Background(), owner, v.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	cart, err = svc.AddItem(context.Background(), owner, v.ID, 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, int64(19900), cart.Items[0].PriceSnapshot)
}

func TestAddItemRejectsQuantityBeyondStock(t *testing.T) {
	v := testVariant("SKU-1", 5, 19900)
	svc, _, variantRepo := newCartService(v)
	owner := models.OwnerKey{UserID: "user-1"}

	_, err := svc.AddItem(context.Background(), owner, v.ID, 3)
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), owner, v.ID, 3)
	var stockErr *errors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "SKU-1", stockErr.SKU)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 6, stockErr.Requested)

	// Nothing was reserved: carts never hold stock.
	assert.Equal(t, 5, variantRepo.stock(v.ID))
}

func TestAddItemRejectsInactiveVariant(t *testing.T) {
	v := testVariant("SKU-1", 5, 19900)
	v.IsActive = false
	svc, _, _ := newCartService(v)

	_, err := svc.AddItem(context.Background(), models.OwnerKey{UserID: "user-1"}, v.ID, 1)
	assert.ErrorIs(t, err, errors.ErrItemUnavailable)
}

func TestAddItemRejectsZeroQuantity(t *testing.T) {
	v := testVariant("SKU-1", 5, 19900)
	svc, _, _ := newCartService(v)

	_, err := svc.AddItem(context.Background(), models.OwnerKey{UserID: "user-1"}, v.ID, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidQuantity)
}

func TestUpdateItemSetsAbsoluteQuantity(t *testing.T) {
	v := testVariant("SKU-1", 10, 19900)
	svc, _, _ := newCartService(v)
	owner := models.OwnerKey{SessionID: "sess-1"}

	_, err := svc.AddItem(context.Background(), owner, v.ID, 2)
	require.NoError(t, err)

	cart, err := svc.UpdateItem(context.Background(), owner, v.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Items[0].Quantity)

	_, err = svc.UpdateItem(context.Background(), owner, v.ID, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidQuantity)
}

func TestRemoveAbsentItemIsNoop(t *testing.T) {
	v := testVariant("SKU-1", 10, 19900)
	svc, _, _ := newCartService(v)
	owner := models.OwnerKey{UserID: "user-1"}

	_, err := svc.AddItem(context.Background(), owner, v.ID, 1)
	require.NoError(t, err)

	cart, err := svc.RemoveItem(context.Background(), owner, primitive.NewObjectID())
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestGetOrCreateRequiresExactlyOneIdentifier(t *testing.T) {
	svc, _, _ := newCartService()

	_, err := svc.GetOrCreate(context.Background(), models.OwnerKey{})
	assert.Error(t, err)

	_, err = svc.GetOrCreate(context.Background(), models.OwnerKey{UserID: "u", SessionID: "s"})
	assert.Error(t, err)
}

func TestMergeGuestCartCapsAtStockAndDeactivates(t *testing.T) {
	v := testVariant("SKU-1", 5, 19900)
	svc, cartRepo, _ := newCartService(v)
	ctx := context.Background()

	userOwner := models.OwnerKey{UserID: "user-1"}
	guestOwner := models.OwnerKey{SessionID: "sess-1"}

	_, err := svc.AddItem(ctx, userOwner, v.ID, 3)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, guestOwner, v.ID, 3)
	require.NoError(t, err)

	merged, err := svc.MergeGuestCart(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	require.Len(t, merged.Items, 1)
	// 3 + 3 capped at the 5 in stock.
	assert.Equal(t, 5, merged.Items[0].Quantity)

	guestCart, err := cartRepo.FindActiveByOwner(ctx, guestOwner)
	require.NoError(t, err)
	assert.Nil(t, guestCart)

	// Replaying the merge changes nothing.
	again, err := svc.MergeGuestCart(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, merged.Items, again.Items)
}

func TestMergeGuestCartSkipsUnavailableVariants(t *testing.T) {
	active := testVariant("SKU-1", 10, 19900)
	inactive := testVariant("SKU-2", 10, 9900)
	svc, _, variantRepo := newCartService(active, inactive)
	ctx := context.Background()

	guestOwner := models.OwnerKey{SessionID: "sess-1"}
	_, err := svc.AddItem(ctx, guestOwner, active.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, guestOwner, inactive.ID, 1)
	require.NoError(t, err)

	require.NoError(t, variantRepo.Update(ctx, inactive.ID, map[string]interface{}{"is_active": false}))

	merged, err := svc.MergeGuestCart(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, active.ID, merged.Items[0].VariantID)
}

func TestApplyDiscountRequiresItems(t *testing.T) {
	svc, _, _ := newCartService()
	owner := models.OwnerKey{UserID: "user-1"}

	_, err := svc.GetOrCreate(context.Background(), owner)
	require.NoError(t, err)

	_, err = svc.ApplyDiscount(context.Background(), owner, "SAVE5", models.DiscountCoupon)
	assert.ErrorIs(t, err, errors.ErrEmptyCart)
}

func TestClearDiscountKinds(t *testing.T) {
	v := testVariant("SKU-1", 10, 19900)
	svc, _, _ := newCartService(v)
	owner := models.OwnerKey{UserID: "user-1"}
	ctx := context.Background()

	_, err := svc.AddItem(ctx, owner, v.ID, 1)
	require.NoError(t, err)

	_, err = svc.ApplyDiscount(ctx, owner, "SAVE5", models.DiscountCoupon)
	require.NoError(t, err)
	cart, err := svc.ApplyDiscount(ctx, owner, "VOUCH", models.DiscountVoucher)
	require.NoError(t, err)
	require.NotNil(t, cart.AppliedCoupon)
	require.NotNil(t, cart.AppliedVoucher)

	cart, err = svc.ClearDiscount(ctx, owner, models.DiscountCoupon)
	require.NoError(t, err)
	assert.Nil(t, cart.AppliedCoupon)
	assert.NotNil(t, cart.AppliedVoucher)

	cart, err = svc.ClearDiscount(ctx, owner, models.DiscountAll)
	require.NoError(t, err)
	assert.Nil(t, cart.AppliedCoupon)
	assert.Nil(t, cart.AppliedVoucher)
}

func TestSummaryUsesLivePricesAndCapsDiscount(t *testing.T) {
	v := testVariant("SKU-1", 10, 1000)
	svc, _, variantRepo := newCartService(v)
	owner := models.OwnerKey{UserID: "user-1"}
	ctx := context.Background()

	_, err := svc.AddItem(ctx, owner, v.ID, 2)
	require.NoError(t, err)

	_, err = svc.ApplyDiscount(ctx, owner, "SAVE5", models.DiscountCoupon)
	require.NoError(t, err)

	// Price drops after the snapshot was taken; summary reads live price.
	variantRepo.mu.Lock()
	variantRepo.variants[v.ID].Price = 100
	variantRepo.mu.Unlock()

	summary, err := svc.Summary(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(200), summary.Subtotal)
	// Fake discount resolves to 500, capped at the subtotal.
	assert.Equal(t, int64(200), summary.DiscountAmount)
	assert.Equal(t, int64(0), summary.Total)
	assert.Equal(t, 2, summary.ItemCount)
}
