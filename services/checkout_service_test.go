package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/models"
)

func newCheckoutService(provider *fakeProvider, variants ...*models.ProductVariant) (*CheckoutService, *CartService) {
	cartRepo := newFakeCartRepo()
	variantRepo := newFakeVariantRepo(variants...)
	carts := NewCartService(cartRepo, variantRepo, &fakeDiscounts{}, 30*24*time.Hour)
	checkout := NewCheckoutService(cartRepo, variantRepo, provider, "https://shop.example.com")
	return checkout, carts
}

func TestProjectEmptyCart(t *testing.T) {
	checkout, carts := newCheckoutService(&fakeProvider{})
	owner := models.OwnerKey{UserID: "user-1"}

	_, err := checkout.Project(context.Background(), owner)
	assert.ErrorIs(t, err, errors.ErrEmptyCart)

	// An existing but empty cart projects the same way.
	_, err = carts.GetOrCreate(context.Background(), owner)
	require.NoError(t, err)
	_, err = checkout.Project(context.Background(), owner)
	assert.ErrorIs(t, err, errors.ErrEmptyCart)
}

func TestProjectRejectsUnsyncedVariant(t *testing.T) {
	v := testVariant("SKU-1", 10, 19900)
	v.ShiprocketVariantID = ""
	checkout, carts := newCheckoutService(&fakeProvider{}, v)
	owner := models.OwnerKey{UserID: "user-1"}

	_, err := carts.AddItem(context.Background(), owner, v.ID, 1)
	require.NoError(t, err)

	_, err = checkout.Project(context.Background(), owner)
	assert.ErrorIs(t, err, errors.ErrNotSyncedWithCatalog)
}

func TestProjectRejectsDeactivatedVariant(t *testing.T) {
	v := testVariant("SKU-1", 10, 19900)
	checkout, carts := newCheckoutService(&fakeProvider{}, v)
	owner := models.OwnerKey{UserID: "user-1"}
	ctx := context.Background()

	_, err := carts.AddItem(ctx, owner, v.ID, 1)
	require.NoError(t, err)

	// Variant is retired after it entered the cart.
	require.NoError(t, carts.variants.Update(ctx, v.ID, map[string]interface{}{"is_active": false}))

	_, err = checkout.Project(ctx, owner)
	assert.ErrorIs(t, err, errors.ErrItemUnavailable)
}

func TestProjectAvailabilityOutranksLinkage(t *testing.T) {
	// First line is unsynced, second is retired. Availability is checked
	// across the whole cart before linkage, so the retired line decides.
	v1 := testVariant("SKU-1", 10, 19900)
	v1.ShiprocketVariantID = ""
	v2 := testVariant("SKU-2", 10, 9900)
	checkout, carts := newCheckoutService(&fakeProvider{}, v1, v2)
	owner := models.OwnerKey{UserID: "user-1"}
	ctx := context.Background()

	_, err := carts.AddItem(ctx, owner, v1.ID, 1)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, owner, v2.ID, 1)
	require.NoError(t, err)
	require.NoError(t, carts.variants.Update(ctx, v2.ID, map[string]interface{}{"is_active": false}))

	_, err = checkout.Project(ctx, owner)
	assert.ErrorIs(t, err, errors.ErrItemUnavailable)
}

func TestProjectRejectsStockShortfall(t *testing.T) {
	v := testVariant("SKU-1", 5, 19900)
	checkout, carts := newCheckoutService(&fakeProvider{}, v)
	owner := models.OwnerKey{UserID: "user-1"}
	ctx := context.Background()

	_, err := carts.AddItem(ctx, owner, v.ID, 5)
	require.NoError(t, err)

	// Stock drains between add and checkout.
	require.NoError(t, carts.variants.Update(ctx, v.ID, map[string]interface{}{"stock": 2}))

	_, err = checkout.Project(ctx, owner)
	var stockErr *errors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "SKU-1", stockErr.SKU)
	assert.Equal(t, 2, stockErr.Available)
}

func TestProjectCarriesNoPrices(t *testing.T) {
	v1 := testVariant("SKU-1", 10, 19900)
	v2 := testVariant("SKU-2", 10, 9900)
	checkout, carts := newCheckoutService(&fakeProvider{}, v1, v2)
	owner := models.OwnerKey{SessionID: "sess-1"}
	ctx := context.Background()

	_, err := carts.AddItem(ctx, owner, v1.ID, 2)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, owner, v2.ID, 1)
	require.NoError(t, err)

	payload, err := checkout.Project(ctx, owner)
	require.NoError(t, err)
	require.Len(t, payload.CartData.Items, 2)
	assert.Equal(t, "srv_SKU-1", payload.CartData.Items[0].VariantID)
	assert.Equal(t, 2, payload.CartData.Items[0].Quantity)
	assert.NotEmpty(t, payload.Timestamp)
	assert.Equal(t, "https://shop.example.com/order-confirmation", payload.RedirectURL)
}

func TestGenerateTokenValidatesFirst(t *testing.T) {
	provider := &fakeProvider{token: "tok_abc"}
	checkout, carts := newCheckoutService(provider)
	owner := models.OwnerKey{UserID: "user-1"}

	_, err := checkout.GenerateToken(context.Background(), owner)
	assert.ErrorIs(t, err, errors.ErrEmptyCart)
	assert.Empty(t, provider.checkoutCalls)

	v := testVariant("SKU-1", 10, 19900)
	require.NoError(t, carts.variants.Create(context.Background(), v))
	_, err = carts.AddItem(context.Background(), owner, v.ID, 1)
	require.NoError(t, err)

	token, err := checkout.GenerateToken(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "tok_abc", token)
	assert.Len(t, provider.checkoutCalls, 1)
}
