package services

import (
	"context"
	"strconv"
	"time"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/models"
	"github.com/petalmart/commerce-backend/repository"
)

// CheckoutService projects a validated cart into the provider's checkout
// payload. Projection is read-only: it reserves nothing.
type CheckoutService struct {
	carts       repository.CartRepository
	variants    repository.VariantRepository
	provider    CheckoutProvider
	frontendURL string
}

func NewCheckoutService(carts repository.CartRepository, variants repository.VariantRepository, provider CheckoutProvider, frontendURL string) *CheckoutService {
	return &CheckoutService{carts: carts, variants: variants, provider: provider, frontendURL: frontendURL}
}

// Project validates every cart line against the live catalog and builds the
// checkout payload. Lines carry only the external variant id and quantity;
// price authority stays with the catalog sync.
//
// Validation failures surface in a fixed precedence: empty cart, then item
// availability across all lines, then catalog linkage, then stock. A cart
// with both an unavailable line and an unsynced one reports unavailability
// regardless of line order.
func (s *CheckoutService) Project(ctx context.Context, owner models.OwnerKey) (*models.CheckoutPayload, error) {
	if !owner.Valid() {
		return nil, errors.BadRequest("Either user id or session id is required")
	}

	cart, err := s.carts.FindActiveByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, errors.ErrEmptyCart
	}

	variants := make([]*models.ProductVariant, len(cart.Items))
	for i, item := range cart.Items {
		variant, err := s.variants.FindByID(ctx, item.VariantID)
		if err != nil {
			return nil, err
		}
		variants[i] = variant
	}
	for _, variant := range variants {
		if variant == nil || !variant.IsActive {
			return nil, errors.ErrItemUnavailable
		}
	}
	for _, variant := range variants {
		if !variant.SyncedWithCatalog() {
			return nil, errors.ErrNotSyncedWithCatalog
		}
	}
	for i, item := range cart.Items {
		if variants[i].Stock < item.Quantity {
			return nil, errors.InsufficientStock(variants[i].SKU, variants[i].Stock, item.Quantity)
		}
	}

	payload := &models.CheckoutPayload{
		RedirectURL: s.frontendURL + "/order-confirmation",
		Timestamp:   strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	for i, item := range cart.Items {
		payload.CartData.Items = append(payload.CartData.Items, models.CheckoutLineItem{
			VariantID: variants[i].ShiprocketVariantID,
			Quantity:  item.Quantity,
		})
	}
	return payload, nil
}

// GenerateToken projects the cart and exchanges the signed payload for a
// provider checkout token.
func (s *CheckoutService) GenerateToken(ctx context.Context, owner models.OwnerKey) (string, error) {
	payload, err := s.Project(ctx, owner)
	if err != nil {
		return "", err
	}
	return s.provider.CreateCheckoutToken(ctx, *payload)
}
