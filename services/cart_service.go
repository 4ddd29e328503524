package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/common/logger"
	"github.com/petalmart/commerce-backend/models"
	"github.com/petalmart/commerce-backend/repository"
)

// CartService owns all cart mutations. Carts never hold stock: quantities are
// validated against live stock at mutation time but nothing is reserved until
// order creation.
type CartService struct {
	carts     repository.CartRepository
	variants  repository.VariantRepository
	discounts DiscountService
	ttl       time.Duration
}

func NewCartService(carts repository.CartRepository, variants repository.VariantRepository, discounts DiscountService, ttl time.Duration) *CartService {
	return &CartService{carts: carts, variants: variants, discounts: discounts, ttl: ttl}
}

// GetOrCreate returns the owner's active cart, creating an empty one if none
// exists. Concurrent calls for the same owner converge on a single cart.
func (s *CartService) GetOrCreate(ctx context.Context, owner models.OwnerKey) (*models.Cart, error) {
	if !owner.Valid() {
		return nil, errors.BadRequest("Either user id or session id is required")
	}
	return s.carts.GetOrCreate(ctx, owner, s.ttl)
}

// AddItem adds qty of the variant to the owner's cart, merging with any
// existing line. The resulting line quantity must not exceed current stock.
func (s *CartService) AddItem(ctx context.Context, owner models.OwnerKey, variantID primitive.ObjectID, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, errors.ErrInvalidQuantity
	}

	variant, err := s.variants.FindByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if variant == nil || !variant.IsActive {
		return nil, errors.ErrItemUnavailable
	}

	cart, err := s.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	items := cart.Items
	newQty := qty
	if i := cart.FindItem(variantID); i >= 0 {
		newQty = items[i].Quantity + qty
	}
	if variant.Stock < newQty {
		return nil, errors.InsufficientStock(variant.SKU, variant.Stock, newQty)
	}

	if i := cart.FindItem(variantID); i >= 0 {
		items[i].Quantity = newQty
		items[i].PriceSnapshot = variant.Price
	} else {
		items = append(items, models.CartItem{
			VariantID:           variant.ID,
			ShiprocketVariantID: variant.ShiprocketVariantID,
			Quantity:            qty,
			PriceSnapshot:       variant.Price,
			AddedAt:             time.Now().UTC(),
		})
	}

	return s.saveItems(ctx, cart, items)
}

// UpdateItem sets the line quantity for the variant. Quantities below one are
// rejected; removal is a separate operation.
func (s *CartService) UpdateItem(ctx context.Context, owner models.OwnerKey, variantID primitive.ObjectID, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, errors.ErrInvalidQuantity
	}

	cart, err := s.requireCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	i := cart.FindItem(variantID)
	if i < 0 {
		return nil, errors.NotFound("Item not found in cart")
	}

	variant, err := s.variants.FindByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if variant == nil || !variant.IsActive {
		return nil, errors.ErrItemUnavailable
	}
	if variant.Stock < qty {
		return nil, errors.InsufficientStock(variant.SKU, variant.Stock, qty)
	}

	cart.Items[i].Quantity = qty
	cart.Items[i].PriceSnapshot = variant.Price
	return s.saveItems(ctx, cart, cart.Items)
}

// RemoveItem drops the variant's line from the cart. Removing an absent
// variant is not an error.
func (s *CartService) RemoveItem(ctx context.Context, owner models.OwnerKey, variantID primitive.ObjectID) (*models.Cart, error) {
	cart, err := s.requireCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	i := cart.FindItem(variantID)
	if i < 0 {
		return cart, nil
	}

	items := append(cart.Items[:i], cart.Items[i+1:]...)
	return s.saveItems(ctx, cart, items)
}

// Clear empties the cart's items. Applied discounts are left in place; they
// are re-validated at checkout projection.
func (s *CartService) Clear(ctx context.Context, owner models.OwnerKey) error {
	cart, err := s.carts.FindActiveByOwner(ctx, owner)
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}
	return s.carts.ClearItems(ctx, cart.ID)
}

// DeactivateByOwner retires the owner's active cart, e.g. after it has been
// converted to an order. Carts are never hard-deleted.
func (s *CartService) DeactivateByOwner(ctx context.Context, owner models.OwnerKey) error {
	cart, err := s.carts.FindActiveByOwner(ctx, owner)
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}
	return s.carts.Deactivate(ctx, cart.ID)
}

// ApplyDiscount validates the code with the discount collaborator and stores
// the resolved amount in the matching slot.
func (s *CartService) ApplyDiscount(ctx context.Context, owner models.OwnerKey, code string, kind models.DiscountKind) (*models.Cart, error) {
	if kind != models.DiscountCoupon && kind != models.DiscountVoucher {
		return nil, errors.BadRequest("Discount kind must be coupon or voucher")
	}

	cart, err := s.requireCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, errors.ErrEmptyCart
	}

	req := DiscountRequest{
		Code:       code,
		UserID:     owner.UserID,
		AppliedFor: kind,
	}
	for _, item := range cart.Items {
		req.Subtotal += item.PriceSnapshot * int64(item.Quantity)
		req.Items = append(req.Items, DiscountedItem{
			VariantID: item.VariantID.Hex(),
			Quantity:  item.Quantity,
			Price:     item.PriceSnapshot,
		})
	}

	discount, err := s.discounts.Apply(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.carts.SetDiscount(ctx, cart.ID, kind, discount); err != nil {
		return nil, err
	}
	return s.carts.FindActiveByOwner(ctx, owner)
}

// ClearDiscount removes the coupon slot, the voucher slot, or both.
func (s *CartService) ClearDiscount(ctx context.Context, owner models.OwnerKey, kind models.DiscountKind) (*models.Cart, error) {
	cart, err := s.requireCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := s.carts.ClearDiscount(ctx, cart.ID, kind); err != nil {
		return nil, err
	}
	return s.carts.FindActiveByOwner(ctx, owner)
}

// Summary computes the cart totals from live variant prices. DiscountAmount
// is capped so the total never goes negative.
func (s *CartService) Summary(ctx context.Context, owner models.OwnerKey) (*models.CartSummary, error) {
	cart, err := s.carts.FindActiveByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &models.CartSummary{}, nil
	}

	summary := &models.CartSummary{}
	for _, item := range cart.Items {
		price := item.PriceSnapshot
		variant, err := s.variants.FindByID(ctx, item.VariantID)
		if err != nil {
			return nil, err
		}
		if variant != nil {
			price = variant.Price
		}
		summary.Subtotal += price * int64(item.Quantity)
		summary.ItemCount += item.Quantity
	}

	summary.DiscountAmount = cart.DiscountTotal()
	if summary.DiscountAmount > summary.Subtotal {
		summary.DiscountAmount = summary.Subtotal
	}
	summary.Total = summary.Subtotal - summary.DiscountAmount
	return summary, nil
}

// MergeGuestCart folds a guest session's cart into the user's cart at login.
// Merged quantities are capped at current stock, unavailable variants are
// dropped, and the guest cart is always deactivated. Replays are no-ops.
func (s *CartService) MergeGuestCart(ctx context.Context, userID, sessionID string) (*models.Cart, error) {
	if userID == "" || sessionID == "" {
		return nil, errors.BadRequest("Both user id and session id are required")
	}

	userCart, err := s.GetOrCreate(ctx, models.OwnerKey{UserID: userID})
	if err != nil {
		return nil, err
	}

	guestCart, err := s.carts.FindActiveByOwner(ctx, models.OwnerKey{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	if guestCart == nil {
		return userCart, nil
	}

	items := userCart.Items
	for _, guestItem := range guestCart.Items {
		variant, err := s.variants.FindByID(ctx, guestItem.VariantID)
		if err != nil {
			return nil, err
		}
		if variant == nil || !variant.IsActive {
			logger.Warn(ctx, "skipping unavailable variant during cart merge",
				zap.String("variant_id", guestItem.VariantID.Hex()))
			continue
		}

		merged := false
		for i := range items {
			if items[i].VariantID == guestItem.VariantID {
				qty := items[i].Quantity + guestItem.Quantity
				if qty > variant.Stock {
					qty = variant.Stock
				}
				items[i].Quantity = qty
				merged = true
				break
			}
		}
		if merged {
			continue
		}

		qty := guestItem.Quantity
		if qty > variant.Stock {
			qty = variant.Stock
		}
		if qty < 1 {
			continue
		}
		items = append(items, models.CartItem{
			VariantID:           guestItem.VariantID,
			ShiprocketVariantID: guestItem.ShiprocketVariantID,
			Quantity:            qty,
			PriceSnapshot:       variant.Price,
			AddedAt:             guestItem.AddedAt,
		})
	}

	updated, err := s.saveItems(ctx, userCart, items)
	if err != nil {
		return nil, err
	}

	if err := s.carts.Deactivate(ctx, guestCart.ID); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *CartService) requireCart(ctx context.Context, owner models.OwnerKey) (*models.Cart, error) {
	if !owner.Valid() {
		return nil, errors.BadRequest("Either user id or session id is required")
	}
	cart, err := s.carts.FindActiveByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, errors.NotFound("Cart not found")
	}
	return cart, nil
}

func (s *CartService) saveItems(ctx context.Context, cart *models.Cart, items []models.CartItem) (*models.Cart, error) {
	expiresAt := time.Now().UTC().Add(s.ttl)
	if err := s.carts.ReplaceItems(ctx, cart.ID, items, expiresAt); err != nil {
		return nil, err
	}
	cart.Items = items
	cart.ExpiresAt = expiresAt
	return cart, nil
}
