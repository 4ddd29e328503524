package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OwnerKey identifies a cart owner: exactly one of UserID or SessionID is set.
type OwnerKey struct {
	UserID    string
	SessionID string
}

// IsGuest reports whether the key belongs to a session rather than a user.
func (k OwnerKey) IsGuest() bool {
	return k.UserID == "" && k.SessionID != ""
}

// Valid reports whether exactly one identifier is set.
func (k OwnerKey) Valid() bool {
	return (k.UserID != "") != (k.SessionID != "")
}

// Discount is the resolved outcome of a coupon or voucher application.
// Cart stores only the amount, not the discount business rules.
type Discount struct {
	Code           string `json:"code" bson:"code"`
	DiscountAmount int64  `json:"discount_amount" bson:"discount_amount"`
}

// DiscountKind selects which discount slot an operation targets.
type DiscountKind string

const (
	DiscountCoupon  DiscountKind = "coupon"
	DiscountVoucher DiscountKind = "voucher"
	DiscountAll     DiscountKind = "all"
)

type CartItem struct {
	VariantID           primitive.ObjectID `json:"variant_id" bson:"variant_id"`
	ShiprocketVariantID string             `json:"shiprocket_variant_id,omitempty" bson:"shiprocket_variant_id,omitempty"`
	Quantity            int                `json:"quantity" bson:"quantity"`
	PriceSnapshot       int64              `json:"price_snapshot" bson:"price_snapshot"`
	AddedAt             time.Time          `json:"added_at" bson:"added_at"`
}

// Cart holds the mutable pre-checkout state for a user or guest session.
// At most one active cart exists per owner key.
type Cart struct {
	ID             primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	UserID         string             `json:"user_id,omitempty" bson:"user_id,omitempty"`
	SessionID      string             `json:"session_id,omitempty" bson:"session_id,omitempty"`
	Items          []CartItem         `json:"items" bson:"items"`
	AppliedCoupon  *Discount          `json:"applied_coupon,omitempty" bson:"applied_coupon,omitempty"`
	AppliedVoucher *Discount          `json:"applied_voucher,omitempty" bson:"applied_voucher,omitempty"`
	IsActive       bool               `json:"is_active" bson:"is_active"`
	ExpiresAt      time.Time          `json:"expires_at" bson:"expires_at"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

// Owner returns the cart's owner key.
func (c *Cart) Owner() OwnerKey {
	return OwnerKey{UserID: c.UserID, SessionID: c.SessionID}
}

// FindItem returns the index of the item for variantID, or -1.
func (c *Cart) FindItem(variantID primitive.ObjectID) int {
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// DiscountTotal is the combined coupon + voucher amount.
func (c *Cart) DiscountTotal() int64 {
	var total int64
	if c.AppliedCoupon != nil {
		total += c.AppliedCoupon.DiscountAmount
	}
	if c.AppliedVoucher != nil {
		total += c.AppliedVoucher.DiscountAmount
	}
	return total
}

// CartSummary is the read-side cart total breakdown, in paise.
type CartSummary struct {
	Subtotal       int64 `json:"subtotal"`
	DiscountAmount int64 `json:"discount_amount"`
	Total          int64 `json:"total"`
	ItemCount      int   `json:"item_count"`
}
