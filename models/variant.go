package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VariantAttributes identifies the purchasable combination of a product.
type VariantAttributes struct {
	Size      string `json:"size,omitempty" bson:"size,omitempty"`
	ColorName string `json:"color_name,omitempty" bson:"color_name,omitempty"`
	ColorHex  string `json:"color_hex,omitempty" bson:"color_hex,omitempty"`
}

// ProductVariant owns the authoritative stock and price for one SKU.
// Prices are stored in paise, weights in grams; conversion to rupees and
// kilograms happens only at external boundaries.
type ProductVariant struct {
	ID                  primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	ProductID           primitive.ObjectID `json:"product_id" bson:"product_id"`
	SKU                 string             `json:"sku" bson:"sku"`
	ShiprocketVariantID string             `json:"shiprocket_variant_id,omitempty" bson:"shiprocket_variant_id,omitempty"`
	Attributes          VariantAttributes  `json:"attributes" bson:"attributes"`
	Image               string             `json:"image,omitempty" bson:"image,omitempty"`
	Price               int64              `json:"price" bson:"price"`
	OriginalPrice       int64              `json:"original_price,omitempty" bson:"original_price,omitempty"`
	Stock               int                `json:"stock" bson:"stock"`
	WeightGrams         int                `json:"weight_grams" bson:"weight_grams"`
	HSN                 string             `json:"hsn,omitempty" bson:"hsn,omitempty"`
	IsActive            bool               `json:"is_active" bson:"is_active"`
	IsDefault           bool               `json:"is_default" bson:"is_default"`
	CreatedAt           time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at" bson:"updated_at"`
}

// SyncedWithCatalog reports whether the variant carries the external catalog
// linkage id required before it may appear in a checkout payload.
func (v *ProductVariant) SyncedWithCatalog() bool {
	return v.ShiprocketVariantID != ""
}
