package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/models"
	"github.com/petalmart/commerce-backend/repository"
)

// VariantService handles variant CRUD and manual stock adjustment. Writes
// queue a catalog sync; checkout-time stock movement goes through the
// repository's Reserve and Release directly.
type VariantService struct {
	variants repository.VariantRepository
	products repository.ProductRepository
	catalog  *CatalogService
}

func NewVariantService(variants repository.VariantRepository, products repository.ProductRepository, catalog *CatalogService) *VariantService {
	return &VariantService{variants: variants, products: products, catalog: catalog}
}

func (s *VariantService) Create(ctx context.Context, v *models.ProductVariant) (*models.ProductVariant, error) {
	if v.Price <= 0 {
		return nil, errors.BadRequest("Variant price must be positive")
	}
	if v.Stock < 0 {
		return nil, errors.BadRequest("Variant stock cannot be negative")
	}

	product, err := s.products.FindByID(ctx, v.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.NotFound("Product not found")
	}

	now := time.Now().UTC()
	v.ID = primitive.NewObjectID()
	v.IsActive = true
	v.CreatedAt = now
	v.UpdatedAt = now

	if err := s.variants.Create(ctx, v); err != nil {
		return nil, err
	}
	s.catalog.QueueSync(ctx, "variant", v.ID.Hex(), "upsert")
	return v, nil
}

func (s *VariantService) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) (*models.ProductVariant, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.variants.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	s.catalog.QueueSync(ctx, "variant", id.Hex(), "upsert")
	return s.Get(ctx, id)
}

// SetStock replaces the absolute stock level, e.g. after a warehouse count.
func (s *VariantService) SetStock(ctx context.Context, id primitive.ObjectID, stock int) (*models.ProductVariant, error) {
	if stock < 0 {
		return nil, errors.BadRequest("Stock cannot be negative")
	}
	return s.Update(ctx, id, bson.M{"stock": stock})
}

// SetDefault marks the variant as its product's default, clearing any
// sibling's flag.
func (s *VariantService) SetDefault(ctx context.Context, id primitive.ObjectID) (*models.ProductVariant, error) {
	variant, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.variants.SetDefault(ctx, variant.ProductID, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *VariantService) Get(ctx context.Context, id primitive.ObjectID) (*models.ProductVariant, error) {
	variant, err := s.variants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return nil, errors.ErrVariantNotFound
	}
	return variant, nil
}

func (s *VariantService) ListByProduct(ctx context.Context, productID primitive.ObjectID, page, limit int) ([]models.ProductVariant, int64, error) {
	return s.variants.FindByProduct(ctx, productID, page, limit)
}
