package services

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/common/logger"
	"github.com/petalmart/commerce-backend/kafka"
	"github.com/petalmart/commerce-backend/models"
	"github.com/petalmart/commerce-backend/repository"
)

// CatalogService keeps the provider catalog in sync with the local product
// data. Changes are queued to a topic; a worker consumes the queue and pushes
// the full product shape to the provider.
type CatalogService struct {
	products repository.ProductRepository
	variants repository.VariantRepository
	producer *kafka.Producer
	provider CheckoutProvider
}

func NewCatalogService(products repository.ProductRepository, variants repository.VariantRepository, producer *kafka.Producer, provider CheckoutProvider) *CatalogService {
	return &CatalogService{products: products, variants: variants, producer: producer, provider: provider}
}

// QueueSync publishes a sync event for the entity. Publish failures are
// logged: the periodic full feed pull will reconcile anything missed.
func (s *CatalogService) QueueSync(ctx context.Context, entity, id, action string) {
	if s.producer == nil {
		return
	}
	event := models.CatalogSyncEvent{
		Entity:    entity,
		ID:        id,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
	if err := s.producer.Publish(ctx, entity+":"+id, event); err != nil {
		logger.Warn(ctx, "catalog sync event not queued",
			zap.String("entity", entity), zap.String("id", id))
	}
}

// HandleSyncEvent is the consumer side: it resolves the changed entity to a
// product and pushes the provider catalog shape.
func (s *CatalogService) HandleSyncEvent(ctx context.Context, key, value []byte) error {
	var event models.CatalogSyncEvent
	if err := json.Unmarshal(value, &event); err != nil {
		logger.Warn(ctx, "dropping malformed catalog sync event", zap.String("key", string(key)))
		return nil
	}

	id, err := primitive.ObjectIDFromHex(event.ID)
	if err != nil {
		logger.Warn(ctx, "dropping catalog sync event with bad id", zap.String("id", event.ID))
		return nil
	}

	productID := id
	if event.Entity == "variant" {
		variant, err := s.variants.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if variant == nil {
			return nil
		}
		productID = variant.ProductID
	}

	return s.PushProduct(ctx, productID)
}

// PushProduct sends one product with all its variants to the provider
// catalog.
func (s *CatalogService) PushProduct(ctx context.Context, productID primitive.ObjectID) error {
	payload, err := s.buildCatalogProduct(ctx, productID)
	if err != nil {
		return err
	}
	if payload == nil {
		return nil
	}
	return s.provider.PushProductUpdate(ctx, *payload)
}

// Feed returns a page of the provider catalog shape, serving the provider's
// pull endpoint.
func (s *CatalogService) Feed(ctx context.Context, page, limit int) ([]CatalogProduct, int64, error) {
	products, total, err := s.products.FindActive(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	feed := make([]CatalogProduct, 0, len(products))
	for i := range products {
		payload, err := s.buildCatalogProduct(ctx, products[i].ID)
		if err != nil {
			return nil, 0, err
		}
		if payload != nil {
			feed = append(feed, *payload)
		}
	}
	return feed, total, nil
}

func (s *CatalogService) buildCatalogProduct(ctx context.Context, productID primitive.ObjectID) (*CatalogProduct, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.NotFound("Product not found")
	}

	variants, _, err := s.variants.FindByProduct(ctx, productID, 1, 100)
	if err != nil {
		return nil, err
	}

	status := "active"
	if !product.IsActive {
		status = "inactive"
	}

	payload := &CatalogProduct{
		ID:        product.ID.Hex(),
		Title:     product.Name,
		BodyHTML:  product.Description,
		UpdatedAt: product.UpdatedAt.UTC().Format(time.RFC3339),
		Status:    status,
	}
	if len(product.Images) > 0 {
		payload.Image = CatalogImage{Src: product.Images[0]}
	}

	for i := range variants {
		v := &variants[i]
		if !v.IsActive {
			continue
		}
		payload.Variants = append(payload.Variants, CatalogVariant{
			ID:        v.ID.Hex(),
			Title:     variantTitle(v),
			Price:     RupeeString(v.Price),
			Quantity:  v.Stock,
			SKU:       v.SKU,
			UpdatedAt: v.UpdatedAt.UTC().Format(time.RFC3339),
			Image:     CatalogImage{Src: v.Image},
			Weight:    Kilograms(v.WeightGrams),
		})
	}

	return payload, nil
}

func variantTitle(v *models.ProductVariant) string {
	switch {
	case v.Attributes.Size != "" && v.Attributes.ColorName != "":
		return v.Attributes.ColorName + " / " + v.Attributes.Size
	case v.Attributes.Size != "":
		return v.Attributes.Size
	case v.Attributes.ColorName != "":
		return v.Attributes.ColorName
	}
	return v.SKU
}
