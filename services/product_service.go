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

// ProductService handles product CRUD. Every write queues a catalog sync so
// the provider catalog tracks local changes.
type ProductService struct {
	products repository.ProductRepository
	catalog  *CatalogService
}

func NewProductService(products repository.ProductRepository, catalog *CatalogService) *ProductService {
	return &ProductService{products: products, catalog: catalog}
}

func (s *ProductService) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.IsActive = true
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.catalog.QueueSync(ctx, "product", p.ID.Hex(), "upsert")
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) (*models.Product, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	s.catalog.QueueSync(ctx, "product", id.Hex(), "upsert")
	return s.Get(ctx, id)
}

func (s *ProductService) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.NotFound("Product not found")
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, page, limit int) ([]models.Product, int64, error) {
	return s.products.FindActive(ctx, page, limit)
}
