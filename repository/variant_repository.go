package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/models"
)

// VariantRepository defines data access for product variants, including the
// stock ledger operations.
type VariantRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ProductVariant, error)
	FindBySKU(ctx context.Context, sku string) (*models.ProductVariant, error)
	FindByShiprocketID(ctx context.Context, externalID string) (*models.ProductVariant, error)
	FindByProduct(ctx context.Context, productID primitive.ObjectID, page, limit int) ([]models.ProductVariant, int64, error)
	Create(ctx context.Context, v *models.ProductVariant) error
	Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error
	SetDefault(ctx context.Context, productID, id primitive.ObjectID) error

	// Reserve decrements stock by qty only if stock >= qty, as a single
	// conditional update. Fails with InsufficientStockError otherwise.
	Reserve(ctx context.Context, id primitive.ObjectID, qty int) error
	// Release increments stock by qty unconditionally.
	Release(ctx context.Context, id primitive.ObjectID, qty int) error
}

// MongoVariantRepository implements VariantRepository on MongoDB.
type MongoVariantRepository struct {
	collection *mongo.Collection
}

func NewMongoVariantRepository(db *mongo.Database) *MongoVariantRepository {
	return &MongoVariantRepository{collection: db.Collection("product_variants")}
}

func (r *MongoVariantRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ProductVariant, error) {
	var v models.ProductVariant
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *MongoVariantRepository) FindBySKU(ctx context.Context, sku string) (*models.ProductVariant, error) {
	var v models.ProductVariant
	err := r.collection.FindOne(ctx, bson.M{"sku": sku}).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *MongoVariantRepository) FindByShiprocketID(ctx context.Context, externalID string) (*models.ProductVariant, error) {
	var v models.ProductVariant
	err := r.collection.FindOne(ctx, bson.M{"shiprocket_variant_id": externalID}).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *MongoVariantRepository) FindByProduct(ctx context.Context, productID primitive.ObjectID, page, limit int) ([]models.ProductVariant, int64, error) {
	filter := bson.M{"product_id": productID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := r.collection.Find(ctx, filter, findPage(page, limit, bson.D{{Key: "is_default", Value: -1}, {Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var variants []models.ProductVariant
	if err := cursor.All(ctx, &variants); err != nil {
		return nil, 0, err
	}
	return variants, total, nil
}

func (r *MongoVariantRepository) Create(ctx context.Context, v *models.ProductVariant) error {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, v)
	if mongo.IsDuplicateKeyError(err) {
		return errors.Conflict("A variant with this SKU already exists")
	}
	return err
}

func (r *MongoVariantRepository) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error {
	updates["updated_at"] = time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.ErrVariantNotFound
	}
	return nil
}

// SetDefault marks one variant as the product's default and clears the flag
// on every sibling, preserving the one-default-per-product rule.
func (r *MongoVariantRepository) SetDefault(ctx context.Context, productID, id primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"product_id": productID, "_id": bson.M{"$ne": id}},
		bson.M{"$set": bson.M{"is_default": false, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "product_id": productID},
		bson.M{"$set": bson.M{"is_default": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.ErrVariantNotFound
	}
	return nil
}

func (r *MongoVariantRepository) Reserve(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{
			"$inc": bson.M{"stock": -qty},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Re-read to distinguish a missing variant from an exhausted one and
		// to report the remaining quantity.
		v, ferr := r.FindByID(ctx, id)
		if ferr != nil {
			return ferr
		}
		if v == nil {
			return errors.ErrVariantNotFound
		}
		return errors.InsufficientStock(v.SKU, v.Stock, qty)
	}
	return nil
}

func (r *MongoVariantRepository) Release(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"stock": qty},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.ErrVariantNotFound
	}
	return nil
}
