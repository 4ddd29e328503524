package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petalmart/commerce-backend/models"
)

// CartRepository defines data access for carts. All mutations are single
// document updates so cart changes never partially apply.
type CartRepository interface {
	FindActiveByOwner(ctx context.Context, owner models.OwnerKey) (*models.Cart, error)
	GetOrCreate(ctx context.Context, owner models.OwnerKey, ttl time.Duration) (*models.Cart, error)
	ReplaceItems(ctx context.Context, cartID primitive.ObjectID, items []models.CartItem, expiresAt time.Time) error
	SetDiscount(ctx context.Context, cartID primitive.ObjectID, kind models.DiscountKind, d *models.Discount) error
	ClearDiscount(ctx context.Context, cartID primitive.ObjectID, kind models.DiscountKind) error
	ClearItems(ctx context.Context, cartID primitive.ObjectID) error
	Deactivate(ctx context.Context, cartID primitive.ObjectID) error
}

// MongoCartRepository implements CartRepository on MongoDB.
type MongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{collection: db.Collection("carts")}
}

func ownerFilter(owner models.OwnerKey) bson.M {
	if owner.UserID != "" {
		return bson.M{"user_id": owner.UserID, "is_active": true}
	}
	return bson.M{"session_id": owner.SessionID, "is_active": true}
}

func (r *MongoCartRepository) FindActiveByOwner(ctx context.Context, owner models.OwnerKey) (*models.Cart, error) {
	var cart models.Cart
	err := r.collection.FindOne(ctx, ownerFilter(owner)).Decode(&cart)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetOrCreate returns the active cart for the owner, creating an empty one if
// absent. The conditional upsert plus the partial unique index on
// (owner, is_active) guarantee at most one active cart per owner even under
// concurrent first reads.
func (r *MongoCartRepository) GetOrCreate(ctx context.Context, owner models.OwnerKey, ttl time.Duration) (*models.Cart, error) {
	now := time.Now().UTC()

	setOnInsert := bson.M{
		"_id":        primitive.NewObjectID(),
		"items":      []models.CartItem{},
		"expires_at": now.Add(ttl),
		"created_at": now,
	}
	if owner.UserID != "" {
		setOnInsert["user_id"] = owner.UserID
	} else {
		setOnInsert["session_id"] = owner.SessionID
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var cart models.Cart
	err := r.collection.FindOneAndUpdate(ctx,
		ownerFilter(owner),
		bson.M{
			"$setOnInsert": setOnInsert,
			"$set":         bson.M{"updated_at": now},
		},
		opts,
	).Decode(&cart)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *MongoCartRepository) ReplaceItems(ctx context.Context, cartID primitive.ObjectID, items []models.CartItem, expiresAt time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": cartID, "is_active": true},
		bson.M{"$set": bson.M{
			"items":      items,
			"expires_at": expiresAt,
			"updated_at": time.Now().UTC(),
		}},
	)
	return err
}

func (r *MongoCartRepository) SetDiscount(ctx context.Context, cartID primitive.ObjectID, kind models.DiscountKind, d *models.Discount) error {
	field := "applied_coupon"
	if kind == models.DiscountVoucher {
		field = "applied_voucher"
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": cartID, "is_active": true},
		bson.M{"$set": bson.M{field: d, "updated_at": time.Now().UTC()}},
	)
	return err
}

func (r *MongoCartRepository) ClearDiscount(ctx context.Context, cartID primitive.ObjectID, kind models.DiscountKind) error {
	unset := bson.M{}
	switch kind {
	case models.DiscountCoupon:
		unset["applied_coupon"] = ""
	case models.DiscountVoucher:
		unset["applied_voucher"] = ""
	default:
		unset["applied_coupon"] = ""
		unset["applied_voucher"] = ""
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": cartID, "is_active": true},
		bson.M{"$unset": unset, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	return err
}

// ClearItems empties the items array but leaves applied discounts untouched.
func (r *MongoCartRepository) ClearItems(ctx context.Context, cartID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": cartID, "is_active": true},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updated_at": time.Now().UTC()}},
	)
	return err
}

// Deactivate retires a cart. Carts are never hard-deleted; a deactivated cart
// frees the owner key for a fresh active cart.
func (r *MongoCartRepository) Deactivate(ctx context.Context, cartID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": cartID},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now().UTC()}},
	)
	return err
}
