package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petalmart/commerce-backend/models"
)

// PaymentRepository defines data access for payments and their refund lists.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	FindByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error)
	FindByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Payment, error)
	Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error

	// MarkCaptured flips the payment to captured only when it is not already
	// in a terminal state. Returns false when another caller won the race, so
	// replayed confirmations become no-ops.
	MarkCaptured(ctx context.Context, id primitive.ObjectID, razorpayPaymentID string) (bool, error)

	AppendRefund(ctx context.Context, paymentID primitive.ObjectID, refund models.Refund) error

	// UpdateRefund updates one entry in the refund list. Callers pass bare
	// refund field names ("status", not "refunds.$.status"); the positional
	// prefix is applied by the implementation.
	UpdateRefund(ctx context.Context, paymentID, refundID primitive.ObjectID, updates bson.M) error
}

// MongoPaymentRepository implements PaymentRepository on MongoDB.
type MongoPaymentRepository struct {
	collection *mongo.Collection
}

func NewMongoPaymentRepository(db *mongo.Database) *MongoPaymentRepository {
	return &MongoPaymentRepository{collection: db.Collection("payments")}
}

// Create inserts the payment. The unique index on order_id enforces
// at-most-one payment record per order; a duplicate returns ErrDuplicateKey.
func (r *MongoPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID.IsZero() {
		payment.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	if payment.Refunds == nil {
		payment.Refunds = []models.Refund{}
	}

	_, err := r.collection.InsertOne(ctx, payment)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *MongoPaymentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoPaymentRepository) FindByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"order_id": orderID})
}

func (r *MongoPaymentRepository) FindByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"razorpay_order_id": razorpayOrderID})
}

func (r *MongoPaymentRepository) findOne(ctx context.Context, filter bson.M) (*models.Payment, error) {
	var payment models.Payment
	err := r.collection.FindOne(ctx, filter).Decode(&payment)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *MongoPaymentRepository) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error {
	updates["updated_at"] = time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoPaymentRepository) MarkCaptured(ctx context.Context, id primitive.ObjectID, razorpayPaymentID string) (bool, error) {
	now := time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"status": bson.M{"$in": []models.PaymentState{models.PaymentStateCreated, models.PaymentStatePending}},
		},
		bson.M{"$set": bson.M{
			"status":              models.PaymentStateCaptured,
			"razorpay_payment_id": razorpayPaymentID,
			"captured_at":         now,
			"updated_at":          now,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoPaymentRepository) AppendRefund(ctx context.Context, paymentID primitive.ObjectID, refund models.Refund) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": paymentID},
		bson.M{
			"$push": bson.M{"refunds": refund},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// refundSet builds the $set document for one refund entry. Keys are bare
// refund field names; Mongo allows a single positional operator per path, so
// the prefix is applied here and nowhere else.
func refundSet(updates bson.M) bson.M {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range updates {
		set["refunds.$."+k] = v
	}
	return set
}

func (r *MongoPaymentRepository) UpdateRefund(ctx context.Context, paymentID, refundID primitive.ObjectID, updates bson.M) error {
	set := refundSet(updates)

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": paymentID, "refunds._id": refundID},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
