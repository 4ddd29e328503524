package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentState is the gateway-facing lifecycle of a payment record.
type PaymentState string

const (
	PaymentStateCreated  PaymentState = "created"
	PaymentStatePending  PaymentState = "pending"
	PaymentStateCaptured PaymentState = "captured"
	PaymentStateFailed   PaymentState = "failed"
)

// RefundStatus is the lifecycle of a single refund entry.
type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
	RefundFailed    RefundStatus = "failed"
)

// Refund is one append-only entry in a payment's refund list.
type Refund struct {
	ID               primitive.ObjectID `json:"_id" bson:"_id"`
	Amount           int64              `json:"amount" bson:"amount"`
	Status           RefundStatus       `json:"status" bson:"status"`
	RazorpayRefundID string             `json:"razorpay_refund_id,omitempty" bson:"razorpay_refund_id,omitempty"`
	Reason           string             `json:"reason,omitempty" bson:"reason,omitempty"`
	CreatedAt        time.Time          `json:"created_at" bson:"created_at"`
}

// Payment is the at-most-one payment attempt record per order.
type Payment struct {
	ID                primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	OrderID           primitive.ObjectID `json:"order_id" bson:"order_id"`
	OrderNumber       string             `json:"order_number" bson:"order_number"`
	Amount            int64              `json:"amount" bson:"amount"`
	Currency          string             `json:"currency" bson:"currency"`
	Method            PaymentType        `json:"method" bson:"method"`
	Status            PaymentState       `json:"status" bson:"status"`
	RazorpayOrderID   string             `json:"razorpay_order_id,omitempty" bson:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string             `json:"razorpay_payment_id,omitempty" bson:"razorpay_payment_id,omitempty"`
	Refunds           []Refund           `json:"refunds" bson:"refunds"`
	CapturedAt        *time.Time         `json:"captured_at,omitempty" bson:"captured_at,omitempty"`
	FailedAt          *time.Time         `json:"failed_at,omitempty" bson:"failed_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
}

// RefundedTotal sums all refunds that have not failed. Pending refunds count
// toward the aggregate so concurrent requests cannot over-refund.
func (p *Payment) RefundedTotal() int64 {
	var total int64
	for _, r := range p.Refunds {
		if r.Status != RefundFailed {
			total += r.Amount
		}
	}
	return total
}

// FindRefund returns the refund entry with the given id, or nil.
func (p *Payment) FindRefund(id primitive.ObjectID) *Refund {
	for i := range p.Refunds {
		if p.Refunds[i].ID == id {
			return &p.Refunds[i]
		}
	}
	return nil
}
