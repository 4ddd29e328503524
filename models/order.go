package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the business lifecycle of an order.
type OrderStatus string

const (
	OrderPending        OrderStatus = "PENDING"
	OrderConfirmed      OrderStatus = "CONFIRMED"
	OrderProcessing     OrderStatus = "PROCESSING"
	OrderShipped        OrderStatus = "SHIPPED"
	OrderOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCancelled      OrderStatus = "CANCELLED"
	OrderReturned       OrderStatus = "RETURNED"
)

// PaymentStatus is the money lifecycle of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// PaymentType is how the buyer pays.
type PaymentType string

const (
	PaymentTypeCOD     PaymentType = "CASH_ON_DELIVERY"
	PaymentTypePrepaid PaymentType = "PREPAID"
	PaymentTypeUPI     PaymentType = "UPI"
	PaymentTypeCard    PaymentType = "CARD"
	PaymentTypeWallet  PaymentType = "WALLET"
)

// OrderItem is a denormalized snapshot of a purchased variant, captured at
// order-creation time and independent of later catalog changes.
type OrderItem struct {
	VariantID           primitive.ObjectID `json:"variant_id" bson:"variant_id"`
	ShiprocketVariantID string             `json:"shiprocket_variant_id,omitempty" bson:"shiprocket_variant_id,omitempty"`
	ProductName         string             `json:"product_name" bson:"product_name"`
	SKU                 string             `json:"sku" bson:"sku"`
	Attributes          VariantAttributes  `json:"attributes" bson:"attributes"`
	Image               string             `json:"image,omitempty" bson:"image,omitempty"`
	Quantity            int                `json:"quantity" bson:"quantity"`
	Price               int64              `json:"price" bson:"price"`
	Subtotal            int64              `json:"subtotal" bson:"subtotal"`
}

// Pricing is the order amount breakdown, in paise.
type Pricing struct {
	Subtotal        int64 `json:"subtotal" bson:"subtotal"`
	Discount        int64 `json:"discount" bson:"discount"`
	ShippingCharges int64 `json:"shipping_charges" bson:"shipping_charges"`
	Tax             int64 `json:"tax" bson:"tax"`
	Total           int64 `json:"total" bson:"total"`
}

type ShippingAddress struct {
	Name         string `json:"name,omitempty" bson:"name,omitempty"`
	Phone        string `json:"phone,omitempty" bson:"phone,omitempty"`
	Email        string `json:"email,omitempty" bson:"email,omitempty"`
	AddressLine1 string `json:"address_line1,omitempty" bson:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty" bson:"address_line2,omitempty"`
	City         string `json:"city,omitempty" bson:"city,omitempty"`
	State        string `json:"state,omitempty" bson:"state,omitempty"`
	PinCode      string `json:"pin_code,omitempty" bson:"pin_code,omitempty"`
	Country      string `json:"country,omitempty" bson:"country,omitempty"`
}

// Order is immutable once created except for its status fields.
type Order struct {
	ID                primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	OrderNumber       string             `json:"order_number" bson:"order_number"`
	ShiprocketOrderID string             `json:"shiprocket_order_id" bson:"shiprocket_order_id"`
	UserID            string             `json:"user_id,omitempty" bson:"user_id,omitempty"`
	SessionID         string             `json:"session_id,omitempty" bson:"session_id,omitempty"`
	Items             []OrderItem        `json:"items" bson:"items"`
	ShippingAddress   ShippingAddress    `json:"shipping_address" bson:"shipping_address"`
	PaymentType       PaymentType        `json:"payment_type" bson:"payment_type"`
	PaymentStatus     PaymentStatus      `json:"payment_status" bson:"payment_status"`
	OrderStatus       OrderStatus        `json:"order_status" bson:"order_status"`
	Pricing           Pricing            `json:"pricing" bson:"pricing"`
	AppliedCoupon     *Discount          `json:"applied_coupon,omitempty" bson:"applied_coupon,omitempty"`
	AppliedVoucher    *Discount          `json:"applied_voucher,omitempty" bson:"applied_voucher,omitempty"`

	TrackingNumber       string `json:"tracking_number,omitempty" bson:"tracking_number,omitempty"`
	ShiprocketShipmentID string `json:"shiprocket_shipment_id,omitempty" bson:"shiprocket_shipment_id,omitempty"`
	CourierName          string `json:"courier_name,omitempty" bson:"courier_name,omitempty"`

	Notes              string     `json:"notes,omitempty" bson:"notes,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" bson:"updated_at"`
}

// IsTerminal reports whether no further lifecycle transition is allowed,
// except DELIVERED -> RETURNED.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled || s == OrderReturned
}

// CanCancel reports whether the order may still move to CANCELLED.
func (s OrderStatus) CanCancel() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderOutForDelivery:
		return true
	}
	return false
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:        {OrderConfirmed, OrderProcessing, OrderCancelled},
	OrderConfirmed:      {OrderProcessing, OrderShipped, OrderCancelled},
	OrderProcessing:     {OrderShipped, OrderCancelled},
	OrderShipped:        {OrderOutForDelivery, OrderDelivered, OrderCancelled},
	OrderOutForDelivery: {OrderDelivered, OrderCancelled},
	OrderDelivered:      {OrderReturned},
}

// CanTransition reports whether s -> next is a legal lifecycle move.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidOrderStatus reports whether the string names a known status.
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderShipped,
		OrderOutForDelivery, OrderDelivered, OrderCancelled, OrderReturned:
		return true
	}
	return false
}
