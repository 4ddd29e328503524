package models

import "time"

// WebhookEventType is the normalized event type resolved from the several
// envelope shapes the checkout provider sends.
type WebhookEventType string

const (
	EventOrderSuccess      WebhookEventType = "ORDER_SUCCESS"
	EventOrderFailed       WebhookEventType = "ORDER_FAILED"
	EventOrderCancelled    WebhookEventType = "ORDER_CANCELLED"
	EventOrderStatusUpdate WebhookEventType = "ORDER_STATUS_UPDATE"
	EventUnknown           WebhookEventType = "UNKNOWN"
)

// CheckoutConfirmationItem references a line by the provider's variant id.
type CheckoutConfirmationItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// OrderWebhookPayload is the parsed body of a checkout-provider order event.
// Providers are inconsistent about envelopes: some send an explicit event
// field, others only a status or shipment_status.
type OrderWebhookPayload struct {
	Event          string `json:"event,omitempty"`
	Status         string `json:"status,omitempty"`
	ShipmentStatus string `json:"shipment_status,omitempty"`

	OrderID   string `json:"order_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Reason    string `json:"reason,omitempty"`

	Items           []CheckoutConfirmationItem `json:"items,omitempty"`
	Amount          int64                      `json:"amount,omitempty"`
	Discount        int64                      `json:"discount,omitempty"`
	ShippingCharges int64                      `json:"shipping_charges,omitempty"`
	Tax             int64                      `json:"tax,omitempty"`
	PaymentType     string                     `json:"payment_type,omitempty"`
	ShippingAddress ShippingAddress            `json:"shipping_address,omitempty"`
}

// Normalize resolves the event type, falling back to Unknown rather than
// guessing.
func (p *OrderWebhookPayload) Normalize() WebhookEventType {
	if p.Event != "" {
		switch WebhookEventType(p.Event) {
		case EventOrderSuccess, EventOrderFailed, EventOrderCancelled, EventOrderStatusUpdate:
			return WebhookEventType(p.Event)
		}
		return EventUnknown
	}

	switch p.Status {
	case "SUCCESS":
		return EventOrderSuccess
	case "FAILED":
		return EventOrderFailed
	case "CANCELLED":
		return EventOrderCancelled
	}

	if p.ShipmentStatus != "" {
		return EventOrderStatusUpdate
	}

	return EventUnknown
}

// CheckoutLineItem is one outbound checkout line: external variant id and
// quantity only. Price authority lives with the catalog sync, so no price is
// ever sent.
type CheckoutLineItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type CheckoutCartData struct {
	Items []CheckoutLineItem `json:"items"`
}

// CheckoutPayload is the signed body posted to the provider to obtain a
// checkout token.
type CheckoutPayload struct {
	CartData    CheckoutCartData `json:"cart_data"`
	RedirectURL string           `json:"redirect_url"`
	Timestamp   string           `json:"timestamp"`
}

// CatalogSyncEvent is queued whenever a product or variant changes and must
// be pushed to the provider catalog.
type CatalogSyncEvent struct {
	Entity    string    `json:"entity"` // "product" or "variant"
	ID        string    `json:"id"`
	Action    string    `json:"action"` // "upsert" or "deactivate"
	Timestamp time.Time `json:"timestamp"`
}

// RazorpayWebhookEvent is the parsed body of a payment-gateway webhook.
type RazorpayWebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}
