package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// PaymentGateway abstracts the payment provider. The authoritative payment
// status always comes from FetchPaymentStatus, never from client-asserted
// data.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error)
	FetchPaymentStatus(ctx context.Context, paymentID string) (string, error)
	CreateRefund(ctx context.Context, paymentID string, amount int64) (string, error)
}

type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	order, err := g.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay order create: %w", err)
	}
	id, ok := order["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("razorpay order create: missing order id")
	}
	return id, nil
}

func (g *RazorpayGateway) FetchPaymentStatus(ctx context.Context, paymentID string) (string, error) {
	payment, err := g.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay payment fetch: %w", err)
	}
	status, _ := payment["status"].(string)
	return status, nil
}

func (g *RazorpayGateway) CreateRefund(ctx context.Context, paymentID string, amount int64) (string, error) {
	data := map[string]interface{}{
		"amount": amount,
	}
	refund, err := g.client.Payment.Refund(paymentID, int(amount), data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay refund create: %w", err)
	}
	id, ok := refund["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("razorpay refund create: missing refund id")
	}
	return id, nil
}

// VerifyPaymentSignature checks the gateway's capture signature: hex
// HMAC-SHA256 over "<orderID>|<paymentID>" with the API key secret. The
// comparison is constant time.
func VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks a gateway webhook: hex HMAC-SHA256 over the
// raw request body with the webhook secret.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
