package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/models"
)

// CheckoutProvider is the outbound surface of the external checkout/logistics
// provider. It is a black box: only the documented request/response contracts
// are modeled.
type CheckoutProvider interface {
	CreateCheckoutToken(ctx context.Context, payload models.CheckoutPayload) (string, error)
	CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentResult, error)
	PushProductUpdate(ctx context.Context, payload CatalogProduct) error
}

// ShipmentRequest is the provider's shipment-creation contract.
type ShipmentRequest struct {
	OrderID             string             `json:"order_id"`
	BillingCustomerName string             `json:"billing_customer_name"`
	BillingPhone        string             `json:"billing_phone"`
	BillingAddress      string             `json:"billing_address"`
	BillingCity         string             `json:"billing_city"`
	BillingState        string             `json:"billing_state"`
	BillingPincode      string             `json:"billing_pincode"`
	OrderItems          []ShipmentLineItem `json:"order_items"`
}

type ShipmentLineItem struct {
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Units        int    `json:"units"`
	SellingPrice string `json:"selling_price"` // rupees, provider convention
}

type ShipmentResult struct {
	ShipmentID  string `json:"shipment_id"`
	AWBCode     string `json:"awb_code"`
	CourierName string `json:"courier_name"`
}

// CatalogProduct is the provider's product catalog shape. Prices are rupee
// strings and weights kilograms, per the provider contract; conversion from
// the internal paise/grams units happens here and nowhere else.
type CatalogProduct struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	BodyHTML    string           `json:"body_html"`
	ProductType string           `json:"product_type,omitempty"`
	UpdatedAt   string           `json:"updated_at"`
	Status      string           `json:"status"`
	Variants    []CatalogVariant `json:"variants"`
	Image       CatalogImage     `json:"image"`
}

type CatalogVariant struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Price     string       `json:"price"`
	Quantity  int          `json:"quantity"`
	SKU       string       `json:"sku"`
	UpdatedAt string       `json:"updated_at"`
	Image     CatalogImage `json:"image"`
	Weight    float64      `json:"weight"` // kilograms
}

type CatalogImage struct {
	Src string `json:"src"`
}

// RupeeString formats paise as the provider's rupee string.
func RupeeString(paise int64) string {
	return fmt.Sprintf("%d.%02d", paise/100, paise%100)
}

// Kilograms converts internal grams to the provider's weight unit.
func Kilograms(grams int) float64 {
	return float64(grams) / 1000.0
}

// ShiprocketClient talks to the checkout provider over HTTP. Every request is
// signed: HMAC-SHA256 over the exact JSON body, base64-encoded, in the
// X-Api-HMAC-SHA256 header.
type ShiprocketClient struct {
	baseURL   string
	apiKey    string
	secretKey string
	client    *http.Client
}

func NewShiprocketClient(baseURL, apiKey, secretKey string, timeout time.Duration) *ShiprocketClient {
	return &ShiprocketClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

// Sign computes the base64 HMAC-SHA256 of data with the shared secret.
func (s *ShiprocketClient) Sign(data []byte) string {
	mac := hmac.New(sha256.New, []byte(s.secretKey))
	mac.Write(data)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (s *ShiprocketClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", s.apiKey)
	req.Header.Set("X-Api-HMAC-SHA256", s.Sign(body))

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shiprocket %s returned %d: %s", path, resp.StatusCode, respBody)
	}
	if out != nil {
		return json.Unmarshal(respBody, out)
	}
	return nil
}

func (s *ShiprocketClient) CreateCheckoutToken(ctx context.Context, payload models.CheckoutPayload) (string, error) {
	var resp struct {
		Result struct {
			Token string `json:"token"`
		} `json:"result"`
	}
	if err := s.post(ctx, "/api/v1/access-token/checkout", payload, &resp); err != nil {
		return "", err
	}
	if resp.Result.Token == "" {
		return "", errors.BadRequest("Failed to generate checkout token")
	}
	return resp.Result.Token, nil
}

func (s *ShiprocketClient) CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentResult, error) {
	var resp struct {
		Data ShipmentResult `json:"data"`
	}
	if err := s.post(ctx, "/api/v1/shipments", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (s *ShiprocketClient) PushProductUpdate(ctx context.Context, payload CatalogProduct) error {
	return s.post(ctx, "/wh/v1/custom/product", payload, nil)
}
