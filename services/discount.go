package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/models"
)

// DiscountRequest is what the discount collaborator needs to validate a code
// against the current cart contents.
type DiscountRequest struct {
	Code       string           `json:"code"`
	UserID     string           `json:"user_id,omitempty"`
	Subtotal   int64            `json:"subtotal"`
	Items      []DiscountedItem `json:"items"`
	AppliedFor models.DiscountKind `json:"applied_for"`
}

type DiscountedItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// DiscountService validates discount codes. Validation is delegated; the cart
// only stores the outcome.
type DiscountService interface {
	Apply(ctx context.Context, req DiscountRequest) (*models.Discount, error)
}

// HTTPDiscountService calls the standalone discount service.
type HTTPDiscountService struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDiscountService(baseURL string, timeout time.Duration) *HTTPDiscountService {
	return &HTTPDiscountService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (d *HTTPDiscountService) Apply(ctx context.Context, req DiscountRequest) (*models.Discount, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/api/discounts/apply", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, errors.Internal("Discount service unavailable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var out struct {
			Data models.Discount `json:"data"`
		}
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, err
		}
		return &out.Data, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var out struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &out)
		if out.Message == "" {
			out.Message = "Invalid discount code"
		}
		return nil, errors.BadRequest(out.Message)
	default:
		return nil, errors.Internal("Discount service error", fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}
}
