package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an application error carrying the HTTP status it maps to.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// BadRequest creates a client-correctable error with a custom message.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message, nil)
}

// NotFound creates a missing-entity error with a custom message.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

// Conflict creates a duplicate-resource error with a custom message.
func Conflict(message string) *Error {
	return New(http.StatusConflict, message, nil)
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

// Common error types
var (
	ErrBadRequest     = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized   = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden      = New(http.StatusForbidden, "Forbidden", nil)
	ErrNotFound       = New(http.StatusNotFound, "Not found", nil)
	ErrInternalServer = New(http.StatusInternalServerError, "Internal server error", nil)
)

// Security boundary error types
var (
	ErrInvalidSignature = New(http.StatusUnauthorized, "Invalid signature", nil)
	ErrMissingSignature = New(http.StatusUnauthorized, "Missing signature", nil)
)

// Business logic error types
var (
	ErrEmptyCart               = New(http.StatusBadRequest, "Cart is empty", nil)
	ErrInvalidQuantity         = New(http.StatusBadRequest, "Quantity must be at least 1", nil)
	ErrItemUnavailable         = New(http.StatusBadRequest, "Item is no longer available", nil)
	ErrNotSyncedWithCatalog    = New(http.StatusBadRequest, "Item is not synced with the external catalog", nil)
	ErrVariantNotFound         = New(http.StatusNotFound, "Product variant not found", nil)
	ErrInvalidTransition       = New(http.StatusBadRequest, "Invalid order status transition", nil)
	ErrPaymentAlreadyInitiated = New(http.StatusConflict, "Payment already initiated for this order", nil)
	ErrPaymentNotCaptured      = New(http.StatusBadRequest, "Payment is not captured by the gateway", nil)
	ErrAmountMismatch          = New(http.StatusInternalServerError, "Order total does not match the payable amount", nil)
)

// InsufficientStockError is a BadRequest subtype carrying the offending SKU
// and the quantity still available, for client display.
type InsufficientStockError struct {
	SKU       string `json:"sku"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d requested, %d available", e.SKU, e.Requested, e.Available)
}

// InsufficientStock builds the stock violation error for a SKU.
func InsufficientStock(sku string, available, requested int) *InsufficientStockError {
	return &InsufficientStockError{SKU: sku, Available: available, Requested: requested}
}

// HandleError writes err as a structured JSON response on c. Domain errors
// keep their status code; everything else becomes a 500.
func HandleError(c *gin.Context, err error) {
	switch e := err.(type) {
	case *InsufficientStockError:
		c.JSON(http.StatusBadRequest, gin.H{
			"code":      http.StatusBadRequest,
			"message":   "Insufficient stock",
			"sku":       e.SKU,
			"available": e.Available,
			"requested": e.Requested,
		})
	case *Error:
		c.JSON(e.Code, e)
	default:
		c.JSON(http.StatusInternalServerError, ErrInternalServer)
	}
}

// ErrorMiddleware converts errors attached to the gin context into
// structured responses.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			HandleError(c, c.Errors.Last().Err)
			c.Abort()
		}
	}
}
