package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/middleware"
	"github.com/petalmart/commerce-backend/models"
	"github.com/petalmart/commerce-backend/services"
)

type CartController struct {
	carts *services.CartService
}

func NewCartController(carts *services.CartService) *CartController {
	return &CartController{carts: carts}
}

type addItemRequest struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type applyDiscountRequest struct {
	Code string `json:"code" validate:"required"`
	Kind string `json:"kind" validate:"required,oneof=coupon voucher"`
}

type mergeCartRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

func (ctl *CartController) GetCart(c *gin.Context) {
	cart, err := ctl.carts.GetOrCreate(c.Request.Context(), middleware.OwnerFromContext(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cart})
}

func (ctl *CartController) AddItem(c *gin.Context) {
	var req addItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	variantID, err := primitive.ObjectIDFromHex(req.VariantID)
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid variant id"))
		return
	}

	cart, err := ctl.carts.AddItem(c.Request.Context(), middleware.OwnerFromContext(c), variantID, req.Quantity)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cart})
}

func (ctl *CartController) UpdateItem(c *gin.Context) {
	var req updateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	variantID, err := primitive.ObjectIDFromHex(c.Param("variantId"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid variant id"))
		return
	}

	cart, err := ctl.carts.UpdateItem(c.Request.Context(), middleware.OwnerFromContext(c), variantID, req.Quantity)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cart})
}

func (ctl *CartController) RemoveItem(c *gin.Context) {
	variantID, err := primitive.ObjectIDFromHex(c.Param("variantId"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid variant id"))
		return
	}

	cart, err := ctl.carts.RemoveItem(c.Request.Context(), middleware.OwnerFromContext(c), variantID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cart})
}

func (ctl *CartController) ClearCart(c *gin.Context) {
	if err := ctl.carts.Clear(c.Request.Context(), middleware.OwnerFromContext(c)); err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

func (ctl *CartController) ApplyDiscount(c *gin.Context) {
	var req applyDiscountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	cart, err := ctl.carts.ApplyDiscount(c.Request.Context(), middleware.OwnerFromContext(c), req.Code, models.DiscountKind(req.Kind))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cart})
}

func (ctl *CartController) ClearDiscount(c *gin.Context) {
	kind := models.DiscountKind(c.DefaultQuery("kind", string(models.DiscountAll)))
	switch kind {
	case models.DiscountCoupon, models.DiscountVoucher, models.DiscountAll:
	default:
		errors.HandleError(c, errors.BadRequest("Discount kind must be coupon, voucher or all"))
		return
	}

	cart, err := ctl.carts.ClearDiscount(c.Request.Context(), middleware.OwnerFromContext(c), kind)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cart})
}

func (ctl *CartController) Summary(c *gin.Context) {
	summary, err := ctl.carts.Summary(c.Request.Context(), middleware.OwnerFromContext(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// MergeCart folds the guest session cart into the authenticated user's cart.
func (ctl *CartController) MergeCart(c *gin.Context) {
	var req mergeCartRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID := c.GetString(middleware.ContextUserID)
	cart, err := ctl.carts.MergeGuestCart(c.Request.Context(), userID, req.SessionID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cart})
}
