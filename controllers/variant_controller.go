package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/models"
	"github.com/petalmart/commerce-backend/services"
)

type VariantController struct {
	variants *services.VariantService
}

func NewVariantController(variants *services.VariantService) *VariantController {
	return &VariantController{variants: variants}
}

type createVariantRequest struct {
	ProductID     string `json:"product_id" validate:"required"`
	SKU           string `json:"sku" validate:"required"`
	Size          string `json:"size"`
	ColorName     string `json:"color_name"`
	ColorHex      string `json:"color_hex"`
	Image         string `json:"image"`
	Price         int64  `json:"price" validate:"required,min=1"`
	OriginalPrice int64  `json:"original_price"`
	Stock         int    `json:"stock" validate:"min=0"`
	WeightGrams   int    `json:"weight_grams" validate:"min=0"`
	HSN           string `json:"hsn"`
}

type updateVariantRequest struct {
	Price               *int64  `json:"price"`
	OriginalPrice       *int64  `json:"original_price"`
	Image               *string `json:"image"`
	WeightGrams         *int    `json:"weight_grams"`
	IsActive            *bool   `json:"is_active"`
	ShiprocketVariantID *string `json:"shiprocket_variant_id"`
}

type setStockRequest struct {
	Stock *int `json:"stock" validate:"required,min=0"`
}

func (ctl *VariantController) Create(c *gin.Context) {
	var req createVariantRequest
	if !bindAndValidate(c, &req) {
		return
	}
	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid product id"))
		return
	}

	variant, err := ctl.variants.Create(c.Request.Context(), &models.ProductVariant{
		ProductID: productID,
		SKU:       req.SKU,
		Attributes: models.VariantAttributes{
			Size:      req.Size,
			ColorName: req.ColorName,
			ColorHex:  req.ColorHex,
		},
		Image:         req.Image,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Stock:         req.Stock,
		WeightGrams:   req.WeightGrams,
		HSN:           req.HSN,
	})
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": variant})
}

func (ctl *VariantController) Update(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid variant id"))
		return
	}

	var req updateVariantRequest
	if !bindAndValidate(c, &req) {
		return
	}

	updates := bson.M{}
	if req.Price != nil {
		if *req.Price <= 0 {
			errors.HandleError(c, errors.BadRequest("Variant price must be positive"))
			return
		}
		updates["price"] = *req.Price
	}
	if req.OriginalPrice != nil {
		updates["original_price"] = *req.OriginalPrice
	}
	if req.Image != nil {
		updates["image"] = *req.Image
	}
	if req.WeightGrams != nil {
		updates["weight_grams"] = *req.WeightGrams
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.ShiprocketVariantID != nil {
		updates["shiprocket_variant_id"] = *req.ShiprocketVariantID
	}
	if len(updates) == 0 {
		errors.HandleError(c, errors.BadRequest("No fields to update"))
		return
	}

	variant, err := ctl.variants.Update(c.Request.Context(), id, updates)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": variant})
}

func (ctl *VariantController) SetStock(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid variant id"))
		return
	}

	var req setStockRequest
	if !bindAndValidate(c, &req) {
		return
	}

	variant, err := ctl.variants.SetStock(c.Request.Context(), id, *req.Stock)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": variant})
}

func (ctl *VariantController) SetDefault(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid variant id"))
		return
	}

	variant, err := ctl.variants.SetDefault(c.Request.Context(), id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": variant})
}

func (ctl *VariantController) Get(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid variant id"))
		return
	}

	variant, err := ctl.variants.Get(c.Request.Context(), id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": variant})
}

func (ctl *VariantController) ListByProduct(c *gin.Context) {
	productID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid product id"))
		return
	}
	page, limit := pagination(c)

	variants, total, err := ctl.variants.ListByProduct(c.Request.Context(), productID, page, limit)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": variants, "total": total, "page": page, "limit": limit})
}
