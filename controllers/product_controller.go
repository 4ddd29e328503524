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

type ProductController struct {
	products *services.ProductService
}

func NewProductController(products *services.ProductService) *ProductController {
	return &ProductController{products: products}
}

type createProductRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Brand       string   `json:"brand"`
	Images      []string `json:"images"`
}

type updateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Brand       *string  `json:"brand"`
	Images      []string `json:"images"`
	IsActive    *bool    `json:"is_active"`
}

func (ctl *ProductController) Create(c *gin.Context) {
	var req createProductRequest
	if !bindAndValidate(c, &req) {
		return
	}

	product, err := ctl.products.Create(c.Request.Context(), &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Brand:       req.Brand,
		Images:      req.Images,
	})
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": product})
}

func (ctl *ProductController) Update(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid product id"))
		return
	}

	var req updateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}

	updates := bson.M{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Brand != nil {
		updates["brand"] = *req.Brand
	}
	if req.Images != nil {
		updates["images"] = req.Images
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		errors.HandleError(c, errors.BadRequest("No fields to update"))
		return
	}

	product, err := ctl.products.Update(c.Request.Context(), id, updates)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (ctl *ProductController) Get(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid product id"))
		return
	}

	product, err := ctl.products.Get(c.Request.Context(), id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (ctl *ProductController) List(c *gin.Context) {
	page, limit := pagination(c)

	products, total, err := ctl.products.List(c.Request.Context(), page, limit)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products, "total": total, "page": page, "limit": limit})
}
