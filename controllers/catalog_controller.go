package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/services"
)

// CatalogController serves the provider-facing catalog pull feed.
type CatalogController struct {
	catalog *services.CatalogService
}

func NewCatalogController(catalog *services.CatalogService) *CatalogController {
	return &CatalogController{catalog: catalog}
}

func (ctl *CatalogController) Feed(c *gin.Context) {
	page, limit := pagination(c)

	products, total, err := ctl.catalog.Feed(c.Request.Context(), page, limit)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": total, "page": page, "limit": limit})
}
