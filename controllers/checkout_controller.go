package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/middleware"
	"github.com/petalmart/commerce-backend/services"
)

type CheckoutController struct {
	checkout *services.CheckoutService
}

func NewCheckoutController(checkout *services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

// Preview returns the validated checkout payload without contacting the
// provider.
func (ctl *CheckoutController) Preview(c *gin.Context) {
	payload, err := ctl.checkout.Project(c.Request.Context(), middleware.OwnerFromContext(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

// GenerateToken exchanges the signed cart projection for a provider checkout
// token.
func (ctl *CheckoutController) GenerateToken(c *gin.Context) {
	token, err := ctl.checkout.GenerateToken(c.Request.Context(), middleware.OwnerFromContext(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"token": token}})
}
