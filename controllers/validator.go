package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/petalmart/commerce-backend/common/errors"
)

var validate = validator.New()

// bindAndValidate binds the JSON body and runs struct validation, writing the
// error response itself on failure.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid request body: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		errors.HandleError(c, errors.BadRequest("Validation failed: "+err.Error()))
		return false
	}
	return true
}
