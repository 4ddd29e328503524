package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/models"
	"github.com/petalmart/commerce-backend/services"
)

type PaymentController struct {
	payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

type initiatePaymentRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	Method  string `json:"method" validate:"required,oneof=CASH_ON_DELIVERY PREPAID UPI CARD WALLET"`
}

type confirmPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

type refundRequest struct {
	Amount int64  `json:"amount" validate:"required,min=1"`
	Reason string `json:"reason"`
}

type resolveRefundRequest struct {
	Status string `json:"status" validate:"required,oneof=processed failed"`
}

func (ctl *PaymentController) Initiate(c *gin.Context) {
	var req initiatePaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	orderID, err := primitive.ObjectIDFromHex(req.OrderID)
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid order id"))
		return
	}

	payment, err := ctl.payments.Initiate(c.Request.Context(), orderID, models.PaymentType(req.Method))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": payment})
}

func (ctl *PaymentController) Confirm(c *gin.Context) {
	var req confirmPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	payment, err := ctl.payments.ConfirmCapture(c.Request.Context(), req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}

func (ctl *PaymentController) GetByOrder(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid order id"))
		return
	}

	payment, err := ctl.payments.GetByOrderID(c.Request.Context(), orderID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}

func (ctl *PaymentController) Refund(c *gin.Context) {
	paymentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid payment id"))
		return
	}

	var req refundRequest
	if !bindAndValidate(c, &req) {
		return
	}

	payment, err := ctl.payments.InitiateRefund(c.Request.Context(), paymentID, req.Amount, req.Reason)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}

func (ctl *PaymentController) ResolveRefund(c *gin.Context) {
	paymentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid payment id"))
		return
	}
	refundID, err := primitive.ObjectIDFromHex(c.Param("refundId"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid refund id"))
		return
	}

	var req resolveRefundRequest
	if !bindAndValidate(c, &req) {
		return
	}

	payment, err := ctl.payments.ResolveRefund(c.Request.Context(), paymentID, refundID, models.RefundStatus(req.Status))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}
