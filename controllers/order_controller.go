package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/middleware"
	"github.com/petalmart/commerce-backend/services"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

type updateTrackingRequest struct {
	TrackingNumber string `json:"tracking_number"`
	ShipmentID     string `json:"shipment_id"`
	CourierName    string `json:"courier_name"`
}

func (ctl *OrderController) GetOrder(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid order id"))
		return
	}

	order, err := ctl.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (ctl *OrderController) GetByOrderNumber(c *gin.Context) {
	order, err := ctl.orders.GetByOrderNumber(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (ctl *OrderController) ListMyOrders(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	page, limit := pagination(c)

	orders, total, err := ctl.orders.ListByUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orders, "total": total, "page": page, "limit": limit})
}

func (ctl *OrderController) ListOrders(c *gin.Context) {
	page, limit := pagination(c)

	orders, total, err := ctl.orders.ListAll(c.Request.Context(), page, limit)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orders, "total": total, "page": page, "limit": limit})
}

func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid order id"))
		return
	}

	var req updateStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	order, err := ctl.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (ctl *OrderController) CancelOrder(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid order id"))
		return
	}

	var req cancelOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}

	order, err := ctl.orders.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (ctl *OrderController) UpdateTracking(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.BadRequest("Invalid order id"))
		return
	}

	var req updateTrackingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	order, err := ctl.orders.UpdateTracking(c.Request.Context(), id, req.TrackingNumber, req.ShipmentID, req.CourierName)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
