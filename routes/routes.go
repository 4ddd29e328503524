package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/common/logger"
	"github.com/petalmart/commerce-backend/config"
	"github.com/petalmart/commerce-backend/controllers"
	"github.com/petalmart/commerce-backend/middleware"
)

// Controllers bundles everything the router mounts.
type Controllers struct {
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Order    *controllers.OrderController
	Payment  *controllers.PaymentController
	Webhook  *controllers.WebhookController
	Product  *controllers.ProductController
	Variant  *controllers.VariantController
	Catalog  *controllers.CatalogController
}

// Setup builds the gin engine with all routes and shared middleware.
func Setup(cfg config.Config, ctl Controllers) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.RequestLogger())
	router.Use(errors.ErrorMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.ResolveSession())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Session-ID"},
		AllowCredentials: true,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(middleware.RateLimiter(rate.Limit(50), 100))

	cart := api.Group("/cart", middleware.OptionalAuth(cfg.JWTSecret))
	{
		cart.GET("", ctl.Cart.GetCart)
		cart.GET("/summary", ctl.Cart.Summary)
		cart.POST("/items", ctl.Cart.AddItem)
		cart.PUT("/items/:variantId", ctl.Cart.UpdateItem)
		cart.DELETE("/items/:variantId", ctl.Cart.RemoveItem)
		cart.DELETE("", ctl.Cart.ClearCart)
		cart.POST("/discounts", ctl.Cart.ApplyDiscount)
		cart.DELETE("/discounts", ctl.Cart.ClearDiscount)
		cart.POST("/merge", middleware.RequireAuth(cfg.JWTSecret), ctl.Cart.MergeCart)
	}

	checkout := api.Group("/checkout", middleware.OptionalAuth(cfg.JWTSecret))
	{
		checkout.GET("/preview", ctl.Checkout.Preview)
		checkout.POST("/token", ctl.Checkout.GenerateToken)
	}

	orders := api.Group("/orders")
	{
		orders.GET("/my", middleware.RequireAuth(cfg.JWTSecret), ctl.Order.ListMyOrders)
		orders.GET("/number/:orderNumber", ctl.Order.GetByOrderNumber)
		orders.GET("/:id", ctl.Order.GetOrder)
		orders.POST("/:id/cancel", middleware.OptionalAuth(cfg.JWTSecret), ctl.Order.CancelOrder)

		admin := orders.Group("", middleware.RequireAdmin(cfg.JWTSecret))
		{
			admin.GET("", ctl.Order.ListOrders)
			admin.PATCH("/:id/status", ctl.Order.UpdateStatus)
			admin.PATCH("/:id/tracking", ctl.Order.UpdateTracking)
		}
	}

	payments := api.Group("/payments")
	{
		payments.POST("", ctl.Payment.Initiate)
		payments.POST("/confirm", ctl.Payment.Confirm)
		payments.GET("/order/:orderId", ctl.Payment.GetByOrder)

		admin := payments.Group("", middleware.RequireAdmin(cfg.JWTSecret))
		{
			admin.POST("/:id/refunds", ctl.Payment.Refund)
			admin.PATCH("/:id/refunds/:refundId", ctl.Payment.ResolveRefund)
		}
	}

	products := api.Group("/products")
	{
		products.GET("", ctl.Product.List)
		products.GET("/:id", ctl.Product.Get)
		products.GET("/:id/variants", ctl.Variant.ListByProduct)

		admin := products.Group("", middleware.RequireAdmin(cfg.JWTSecret))
		{
			admin.POST("", ctl.Product.Create)
			admin.PATCH("/:id", ctl.Product.Update)
		}
	}

	variants := api.Group("/variants")
	{
		variants.GET("/:id", ctl.Variant.Get)

		admin := variants.Group("", middleware.RequireAdmin(cfg.JWTSecret))
		{
			admin.POST("", ctl.Variant.Create)
			admin.PATCH("/:id", ctl.Variant.Update)
			admin.PUT("/:id/stock", ctl.Variant.SetStock)
			admin.PUT("/:id/default", ctl.Variant.SetDefault)
		}
	}

	// Provider-facing surfaces: webhook pushes and the catalog pull feed.
	// Authenticated by HMAC headers, not JWT.
	router.POST("/webhooks/shiprocket/orders", ctl.Webhook.HandleOrderWebhook)
	router.POST("/webhooks/razorpay", ctl.Webhook.HandleRazorpayWebhook)
	router.GET("/wh/v1/custom/products", ctl.Catalog.Feed)

	return router
}
