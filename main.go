package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/petalmart/commerce-backend/common/logger"
	"github.com/petalmart/commerce-backend/config"
	"github.com/petalmart/commerce-backend/controllers"
	"github.com/petalmart/commerce-backend/database"
	"github.com/petalmart/commerce-backend/kafka"
	"github.com/petalmart/commerce-backend/repository"
	"github.com/petalmart/commerce-backend/routes"
	"github.com/petalmart/commerce-backend/services"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.Environment)
	defer logger.Log.Sync()

	if err := database.Connect(cfg.MongoURI, cfg.MongoDB); err != nil {
		logger.Log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	indexCtx, indexCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := database.EnsureIndexes(indexCtx, database.DB); err != nil {
		indexCancel()
		logger.Log.Fatal("failed to ensure indexes", zap.Error(err))
	}
	indexCancel()

	redisClient := database.NewRedisClient(cfg.RedisAddr)
	defer redisClient.Close()

	// Repositories
	cartRepo := repository.NewMongoCartRepository(database.DB)
	variantRepo := repository.NewMongoVariantRepository(database.DB)
	productRepo := repository.NewMongoProductRepository(database.DB)
	orderRepo := repository.NewMongoOrderRepository(database.DB)
	paymentRepo := repository.NewMongoPaymentRepository(database.DB)

	// External collaborators
	shiprocket := services.NewShiprocketClient(cfg.ShiprocketBaseURL, cfg.ShiprocketAPIKey, cfg.ShiprocketSecretKey, cfg.ExternalTimeout)
	gateway := services.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	discounts := services.NewHTTPDiscountService(cfg.DiscountServiceURL, cfg.ExternalTimeout)
	deduper := services.NewRedisDeduper(redisClient)

	var email services.EmailSender = services.NoopSender{}
	if cfg.SMTPHost != "" {
		email = services.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.CatalogSyncTopic)
	defer producer.Close()

	// Services
	catalogSvc := services.NewCatalogService(productRepo, variantRepo, producer, shiprocket)
	cartSvc := services.NewCartService(cartRepo, variantRepo, discounts, cfg.GuestCartTTL)
	checkoutSvc := services.NewCheckoutService(cartRepo, variantRepo, shiprocket, cfg.FrontendURL)
	orderSvc := services.NewOrderService(orderRepo, variantRepo, productRepo, shiprocket)
	paymentSvc := services.NewPaymentService(paymentRepo, orderSvc, gateway, cfg.RazorpayKeySecret, email)
	productSvc := services.NewProductService(productRepo, catalogSvc)
	variantSvc := services.NewVariantService(variantRepo, productRepo, catalogSvc)
	webhookSvc := services.NewWebhookService(cfg.ShiprocketSecretKey, cfg.RazorpayWebhookSecret, cartSvc, orderSvc, paymentSvc, deduper)

	// Catalog sync worker
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.CatalogSyncTopic, "catalog-sync-worker")
	defer consumer.Close()
	go consumer.Run(ctx, catalogSvc.HandleSyncEvent)

	router := routes.Setup(cfg, routes.Controllers{
		Cart:     controllers.NewCartController(cartSvc),
		Checkout: controllers.NewCheckoutController(checkoutSvc),
		Order:    controllers.NewOrderController(orderSvc),
		Payment:  controllers.NewPaymentController(paymentSvc),
		Webhook:  controllers.NewWebhookController(webhookSvc),
		Product:  controllers.NewProductController(productSvc),
		Variant:  controllers.NewVariantController(variantSvc),
		Catalog:  controllers.NewCatalogController(catalogSvc),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Log.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("forced shutdown", zap.Error(err))
	}
}
