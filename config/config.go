package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process-wide configuration, loaded once at startup.
type Config struct {
	Port        string
	Environment string

	MongoURI  string
	MongoDB   string
	RedisAddr string

	KafkaBrokers     []string
	CatalogSyncTopic string

	JWTSecret string

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	ShiprocketBaseURL   string
	ShiprocketAPIKey    string
	ShiprocketSecretKey string

	FrontendURL        string
	DiscountServiceURL string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string

	GuestCartTTL    time.Duration
	ExternalTimeout time.Duration
}

// Load reads configuration from the environment. A .env file is honored in
// development; missing file is not an error.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from environment")
	}

	return Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),

		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   getEnv("MONGO_DB", "commerce"),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		KafkaBrokers:     []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
		CatalogSyncTopic: getEnv("CATALOG_SYNC_TOPIC", "catalog.sync"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		RazorpayKeyID:         getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
		RazorpayWebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),

		ShiprocketBaseURL:   getEnv("SHIPROCKET_BASE_URL", "https://checkout-api.shiprocket.com"),
		ShiprocketAPIKey:    getEnv("SHIPROCKET_API_KEY", ""),
		ShiprocketSecretKey: getEnv("SHIPROCKET_SECRET_KEY", ""),

		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		DiscountServiceURL: getEnv("DISCOUNT_SERVICE_URL", "http://localhost:8085"),

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: getEnv("SMTP_PORT", "587"),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),

		GuestCartTTL:    30 * 24 * time.Hour,
		ExternalTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
