package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	StoreDriver       string `mapstructure:"STORE_DRIVER"` // mongo | memory
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	AllowedOrigins    string `mapstructure:"ALLOWED_ORIGINS"`

	// Redis configuration.
	RedisAddr            string `mapstructure:"REDIS_ADDR"`
	RedisPassword        string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB         int    `mapstructure:"REDIS_CACHE_DB"`
	RedisLockDB          int    `mapstructure:"REDIS_LOCK_DB"`
	RedisReminderQueueDB int    `mapstructure:"REDIS_REMINDER_QUEUE_DB"`

	// Payments.
	StripeKey          string        `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookKey   string        `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	Currency           string        `mapstructure:"CURRENCY"`
	CheckoutSuccessURL string        `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL  string        `mapstructure:"CHECKOUT_CANCEL_URL"`
	GatewayTimeout     time.Duration `mapstructure:"GATEWAY_TIMEOUT"`

	// Push notifications. Empty disables FCM and notifications are only logged.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`

	// Background jobs.
	SweepInterval     time.Duration `mapstructure:"SWEEP_INTERVAL"`
	SweepCron         string        `mapstructure:"SWEEP_CRON"`
	WorkerConcurrency int           `mapstructure:"WORKER_CONCURRENCY"`

	// Booking policy overrides. Zero keeps the built-in default.
	MinLeadTimeDays       int           `mapstructure:"MIN_LEAD_TIME_DAYS"`
	AdvanceDueDays        int           `mapstructure:"ADVANCE_DUE_DAYS"`
	FinalPaymentGraceDays int           `mapstructure:"FINAL_PAYMENT_GRACE_DAYS"`
	LockTTL               time.Duration `mapstructure:"BOOKING_LOCK_TTL"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("ALLOWED_ORIGINS", "*")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "lenslink")
	viper.SetDefault("STORE_DRIVER", "mongo")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_LOCK_DB", 1)
	viper.SetDefault("REDIS_REMINDER_QUEUE_DB", 2)
	viper.SetDefault("STRIPE_SECRET_KEY", "")
	viper.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	viper.SetDefault("CURRENCY", "inr")
	viper.SetDefault("CHECKOUT_SUCCESS_URL", "http://localhost:3000/payments/success?session_id={CHECKOUT_SESSION_ID}")
	viper.SetDefault("CHECKOUT_CANCEL_URL", "http://localhost:3000/payments/cancelled")
	viper.SetDefault("GATEWAY_TIMEOUT", "15s")
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	viper.SetDefault("SWEEP_INTERVAL", "24h")
	viper.SetDefault("SWEEP_CRON", "@every 1h")
	viper.SetDefault("WORKER_CONCURRENCY", 10)
	viper.SetDefault("MIN_LEAD_TIME_DAYS", 0)
	viper.SetDefault("ADVANCE_DUE_DAYS", 0)
	viper.SetDefault("FINAL_PAYMENT_GRACE_DAYS", 0)
	viper.SetDefault("BOOKING_LOCK_TTL", "0s")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// UseMemoryStore reports whether the process runs without MongoDB.
func UseMemoryStore() bool {
	return AppConfig.StoreDriver == "memory"
}
