package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisRatesDB   int    `mapstructure:"REDIS_RATES_DB"`
	RedisTaskDB    int    `mapstructure:"REDIS_TASK_DB"`

	// Stripe checkout.
	StripeKey           string `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	CheckoutSuccessURL  string `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL   string `mapstructure:"CHECKOUT_CANCEL_URL"`

	// Reservation timing knobs (minutes unless stated otherwise).
	SessionTTLMinutes    int `mapstructure:"SESSION_TTL_MINUTES"`
	PendingTTLMinutes    int `mapstructure:"PENDING_TTL_MINUTES"`
	SweepIntervalMinutes int `mapstructure:"SWEEP_INTERVAL_MINUTES"`
	AvailabilityMonths   int `mapstructure:"AVAILABILITY_MONTHS"`

	// Exchange-rate API for display-currency conversion.
	ExchangeRateAPIKey string `mapstructure:"EXCHANGE_RATE_API_KEY"`
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
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_RATES_DB", 1)
	viper.SetDefault("REDIS_TASK_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "innkeep")
	viper.SetDefault("SESSION_TTL_MINUTES", 30)
	viper.SetDefault("PENDING_TTL_MINUTES", 60)
	viper.SetDefault("SWEEP_INTERVAL_MINUTES", 5)
	viper.SetDefault("AVAILABILITY_MONTHS", 6)
	viper.SetDefault("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success")
	viper.SetDefault("CHECKOUT_CANCEL_URL", "http://localhost:3000/checkout/cancel")

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
