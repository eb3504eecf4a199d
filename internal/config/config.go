package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Payment gateway configuration
	Payment PaymentConfig

	// Booking configuration
	Booking BookingConfig

	// Wallet configuration
	Wallet WalletConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// PaymentConfig holds card gateway configuration
type PaymentConfig struct {
	Environment   string // "sandbox" or "production"
	BaseURL       string // gateway API base URL
	MerchantKey   string
	MerchantToken string // SECRET - never expose to client
	WebhookSecret string // HMAC key for webhook signature verification
	ReturnURL     string // URL to redirect after payment
	WebhookURL    string // server webhook URL for payment notifications
}

// BookingConfig holds booking lifecycle configuration
type BookingConfig struct {
	PaymentDeadline    time.Duration // how long a pending booking holds its seats
	SweepInterval      time.Duration // how often the expiration sweep runs
	MaxPassengers      int           // max seats per booking
	AuditRetentionDays int           // payment audit retention window
}

// WalletConfig holds wallet-related configuration
type WalletConfig struct {
	DefaultDailyLimit   float64
	DefaultMonthlyLimit float64
	MinTopupAmount      float64
	MaxTopupAmount      float64
	MinWithdrawalAmount float64
	MaxWithdrawalAmount float64
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
	EnableAuditLog   bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		Payment: PaymentConfig{
			Environment:   getEnv("GATEWAY_ENVIRONMENT", "sandbox"),
			BaseURL:       getEnv("GATEWAY_BASE_URL", "https://sandbox-api.paygate.example.com/v1"),
			MerchantKey:   getEnv("GATEWAY_MERCHANT_KEY", ""),
			MerchantToken: getEnv("GATEWAY_MERCHANT_TOKEN", ""),
			WebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", ""),
			ReturnURL:     getEnv("GATEWAY_RETURN_URL", ""),
			WebhookURL:    getEnv("GATEWAY_WEBHOOK_URL", ""),
		},
		Booking: BookingConfig{
			PaymentDeadline:    time.Duration(getEnvAsInt("BOOKING_PAYMENT_DEADLINE_MINUTES", 30)) * time.Minute,
			SweepInterval:      time.Duration(getEnvAsInt("BOOKING_SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
			MaxPassengers:      getEnvAsInt("BOOKING_MAX_PASSENGERS", 9),
			AuditRetentionDays: getEnvAsInt("PAYMENT_AUDIT_RETENTION_DAYS", 90),
		},
		Wallet: WalletConfig{
			DefaultDailyLimit:   getEnvAsFloat("WALLET_DEFAULT_DAILY_LIMIT", 2_000_000),
			DefaultMonthlyLimit: getEnvAsFloat("WALLET_DEFAULT_MONTHLY_LIMIT", 20_000_000),
			MinTopupAmount:      getEnvAsFloat("WALLET_MIN_TOPUP", 10_000),
			MaxTopupAmount:      getEnvAsFloat("WALLET_MAX_TOPUP", 50_000_000),
			MinWithdrawalAmount: getEnvAsFloat("WALLET_MIN_WITHDRAWAL", 1_000),
			MaxWithdrawalAmount: getEnvAsFloat("WALLET_MAX_WITHDRAWAL", 10_000_000),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	// Gateway credentials are only enforced in production; sandbox runs
	// without them using the gateway's placeholder mode.
	if c.Payment.Environment == "production" {
		if c.Payment.MerchantKey == "" {
			return fmt.Errorf("GATEWAY_MERCHANT_KEY is required in production mode")
		}
		if c.Payment.MerchantToken == "" {
			return fmt.Errorf("GATEWAY_MERCHANT_TOKEN is required in production mode")
		}
		if c.Payment.WebhookSecret == "" {
			return fmt.Errorf("GATEWAY_WEBHOOK_SECRET is required in production mode")
		}
	}

	if c.Booking.PaymentDeadline < time.Minute {
		return fmt.Errorf("BOOKING_PAYMENT_DEADLINE_MINUTES must be at least 1")
	}

	if c.Wallet.MinTopupAmount <= 0 {
		return fmt.Errorf("WALLET_MIN_TOPUP must be positive")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid numeric value for %s, using default: %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
