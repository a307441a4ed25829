package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the booking backend
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration (booking store)
	Database DatabaseConfig

	// Orchestrator configuration
	Orchestrator OrchestratorConfig

	// Hold ledger configuration
	Ledger LedgerConfig

	// Circuit breaker configuration (per provider adapter)
	Breaker BreakerConfig

	// Availability cache configuration
	Cache CacheConfig

	// Provider upstream configuration
	Providers ProvidersConfig

	// Payment gateway configuration
	Payment PaymentConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds booking store configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// OrchestratorConfig holds state machine timing and retry configuration
type OrchestratorConfig struct {
	OverallTimeout time.Duration // max lifetime of a non-terminal attempt
	SweepInterval  time.Duration // sweeper cadence
	RetryBase      time.Duration // exponential backoff base
	RetryFactor    int           // backoff multiplier
	MaxRetries     int           // transient retries per transition
	MaxReSearches  int           // stale-offer / seat-taken re-search bound
}

// LedgerConfig holds hold ledger configuration
type LedgerConfig struct {
	HoldTTL      time.Duration
	ReapInterval time.Duration
}

// BreakerConfig holds circuit breaker configuration
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	CoolDown         time.Duration // open → half-open delay
}

// CacheConfig holds availability cache TTLs, differentiated by domain
// volatility: schedule-driven domains tolerate longer TTLs than
// seat-availability-driven ones.
type CacheConfig struct {
	RailTTL   time.Duration
	RoadTTL   time.Duration
	CinemaTTL time.Duration
}

// TTLForDomain returns the search cache TTL for a provider domain
func (c CacheConfig) TTLForDomain(domain string) time.Duration {
	switch domain {
	case "rail":
		return c.RailTTL
	case "road":
		return c.RoadTTL
	case "cinema":
		return c.CinemaTTL
	}
	return c.RoadTTL
}

// ProviderConfig holds one upstream vendor endpoint
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// Rate limiter settings for the adapter-local limiter
	RatePerSecond float64
	RateBurst     int
}

// ProvidersConfig holds all upstream vendor endpoints
type ProvidersConfig struct {
	Mode   string // "static" (in-process inventory) or "http"
	Rail   ProviderConfig
	Road   ProviderConfig
	Cinema ProviderConfig
}

// PaymentConfig holds payment gateway configuration
type PaymentConfig struct {
	Mode           string // "dev" or "http"
	Environment    string // "sandbox" or "production"
	BaseURL        string
	MerchantKey    string
	MerchantSecret string // SECRET - never expose to client
	Timeout        time.Duration
	Currency       string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
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
			ConnMaxLifetime:    getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 300*time.Second),
		},
		Orchestrator: OrchestratorConfig{
			OverallTimeout: getEnvAsDuration("ATTEMPT_OVERALL_TIMEOUT", 5*time.Minute),
			SweepInterval:  getEnvAsDuration("ATTEMPT_SWEEP_INTERVAL", 30*time.Second),
			RetryBase:      getEnvAsDuration("RETRY_BASE", 500*time.Millisecond),
			RetryFactor:    getEnvAsInt("RETRY_FACTOR", 2),
			MaxRetries:     getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			MaxReSearches:  getEnvAsInt("MAX_RESEARCHES", 2),
		},
		Ledger: LedgerConfig{
			HoldTTL:      getEnvAsDuration("HOLD_TTL", 2*time.Minute),
			ReapInterval: getEnvAsDuration("HOLD_REAP_INTERVAL", 5*time.Second),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
			CoolDown:         getEnvAsDuration("BREAKER_COOLDOWN", 30*time.Second),
		},
		Cache: CacheConfig{
			RailTTL:   getEnvAsDuration("CACHE_RAIL_TTL", 60*time.Second),
			RoadTTL:   getEnvAsDuration("CACHE_ROAD_TTL", 30*time.Second),
			CinemaTTL: getEnvAsDuration("CACHE_CINEMA_TTL", 15*time.Second),
		},
		Providers: ProvidersConfig{
			Mode:   getEnv("PROVIDER_MODE", "static"),
			Rail:   loadProvider("RAIL", 5.0, 5),
			Road:   loadProvider("ROAD", 10.0, 10),
			Cinema: loadProvider("CINEMA", 10.0, 10),
		},
		Payment: PaymentConfig{
			Mode:           getEnv("PAYMENT_MODE", "dev"),
			Environment:    getEnv("PAYMENT_ENVIRONMENT", "sandbox"),
			BaseURL:        getEnv("PAYMENT_BASE_URL", ""),
			MerchantKey:    getEnv("PAYMENT_MERCHANT_KEY", ""),
			MerchantSecret: getEnv("PAYMENT_MERCHANT_SECRET", ""),
			Timeout:        getEnvAsDuration("PAYMENT_TIMEOUT", 30*time.Second),
			Currency:       getEnv("PAYMENT_CURRENCY", "LKR"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadProvider(prefix string, defaultRate float64, defaultBurst int) ProviderConfig {
	return ProviderConfig{
		BaseURL:       getEnv(prefix+"_PROVIDER_URL", ""),
		APIKey:        getEnv(prefix+"_PROVIDER_API_KEY", ""),
		Timeout:       getEnvAsDuration(prefix+"_PROVIDER_TIMEOUT", 10*time.Second),
		RatePerSecond: getEnvAsFloat(prefix+"_PROVIDER_RATE", defaultRate),
		RateBurst:     getEnvAsInt(prefix+"_PROVIDER_BURST", defaultBurst),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Orchestrator.OverallTimeout <= 0 {
		return fmt.Errorf("ATTEMPT_OVERALL_TIMEOUT must be positive")
	}
	if c.Ledger.HoldTTL <= 0 {
		return fmt.Errorf("HOLD_TTL must be positive")
	}
	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1")
	}

	if c.Providers.Mode == "http" {
		if c.Providers.Rail.BaseURL == "" || c.Providers.Road.BaseURL == "" || c.Providers.Cinema.BaseURL == "" {
			return fmt.Errorf("all provider URLs are required in http provider mode")
		}
	}

	if c.Payment.Mode == "http" {
		if c.Payment.MerchantKey == "" || c.Payment.MerchantSecret == "" {
			return fmt.Errorf("PAYMENT_MERCHANT_KEY and PAYMENT_MERCHANT_SECRET are required in http payment mode")
		}
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
		log.Printf("Invalid float value for %s, using default: %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
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
	for _, v := range splitString(valueStr, ",") {
		trimmed := trimString(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// Helper to split strings
func splitString(s, sep string) []string {
	var result []string
	current := ""
	for _, char := range s {
		if string(char) == sep {
			result = append(result, current)
			current = ""
		} else {
			current += string(char)
		}
	}
	if current != "" {
		result = append(result, current)
	}
	return result
}

// Helper to trim strings
func trimString(s string) string {
	start := 0
	end := len(s)

	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}

	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}

	return s[start:end]
}
