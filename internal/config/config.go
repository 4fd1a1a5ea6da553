package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	MongoURI           string
	MongoDB            string
	Port               string
	JWTSecret          string
	JWTTTLMinutes      int
	TaxRateBasisPoints int64
	ShippingFlatCents  int64
	DeliveryLeadDays   int
	LogLevel           string
	CacheTTLSeconds    int
	CacheMaxEntries    int
	RateLimitPerMinute int
}

// Load reads configuration from the environment. A .env file is picked
// up for local development; in production the platform env is used
// directly. Missing MONGO_URI or JWT_SECRET is a fatal condition.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Println("error loading .env file:", err)
		}
	}

	cfg := &Config{
		MongoURI:  getEnv("MONGO_URI", ""),
		MongoDB:   getEnv("MONGO_DB", "footwearWholesale"),
		Port:      getEnv("PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	if cfg.JWTTTLMinutes, err = getEnvInt("JWT_TTL_MINUTES", 60); err != nil {
		return nil, err
	}
	taxRate, err := getEnvInt("TAX_RATE_BP", 800)
	if err != nil {
		return nil, err
	}
	cfg.TaxRateBasisPoints = int64(taxRate)
	shipping, err := getEnvInt("SHIPPING_FLAT_CENTS", 2500)
	if err != nil {
		return nil, err
	}
	cfg.ShippingFlatCents = int64(shipping)
	if cfg.DeliveryLeadDays, err = getEnvInt("DELIVERY_LEAD_DAYS", 14); err != nil {
		return nil, err
	}
	if cfg.CacheTTLSeconds, err = getEnvInt("CACHE_TTL_SECONDS", 60); err != nil {
		return nil, err
	}
	if cfg.CacheMaxEntries, err = getEnvInt("CACHE_MAX_ENTRIES", 1024); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", 30); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
