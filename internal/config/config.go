// Package config loads service configuration from the environment. A .env
// file is honored when present so local development matches deployment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds everything the server needs at startup. DATABASE_URL and
// REDIS_URL are optional: without them the service runs on the in-memory
// store, which is fine for development and tests.
type Config struct {
	Port            string
	DatabaseURL     string
	RedisURL        string
	MarketDataKey   string
	MarketDataURL   string
	BenchmarkSymbol string
	InitialCash     decimal.Decimal
	TradeFee        decimal.Decimal
	QuoteRefresh    time.Duration
}

// Load reads configuration from the environment, applying defaults.
func Load() Config {
	// Missing .env is not an error; env vars may come from the platform.
	_ = godotenv.Load()

	return Config{
		Port:            envDefault("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		MarketDataKey:   envDefault("ALPHAVANTAGE_API_KEY", "DEMO"),
		MarketDataURL:   envDefault("ALPHAVANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
		BenchmarkSymbol: envDefault("BENCHMARK_SYMBOL", "SPY"),
		InitialCash:     envDecimal("INITIAL_CASH", decimal.NewFromInt(100000)),
		TradeFee:        envDecimal("TRADE_FEE", decimal.NewFromInt(1)),
		QuoteRefresh:    envDuration("QUOTE_REFRESH_INTERVAL", 15*time.Second),
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if dec, err := decimal.NewFromString(v); err == nil && dec.IsPositive() {
			return dec
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			return dur
		}
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
