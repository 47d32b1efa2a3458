package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	Storage     string
	DatabaseURL string
	SQLitePath  string
	// Rates
	Providers        []string
	RateCacheTTL     time.Duration
	ProviderTimeout  time.Duration
	ExchangeAPIBase  string
	ExchangeAPIKey   string
	FrankfurterBase  string
	OpenERBase       string
	CurrencyAPIBase  string
	CurrencyAPIKey   string
	ProviderBudgetRP int
	// History
	MaxHistory   int
	MaxFavorites int
	// Worker
	WorkerType     string
	WarmInterval   time.Duration
	WarmPairsLimit int
	RequestTimeout time.Duration
	// Redis (storage + idempotency)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	// Idempotency: "redis" or "none"
	IdempotencyBackend string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func msDef(key string, def int) time.Duration {
	return time.Duration(atoiDef(getEnv(key, strconv.Itoa(def)), def)) * time.Millisecond
}

func listEnv(key, def string) []string {
	var out []string
	for _, p := range strings.Split(getEnv(key, def), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:                getEnv("ENV", "local"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("PORT", "8080"),
		Storage:            strings.ToLower(getEnv("STORAGE", "memory")),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SQLitePath:         getEnv("SQLITE_PATH", "fxconvert.db"),
		Providers:          listEnv("PROVIDERS", "exchangeratesapi,frankfurter,openerapi,currencyapi"),
		RateCacheTTL:       msDef("RATE_CACHE_TTL_MS", 600000),
		ProviderTimeout:    msDef("PROVIDER_TIMEOUT_MS", 5000),
		ExchangeAPIBase:    getEnv("EXCHANGE_API_BASE", "https://api.exchangeratesapi.io"),
		ExchangeAPIKey:     getEnv("EXCHANGE_API_KEY", ""),
		FrankfurterBase:    getEnv("FRANKFURTER_BASE", "https://api.frankfurter.app"),
		OpenERBase:         getEnv("OPEN_ER_API_BASE", "https://open.er-api.com"),
		CurrencyAPIBase:    getEnv("CURRENCY_API_BASE", "https://api.currencyapi.com"),
		CurrencyAPIKey:     getEnv("CURRENCY_API_KEY", ""),
		ProviderBudgetRP:   atoiDef(getEnv("PROVIDER_REQUESTS_PER_MINUTE", "60"), 60),
		MaxHistory:         atoiDef(getEnv("MAX_HISTORY_ENTRIES", "1000"), 1000),
		MaxFavorites:       atoiDef(getEnv("MAX_FAVORITES", "50"), 50),
		WorkerType:         getEnv("WORKER_TYPE", "warmer"),
		WarmInterval:       msDef("WARM_INTERVAL_MS", 300000),
		WarmPairsLimit:     atoiDef(getEnv("WARM_PAIRS_LIMIT", "10"), 10),
		RequestTimeout:     msDef("REQUEST_TIMEOUT_MS", 3000),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            atoiDef(getEnv("REDIS_DB", "0"), 0),
		RedisTTL:           msDef("IDEMPOTENCY_TTL_MS", 86400000),
		IdempotencyBackend: strings.ToLower(getEnv("IDEMPOTENCY_BACKEND", "none")),
	}
}
