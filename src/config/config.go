package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// Quote source (Yahoo-style chart endpoint). Overridable so tests
	// and alternative providers can point elsewhere.
	QuoteBaseURL      string
	QuoteTimeout      time.Duration
	QuoteCacheTTL     time.Duration
	QuoteTickerSuffix string

	MaxImportBatchRows int
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	quoteTimeoutStr := getEnv("QUOTE_TIMEOUT", "20s")
	quoteTimeout, err := time.ParseDuration(quoteTimeoutStr)
	if err != nil {
		log.Printf("WARNING: Invalid QUOTE_TIMEOUT format '%s'. Using default 20s. Error: %v", quoteTimeoutStr, err)
		quoteTimeout = 20 * time.Second
	}

	quoteCacheTTLStr := getEnv("QUOTE_CACHE_TTL", "15m")
	quoteCacheTTL, err := time.ParseDuration(quoteCacheTTLStr)
	if err != nil {
		log.Printf("WARNING: Invalid QUOTE_CACHE_TTL format '%s'. Using default 15m. Error: %v", quoteCacheTTLStr, err)
		quoteCacheTTL = 15 * time.Minute
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./estruturadas.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		QuoteBaseURL:      getEnv("QUOTE_BASE_URL", "https://query1.finance.yahoo.com"),
		QuoteTimeout:      quoteTimeout,
		QuoteCacheTTL:     quoteCacheTTL,
		QuoteTickerSuffix: getEnv("QUOTE_TICKER_SUFFIX", ".SA"),

		MaxImportBatchRows: getEnvAsInt("MAX_IMPORT_BATCH_ROWS", 50000),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, QuoteBaseURL=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.QuoteBaseURL)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}
