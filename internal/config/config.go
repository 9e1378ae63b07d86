package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// WeatherAPIKey authenticates against OpenWeatherMap. It is required:
	// a missing key is a startup error, never a runtime crash.
	WeatherAPIKey string

	// HTTPTimeout applies to the shared outbound HTTP client.
	HTTPTimeout time.Duration

	// CacheDBPath is the SQLite file backing the weather cache.
	CacheDBPath string

	// CacheMaxAge is how long cached weather blobs are kept (0 = forever).
	CacheMaxAge time.Duration

	// CachePruneInterval controls how often expired entries are removed.
	CachePruneInterval time.Duration

	// CitiesPageSize is the default page size for city listings.
	CitiesPageSize int

	// EnrichBatchSize bounds concurrent weather-summary requests per batch.
	EnrichBatchSize int

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.WeatherAPIKey = os.Getenv("OPENWEATHERMAP_API_KEY")
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("OPENWEATHERMAP_API_KEY is required")
	}

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.CacheDBPath = getenvDefault("CACHE_DB_PATH", "data/weather-lookup.db")

	maxAgeStr := getenvDefault("CACHE_MAX_AGE", "24h")
	maxAge, err := time.ParseDuration(maxAgeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_MAX_AGE: %w", err)
	}
	cfg.CacheMaxAge = maxAge

	pruneStr := getenvDefault("CACHE_PRUNE_INTERVAL", "1h")
	prune, err := time.ParseDuration(pruneStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_PRUNE_INTERVAL: %w", err)
	}
	cfg.CachePruneInterval = prune

	cfg.CitiesPageSize = getenvInt("CITIES_PAGE_SIZE", 20)
	cfg.EnrichBatchSize = getenvInt("ENRICH_BATCH_SIZE", 5)
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
