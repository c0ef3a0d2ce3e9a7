package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig carries the runtime settings of the service.
type AppConfig struct {
	// Port the HTTP API listens on.
	Port string

	// DBPath locates the document store (weather cache + spot collection).
	DBPath string

	// FetchInterval controls how often the forecast bundle is refreshed.
	FetchInterval time.Duration

	// CacheMaxAge is the oldest a cached bundle may be and still serve as a
	// fallback tier.
	CacheMaxAge time.Duration

	// LocationTimeout bounds a single city's forecast fetch.
	LocationTimeout time.Duration

	// BatchTimeout bounds a whole fetch cycle; the shorter of the two
	// timeout layers always wins.
	BatchTimeout time.Duration

	// HTTPTimeout is the outbound HTTP client timeout.
	HTTPTimeout time.Duration

	// Offline forces cache-only operation, for development without network.
	Offline bool

	// Mobile selects the mobile marker profile (aggressive clustering,
	// dimmed instead of hidden low-importance markers).
	Mobile bool
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.DBPath = getenvDefault("DB_PATH", "data/tregorweather.db")

	var err error
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "30m"); err != nil {
		return nil, err
	}
	if cfg.CacheMaxAge, err = getenvDuration("CACHE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}
	if cfg.LocationTimeout, err = getenvDuration("LOCATION_TIMEOUT", "8s"); err != nil {
		return nil, err
	}
	if cfg.BatchTimeout, err = getenvDuration("BATCH_TIMEOUT", "12s"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.Offline = getenvBool("OFFLINE", false)
	cfg.Mobile = getenvBool("MOBILE_PROFILE", false)

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
