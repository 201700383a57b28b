// Package config provides startup configuration and persistence for the
// runtime cache settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"nakdan/internal/core"
	"nakdan/internal/nakdan"
)

// Config holds the startup configuration, read once from the environment.
// Cache settings may change at runtime afterwards; everything else is
// fixed for the life of the process.
type Config struct {
	// Addr is the listen address for the HTTP surface.
	Addr string

	// AuthToken, when set, requires a matching bearer token on API routes.
	AuthToken string

	// Endpoint overrides the production Nakdan API endpoint.
	Endpoint string

	// AttemptTimeout bounds each network attempt.
	AttemptTimeout time.Duration

	// MaxRetries is the default retry count for lookups that do not
	// specify one.
	MaxRetries int

	// SettingsFile is where runtime cache settings are persisted across
	// restarts. Empty disables persistence.
	SettingsFile string

	// Settings are the initial cache settings. A persisted settings file
	// takes precedence over these.
	Settings core.Settings
}

// Load reads configuration from a .env file (if present) and the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional

	cfg := &Config{
		Addr:           getEnv("NAKDAN_ADDR", ":8080"),
		AuthToken:      os.Getenv("NAKDAN_AUTH_TOKEN"),
		Endpoint:       getEnv("NAKDAN_API_URL", nakdan.DefaultEndpoint),
		AttemptTimeout: getEnvDuration("NAKDAN_TIMEOUT", nakdan.DefaultAttemptTimeout),
		MaxRetries:     getEnvInt("NAKDAN_MAX_RETRIES", nakdan.DefaultMaxRetries),
		SettingsFile:   os.Getenv("NAKDAN_SETTINGS_FILE"),
		Settings:       nakdan.DefaultSettings(),
	}

	cfg.Settings.TTLEnabled = getEnvBool("NAKDAN_CACHE_TTL_ENABLED", cfg.Settings.TTLEnabled)
	cfg.Settings.TTLSeconds = getEnvInt("NAKDAN_CACHE_TTL_SECONDS", cfg.Settings.TTLSeconds)
	cfg.Settings.MaxEntries = getEnvInt("NAKDAN_CACHE_MAX_ENTRIES", cfg.Settings.MaxEntries)

	if cfg.Settings.TTLSeconds <= 0 {
		return nil, fmt.Errorf("NAKDAN_CACHE_TTL_SECONDS must be positive")
	}
	if cfg.Settings.MaxEntries < 1 {
		return nil, fmt.Errorf("NAKDAN_CACHE_MAX_ENTRIES must be at least 1")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("NAKDAN_MAX_RETRIES must not be negative")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	if n, err := strconv.Atoi(val); err == nil {
		return n
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return def
}

// getEnvDuration accepts plain integers (seconds) or Go duration syntax.
func getEnvDuration(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return def
}
