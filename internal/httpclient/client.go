// Package httpclient builds the HTTP client a nakdan.Client owns when no
// external transport is injected.
package httpclient

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Config holds the tunable transport options.
type Config struct {
	// MaxIdleConns caps idle keep-alive connections across all hosts.
	MaxIdleConns int

	// IdleConnTimeout closes idle connections after this long.
	IdleConnTimeout time.Duration

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake.
	TLSHandshakeTimeout time.Duration
}

// envDuration reads a duration from an environment variable, accepting
// plain integers (seconds) or Go duration syntax ("90s", "2m").
func envDuration(key string, def time.Duration) time.Duration {
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

// DefaultConfig returns transport defaults sized for the nakdan API: the
// per-attempt deadline lives on the request context, so the client itself
// carries no overall timeout. Overridable via NAKDAN_HTTP_IDLE_TIMEOUT
// and NAKDAN_HTTP_DIAL_TIMEOUT (seconds or Go duration syntax).
func DefaultConfig() Config {
	return Config{
		MaxIdleConns:        10,
		IdleConnTimeout:     envDuration("NAKDAN_HTTP_IDLE_TIMEOUT", 90*time.Second),
		DialTimeout:         envDuration("NAKDAN_HTTP_DIAL_TIMEOUT", 10*time.Second),
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// New creates an HTTP client with the provided configuration, or
// DefaultConfig when cfg is nil.
func New(cfg *Config) *http.Client {
	if cfg == nil {
		c := DefaultConfig()
		cfg = &c
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        cfg.MaxIdleConns,
			IdleConnTimeout:     cfg.IdleConnTimeout,
			TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
			ForceAttemptHTTP2:   true,
		},
	}
}
