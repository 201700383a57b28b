// Package nakdan provides the client for the Dicta Nakdan diacritization
// service: validation, a shared TTL- and size-bounded result cache,
// bounded retries with exponential backoff, and live-mutable settings.
package nakdan

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"nakdan/internal/cache"
	"nakdan/internal/core"
	"nakdan/internal/httpclient"
)

// DefaultEndpoint is the production Nakdan API endpoint.
const DefaultEndpoint = "https://nakdan-u1-0.loadbalancer.dicta.org.il/api"

const (
	// DefaultAttemptTimeout bounds each individual network attempt.
	DefaultAttemptTimeout = 15 * time.Second
	// DefaultMaxRetries is the retry count used when a lookup does not
	// specify one (2 attempts total).
	DefaultMaxRetries = 1

	// evictFraction of the configured capacity is removed when an insert
	// would exceed the cap.
	evictFraction = 0.1
	// sweepSampleInterval amortizes expiry cleanup: a sweep runs only
	// when the store size is a positive multiple of this.
	sweepSampleInterval = 10
)

// DefaultSettings mirrors the service defaults: TTL off (a one hour
// window retained for when it is enabled), 1000 entries.
func DefaultSettings() core.Settings {
	return core.Settings{
		TTLEnabled: false,
		TTLSeconds: 3600,
		MaxEntries: 1000,
	}
}

// Options configures a Client. The zero value of every field has a
// usable default.
type Options struct {
	// Endpoint overrides DefaultEndpoint.
	Endpoint string

	// Transport is an externally managed HTTP client. When nil the
	// Client owns one for its lifetime, released by Close.
	Transport Doer

	// AttemptTimeout bounds each network attempt.
	AttemptTimeout time.Duration

	// Settings are the initial cache settings; DefaultSettings when zero.
	Settings core.Settings

	// Logger receives retry and cache maintenance logs.
	Logger *slog.Logger

	// Clock and Sleep are injected by tests.
	Clock core.Clock
	Sleep SleepFunc
}

// Client is the single entry point for diacritization lookups. One
// explicitly constructed instance is shared by every caller; all methods
// are safe for concurrent use.
type Client struct {
	endpoint       string
	transport      Doer
	ownedTransport *http.Client
	attemptTimeout time.Duration
	cache          *cache.Store
	clock          core.Clock
	sleep          SleepFunc
	logger         *slog.Logger
}

// New creates a Client. The caller must Close it to release an owned
// transport.
func New(opts Options) *Client {
	c := &Client{
		endpoint:       opts.Endpoint,
		transport:      opts.Transport,
		attemptTimeout: opts.AttemptTimeout,
		clock:          opts.Clock,
		sleep:          opts.Sleep,
		logger:         opts.Logger,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.attemptTimeout <= 0 {
		c.attemptTimeout = DefaultAttemptTimeout
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.transport == nil {
		owned := httpclient.New(nil)
		c.ownedTransport = owned
		c.transport = owned
	}

	settings := opts.Settings
	if settings.MaxEntries < 1 {
		settings = DefaultSettings()
	}
	if settings.TTLSeconds <= 0 {
		settings.TTLSeconds = DefaultSettings().TTLSeconds
	}
	c.cache = cache.New(settings)
	return c
}

// Close releases the owned transport, if any. A no-op when the transport
// was injected.
func (c *Client) Close() error {
	if c.ownedTransport != nil {
		c.ownedTransport.CloseIdleConnections()
		c.ownedTransport = nil
	}
	return nil
}

// apiRequest is the outbound POST body. The option flags are fixed.
type apiRequest struct {
	Task            string `json:"task"`
	Data            string `json:"data"`
	Genre           string `json:"genre"`
	AddMorph        bool   `json:"addmorph"`
	KeepMetagim     bool   `json:"keepmetagim"`
	KeepQQ          bool   `json:"keepqq"`
	NoDageshDefMem  bool   `json:"nodageshdefmem"`
	PatachMa        bool   `json:"patachma"`
	UseTokenization bool   `json:"useTokenization"`
}

// Lookup returns the diacritized form of text for the given genre.
//
// Input validation runs before any cache or network work. A live cached
// result is returned with no side effects. On a miss the entry is fetched
// with maxRetries+1 bounded attempts (DefaultMaxRetries when maxRetries
// is negative); exhausting them returns core.ErrNoResult and caches
// nothing. Concurrent misses for the same key are not deduplicated; the
// last writer wins.
func (c *Client) Lookup(ctx context.Context, text, genre string, maxRetries int) (core.Result, error) {
	if !core.ValidGenre(genre) {
		return core.Result{}, core.NewInvalidGenreError(genre)
	}
	if text == "" {
		return core.Result{}, core.NewInvalidRequestError("text must not be empty")
	}
	if len([]rune(text)) > core.MaxTextLength {
		return core.Result{}, core.NewInvalidRequestError("text exceeds the maximum length")
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}

	key := cache.Key(genre, text)
	if result, ok := c.cache.GetValid(key, c.clock()); ok {
		c.logger.Debug("cache hit", "text", truncate(text, 50))
		return result, nil
	}

	// Keep the store under its cap before fetching a new entry.
	settings := c.cache.Settings()
	if c.cache.Len() >= settings.MaxEntries {
		removed := c.cache.EvictOldestFraction(evictFraction)
		c.logger.Debug("cache at capacity, evicted oldest entries", "removed", removed)
	}
	if n := c.cache.Len(); settings.TTLEnabled && n > 0 && n%sweepSampleInterval == 0 {
		if removed := c.cache.SweepExpired(c.clock()); removed > 0 {
			c.logger.Debug("swept expired cache entries", "removed", removed)
		}
	}

	payload, err := json.Marshal(apiRequest{
		Task:  "nakdan",
		Data:  text,
		Genre: genre,
	})
	if err != nil {
		return core.Result{}, core.NewInvalidRequestError("failed to encode request: " + err.Error())
	}

	raw, ok := c.postWithRetry(ctx, payload, maxRetries)
	if !ok {
		return core.Result{}, core.ErrNoResult
	}

	result := core.Result{
		Text:         decodeResponse(raw.body),
		ResponseTime: raw.elapsed.Seconds(),
		Attempts:     raw.attempts,
	}
	c.cache.Put(key, result, c.clock())
	c.logger.Debug("got nikud", "text", truncate(text, 50), "attempts", raw.attempts)
	return result, nil
}

// ClearCache empties the cache and returns the number of entries removed.
func (c *Client) ClearCache() int {
	count := c.cache.Clear()
	c.logger.Info("cleared cache", "entries", count)
	return count
}

// Stats reports current cache occupancy.
func (c *Client) Stats() core.CacheStats {
	return c.cache.Stats(c.clock())
}

// UpdateSettings applies a partial settings change, running any required
// sweep or trim synchronously before returning.
func (c *Client) UpdateSettings(update core.SettingsUpdate) (before, after core.Settings, err error) {
	before, after, err = c.cache.Apply(update, c.clock())
	if err != nil {
		return before, after, err
	}
	if before != after {
		c.logger.Info("updated cache settings",
			"ttl_enabled", after.TTLEnabled,
			"ttl_seconds", after.TTLSeconds,
			"max_entries", after.MaxEntries)
	}
	return before, after, nil
}

// CurrentConfig returns a read-only snapshot of the settings and live
// cache stats.
func (c *Client) CurrentConfig() core.ConfigSnapshot {
	return core.ConfigSnapshot{
		Settings: c.cache.Settings(),
		Stats:    c.cache.Stats(c.clock()),
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
