// Package core provides shared types and errors for the nakdan service.
package core

import "time"

// Genres supported by the remote Nakdan service. Requests with any other
// value are rejected before cache or network work.
const (
	GenreModern         = "modern"
	GenreRabbinic       = "rabbinic"
	GenreModernPoetry   = "modernpoetry"
	GenreMedievalPoetry = "medievalpoetry"
)

// Genres is the fixed allowed genre set.
var Genres = []string{GenreModern, GenreRabbinic, GenreModernPoetry, GenreMedievalPoetry}

// ValidGenre reports whether genre is in the allowed set.
func ValidGenre(genre string) bool {
	for _, g := range Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// MaxTextLength is the maximum number of runes accepted in input text.
const MaxTextLength = 10000

// Result is the payload produced by one successful lookup.
// Immutable once constructed.
type Result struct {
	// Text is the diacritized text.
	Text string `json:"text"`
	// ResponseTime is the elapsed time in seconds from the first network
	// attempt to success. Zero for cache hits.
	ResponseTime float64 `json:"response_time"`
	// Attempts is the number of transport calls made (1 on first-try
	// success). Zero for cache hits.
	Attempts int `json:"attempts"`
}

// Settings holds the live-mutable cache configuration.
type Settings struct {
	// TTLEnabled controls whether cached entries expire.
	TTLEnabled bool `json:"ttl_enabled" yaml:"ttl_enabled"`
	// TTLSeconds is the entry lifetime in seconds. Retained but ignored
	// while TTLEnabled is false. Must be > 0.
	TTLSeconds int `json:"ttl_seconds" yaml:"ttl_seconds"`
	// MaxEntries is the hard cache size cap. Must be >= 1.
	MaxEntries int `json:"max_entries" yaml:"max_entries"`
}

// TTL returns the entry lifetime as a duration.
func (s Settings) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

// SettingsUpdate carries a partial settings change. Nil fields are left
// unchanged.
type SettingsUpdate struct {
	TTLEnabled *bool `json:"ttl_enabled,omitempty"`
	TTLSeconds *int  `json:"ttl_seconds,omitempty"`
	MaxEntries *int  `json:"max_entries,omitempty"`
}

// CacheStats is a point-in-time snapshot of cache occupancy.
type CacheStats struct {
	Total   int `json:"total_entries"`
	Valid   int `json:"valid_entries"`
	Expired int `json:"expired_entries"`
}

// ConfigSnapshot combines the current settings with live cache stats.
type ConfigSnapshot struct {
	Settings
	Stats CacheStats `json:"cache_stats"`
}

// Clock returns the current time. Injected so tests can control expiry
// and eviction ordering.
type Clock func() time.Time
