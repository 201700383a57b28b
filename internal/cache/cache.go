// Package cache provides the in-memory store for diacritization results.
//
// The store holds key -> (result, inserted-at) pairs under a single
// read-write mutex that also guards the live settings (TTL, size cap), so
// eviction and sweeps never iterate the map concurrently with writers.
// Entries are replaced wholesale on overwrite and never mutated in place.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"nakdan/internal/core"
)

// Entry is one cached diacritization result.
type Entry struct {
	Result     core.Result
	InsertedAt time.Time
}

// Key derives the cache key for a (genre, text) pair. SHA-256 keeps the
// key fixed-length and collision-resistant, so it is the sole identity of
// a cached result.
func Key(genre, text string) string {
	sum := sha256.Sum256([]byte(genre + "_" + text))
	return hex.EncodeToString(sum[:])
}

// Store is a TTL- and size-bounded result cache. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	settings core.Settings
}

// New creates a store with the given initial settings.
func New(settings core.Settings) *Store {
	return &Store{
		entries:  make(map[string]Entry),
		settings: settings,
	}
}

// Get returns the entry for key if present, without checking validity.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// IsValid reports whether the entry is still live at now. Always true
// while TTL is disabled.
func (s *Store) IsValid(e Entry, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isValidLocked(e, now)
}

func (s *Store) isValidLocked(e Entry, now time.Time) bool {
	if !s.settings.TTLEnabled {
		return true
	}
	return now.Sub(e.InsertedAt) < s.settings.TTL()
}

// GetValid returns the cached result for key if present and live. A stale
// entry is removed before reporting a miss (lazy expiry). The read and the
// validity check run under one lock acquisition so a concurrent sweep
// cannot be observed as a torn read.
func (s *Store) GetValid(key string, now time.Time) (core.Result, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	if ok && s.isValidLocked(e, now) {
		s.mu.RUnlock()
		return e.Result, true
	}
	s.mu.RUnlock()

	if ok {
		s.mu.Lock()
		if cur, still := s.entries[key]; still && !s.isValidLocked(cur, now) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
	}
	return core.Result{}, false
}

// Put inserts or overwrites the entry for key. The size cap is enforced
// by the caller before insertion, not here.
func (s *Store) Put(key string, result core.Result, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{Result: result, InsertedAt: now}
}

// Remove deletes the entry for key, if any.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len returns the current number of entries, valid or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SweepExpired removes every stale entry and returns the count removed.
// No-op while TTL is disabled.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepExpiredLocked(now)
}

func (s *Store) sweepExpiredLocked(now time.Time) int {
	if !s.settings.TTLEnabled {
		return 0
	}
	removed := 0
	for key, e := range s.entries {
		if !s.isValidLocked(e, now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// EvictOldestFraction removes max(1, floor(maxEntries*fraction)) entries,
// oldest first, and returns the count removed. The amount is a fraction of
// the configured capacity rather than a fixed count, so eviction stays
// proportional as the cap is reconfigured.
func (s *Store) EvictOldestFraction(fraction float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int(float64(s.settings.MaxEntries) * fraction)
	if n < 1 {
		n = 1
	}
	return s.removeOldestLocked(n)
}

// TrimToSize removes oldest entries until at most limit remain. Returns
// the count removed. Used when MaxEntries is reduced at runtime.
func (s *Store) TrimToSize(limit int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trimToSizeLocked(limit)
}

func (s *Store) trimToSizeLocked(limit int) int {
	if limit < 0 {
		limit = 0
	}
	if len(s.entries) <= limit {
		return 0
	}
	return s.removeOldestLocked(len(s.entries) - limit)
}

// removeOldestLocked deletes up to n entries ordered by InsertedAt, ties
// broken by key so eviction is deterministic.
func (s *Store) removeOldestLocked(n int) int {
	if n > len(s.entries) {
		n = len(s.entries)
	}
	if n <= 0 {
		return 0
	}

	type aged struct {
		key        string
		insertedAt time.Time
	}
	all := make([]aged, 0, len(s.entries))
	for key, e := range s.entries {
		all = append(all, aged{key: key, insertedAt: e.InsertedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].insertedAt.Equal(all[j].insertedAt) {
			return all[i].key < all[j].key
		}
		return all[i].insertedAt.Before(all[j].insertedAt)
	})

	for _, a := range all[:n] {
		delete(s.entries, a.key)
	}
	return n
}

// Clear empties the store and returns the prior size.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := len(s.entries)
	s.entries = make(map[string]Entry)
	return count
}

// Stats reports occupancy at now. While TTL is disabled every present
// entry counts as valid.
func (s *Store) Stats(now time.Time) core.CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := core.CacheStats{Total: len(s.entries)}
	for _, e := range s.entries {
		if s.isValidLocked(e, now) {
			stats.Valid++
		}
	}
	stats.Expired = stats.Total - stats.Valid
	return stats
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() core.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Apply updates any subset of the settings and runs the required
// maintenance synchronously, all under one lock acquisition: enabling TTL
// or shrinking the TTL window sweeps immediately, and lowering the size
// cap below the current occupancy trims immediately. Returns the settings
// before and after the change.
func (s *Store) Apply(update core.SettingsUpdate, now time.Time) (before, after core.Settings, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before = s.settings
	next := s.settings

	if update.TTLEnabled != nil {
		next.TTLEnabled = *update.TTLEnabled
	}
	if update.TTLSeconds != nil {
		if *update.TTLSeconds <= 0 {
			return before, before, core.NewInvalidRequestError("ttl_seconds must be positive")
		}
		next.TTLSeconds = *update.TTLSeconds
	}
	if update.MaxEntries != nil {
		if *update.MaxEntries < 1 {
			return before, before, core.NewInvalidRequestError("max_entries must be at least 1")
		}
		next.MaxEntries = *update.MaxEntries
	}

	s.settings = next

	if next.TTLEnabled && (!before.TTLEnabled || next.TTLSeconds < before.TTLSeconds) {
		s.sweepExpiredLocked(now)
	}
	if next.MaxEntries < len(s.entries) {
		s.trimToSizeLocked(next.MaxEntries)
	}

	return before, next, nil
}
