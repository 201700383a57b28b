package cache

import (
	"fmt"
	"testing"
	"time"

	"nakdan/internal/core"
)

func testSettings() core.Settings {
	return core.Settings{TTLEnabled: false, TTLSeconds: 3600, MaxEntries: 10}
}

func result(text string) core.Result {
	return core.Result{Text: text, ResponseTime: 0.1, Attempts: 1}
}

func TestKey(t *testing.T) {
	k1 := Key("modern", "שלום")
	k2 := Key("modern", "שלום")
	if k1 != k2 {
		t.Fatalf("key not deterministic: %q vs %q", k1, k2)
	}
	if len(k1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(k1))
	}
	if Key("rabbinic", "שלום") == k1 {
		t.Error("different genres must produce different keys")
	}
}

func TestStore_PutGet(t *testing.T) {
	s := New(testSettings())
	now := time.Now()

	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected miss on empty store")
	}

	s.Put("k", result("a"), now)
	e, ok := s.Get("k")
	if !ok {
		t.Fatal("expected hit after put")
	}
	if e.Result.Text != "a" {
		t.Errorf("expected %q, got %q", "a", e.Result.Text)
	}

	// Overwrite replaces the entry wholesale.
	later := now.Add(time.Minute)
	s.Put("k", result("b"), later)
	e, _ = s.Get("k")
	if e.Result.Text != "b" || !e.InsertedAt.Equal(later) {
		t.Errorf("overwrite did not replace entry: %+v", e)
	}

	s.Remove("k")
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected miss after remove")
	}
}

func TestStore_TTLValidity(t *testing.T) {
	settings := testSettings()
	settings.TTLEnabled = true
	settings.TTLSeconds = 1
	s := New(settings)
	now := time.Now()

	s.Put("k", result("a"), now)
	e, _ := s.Get("k")

	if !s.IsValid(e, now) {
		t.Error("entry must be valid immediately after insertion")
	}
	if !s.IsValid(e, now.Add(999*time.Millisecond)) {
		t.Error("entry must be valid just inside the TTL window")
	}
	if s.IsValid(e, now.Add(time.Second)) {
		t.Error("entry must be invalid once its age reaches the TTL")
	}
}

func TestStore_TTLDisabled(t *testing.T) {
	s := New(testSettings())
	now := time.Now()

	s.Put("k", result("a"), now)
	e, _ := s.Get("k")

	if !s.IsValid(e, now.Add(10000*time.Second)) {
		t.Error("entries never expire while TTL is disabled")
	}
	if removed := s.SweepExpired(now.Add(10000 * time.Second)); removed != 0 {
		t.Errorf("sweep must be a no-op with TTL disabled, removed %d", removed)
	}
}

func TestStore_GetValid(t *testing.T) {
	settings := testSettings()
	settings.TTLEnabled = true
	settings.TTLSeconds = 1
	s := New(settings)
	now := time.Now()

	s.Put("k", result("a"), now)

	if res, ok := s.GetValid("k", now); !ok || res.Text != "a" {
		t.Fatalf("expected valid hit, got ok=%v res=%+v", ok, res)
	}

	// A stale entry is removed by the read that observes it.
	if _, ok := s.GetValid("k", now.Add(2*time.Second)); ok {
		t.Fatal("expected miss for stale entry")
	}
	if s.Len() != 0 {
		t.Errorf("stale entry must be removed lazily, len=%d", s.Len())
	}
}

func TestStore_SweepExpired(t *testing.T) {
	settings := testSettings()
	settings.TTLEnabled = true
	settings.TTLSeconds = 60
	s := New(settings)
	now := time.Now()

	s.Put("old1", result("a"), now.Add(-2*time.Minute))
	s.Put("old2", result("b"), now.Add(-90*time.Second))
	s.Put("fresh", result("c"), now)

	if removed := s.SweepExpired(now); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, ok := s.Get("fresh"); !ok {
		t.Error("fresh entry must survive the sweep")
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 entry after sweep, got %d", s.Len())
	}
}

func TestStore_EvictOldestFraction(t *testing.T) {
	settings := testSettings()
	settings.MaxEntries = 50
	s := New(settings)
	base := time.Now()

	for i := 0; i < 50; i++ {
		s.Put(fmt.Sprintf("k%02d", i), result("x"), base.Add(time.Duration(i)*time.Second))
	}

	// floor(50 * 0.1) = 5 oldest entries go.
	if removed := s.EvictOldestFraction(0.1); removed != 5 {
		t.Fatalf("expected 5 removed, got %d", removed)
	}
	for i := 0; i < 5; i++ {
		if _, ok := s.Get(fmt.Sprintf("k%02d", i)); ok {
			t.Errorf("k%02d is among the oldest and must be evicted", i)
		}
	}
	for i := 5; i < 50; i++ {
		if _, ok := s.Get(fmt.Sprintf("k%02d", i)); !ok {
			t.Errorf("k%02d must survive eviction", i)
		}
	}
}

func TestStore_EvictOldestFraction_MinimumOne(t *testing.T) {
	settings := testSettings()
	settings.MaxEntries = 5
	s := New(settings)
	now := time.Now()

	s.Put("a", result("x"), now.Add(-time.Second))
	s.Put("b", result("x"), now)

	// floor(5 * 0.1) = 0, but at least one entry is always removed.
	if removed := s.EvictOldestFraction(0.1); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := s.Get("a"); ok {
		t.Error("the oldest entry must be the one evicted")
	}
}

func TestStore_EvictOldestFraction_TieBreakByKey(t *testing.T) {
	settings := testSettings()
	settings.MaxEntries = 20
	s := New(settings)
	now := time.Now()

	for _, key := range []string{"d", "c", "b", "a"} {
		s.Put(key, result("x"), now) // identical timestamps
	}

	// floor(20 * 0.1) = 2; ties resolve by key, so "a" and "b" go.
	if removed := s.EvictOldestFraction(0.1); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	for _, key := range []string{"a", "b"} {
		if _, ok := s.Get(key); ok {
			t.Errorf("%q must be evicted under key tie-break", key)
		}
	}
	for _, key := range []string{"c", "d"} {
		if _, ok := s.Get(key); !ok {
			t.Errorf("%q must survive under key tie-break", key)
		}
	}
}

func TestStore_TrimToSize(t *testing.T) {
	s := New(testSettings())
	base := time.Now()

	for i := 0; i < 8; i++ {
		s.Put(fmt.Sprintf("k%d", i), result("x"), base.Add(time.Duration(i)*time.Second))
	}

	if removed := s.TrimToSize(3); removed != 5 {
		t.Fatalf("expected 5 removed, got %d", removed)
	}
	if s.Len() != 3 {
		t.Fatalf("expected len 3, got %d", s.Len())
	}
	// The three most recent remain.
	for i := 5; i < 8; i++ {
		if _, ok := s.Get(fmt.Sprintf("k%d", i)); !ok {
			t.Errorf("k%d must survive the trim", i)
		}
	}

	if removed := s.TrimToSize(10); removed != 0 {
		t.Errorf("trim above current size must remove nothing, removed %d", removed)
	}
}

func TestStore_Clear(t *testing.T) {
	s := New(testSettings())
	now := time.Now()

	s.Put("a", result("x"), now)
	s.Put("b", result("x"), now)

	if count := s.Clear(); count != 2 {
		t.Fatalf("expected prior size 2, got %d", count)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store after clear, got %d", s.Len())
	}
	if count := s.Clear(); count != 0 {
		t.Errorf("clearing an empty store must return 0, got %d", count)
	}
}

func TestStore_Stats(t *testing.T) {
	settings := testSettings()
	settings.TTLEnabled = true
	settings.TTLSeconds = 60
	s := New(settings)
	now := time.Now()

	s.Put("fresh", result("x"), now)
	s.Put("stale", result("x"), now.Add(-2*time.Minute))

	stats := s.Stats(now)
	if stats.Total != 2 || stats.Valid != 1 || stats.Expired != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	// With TTL disabled every present entry is valid.
	disabled := false
	if _, _, err := s.Apply(core.SettingsUpdate{TTLEnabled: &disabled}, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats = s.Stats(now)
	if stats.Total != 2 || stats.Valid != 2 || stats.Expired != 0 {
		t.Errorf("unexpected stats with TTL disabled: %+v", stats)
	}
}

func TestStore_Apply(t *testing.T) {
	t.Run("PartialUpdate", func(t *testing.T) {
		s := New(testSettings())
		maxEntries := 42
		before, after, err := s.Apply(core.SettingsUpdate{MaxEntries: &maxEntries}, time.Now())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if before.MaxEntries != 10 || after.MaxEntries != 42 {
			t.Errorf("unexpected max entries: before=%d after=%d", before.MaxEntries, after.MaxEntries)
		}
		if after.TTLEnabled != before.TTLEnabled || after.TTLSeconds != before.TTLSeconds {
			t.Error("omitted fields must be unchanged")
		}
	})

	t.Run("EnablingTTLSweepsImmediately", func(t *testing.T) {
		s := New(testSettings())
		now := time.Now()
		s.Put("stale", result("x"), now.Add(-2*time.Hour))
		s.Put("fresh", result("x"), now)

		enabled := true
		if _, _, err := s.Apply(core.SettingsUpdate{TTLEnabled: &enabled}, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Len() != 1 {
			t.Fatalf("expected stale entry swept on enable, len=%d", s.Len())
		}
		if _, ok := s.Get("fresh"); !ok {
			t.Error("fresh entry must survive")
		}
	})

	t.Run("DecreasingTTLSweepsImmediately", func(t *testing.T) {
		settings := testSettings()
		settings.TTLEnabled = true
		s := New(settings)
		now := time.Now()
		s.Put("mid", result("x"), now.Add(-10*time.Minute))
		s.Put("fresh", result("x"), now)

		ttl := 60
		if _, _, err := s.Apply(core.SettingsUpdate{TTLSeconds: &ttl}, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Len() != 1 {
			t.Fatalf("expected newly-stale entry purged, len=%d", s.Len())
		}
	})

	t.Run("ShrinkTrimsToMostRecent", func(t *testing.T) {
		settings := testSettings()
		settings.MaxEntries = 100
		s := New(settings)
		base := time.Now()
		for i := 0; i < 50; i++ {
			s.Put(fmt.Sprintf("k%02d", i), result("x"), base.Add(time.Duration(i)*time.Second))
		}

		maxEntries := 10
		if _, _, err := s.Apply(core.SettingsUpdate{MaxEntries: &maxEntries}, base); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Len() != 10 {
			t.Fatalf("expected exactly 10 entries after shrink, got %d", s.Len())
		}
		for i := 40; i < 50; i++ {
			if _, ok := s.Get(fmt.Sprintf("k%02d", i)); !ok {
				t.Errorf("k%02d is among the 10 most recent and must survive", i)
			}
		}
	})

	t.Run("RejectsOutOfRangeValues", func(t *testing.T) {
		s := New(testSettings())
		zero := 0
		if _, _, err := s.Apply(core.SettingsUpdate{TTLSeconds: &zero}, time.Now()); err == nil {
			t.Error("expected error for non-positive ttl_seconds")
		}
		if _, _, err := s.Apply(core.SettingsUpdate{MaxEntries: &zero}, time.Now()); err == nil {
			t.Error("expected error for max_entries below 1")
		}
		if s.Settings() != testSettings() {
			t.Error("settings must be unchanged after a rejected update")
		}
	})
}
