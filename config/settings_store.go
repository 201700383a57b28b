package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"nakdan/internal/core"
)

// SettingsStore persists the runtime cache settings to a YAML file so
// they survive process restarts.
type SettingsStore struct {
	path string
}

// NewSettingsStore creates a store writing to path. An empty path
// disables persistence: Load reports no settings and Save is a no-op.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// Load reads persisted settings. ok is false when no file exists yet.
func (s *SettingsStore) Load() (settings core.Settings, ok bool, err error) {
	if s.path == "" {
		return core.Settings{}, false, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Settings{}, false, nil
		}
		return core.Settings{}, false, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return core.Settings{}, false, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if settings.TTLSeconds <= 0 || settings.MaxEntries < 1 {
		return core.Settings{}, false, fmt.Errorf("settings file %s holds out-of-range values", s.path)
	}
	return settings, true, nil
}

// Save writes the settings atomically via temp file + rename.
func (s *SettingsStore) Save(settings core.Settings) error {
	if s.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename settings file: %w", err)
	}
	return nil
}
