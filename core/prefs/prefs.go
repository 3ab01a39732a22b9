// Package prefs persists small per-profile state: export templates, the
// last used export settings, saved filter presets and confirmation flags.
//
// Every value lives in a ports.KVStore under the profile's namespace, keyed
// "{feature}-{module}".
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/artpar/erpkit/ports"
	"github.com/rs/zerolog"
)

// Key builders.
func templatesKey(module string) string   { return "export-templates-" + module }
func preferencesKey(module string) string { return "export-preferences-" + module }
func presetsKey(module string) string     { return "filter-presets-" + module }
func skipConfirmKey(module string) string { return module + "-view-detail-skip-confirm" }

// Store reads and writes preferences. Safe for concurrent use when the
// underlying KVStore is.
type Store struct {
	kv     ports.KVStore
	clock  ports.Clock
	ids    ports.IDGenerator
	logger zerolog.Logger

	// writeMu serializes load-modify-save of list values.
	writeMu sync.Mutex
}

// New creates a Store.
func New(kv ports.KVStore, clock ports.Clock, ids ports.IDGenerator, logger zerolog.Logger) *Store {
	return &Store{
		kv:     kv,
		clock:  clock,
		ids:    ids,
		logger: logger.With().Str("component", "prefs").Logger(),
	}
}

// load decodes the value at key into v. A missing or unreadable value
// leaves v untouched and reports false; unreadable values are logged and
// treated as absent.
func (s *Store) load(ctx context.Context, profile, key string, v any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, profile, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.logger.Warn().Err(err).Str("profile", profile).Str("key", key).Msg("discarding unreadable preference")
		return false, nil
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, profile, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, profile, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
