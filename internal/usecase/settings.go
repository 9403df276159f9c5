package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/veriscan/backend/internal/domain"
)

// AdapterSettings is the runtime-tunable adapter configuration. The
// aggregator and the search façade take an immutable snapshot per
// call; admin updates go through the SettingsStore, never through
// shared globals.
type AdapterSettings struct {
	Enabled    map[domain.Source]bool    `json:"enabled"`
	Confidence map[domain.Source]float64 `json:"confidence"`
	Timeout    time.Duration             `json:"timeout"`
}

// SettingsUpdate is a partial settings change from the admin API.
// Only the fields present are applied.
type SettingsUpdate struct {
	Enabled       map[string]bool    `json:"enabled,omitempty"`
	Confidence    map[string]float64 `json:"confidence,omitempty"`
	TimeoutMillis *int64             `json:"timeoutMillis,omitempty"`
}

// SettingsStore holds the current adapter settings behind a lock
type SettingsStore struct {
	mu      sync.RWMutex
	current AdapterSettings
}

// NewSettingsStore creates a store seeded with the given settings
func NewSettingsStore(initial AdapterSettings) *SettingsStore {
	if initial.Enabled == nil {
		initial.Enabled = make(map[domain.Source]bool)
	}
	if initial.Confidence == nil {
		initial.Confidence = make(map[domain.Source]float64)
	}
	if initial.Timeout <= 0 {
		initial.Timeout = 5 * time.Second
	}
	return &SettingsStore{current: initial}
}

// Snapshot returns a deep copy of the current settings
func (s *SettingsStore) Snapshot() AdapterSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := AdapterSettings{
		Enabled:    make(map[domain.Source]bool, len(s.current.Enabled)),
		Confidence: make(map[domain.Source]float64, len(s.current.Confidence)),
		Timeout:    s.current.Timeout,
	}
	for k, v := range s.current.Enabled {
		snap.Enabled[k] = v
	}
	for k, v := range s.current.Confidence {
		snap.Confidence[k] = v
	}
	return snap
}

// Update applies a partial update and returns the resulting settings
func (s *SettingsStore) Update(update SettingsUpdate) (AdapterSettings, error) {
	for source, weight := range update.Confidence {
		if weight < 0 || weight > 1 {
			return AdapterSettings{}, fmt.Errorf("%w: confidence for %s must be in [0,1]", domain.ErrInvalidRequest, source)
		}
	}
	if update.TimeoutMillis != nil && *update.TimeoutMillis <= 0 {
		return AdapterSettings{}, fmt.Errorf("%w: timeout must be positive", domain.ErrInvalidRequest)
	}

	s.mu.Lock()
	for source, enabled := range update.Enabled {
		s.current.Enabled[domain.Source(source)] = enabled
	}
	for source, weight := range update.Confidence {
		s.current.Confidence[domain.Source(source)] = weight
	}
	if update.TimeoutMillis != nil {
		s.current.Timeout = time.Duration(*update.TimeoutMillis) * time.Millisecond
	}
	s.mu.Unlock()

	return s.Snapshot(), nil
}

// adapterEnabled treats adapters missing from the map as enabled
func (s AdapterSettings) adapterEnabled(source domain.Source) bool {
	enabled, ok := s.Enabled[source]
	return !ok || enabled
}
