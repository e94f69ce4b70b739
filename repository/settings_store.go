package repository

import (
	"sync"

	"betbot/models"
)

// SettingsStore holds global key/value settings. Reads dominate, so it uses
// a read-write lock.
type SettingsStore struct {
	mu     sync.RWMutex
	values map[models.SettingKey]string
}

// NewSettingsStore creates a store seeded with defaults for missing keys
func NewSettingsStore(defaults map[models.SettingKey]string) *SettingsStore {
	s := &SettingsStore{values: make(map[models.SettingKey]string)}
	s.EnsureDefaults(defaults)
	return s
}

// EnsureDefaults writes every default whose key is absent
func (s *SettingsStore) EnsureDefaults(defaults map[models.SettingKey]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range defaults {
		if _, ok := s.values[key]; !ok {
			s.values[key] = value
		}
	}
}

func (s *SettingsStore) Get(key models.SettingKey) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

func (s *SettingsStore) Set(key models.SettingKey, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}
