package prefs

import "sync"

// MemoryRepository is a volatile Repository for tests and dry runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	prefs any
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository starts with an empty preferences object.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{prefs: map[string]any{}}
}

// GetPreferences returns the current value.
func (m *MemoryRepository) GetPreferences() (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs, nil
}

// SetPreferences replaces the current value.
func (m *MemoryRepository) SetPreferences(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = v
	return nil
}
