package userstore

import (
	"context"
	"fmt"
	"sync"

	"mealmind/pkg/mealtypes"
)

// MemoryStore is an in-memory mealtypes.UserStore. It backs tests and runs
// where no database path is configured; records vanish on process exit.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*mealtypes.UserRecord
	byName map[string]string
	nextID int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*mealtypes.UserRecord),
		byName: make(map[string]string),
	}
}

// Create stores a new record and returns its id.
func (m *MemoryStore) Create(_ context.Context, profile mealtypes.ProfileDraft) (string, error) {
	if err := validateDraft(profile); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := nameKey(profile.Name)
	if _, exists := m.byName[key]; exists {
		return "", fmt.Errorf("user %q already exists", profile.Name)
	}

	m.nextID++
	id := fmt.Sprintf("user-%04d", m.nextID)

	conditions := make([]mealtypes.MedicalCondition, len(profile.Conditions))
	copy(conditions, profile.Conditions)

	m.byID[id] = &mealtypes.UserRecord{
		ID:               id,
		Name:             profile.Name,
		Age:              profile.Age,
		Height:           profile.Height,
		Weight:           profile.Weight,
		Conditions:       conditions,
		PrimaryCuisine:   profile.PrimaryCuisine,
		SecondaryCuisine: profile.SecondaryCuisine,
	}
	m.byName[key] = id
	return id, nil
}

// FindByName returns the record whose name matches ignoring case.
func (m *MemoryStore) FindByName(_ context.Context, name string) (*mealtypes.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byName[nameKey(name)]
	if !ok {
		return nil, mealtypes.ErrUserNotFound
	}
	return copyRecord(m.byID[id]), nil
}

// FindByID returns the record with the given id.
func (m *MemoryStore) FindByID(_ context.Context, id string) (*mealtypes.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byID[id]
	if !ok {
		return nil, mealtypes.ErrUserNotFound
	}
	return copyRecord(rec), nil
}

func copyRecord(rec *mealtypes.UserRecord) *mealtypes.UserRecord {
	out := *rec
	out.Conditions = make([]mealtypes.MedicalCondition, len(rec.Conditions))
	copy(out.Conditions, rec.Conditions)
	return &out
}
