package storage

import (
	"context"
	"sort"
	"sync"

	"log-investigator/pkg/models"
)

// MemoryStore is an in-process Store used by tests and the default
// development configuration. Entries are kept ordered by timestamp so reads
// observe the same ordering contract as the persistent backends.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.CanonicalLogEntry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append stores one canonical entry
func (s *MemoryStore) Append(_ context.Context, entry models.CanonicalLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Insert keeping timestamp order; appends are usually near the tail
	idx := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Timestamp.After(entry.Timestamp)
	})
	s.entries = append(s.entries, models.CanonicalLogEntry{})
	copy(s.entries[idx+1:], s.entries[idx:])
	s.entries[idx] = entry
	return nil
}

// Query returns entries matching the filter, ordered by timestamp ascending
func (s *MemoryStore) Query(_ context.Context, filter models.QueryFilter) ([]models.CanonicalLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.CanonicalLogEntry
	for _, entry := range s.entries {
		if filter.Service != "" && entry.Service != filter.Service {
			continue
		}
		if filter.Level != "" && entry.Level != filter.Level {
			continue
		}
		if !filter.Since.IsZero() && entry.Timestamp.Before(filter.Since) {
			continue
		}
		result = append(result, entry)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

// CountTotal returns the number of stored entries
func (s *MemoryStore) CountTotal(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}
