package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"log-investigator/pkg/models"
)

func memEntry(ts time.Time, service, level, message string) models.CanonicalLogEntry {
	return models.CanonicalLogEntry{Timestamp: ts, Service: service, Level: level, Message: message}
}

func TestMemoryStoreOrdersByTimestamp(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	// Append out of order
	require.NoError(t, s.Append(ctx, memEntry(base.Add(2*time.Minute), "api", "ERROR", "third")))
	require.NoError(t, s.Append(ctx, memEntry(base, "api", "ERROR", "first")))
	require.NoError(t, s.Append(ctx, memEntry(base.Add(time.Minute), "api", "ERROR", "second")))

	entries, err := s.Query(ctx, models.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
	assert.Equal(t, "third", entries[2].Message)
}

func TestMemoryStoreFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, memEntry(base, "api", "ERROR", "a")))
	require.NoError(t, s.Append(ctx, memEntry(base.Add(time.Minute), "worker", "WARN", "b")))
	require.NoError(t, s.Append(ctx, memEntry(base.Add(2*time.Minute), "api", "WARN", "c")))

	byService, err := s.Query(ctx, models.QueryFilter{Service: "api"})
	require.NoError(t, err)
	assert.Len(t, byService, 2)

	byLevel, err := s.Query(ctx, models.QueryFilter{Level: "WARN"})
	require.NoError(t, err)
	assert.Len(t, byLevel, 2)

	since, err := s.Query(ctx, models.QueryFilter{Since: base.Add(time.Minute)})
	require.NoError(t, err)
	assert.Len(t, since, 2)

	limited, err := s.Query(ctx, models.QueryFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
	assert.Equal(t, "a", limited[0].Message)
}

func TestMemoryStoreCountTotal(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	count, err := s.CountTotal(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	for i := 0; i < 7; i++ {
		require.NoError(t, s.Append(ctx, memEntry(time.Now(), "api", "INFO", "x")))
	}

	count, err = s.CountTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Append(ctx, memEntry(time.Now(), "api", "INFO", "concurrent"))
			}
		}()
	}
	wg.Wait()

	count, err := s.CountTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 500, count)
}
