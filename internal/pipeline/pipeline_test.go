package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"log-investigator/internal/config"
	"log-investigator/internal/grouper"
	"log-investigator/internal/storage"
	"log-investigator/pkg/models"
)

func newTestPipeline(t *testing.T) (*IngestPipeline, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	return NewIngestPipeline(config.Default(), store, zap.NewNop()), store
}

func TestIngestEmptyBatch(t *testing.T) {
	p, _ := newTestPipeline(t)

	result := p.Ingest(context.Background(), []models.RawLogEntry{})

	assert.Equal(t, 0, result.Accepted)
	assert.Equal(t, 0, result.Rejected)
	assert.Empty(t, result.Errors)
}

func TestIngestValidBatch(t *testing.T) {
	p, store := newTestPipeline(t)

	raws := []models.RawLogEntry{
		{"timestamp": "2026-08-30T10:00:00Z", "level": "info", "message": "started", "service": "api"},
		{"ts": "2026-08-30T10:00:01Z", "lvl": "warning", "msg": "slow response", "app": "api"},
	}

	result := p.Ingest(context.Background(), raws)

	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 0, result.Rejected)
	assert.Empty(t, result.Errors)

	stored, err := store.Query(context.Background(), models.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "WARN", stored[1].Level)
}

func TestIngestPerEntryIsolation(t *testing.T) {
	p, store := newTestPipeline(t)

	raws := []models.RawLogEntry{
		{"timestamp": "2026-08-30T10:00:00Z", "level": "info", "message": "ok one", "service": "api"},
		nil,
		{"timestamp": "2026-08-30T10:00:01Z", "level": "bogus", "message": "bad level", "service": "api"},
		{"timestamp": "2026-08-30T10:00:02Z", "level": "error", "message": "ok two", "service": "api"},
	}

	result := p.Ingest(context.Background(), raws)

	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 2, result.Rejected)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, "log entry must be a JSON object", result.Errors[0].Error)
	assert.Equal(t, 2, result.Errors[1].Index)
	assert.Contains(t, result.Errors[1].Error, "invalid level")

	stored, err := store.Query(context.Background(), models.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestIngestErrorsInInputOrder(t *testing.T) {
	p, _ := newTestPipeline(t)

	raws := []models.RawLogEntry{
		{"timestamp": "2026-08-30T10:00:00Z", "level": "info", "service": "api"},
		{"timestamp": "2026-08-30T10:00:01Z", "level": "info", "message": "ok", "service": "api"},
		nil,
		{"timestamp": "2026-08-30T10:00:02Z", "level": "wat", "message": "x", "service": "api"},
	}

	result := p.Ingest(context.Background(), raws)

	require.Len(t, result.Errors, 3)
	assert.Equal(t, []int{0, 2, 3}, []int{
		result.Errors[0].Index,
		result.Errors[1].Index,
		result.Errors[2].Index,
	})
}

type failingStore struct {
	failAfter int
	appended  int
}

func (f *failingStore) Append(ctx context.Context, entry models.CanonicalLogEntry) error {
	if f.appended >= f.failAfter {
		return errors.New("connection refused")
	}
	f.appended++
	return nil
}

func (f *failingStore) Query(ctx context.Context, filter models.QueryFilter) ([]models.CanonicalLogEntry, error) {
	return nil, nil
}

func (f *failingStore) CountTotal(ctx context.Context) (int, error) {
	return f.appended, nil
}

func TestIngestStorageFailureDoesNotAbortBatch(t *testing.T) {
	store := &failingStore{failAfter: 1}
	p := NewIngestPipeline(config.Default(), store, zap.NewNop())

	raws := []models.RawLogEntry{
		{"timestamp": "2026-08-30T10:00:00Z", "level": "info", "message": "first", "service": "api"},
		{"timestamp": "2026-08-30T10:00:01Z", "level": "info", "message": "second", "service": "api"},
	}

	result := p.Ingest(context.Background(), raws)

	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 1, result.Rejected)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Contains(t, result.Errors[0].Error, "storage failed")
}

func TestIngestThenGroupEndToEnd(t *testing.T) {
	p, store := newTestPipeline(t)

	// Same error shape expressed through two field vocabularies and two
	// request IDs should land in one group.
	raws := []models.RawLogEntry{
		{"timestamp": "2026-08-30T10:00:00Z", "level": "error", "message": "request 12345 failed", "service": "api"},
		{"ts": "2026-08-30T10:00:05Z", "severity": "error", "msg": "request 99999 failed", "app": "api"},
	}

	result := p.Ingest(context.Background(), raws)
	require.Equal(t, 2, result.Accepted)

	stored, err := store.Query(context.Background(), models.QueryFilter{})
	require.NoError(t, err)

	agg := grouper.NewGroupAggregator()
	grouped := agg.Group(stored, models.QueryFilter{})

	require.Len(t, grouped.Groups, 1)
	assert.Equal(t, 2, grouped.Groups[0].Count)
	assert.Equal(t, "request 12345 failed", grouped.Groups[0].SampleMessage)
	assert.Equal(t, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), grouped.Groups[0].FirstSeen)
}
