package server

import (
	"sync"
	"time"

	"log-investigator/pkg/models"
)

const recentBatchLimit = 20

// statsTracker keeps cheap in-process counters for the stats endpoint: the
// running rejected total and a ring of the most recent ingest batches.
type statsTracker struct {
	mu            sync.Mutex
	totalRejected int
	recent        []models.BatchRecord
}

func newStatsTracker() *statsTracker {
	return &statsTracker{recent: []models.BatchRecord{}}
}

// Record notes the outcome of one ingest batch
func (t *statsTracker) Record(result models.IngestResult, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalRejected += result.Rejected
	t.recent = append(t.recent, models.BatchRecord{
		Accepted: result.Accepted,
		Rejected: result.Rejected,
		At:       at,
	})
	if len(t.recent) > recentBatchLimit {
		t.recent = t.recent[len(t.recent)-recentBatchLimit:]
	}
}

// Snapshot returns the rejected total and a copy of the recent batch ring,
// newest last
func (t *statsTracker) Snapshot() (int, []models.BatchRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	recent := make([]models.BatchRecord, len(t.recent))
	copy(recent, t.recent)
	return t.totalRejected, recent
}
