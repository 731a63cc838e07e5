package interfaces

import (
	"context"
	"errors"

	"log-investigator/pkg/models"
)

// ErrStoreUnavailable is returned by store implementations when the backing
// service cannot be reached. Query callers treat it as fatal to the request.
var ErrStoreUnavailable = errors.New("log store unavailable")

// Store is the append-only log store collaborator. Query returns entries
// ordered by timestamp ascending; a read sees every previously-completed
// append.
type Store interface {
	Append(ctx context.Context, entry models.CanonicalLogEntry) error
	Query(ctx context.Context, filter models.QueryFilter) ([]models.CanonicalLogEntry, error)
	CountTotal(ctx context.Context) (int, error)
}

// Summarizer turns grouped errors and spikes into a short prose summary.
// Implementations may call an external LLM; failure is never fatal to the
// caller, which falls back to a templated summary.
type Summarizer interface {
	Summarize(ctx context.Context, groups []models.Group, spikes []models.SpikeRecord) (string, error)
	Name() string
}
