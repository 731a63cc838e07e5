package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"log-investigator/pkg/models"
)

// Scenarios supported by Batch
const (
	ScenarioNormal     = "normal"
	ScenarioErrorSpike = "error_spike"
	ScenarioMalformed  = "malformed"
	ScenarioAltFields  = "alt_fields"
	ScenarioMixed      = "mixed"
)

var services = []string{"auth", "api", "billing", "worker", "gateway"}

var infoMessages = []string{
	"request completed in %d ms",
	"user %d logged in",
	"cache refresh finished",
	"processed batch of %d items",
}

var errorMessages = []string{
	"database connection timeout after %d ms",
	"failed to process request %d",
	"upstream returned 503 for /api/v1/orders/%d",
}

// Generator produces synthetic raw log batches for the configured scenarios
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// New creates a generator seeded from the current time
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded creates a deterministic generator for tests
func NewSeeded(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// Batch produces count raw entries for the named scenario
func (g *Generator) Batch(scenario string, count int) ([]models.RawLogEntry, error) {
	if count <= 0 {
		count = 20
	}

	var build func(i int) models.RawLogEntry
	switch scenario {
	case ScenarioNormal:
		build = g.normalEntry
	case ScenarioErrorSpike:
		build = g.spikeEntry
	case ScenarioMalformed:
		build = g.malformedEntry
	case ScenarioAltFields:
		build = g.altFieldsEntry
	case ScenarioMixed:
		build = g.mixedEntry
	default:
		return nil, fmt.Errorf("unknown scenario: %s", scenario)
	}

	entries := make([]models.RawLogEntry, 0, count)
	for i := 0; i < count; i++ {
		entries = append(entries, build(i))
	}
	return entries, nil
}

func (g *Generator) timestamp(i int) string {
	// Spread entries slightly into the past so they land inside the current
	// detection window.
	return g.now().UTC().Add(-time.Duration(i) * time.Second).Format(time.RFC3339)
}

func (g *Generator) normalEntry(i int) models.RawLogEntry {
	level := "INFO"
	msg := infoMessages[g.rng.Intn(len(infoMessages))]
	if g.rng.Intn(10) == 0 {
		level = "WARN"
		msg = "queue depth %d above threshold"
	}
	return models.RawLogEntry{
		"timestamp":      g.timestamp(i),
		"level":          level,
		"message":        fmt.Sprintf(msg, g.rng.Intn(10000)),
		"service":        services[g.rng.Intn(len(services))],
		"correlation_id": uuid.New().String(),
	}
}

func (g *Generator) spikeEntry(i int) models.RawLogEntry {
	// Concentrate errors on one service with one message shape so the burst
	// collapses into a single group.
	return models.RawLogEntry{
		"timestamp":      g.timestamp(i),
		"level":          "ERROR",
		"message":        fmt.Sprintf(errorMessages[0], 5000+g.rng.Intn(2000)),
		"service":        "billing",
		"correlation_id": uuid.New().String(),
	}
}

func (g *Generator) malformedEntry(i int) models.RawLogEntry {
	switch i % 4 {
	case 0:
		// missing message
		return models.RawLogEntry{
			"timestamp": g.timestamp(i),
			"level":     "INFO",
			"service":   services[g.rng.Intn(len(services))],
		}
	case 1:
		// unknown level
		return models.RawLogEntry{
			"timestamp": g.timestamp(i),
			"level":     "SUPERBAD",
			"message":   "something happened",
			"service":   "api",
		}
	case 2:
		// garbage timestamp, accepted with an inferred one
		return models.RawLogEntry{
			"timestamp": "not-a-date",
			"level":     "INFO",
			"message":   "clock skew test",
			"service":   "worker",
		}
	default:
		// nothing but a message
		return models.RawLogEntry{"message": "orphan line with no context"}
	}
}

func (g *Generator) altFieldsEntry(i int) models.RawLogEntry {
	return models.RawLogEntry{
		"ts":         g.timestamp(i),
		"severity":   []string{"warning", "err", "info"}[g.rng.Intn(3)],
		"msg":        fmt.Sprintf("handled request %d", g.rng.Intn(100000)),
		"app":        services[g.rng.Intn(len(services))],
		"request_id": uuid.New().String(),
	}
}

func (g *Generator) mixedEntry(i int) models.RawLogEntry {
	switch g.rng.Intn(4) {
	case 0:
		return g.spikeEntry(i)
	case 1:
		return g.malformedEntry(i)
	case 2:
		return g.altFieldsEntry(i)
	default:
		return g.normalEntry(i)
	}
}
