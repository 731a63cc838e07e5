package spikes

import (
	"fmt"
	"sort"
	"time"

	"log-investigator/internal/fingerprint"
	"log-investigator/pkg/models"
)

// Config controls one spike detection pass
type Config struct {
	WindowMinutes   int
	RatioThreshold  float64
	BaselineWindows int
	MinCount        int
	Epsilon         float64
	Service         string
	Level           string
}

// Validate checks the configuration before any computation begins
func (c Config) Validate() error {
	if c.WindowMinutes <= 0 {
		return fmt.Errorf("window_minutes must be positive, got %d", c.WindowMinutes)
	}
	if c.RatioThreshold < 1.0 {
		return fmt.Errorf("ratio_threshold must be at least 1.0, got %g", c.RatioThreshold)
	}
	if c.BaselineWindows <= 0 {
		return fmt.Errorf("baseline_windows must be positive, got %d", c.BaselineWindows)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", c.Epsilon)
	}
	return nil
}

// groupCounts tracks one fingerprint's presence in the two windows
type groupCounts struct {
	service  string
	level    string
	current  int
	baseline int
}

// SpikeDetector compares each group's current-window volume against its
// rolling baseline
type SpikeDetector struct {
	fingerprinter *fingerprint.Fingerprinter
	now           func() time.Time
}

// NewSpikeDetector creates a new spike detector
func NewSpikeDetector() *SpikeDetector {
	return &SpikeDetector{
		fingerprinter: fingerprint.NewFingerprinter(),
		now:           time.Now,
	}
}

// NewSpikeDetectorAt creates a detector with a fixed reference clock, for tests
func NewSpikeDetectorAt(now func() time.Time) *SpikeDetector {
	return &SpikeDetector{
		fingerprinter: fingerprint.NewFingerprinter(),
		now:           now,
	}
}

// Detect buckets the entries into a current window (the most recent
// WindowMinutes) and BaselineWindows equal prior windows, then flags groups
// whose current count exceeds RatioThreshold times the baseline average.
// Groups never seen in the baseline are cold-start candidates: their baseline
// is floored at Epsilon so the ratio stays finite. Results are ordered by
// descending ratio.
func (d *SpikeDetector) Detect(entries []models.CanonicalLogEntry, cfg Config) ([]models.SpikeRecord, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := d.now()
	window := time.Duration(cfg.WindowMinutes) * time.Minute
	currentStart := now.Add(-window)
	baselineStart := currentStart.Add(-time.Duration(cfg.BaselineWindows) * window)

	counts := make(map[string]*groupCounts)
	for _, entry := range entries {
		if cfg.Service != "" && entry.Service != cfg.Service {
			continue
		}
		if cfg.Level != "" && entry.Level != cfg.Level {
			continue
		}
		ts := entry.Timestamp
		if ts.Before(baselineStart) || ts.After(now) {
			continue
		}

		fp := d.fingerprinter.Fingerprint(entry)
		gc, exists := counts[fp]
		if !exists {
			gc = &groupCounts{service: entry.Service, level: entry.Level}
			counts[fp] = gc
		}
		if ts.Before(currentStart) {
			gc.baseline++
		} else {
			gc.current++
		}
	}

	var records []models.SpikeRecord
	for fp, gc := range counts {
		if gc.current < cfg.MinCount {
			continue
		}

		baselineAvg := float64(gc.baseline) / float64(cfg.BaselineWindows)
		floored := baselineAvg
		if floored < cfg.Epsilon {
			floored = cfg.Epsilon
		}
		ratio := float64(gc.current) / floored

		if ratio < cfg.RatioThreshold {
			continue
		}

		records = append(records, models.SpikeRecord{
			GroupID:      fp,
			Service:      gc.service,
			Level:        gc.level,
			WindowStart:  currentStart,
			CurrentCount: gc.current,
			BaselineAvg:  baselineAvg,
			Ratio:        ratio,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Ratio != records[j].Ratio {
			return records[i].Ratio > records[j].Ratio
		}
		return records[i].GroupID < records[j].GroupID
	})

	return records, nil
}
