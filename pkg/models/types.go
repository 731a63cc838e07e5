package models

import (
	"time"
)

// Level represents a normalized log severity level
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelFatal Level = "FATAL"
)

// AllowedLevels is the canonical severity set accepted by the validator
var AllowedLevels = []string{
	string(LevelDebug),
	string(LevelInfo),
	string(LevelWarn),
	string(LevelError),
	string(LevelFatal),
}

// RawLogEntry represents a producer-controlled log payload of arbitrary shape
type RawLogEntry map[string]interface{}

// CanonicalLogEntry represents a log entry normalized to the canonical schema
type CanonicalLogEntry struct {
	Timestamp     time.Time              `json:"timestamp"`
	Level         string                 `json:"level"`
	Message       string                 `json:"message"`
	Service       string                 `json:"service"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`

	// TimestampInferred is set when the producer timestamp was absent or
	// unparseable and ingestion time was substituted.
	TimestampInferred bool `json:"timestamp_inferred,omitempty"`
}

// ValidationResult contains the outcome of validating a canonical entry
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// IngestError records the failure of a single entry within a batch
type IngestError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// IngestResult summarizes a batch ingestion
type IngestResult struct {
	Accepted int           `json:"accepted"`
	Rejected int           `json:"rejected"`
	Errors   []IngestError `json:"errors"`
}

// Group represents a cluster of entries sharing a fingerprint. Groups are
// recomputed on every query and never persisted.
type Group struct {
	GroupID       string    `json:"group_id"`
	Count         int       `json:"count"`
	Level         string    `json:"level"`
	Service       string    `json:"service"`
	SampleMessage string    `json:"sample_message"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
}

// GroupResult contains grouped entries ordered by descending count
type GroupResult struct {
	Groups      []Group `json:"groups"`
	TotalGroups int     `json:"total_groups"`
}

// SpikeRecord represents a group whose current-window volume exceeds its
// historical baseline
type SpikeRecord struct {
	GroupID      string    `json:"group_id"`
	Service      string    `json:"service"`
	Level        string    `json:"level"`
	WindowStart  time.Time `json:"window_start"`
	CurrentCount int       `json:"current_count"`
	BaselineAvg  float64   `json:"baseline_avg"`
	Ratio        float64   `json:"ratio"`
}

// QueryFilter narrows a storage query or a grouping/spike computation
type QueryFilter struct {
	Service string
	Level   string
	Since   time.Time
	Limit   int
}

// InsightsResult contains the summarizer output plus the aggregates it saw
type InsightsResult struct {
	Summary   string        `json:"summary"`
	TopGroups []Group       `json:"top_groups"`
	Spikes    []SpikeRecord `json:"spikes"`
}

// IngestRequest is the body of POST /ingest
type IngestRequest struct {
	Logs []RawLogEntry `json:"logs"`
}

// NormalizeRequest is the body of POST /normalize
type NormalizeRequest struct {
	Log RawLogEntry `json:"log"`
}

// ValidateRequest is the body of POST /validate
type ValidateRequest struct {
	Log RawLogEntry `json:"log"`
}

// StatsResult is the dashboard summary returned by GET /stats
type StatsResult struct {
	TotalLogs     int           `json:"total_logs"`
	TotalGroups   int           `json:"total_groups"`
	TotalRejected int           `json:"total_rejected"`
	SpikesCount   int           `json:"spikes_count"`
	RecentBatches []BatchRecord `json:"recent_ingests"`
}

// BatchRecord is one ingest batch outcome kept for the stats endpoint
type BatchRecord struct {
	Accepted int       `json:"accepted"`
	Rejected int       `json:"rejected"`
	At       time.Time `json:"at"`
}
