package normalizer

import (
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"log-investigator/pkg/models"
)

func fixedClock() time.Time {
	return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}

func TestNormalizeStandardFields(t *testing.T) {
	n := NewLogNormalizer()

	entry := n.Normalize(models.RawLogEntry{
		"timestamp": "2026-08-30T10:15:00Z",
		"level":     "error",
		"message":   "disk full on /var/log/app123.log",
		"service":   "api",
	})

	if entry.Level != "ERROR" {
		t.Errorf("Expected level ERROR, got %s", entry.Level)
	}
	if entry.Message != "disk full on /var/log/app123.log" {
		t.Errorf("Unexpected message: %s", entry.Message)
	}
	if entry.Service != "api" {
		t.Errorf("Expected service 'api', got %s", entry.Service)
	}
	if entry.TimestampInferred {
		t.Error("Timestamp should not be flagged as inferred")
	}
	want := time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)
	if !entry.Timestamp.Equal(want) {
		t.Errorf("Expected timestamp %v, got %v", want, entry.Timestamp)
	}
}

func TestNormalizeAlternateFieldNames(t *testing.T) {
	n := NewLogNormalizer()

	tests := []struct {
		name string
		raw  models.RawLogEntry
	}{
		{
			name: "short aliases",
			raw:  models.RawLogEntry{"lvl": "error", "msg": "disk full", "service_name": "api"},
		},
		{
			name: "severity and text",
			raw:  models.RawLogEntry{"severity": "ERROR", "text": "disk full", "app": "api"},
		},
		{
			name: "mixed case keys",
			raw:  models.RawLogEntry{"Level": "Error", "Message": "disk full", "Service": "api"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := n.Normalize(tt.raw)
			if entry.Level != "ERROR" {
				t.Errorf("Expected level ERROR, got %s", entry.Level)
			}
			if entry.Message != "disk full" {
				t.Errorf("Expected message 'disk full', got %q", entry.Message)
			}
			if entry.Service != "api" {
				t.Errorf("Expected service 'api', got %s", entry.Service)
			}
		})
	}
}

func TestNormalizeLevelSynonyms(t *testing.T) {
	n := NewLogNormalizer()

	tests := []struct {
		raw      string
		expected string
	}{
		{"warning", "WARN"},
		{"WARNING", "WARN"},
		{"err", "ERROR"},
		{"critical", "FATAL"},
		{"panic", "FATAL"},
		{"trace", "DEBUG"},
		{"info", "INFO"},
		{"INVALID", "INVALID"}, // passed through; validator rejects it
	}

	for _, tt := range tests {
		entry := n.Normalize(models.RawLogEntry{"level": tt.raw, "message": "x"})
		if entry.Level != tt.expected {
			t.Errorf("coerceLevel(%q) = %q, want %q", tt.raw, entry.Level, tt.expected)
		}
	}
}

func TestNormalizeMissingFieldsAreDefaulted(t *testing.T) {
	n := NewLogNormalizerAt(fixedClock)

	entry := n.Normalize(models.RawLogEntry{})

	if entry.Level != "INFO" {
		t.Errorf("Expected default level INFO, got %s", entry.Level)
	}
	if entry.Service != "unknown" {
		t.Errorf("Expected default service 'unknown', got %s", entry.Service)
	}
	if !entry.TimestampInferred {
		t.Error("Expected timestamp to be flagged as inferred")
	}
	if !entry.Timestamp.Equal(fixedClock()) {
		t.Errorf("Expected ingestion-time timestamp, got %v", entry.Timestamp)
	}
	if entry.Message != "" {
		t.Errorf("Expected empty message, got %q", entry.Message)
	}
}

func TestNormalizeEpochTimestamps(t *testing.T) {
	n := NewLogNormalizer()
	want := time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)

	tests := []struct {
		name string
		ts   interface{}
	}{
		{"epoch seconds", float64(want.Unix())},
		{"epoch milliseconds", float64(want.UnixMilli())},
		{"epoch string", strconv.FormatInt(want.Unix(), 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := n.Normalize(models.RawLogEntry{"ts": tt.ts, "message": "x"})
			if entry.TimestampInferred {
				t.Error("Epoch timestamp should not be flagged as inferred")
			}
			if !entry.Timestamp.Equal(want) {
				t.Errorf("Expected %v, got %v", want, entry.Timestamp)
			}
		})
	}
}

func TestNormalizeUnparseableTimestampSubstituted(t *testing.T) {
	n := NewLogNormalizerAt(fixedClock)

	entry := n.Normalize(models.RawLogEntry{"timestamp": "next tuesday", "message": "x"})

	if !entry.TimestampInferred {
		t.Error("Expected unparseable timestamp to be flagged as inferred")
	}
	if !entry.Timestamp.Equal(fixedClock()) {
		t.Errorf("Expected ingestion time, got %v", entry.Timestamp)
	}
}

func TestNormalizeMetadataKeepsUnknownFields(t *testing.T) {
	n := NewLogNormalizer()

	entry := n.Normalize(models.RawLogEntry{
		"message": "x",
		"level":   "info",
		"host":    "node-3",
		"attempt": float64(2),
	})

	if len(entry.Metadata) != 2 {
		t.Fatalf("Expected 2 metadata fields, got %v", entry.Metadata)
	}
	if entry.Metadata["host"] != "node-3" {
		t.Errorf("Expected host metadata preserved, got %v", entry.Metadata["host"])
	}
}

// Property: for any subset of recognized alias names carrying the field
// values, normalization produces a canonical entry with no missing required
// field.
func TestNormalizeTotality(t *testing.T) {
	properties := gopter.NewProperties(nil)

	n := NewLogNormalizer()

	properties.Property("normalization always fills every required field", prop.ForAll(
		func(levelIdx, msgIdx, svcIdx int, includeLevel, includeService bool) bool {
			raw := models.RawLogEntry{
				messageAliases[msgIdx%len(messageAliases)]: "request failed",
			}
			if includeLevel {
				raw[levelAliases[levelIdx%len(levelAliases)]] = "error"
			}
			if includeService {
				raw[serviceAliases[svcIdx%len(serviceAliases)]] = "api"
			}

			entry := n.Normalize(raw)
			return entry.Level != "" && entry.Service != "" && !entry.Timestamp.IsZero()
		},
		gen.IntRange(0, 10),
		gen.IntRange(0, 10),
		gen.IntRange(0, 10),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
