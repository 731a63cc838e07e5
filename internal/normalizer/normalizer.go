package normalizer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"log-investigator/pkg/models"
)

// Field alias priority lists. The first key present in the raw entry wins;
// lookup is case-insensitive.
var (
	levelAliases       = []string{"level", "lvl", "severity", "log_level", "loglevel", "severity_level", "severitylevel"}
	messageAliases     = []string{"message", "msg", "text", "log", "description"}
	serviceAliases     = []string{"service", "service_name", "servicename", "app", "application", "source", "logger"}
	timestampAliases   = []string{"timestamp", "time", "ts", "@timestamp", "datetime", "date"}
	correlationAliases = []string{"correlation_id", "correlationid", "request_id", "requestid", "trace_id", "traceid"}
)

// levelSynonyms maps common producer spellings to the canonical severity set.
var levelSynonyms = map[string]string{
	"WARNING":  "WARN",
	"ERR":      "ERROR",
	"CRITICAL": "FATAL",
	"PANIC":    "FATAL",
	"TRACE":    "DEBUG",
}

// timestampLayouts are tried in order when the raw timestamp is a string.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LogNormalizer maps heterogeneous raw log shapes into the canonical schema
type LogNormalizer struct {
	now func() time.Time
}

// NewLogNormalizer creates a new log normalizer
func NewLogNormalizer() *LogNormalizer {
	return &LogNormalizer{now: time.Now}
}

// NewLogNormalizerAt creates a normalizer with a fixed clock, for tests
func NewLogNormalizerAt(now func() time.Time) *LogNormalizer {
	return &LogNormalizer{now: now}
}

// Normalize converts a raw entry to the canonical schema. It is a total
// function: unusable shapes still yield a canonical entry with defaulted
// fields, and rejection is the validator's job.
func (n *LogNormalizer) Normalize(raw models.RawLogEntry) models.CanonicalLogEntry {
	ts, inferred := n.coerceTimestamp(findValue(raw, timestampAliases))
	entry := models.CanonicalLogEntry{
		Timestamp:         ts,
		TimestampInferred: inferred,
		Level:             coerceLevel(findValue(raw, levelAliases)),
		Message:           coerceString(findValue(raw, messageAliases)),
		Service:           coerceString(findValue(raw, serviceAliases)),
		CorrelationID:     coerceString(findValue(raw, correlationAliases)),
	}

	if entry.Service == "" {
		entry.Service = "unknown"
	}

	if extra := collectMetadata(raw); len(extra) > 0 {
		entry.Metadata = extra
	}

	return entry
}

// findValue returns the first value found for any of the given keys,
// matching raw keys case-insensitively.
func findValue(raw models.RawLogEntry, keys []string) interface{} {
	if len(raw) == 0 {
		return nil
	}
	lowered := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		lowered[strings.ToLower(k)] = v
	}
	for _, key := range keys {
		if v, ok := lowered[key]; ok {
			return v
		}
	}
	return nil
}

// collectMetadata gathers raw fields that map to no canonical field
func collectMetadata(raw models.RawLogEntry) map[string]interface{} {
	known := make(map[string]bool)
	for _, aliases := range [][]string{levelAliases, messageAliases, serviceAliases, timestampAliases, correlationAliases} {
		for _, a := range aliases {
			known[a] = true
		}
	}

	var extra map[string]interface{}
	for k, v := range raw {
		if known[strings.ToLower(k)] || v == nil {
			continue
		}
		if extra == nil {
			extra = make(map[string]interface{})
		}
		extra[k] = v
	}
	return extra
}

// coerceTimestamp parses epoch numbers (seconds or milliseconds) and common
// string layouts. On failure it substitutes the current time and reports the
// substitution.
func (n *LogNormalizer) coerceTimestamp(v interface{}) (time.Time, bool) {
	switch ts := v.(type) {
	case nil:
		return n.now().UTC(), true
	case time.Time:
		return ts.UTC(), false
	case float64:
		// JSON numbers decode as float64
		return epochToTime(ts), false
	case int:
		return epochToTime(float64(ts)), false
	case int64:
		return epochToTime(float64(ts)), false
	case string:
		s := strings.TrimSpace(ts)
		if s == "" {
			return n.now().UTC(), true
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), false
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToTime(f), false
		}
		return n.now().UTC(), true
	default:
		return n.now().UTC(), true
	}
}

// epochToTime converts an epoch value to time, treating values above 1e12 as
// milliseconds.
func epochToTime(epoch float64) time.Time {
	if epoch > 1e12 {
		epoch = epoch / 1000.0
	}
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

// coerceLevel uppercases the raw level and maps synonyms into the canonical
// set. Absent levels default to INFO.
func coerceLevel(v interface{}) string {
	s := strings.ToUpper(coerceString(v))
	if s == "" {
		return string(models.LevelInfo)
	}
	if canonical, ok := levelSynonyms[s]; ok {
		return canonical
	}
	return s
}

// coerceString renders a raw value as a trimmed string
func coerceString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		// Avoid trailing zeros for whole numbers
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}
