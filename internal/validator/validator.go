package validator

import (
	"fmt"
	"strings"
	"time"

	"log-investigator/internal/config"
	"log-investigator/pkg/models"
)

// rule inspects a canonical entry and returns an error string, or "" when the
// entry passes. Rules are pure and independent of each other.
type rule func(entry models.CanonicalLogEntry) string

// LogValidator checks canonical entries against schema and domain rules
type LogValidator struct {
	rules []rule
	now   func() time.Time
}

// NewLogValidator creates a validator from the validation configuration
func NewLogValidator(cfg config.ValidationConfig) *LogValidator {
	v := &LogValidator{now: time.Now}
	v.rules = []rule{
		requireMessage,
		allowedLevel(cfg.AllowedLevels),
		requireService,
		v.timestampNotInFuture(cfg.MaxFutureSkew),
		maxMessageSize(cfg.MaxMessageBytes),
	}
	return v
}

// Validate runs every rule and collects all violations. It never mutates the
// entry and never short-circuits, so the caller sees the full error list in
// one pass.
func (v *LogValidator) Validate(entry models.CanonicalLogEntry) models.ValidationResult {
	var errors []string
	for _, r := range v.rules {
		if msg := r(entry); msg != "" {
			errors = append(errors, msg)
		}
	}
	return models.ValidationResult{Valid: len(errors) == 0, Errors: errors}
}

func requireMessage(entry models.CanonicalLogEntry) string {
	if strings.TrimSpace(entry.Message) == "" {
		return "message is required"
	}
	return ""
}

func allowedLevel(allowed []string) rule {
	set := make(map[string]bool, len(allowed))
	for _, l := range allowed {
		set[l] = true
	}
	return func(entry models.CanonicalLogEntry) string {
		if !set[entry.Level] {
			return fmt.Sprintf("invalid level: %s (allowed: %s)", entry.Level, strings.Join(allowed, ", "))
		}
		return ""
	}
}

func requireService(entry models.CanonicalLogEntry) string {
	if strings.TrimSpace(entry.Service) == "" {
		return "service is required"
	}
	return ""
}

// timestampNotInFuture guards against clock skew and parse errors silently
// passing through as far-future timestamps.
func (v *LogValidator) timestampNotInFuture(skew time.Duration) rule {
	return func(entry models.CanonicalLogEntry) string {
		limit := v.now().Add(skew)
		if entry.Timestamp.After(limit) {
			return fmt.Sprintf("timestamp %s is beyond the allowed future skew of %s",
				entry.Timestamp.Format(time.RFC3339), skew)
		}
		return ""
	}
}

func maxMessageSize(maxBytes int) rule {
	return func(entry models.CanonicalLogEntry) string {
		if len(entry.Message) > maxBytes {
			return fmt.Sprintf("message too large: %d bytes > %d", len(entry.Message), maxBytes)
		}
		return ""
	}
}
