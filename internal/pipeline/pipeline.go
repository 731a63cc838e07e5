package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"log-investigator/internal/config"
	"log-investigator/internal/interfaces"
	"log-investigator/internal/normalizer"
	"log-investigator/internal/validator"
	"log-investigator/pkg/models"
)

// IngestPipeline orchestrates normalize -> validate -> store for raw batches
type IngestPipeline struct {
	normalizer *normalizer.LogNormalizer
	validator  *validator.LogValidator
	store      interfaces.Store
	logger     *zap.Logger
}

// NewIngestPipeline creates a new ingestion pipeline
func NewIngestPipeline(cfg *config.Config, store interfaces.Store, logger *zap.Logger) *IngestPipeline {
	return &IngestPipeline{
		normalizer: normalizer.NewLogNormalizer(),
		validator:  validator.NewLogValidator(cfg.Validation),
		store:      store,
		logger:     logger,
	}
}

// Ingest processes each raw entry independently: normalization is total,
// validation failures reject the entry without storing it, and one entry's
// failure never aborts the rest of the batch. Errors are reported in input
// order. An empty batch is a valid no-op.
func (p *IngestPipeline) Ingest(ctx context.Context, rawEntries []models.RawLogEntry) models.IngestResult {
	result := models.IngestResult{Errors: []models.IngestError{}}

	for i, raw := range rawEntries {
		if raw == nil {
			result.Rejected++
			result.Errors = append(result.Errors, models.IngestError{
				Index: i,
				Error: "log entry must be a JSON object",
			})
			p.logger.Warn("ingest reject",
				zap.Int("index", i),
				zap.String("reason", "not an object"))
			continue
		}

		entry := p.normalizer.Normalize(raw)

		validation := p.validator.Validate(entry)
		if !validation.Valid {
			reason := strings.Join(validation.Errors, "; ")
			result.Rejected++
			result.Errors = append(result.Errors, models.IngestError{Index: i, Error: reason})
			p.logger.Warn("ingest reject",
				zap.Int("index", i),
				zap.String("service", entry.Service),
				zap.String("reason", reason))
			continue
		}

		if err := p.store.Append(ctx, entry); err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, models.IngestError{
				Index: i,
				Error: "storage failed: " + err.Error(),
			})
			p.logger.Error("ingest store append failed",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		result.Accepted++
	}

	if result.Rejected > 0 {
		p.logger.Info("ingest batch",
			zap.Int("accepted", result.Accepted),
			zap.Int("rejected", result.Rejected),
			zap.Int("total", result.Accepted+result.Rejected))
	}

	return result
}
