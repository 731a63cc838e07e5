package insights

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"log-investigator/internal/config"
	"log-investigator/internal/grouper"
	"log-investigator/internal/interfaces"
	"log-investigator/internal/spikes"
	"log-investigator/pkg/models"
)

// Service composes grouping, spike detection and a summarizer into the
// insights operation
type Service struct {
	store      interfaces.Store
	grouper    *grouper.GroupAggregator
	detector   *spikes.SpikeDetector
	summarizer interfaces.Summarizer
	fallback   *StaticSummarizer
	cfg        *config.Config
	logger     *zap.Logger
}

// NewService creates an insights service with the provider selected from the
// configured credentials
func NewService(cfg *config.Config, store interfaces.Store, logger *zap.Logger) *Service {
	summarizer := NewSummarizer(cfg.Insights)
	logger.Info("insights summarizer selected", zap.String("provider", summarizer.Name()))

	return &Service{
		store:      store,
		grouper:    grouper.NewGroupAggregator(),
		detector:   spikes.NewSpikeDetector(),
		summarizer: summarizer,
		fallback:   &StaticSummarizer{},
		cfg:        cfg,
		logger:     logger,
	}
}

// Generate queries the store, computes the top groups and current spikes, and
// asks the summarizer for a prose summary. A provider failure degrades to the
// static summary instead of failing the operation; only a store failure is an
// error.
func (s *Service) Generate(ctx context.Context) (models.InsightsResult, error) {
	entries, err := s.store.Query(ctx, models.QueryFilter{})
	if err != nil {
		return models.InsightsResult{}, fmt.Errorf("failed to query log store: %w", err)
	}

	grouped := s.grouper.Group(entries, models.QueryFilter{Limit: s.cfg.Insights.TopGroupsLimit})

	spikeCfg := spikes.Config{
		WindowMinutes:   s.cfg.Spikes.WindowMinutes,
		RatioThreshold:  s.cfg.Spikes.RatioThreshold,
		BaselineWindows: s.cfg.Spikes.BaselineWindows,
		MinCount:        s.cfg.Spikes.MinCount,
		Epsilon:         s.cfg.Spikes.Epsilon,
	}
	detected, err := s.detector.Detect(entries, spikeCfg)
	if err != nil {
		return models.InsightsResult{}, fmt.Errorf("spike detection failed: %w", err)
	}

	summary, err := s.summarizer.Summarize(ctx, grouped.Groups, detected)
	if err != nil {
		s.logger.Warn("summarizer failed, using static fallback",
			zap.String("provider", s.summarizer.Name()),
			zap.Error(err))
		summary, _ = s.fallback.Summarize(ctx, grouped.Groups, detected)
	}

	return models.InsightsResult{
		Summary:   summary,
		TopGroups: grouped.Groups,
		Spikes:    detected,
	}, nil
}
