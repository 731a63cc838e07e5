package server

import (
	"net/http"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"log-investigator/internal/config"
	"log-investigator/internal/generator"
	"log-investigator/internal/grouper"
	"log-investigator/internal/insights"
	"log-investigator/internal/interfaces"
	"log-investigator/internal/normalizer"
	"log-investigator/internal/pipeline"
	"log-investigator/internal/spikes"
	"log-investigator/internal/validator"
)

// Server wires the pipeline components behind the HTTP API
type Server struct {
	cfg        *config.Config
	store      interfaces.Store
	pipeline   *pipeline.IngestPipeline
	normalizer *normalizer.LogNormalizer
	validator  *validator.LogValidator
	grouper    *grouper.GroupAggregator
	detector   *spikes.SpikeDetector
	insights   *insights.Service
	generator  *generator.Generator
	stats      *statsTracker
	logger     *zap.Logger
}

// New creates a server over the given store
func New(cfg *config.Config, store interfaces.Store, logger *zap.Logger) *Server {
	return &Server{
		cfg:        cfg,
		store:      store,
		pipeline:   pipeline.NewIngestPipeline(cfg, store, logger),
		normalizer: normalizer.NewLogNormalizer(),
		validator:  validator.NewLogValidator(cfg.Validation),
		grouper:    grouper.NewGroupAggregator(),
		detector:   spikes.NewSpikeDetector(),
		insights:   insights.NewService(cfg, store, logger),
		generator:  generator.New(),
		stats:      newStatsTracker(),
		logger:     logger,
	}
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/normalize", s.handleNormalize)
	mux.HandleFunc("/validate", s.handleValidate)
	mux.HandleFunc("/group", s.handleGroup)
	mux.HandleFunc("/spikes", s.handleSpikes)
	mux.HandleFunc("/insights", s.handleInsights)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/generator/send", s.handleGeneratorSend)

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.Server.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.Server.AllowedOrigins
}
