package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"log-investigator/internal/interfaces"
	"log-investigator/internal/spikes"
	"log-investigator/pkg/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": s.cfg.Storage.Backend,
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	result := s.pipeline.Ingest(r.Context(), req.Logs)
	s.stats.Record(result, time.Now().UTC())

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Log == nil {
		writeError(w, http.StatusBadRequest, "log entry must be a JSON object")
		return
	}

	writeJSON(w, http.StatusOK, s.normalizer.Normalize(req.Log))
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Log == nil {
		writeError(w, http.StatusBadRequest, "log entry must be a JSON object")
		return
	}

	entry := s.normalizer.Normalize(req.Log)
	writeJSON(w, http.StatusOK, s.validator.Validate(entry))
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filter, err := parseQueryFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Filtering happens during grouping so TotalGroups counts the filtered
	// population before the limit is applied.
	entries, err := s.store.Query(r.Context(), models.QueryFilter{})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.grouper.Group(entries, filter))
}

func (s *Server) handleSpikes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cfg, err := s.parseSpikeConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := s.store.Query(r.Context(), models.QueryFilter{})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	detected, err := s.detector.Detect(entries, cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"spikes": detected})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, err := s.insights.Generate(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	total, err := s.store.CountTotal(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	entries, err := s.store.Query(r.Context(), models.QueryFilter{})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	grouped := s.grouper.Group(entries, models.QueryFilter{})

	spikeCfg := s.defaultSpikeConfig()
	detected, err := s.detector.Detect(entries, spikeCfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rejected, recent := s.stats.Snapshot()

	writeJSON(w, http.StatusOK, models.StatsResult{
		TotalLogs:     total,
		TotalGroups:   grouped.TotalGroups,
		TotalRejected: rejected,
		SpikesCount:   len(detected),
		RecentBatches: recent,
	})
}

func (s *Server) handleGeneratorSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	scenario := r.URL.Query().Get("scenario")
	if scenario == "" {
		scenario = "normal"
	}

	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "count must be a non-negative integer")
			return
		}
		count = parsed
	}

	batch, err := s.generator.Batch(scenario, count)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.pipeline.Ingest(r.Context(), batch)
	s.stats.Record(result, time.Now().UTC())

	s.logger.Info("generator batch ingested",
		zap.String("scenario", scenario),
		zap.Int("accepted", result.Accepted),
		zap.Int("rejected", result.Rejected))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scenario": scenario,
		"sent":     len(batch),
		"result":   result,
	})
}

// parseQueryFilter reads the shared service/level/since/limit query params
func parseQueryFilter(r *http.Request) (models.QueryFilter, error) {
	q := r.URL.Query()
	filter := models.QueryFilter{
		Service: q.Get("service"),
		Level:   q.Get("level"),
	}

	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("since must be an RFC3339 timestamp: %s", raw)
		}
		filter.Since = since.UTC()
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, fmt.Errorf("limit must be a non-negative integer: %s", raw)
		}
		filter.Limit = limit
	}
	return filter, nil
}

// parseSpikeConfig reads spike detection overrides from the query string,
// falling back to the configured defaults
func (s *Server) parseSpikeConfig(r *http.Request) (spikes.Config, error) {
	cfg := s.defaultSpikeConfig()
	q := r.URL.Query()

	cfg.Service = q.Get("service")
	cfg.Level = q.Get("level")

	if raw := q.Get("window_minutes"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("window_minutes must be an integer: %s", raw)
		}
		cfg.WindowMinutes = v
	}
	if raw := q.Get("ratio_threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return cfg, fmt.Errorf("ratio_threshold must be a number: %s", raw)
		}
		cfg.RatioThreshold = v
	}
	if raw := q.Get("baseline_windows"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("baseline_windows must be an integer: %s", raw)
		}
		cfg.BaselineWindows = v
	}
	if raw := q.Get("min_count"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("min_count must be an integer: %s", raw)
		}
		cfg.MinCount = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (s *Server) defaultSpikeConfig() spikes.Config {
	return spikes.Config{
		WindowMinutes:   s.cfg.Spikes.WindowMinutes,
		RatioThreshold:  s.cfg.Spikes.RatioThreshold,
		BaselineWindows: s.cfg.Spikes.BaselineWindows,
		MinCount:        s.cfg.Spikes.MinCount,
		Epsilon:         s.cfg.Spikes.Epsilon,
	}
}

// writeStoreError maps storage failures onto HTTP statuses
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	s.logger.Error("store operation failed", zap.Error(err))
	if errors.Is(err, interfaces.ErrStoreUnavailable) {
		writeError(w, http.StatusBadGateway, "log store unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
