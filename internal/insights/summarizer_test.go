package insights

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"log-investigator/internal/config"
	"log-investigator/internal/grouper"
	"log-investigator/internal/spikes"
	"log-investigator/internal/storage"
	"log-investigator/pkg/models"
)

func TestSummarizerSelection(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.InsightsConfig
		want string
	}{
		{"openrouter wins over all", config.InsightsConfig{OpenRouterKey: "a", GeminiKey: "b", OpenAIKey: "c"}, "openrouter"},
		{"gemini wins over openai", config.InsightsConfig{GeminiKey: "b", OpenAIKey: "c"}, "gemini"},
		{"openai only", config.InsightsConfig{OpenAIKey: "c"}, "openai"},
		{"no credentials falls back to static", config.InsightsConfig{}, "static"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSummarizer(tt.cfg).Name())
		})
	}
}

func TestStaticSummarizer(t *testing.T) {
	s := &StaticSummarizer{}

	summary, err := s.Summarize(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Contains(t, summary, "No error groups")

	groups := []models.Group{
		{GroupID: "abc", Count: 7, Level: "ERROR", Service: "api", SampleMessage: "db timeout"},
	}
	spikeRecs := []models.SpikeRecord{
		{GroupID: "abc", Service: "api", Level: "ERROR", CurrentCount: 20, BaselineAvg: 4, Ratio: 5.0},
	}

	summary, err = s.Summarize(context.Background(), groups, spikeRecs)
	require.NoError(t, err)
	assert.Contains(t, summary, "api")
	assert.Contains(t, summary, "db timeout")
	assert.Contains(t, summary, "5.0x")
}

func TestChatCompletionSummarizer(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "test-model", payload.Model)
		require.Len(t, payload.Messages, 2)
		assert.Contains(t, payload.Messages[1].Content, "db timeout")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "  The api service is timing out.  "}},
			},
		})
	}))
	defer ts.Close()

	s := &chatCompletionSummarizer{
		name:   "openrouter",
		url:    ts.URL,
		apiKey: "secret",
		model:  "test-model",
		client: ts.Client(),
	}

	groups := []models.Group{{GroupID: "abc", Count: 3, Level: "ERROR", Service: "api", SampleMessage: "db timeout"}}
	summary, err := s.Summarize(context.Background(), groups, nil)
	require.NoError(t, err)
	assert.Equal(t, "The api service is timing out.", summary)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestChatCompletionSummarizerErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	s := &chatCompletionSummarizer{name: "openai", url: ts.URL, apiKey: "k", model: "m", client: ts.Client()}

	_, err := s.Summarize(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGeminiSummarizer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "test-model")
		assert.Equal(t, "k", r.URL.Query().Get("key"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "All quiet."}},
				}},
			},
		})
	}))
	defer ts.Close()

	s := &geminiSummarizer{apiKey: "k", model: "test-model", client: ts.Client(), baseURL: ts.URL}

	summary, err := s.Summarize(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "All quiet.", summary)
}

type erroringSummarizer struct{}

func (erroringSummarizer) Name() string { return "erroring" }
func (erroringSummarizer) Summarize(context.Context, []models.Group, []models.SpikeRecord) (string, error) {
	return "", errors.New("provider unavailable")
}

func TestServiceDegradesToStaticOnProviderFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Append(context.Background(), models.CanonicalLogEntry{
		Timestamp: time.Now().UTC().Add(-time.Minute),
		Level:     "ERROR",
		Message:   "payment declined",
		Service:   "billing",
	}))

	svc := &Service{
		store:      store,
		grouper:    grouper.NewGroupAggregator(),
		detector:   spikes.NewSpikeDetector(),
		summarizer: erroringSummarizer{},
		fallback:   &StaticSummarizer{},
		cfg:        config.Default(),
		logger:     zap.NewNop(),
	}

	result, err := svc.Generate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "billing")
	require.Len(t, result.TopGroups, 1)
	assert.Equal(t, 1, result.TopGroups[0].Count)
}
