package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"log-investigator/internal/config"
	"log-investigator/internal/interfaces"
	"log-investigator/pkg/models"
)

const systemPrompt = "You are an SRE assistant. Given grouped log errors and " +
	"detected spikes, write a short plain-text summary (3-5 sentences) of what " +
	"is going wrong, which services are most affected, and what to look at first."

// NewSummarizer picks a provider based on which credentials are configured.
// OpenRouter wins over Gemini, Gemini over OpenAI. With no credentials the
// static summarizer is used.
func NewSummarizer(cfg config.InsightsConfig) interfaces.Summarizer {
	client := &http.Client{Timeout: cfg.Timeout}

	switch {
	case cfg.OpenRouterKey != "":
		return &chatCompletionSummarizer{
			name:   "openrouter",
			url:    "https://openrouter.ai/api/v1/chat/completions",
			apiKey: cfg.OpenRouterKey,
			model:  cfg.OpenRouterModel,
			client: client,
		}
	case cfg.GeminiKey != "":
		return &geminiSummarizer{
			apiKey: cfg.GeminiKey,
			model:  cfg.GeminiModel,
			client: client,
		}
	case cfg.OpenAIKey != "":
		return &chatCompletionSummarizer{
			name:   "openai",
			url:    "https://api.openai.com/v1/chat/completions",
			apiKey: cfg.OpenAIKey,
			model:  cfg.OpenAIModel,
			client: client,
		}
	default:
		return &StaticSummarizer{}
	}
}

// buildPrompt renders groups and spikes as the user message for a provider
func buildPrompt(groups []models.Group, spikes []models.SpikeRecord) string {
	var b strings.Builder

	b.WriteString("Top error groups:\n")
	if len(groups) == 0 {
		b.WriteString("(none)\n")
	}
	for _, g := range groups {
		fmt.Fprintf(&b, "- [%s] %s x%d: %s\n", g.Level, g.Service, g.Count, g.SampleMessage)
	}

	b.WriteString("\nDetected spikes:\n")
	if len(spikes) == 0 {
		b.WriteString("(none)\n")
	}
	for _, s := range spikes {
		fmt.Fprintf(&b, "- %s/%s: %d in current window vs baseline %.1f (x%.1f)\n",
			s.Service, s.Level, s.CurrentCount, s.BaselineAvg, s.Ratio)
	}

	return b.String()
}

// chatCompletionSummarizer talks to any OpenAI-compatible chat completions
// endpoint. OpenRouter and OpenAI share this wire format.
type chatCompletionSummarizer struct {
	name   string
	url    string
	apiKey string
	model  string
	client *http.Client
}

func (s *chatCompletionSummarizer) Name() string { return s.name }

func (s *chatCompletionSummarizer) Summarize(ctx context.Context, groups []models.Group, spikes []models.SpikeRecord) (string, error) {
	payload := map[string]interface{}{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildPrompt(groups, spikes)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%s returned %d: %s", s.name, resp.StatusCode, string(snippet))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", s.name, err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s returned an empty completion", s.name)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// geminiSummarizer talks to the Gemini generateContent REST API
type geminiSummarizer struct {
	apiKey string
	model  string
	client *http.Client

	// overridable in tests
	baseURL string
}

func (s *geminiSummarizer) Name() string { return "gemini" }

func (s *geminiSummarizer) Summarize(ctx context.Context, groups []models.Group, spikes []models.SpikeRecord) (string, error) {
	base := s.baseURL
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", base, s.model, s.apiKey)

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": systemPrompt + "\n\n" + buildPrompt(groups, spikes)},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gemini returned %d: %s", resp.StatusCode, string(snippet))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned an empty completion")
	}

	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty completion")
	}
	return text, nil
}

// StaticSummarizer produces a deterministic summary without calling any
// external provider. It is the fallback when no credentials are set or a
// provider call fails.
type StaticSummarizer struct{}

func (s *StaticSummarizer) Name() string { return "static" }

func (s *StaticSummarizer) Summarize(_ context.Context, groups []models.Group, spikes []models.SpikeRecord) (string, error) {
	if len(groups) == 0 && len(spikes) == 0 {
		return "No error groups or spikes detected in the analyzed window.", nil
	}

	var b strings.Builder
	if len(groups) > 0 {
		top := groups[0]
		fmt.Fprintf(&b, "Found %d distinct error group(s). The most frequent is in service %q (%s, %d occurrences): %s.",
			len(groups), top.Service, top.Level, top.Count, top.SampleMessage)
	}
	if len(spikes) > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		top := spikes[0]
		fmt.Fprintf(&b, "Detected %d spike(s); the sharpest is in %s/%s at %.1fx its baseline (%d events in the current window).",
			len(spikes), top.Service, top.Level, top.Ratio, top.CurrentCount)
	}
	return b.String(), nil
}
