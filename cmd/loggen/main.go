package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"log-investigator/internal/generator"
	"log-investigator/pkg/models"
)

func main() {
	target := flag.String("target", "http://localhost:8080", "Base URL of the log server")
	scenario := flag.String("scenario", "normal", "Scenario: normal, error_spike, malformed, alt_fields, mixed")
	count := flag.Int("count", 20, "Entries per batch")
	batches := flag.Int("batches", 1, "Number of batches to send")
	interval := flag.Duration("interval", time.Second, "Delay between batches")
	flag.Parse()

	gen := generator.New()

	for i := 0; i < *batches; i++ {
		if i > 0 {
			time.Sleep(*interval)
		}

		batch, err := gen.Batch(*scenario, *count)
		if err != nil {
			log.Fatalf("failed to generate batch: %v", err)
		}

		result, err := send(*target, batch)
		if err != nil {
			log.Fatalf("failed to send batch %d: %v", i+1, err)
		}

		fmt.Printf("batch %d/%d: sent=%d accepted=%d rejected=%d\n",
			i+1, *batches, len(batch), result.Accepted, result.Rejected)
		for _, e := range result.Errors {
			fmt.Printf("  entry %d rejected: %s\n", e.Index, e.Error)
		}
	}
}

func send(target string, batch []models.RawLogEntry) (*models.IngestResult, error) {
	body, err := json.Marshal(models.IngestRequest{Logs: batch})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	resp, err := http.Post(target+"/ingest", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(snippet))
	}

	var result models.IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}
