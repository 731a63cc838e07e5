package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"log-investigator/internal/config"
	"log-investigator/internal/interfaces"
	"log-investigator/pkg/models"
)

// osDocument is the canonical entry as indexed into OpenSearch
type osDocument struct {
	Timestamp         string                 `json:"timestamp"`
	Level             string                 `json:"level"`
	Message           string                 `json:"message"`
	Service           string                 `json:"service"`
	CorrelationID     string                 `json:"correlation_id,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	TimestampInferred bool                   `json:"timestamp_inferred,omitempty"`
}

// OpenSearchStore persists canonical entries in a single OpenSearch index
type OpenSearchStore struct {
	client *opensearch.Client
	index  string
}

// NewOpenSearchStore creates a store backed by the given OpenSearch cluster
func NewOpenSearchStore(cfg config.OpenSearchConfig) (*OpenSearchStore, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &OpenSearchStore{client: client, index: cfg.Index}, nil
}

// Append indexes one canonical entry
func (s *OpenSearchStore) Append(ctx context.Context, entry models.CanonicalLogEntry) error {
	doc := osDocument{
		Timestamp:         entry.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:             entry.Level,
		Message:           entry.Message,
		Service:           entry.Service,
		CorrelationID:     entry.CorrelationID,
		Metadata:          entry.Metadata,
		TimestampInferred: entry.TimestampInferred,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: s.index,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: index request returned %s", interfaces.ErrStoreUnavailable, res.Status())
	}
	return nil
}

// Query searches the index with term/range filters, ordered by timestamp
// ascending
func (s *OpenSearchStore) Query(ctx context.Context, filter models.QueryFilter) ([]models.CanonicalLogEntry, error) {
	query := s.buildSearchQuery(filter)

	queryBytes, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(queryBytes),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: search request returned %s", interfaces.ErrStoreUnavailable, res.Status())
	}

	return parseSearchResponse(res.Body)
}

// CountTotal returns the number of documents in the index
func (s *OpenSearchStore) CountTotal(ctx context.Context) (int, error) {
	req := opensearchapi.CountRequest{Index: []string{s.index}}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("%w: count request returned %s", interfaces.ErrStoreUnavailable, res.Status())
	}

	var parsed struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return parsed.Count, nil
}

// buildSearchQuery constructs the bool query for the filter
func (s *OpenSearchStore) buildSearchQuery(filter models.QueryFilter) map[string]interface{} {
	filterClauses := []map[string]interface{}{}

	if filter.Service != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"service.keyword": filter.Service},
		})
	}
	if filter.Level != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"level.keyword": filter.Level},
		})
	}
	if !filter.Since.IsZero() {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"timestamp": map[string]interface{}{
					"gte": filter.Since.UTC().Format("2006-01-02T15:04:05.000Z"),
				},
			},
		})
	}

	size := filter.Limit
	if size <= 0 {
		size = 10000
	}

	return map[string]interface{}{
		"size": size,
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "asc"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filterClauses,
			},
		},
	}
}

// parseSearchResponse extracts canonical entries from a search response body
func parseSearchResponse(body io.Reader) ([]models.CanonicalLogEntry, error) {
	var response struct {
		Hits struct {
			Hits []struct {
				Source osDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	entries := make([]models.CanonicalLogEntry, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		entry, err := hit.Source.toEntry()
		if err != nil {
			// Skip documents with unreadable timestamps rather than failing
			// the whole query
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseOSTimestamp(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05.000Z", time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %s", value)
}

func (d osDocument) toEntry() (models.CanonicalLogEntry, error) {
	ts, err := parseOSTimestamp(d.Timestamp)
	if err != nil {
		return models.CanonicalLogEntry{}, err
	}
	return models.CanonicalLogEntry{
		Timestamp:         ts,
		Level:             d.Level,
		Message:           d.Message,
		Service:           d.Service,
		CorrelationID:     d.CorrelationID,
		Metadata:          d.Metadata,
		TimestampInferred: d.TimestampInferred,
	}, nil
}
