package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"log-investigator/internal/config"
	"log-investigator/internal/interfaces"
	"log-investigator/pkg/models"
)

const createLogsTable = `
CREATE TABLE IF NOT EXISTS logs (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	service TEXT NOT NULL DEFAULT 'unknown',
	correlation_id TEXT NOT NULL DEFAULT '',
	metadata JSONB,
	timestamp_inferred BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs (timestamp);
CREATE INDEX IF NOT EXISTS idx_logs_service ON logs (service);
CREATE INDEX IF NOT EXISTS idx_logs_level ON logs (level);
`

// PostgresStore persists canonical entries in a single logs table
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pgx pool and creates the schema if needed
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, createLogsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create logs table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Append stores one canonical entry
func (s *PostgresStore) Append(ctx context.Context, entry models.CanonicalLogEntry) error {
	var metadata []byte
	if len(entry.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO logs (timestamp, level, message, service, correlation_id, metadata, timestamp_inferred)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.Timestamp,
		entry.Level,
		entry.Message,
		entry.Service,
		entry.CorrelationID,
		metadata,
		entry.TimestampInferred,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return nil
}

// Query returns entries matching the filter, ordered by timestamp ascending
func (s *PostgresStore) Query(ctx context.Context, filter models.QueryFilter) ([]models.CanonicalLogEntry, error) {
	query := `SELECT timestamp, level, message, service, correlation_id, metadata, timestamp_inferred
		 FROM logs WHERE 1=1`
	var args []interface{}

	if filter.Service != "" {
		args = append(args, filter.Service)
		query += fmt.Sprintf(" AND service = $%d", len(args))
	}
	if filter.Level != "" {
		args = append(args, filter.Level)
		query += fmt.Sprintf(" AND level = $%d", len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args))
	}
	query += " ORDER BY timestamp ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var entries []models.CanonicalLogEntry
	for rows.Next() {
		var entry models.CanonicalLogEntry
		var metadata []byte
		if err := rows.Scan(&entry.Timestamp, &entry.Level, &entry.Message, &entry.Service,
			&entry.CorrelationID, &metadata, &entry.TimestampInferred); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log rows: %w", err)
	}
	return entries, nil
}

// CountTotal returns the number of stored entries
func (s *PostgresStore) CountTotal(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM logs").Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return count, nil
}
