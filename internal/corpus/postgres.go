package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kenolab/retriever/internal/retrieval"
)

// Table names are interpolated into the query, so restrict them to plain
// identifiers.
var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// PostgresSource streams documents out of a Postgres table with columns
// doc_id (text), text (text) and metadata (jsonb, nullable).
type PostgresSource struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresSource connects a pool and verifies the connection.
func NewPostgresSource(ctx context.Context, databaseURL, table string) (*PostgresSource, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresSource{pool: pool, table: table}, nil
}

// Close closes the connection pool.
func (s *PostgresSource) Close() {
	s.pool.Close()
}

// Load reads the whole table in doc_id order.
func (s *PostgresSource) Load(ctx context.Context) ([]retrieval.Document, error) {
	query := fmt.Sprintf(`SELECT doc_id, text, metadata FROM %s ORDER BY doc_id`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query corpus: %w", err)
	}
	defer rows.Close()

	var docs []retrieval.Document
	for rows.Next() {
		var doc retrieval.Document
		var metadataJSON []byte
		if err := rows.Scan(&doc.ID, &doc.Text, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &doc.Meta); err != nil {
				return nil, fmt.Errorf("bad metadata for %s: %w", doc.ID, err)
			}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus rows: %w", err)
	}
	return docs, nil
}

var _ Source = (*PostgresSource)(nil)
