// Package retrieval defines the document model and the common contract shared
// by the local sparse index and the remote dense index.
package retrieval

import (
	"context"
	"errors"
)

// Document is the unit of ingestion. It is immutable after construction; the
// caller is responsible for keeping IDs unique within a corpus — the index
// does not deduplicate by ID.
type Document struct {
	ID   string         `json:"doc_id"`
	Text string         `json:"text"`
	Meta map[string]any `json:"meta,omitempty"`
}

// Candidate is a transient per-query result. Text is optional: the local
// backend fills it from stored text, the remote backend from payload fields.
type Candidate struct {
	ID    string         `json:"doc_id"`
	Score float64        `json:"score"`
	Meta  map[string]any `json:"meta,omitempty"`
	Text  string         `json:"text,omitempty"`
}

// Query carries both query representations. The local sparse backend reads
// Text; the remote dense backend reads Embedding. Embeddings are always
// supplied by the caller — this subsystem never computes them.
type Query struct {
	Text      string
	Embedding []float32
}

// Retriever is the backend-agnostic contract: batch ingest followed by
// read-only search, plus persistence of whatever state the backend owns
// (fitted index for the local backend, connection config for the remote one).
// Loading is a per-backend constructor, not an interface method.
type Retriever interface {
	// Ingest builds or replaces the index from the given corpus. Not safe to
	// call concurrently with Search on the local backend.
	Ingest(ctx context.Context, docs []Document) error

	// Search returns at most topK candidates in descending score order.
	Search(ctx context.Context, q Query, topK int) ([]Candidate, error)

	// Save persists the backend state to path.
	Save(path string) error
}

// Errors shared across backends. Callers match with errors.Is; backends wrap
// these with per-operation detail.
var (
	// ErrEmptyCorpus is returned when Ingest is called with no documents.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrNotBuilt is returned when Search is called before Ingest or Load.
	ErrNotBuilt = errors.New("index not built")

	// ErrDimensionMismatch is returned when an embedding's length differs
	// from the configured vector dimension, on ingest or query.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrMissingEmbedding is returned when a document lacks the required
	// embedding field during remote ingest.
	ErrMissingEmbedding = errors.New("missing embedding")

	// ErrSchemaMismatch is returned when an existing remote collection's
	// schema conflicts with the requested configuration.
	ErrSchemaMismatch = errors.New("collection schema mismatch")
)
