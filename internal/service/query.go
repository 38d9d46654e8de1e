// Package service composes a retrieval backend and a reranker into the
// end-to-end ask operation: search, attach text, rerank.
package service

import (
	"context"
	"fmt"

	"github.com/kenolab/retriever/internal/reranker"
	"github.com/kenolab/retriever/internal/retrieval"
)

// DefaultTopK is used when a request does not specify a candidate count.
const DefaultTopK = 5

// QueryService orchestrates the two stages sequentially. The reranker always
// receives exactly the candidates the first stage returned.
type QueryService struct {
	retriever retrieval.Retriever
	reranker  reranker.Reranker
	topK      int
}

// Option is a functional option for configuring QueryService.
type Option func(*QueryService)

// WithDefaultTopK overrides the default candidate count.
func WithDefaultTopK(k int) Option {
	return func(s *QueryService) {
		if k > 0 {
			s.topK = k
		}
	}
}

// NewQueryService creates a query service over the given backend. A nil
// reranker falls back to the default length-penalty reranker.
func NewQueryService(r retrieval.Retriever, rr reranker.Reranker, opts ...Option) *QueryService {
	if rr == nil {
		rr = reranker.NewLengthPenalty()
	}
	s := &QueryService{
		retriever: r,
		reranker:  rr,
		topK:      DefaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AskRequest is one end-to-end query. Text drives the local backend; the
// remote backend requires a caller-supplied Embedding.
type AskRequest struct {
	Query     string    `json:"query"`
	Embedding []float32 `json:"embedding,omitempty"`
	TopK      int       `json:"top_k,omitempty"`
}

// Ingest forwards the corpus to the backend.
func (s *QueryService) Ingest(ctx context.Context, docs []retrieval.Document) error {
	return s.retriever.Ingest(ctx, docs)
}

// Search runs first-stage retrieval only.
func (s *QueryService) Search(ctx context.Context, req AskRequest) ([]retrieval.Candidate, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = s.topK
	}
	results, err := s.retriever.Search(ctx, retrieval.Query{Text: req.Query, Embedding: req.Embedding}, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

// Ask runs search then rerank and returns the final ordered candidates.
// Candidates lacking stored text get a placeholder so the length penalty has
// something to score.
func (s *QueryService) Ask(ctx context.Context, req AskRequest) ([]retrieval.Candidate, error) {
	candidates, err := s.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		if candidates[i].Text == "" {
			candidates[i].Text = fmt.Sprintf("[placeholder content for %s]", candidates[i].ID)
		}
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.topK
	}
	reranked, err := s.reranker.Rerank(ctx, req.Query, candidates, topK)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	return reranked, nil
}
