// Package reranker provides a second scoring pass over first-stage retrieval
// candidates.
//
// The first-stage ranker scores documents purely by vector similarity; the
// reranker folds in signals the index never sees, such as passage length.
package reranker

import (
	"context"

	"github.com/kenolab/retriever/internal/retrieval"
)

// Reranker reorders candidates and truncates to topK. Implementations must
// not mutate the input slice.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []retrieval.Candidate, topK int) ([]retrieval.Candidate, error)
}
