package reranker

import (
	"context"
	"sort"
	"unicode/utf8"

	"github.com/kenolab/retriever/internal/retrieval"
)

// Default penalty: 0.1 per thousand characters of text.
const (
	DefaultPenaltyWeight = 0.1
	DefaultPenaltyScale  = 1000
)

// LengthPenalty rescores candidates as similarity minus a linear length
// penalty, favoring shorter passages at equal similarity:
//
//	score' = score - weight * chars(text)/scale
//
// Length is counted in characters, not bytes, so multi-byte text is not
// penalized extra. It is a pure function of its inputs: no I/O, no mutation.
type LengthPenalty struct {
	Weight float64
	Scale  float64
}

// NewLengthPenalty creates a reranker with the default penalty.
func NewLengthPenalty() *LengthPenalty {
	return &LengthPenalty{Weight: DefaultPenaltyWeight, Scale: DefaultPenaltyScale}
}

// Rerank recomputes every candidate's score, stable-sorts descending and
// truncates to topK. Ties keep their input order.
func (r *LengthPenalty) Rerank(ctx context.Context, query string, candidates []retrieval.Candidate, topK int) ([]retrieval.Candidate, error) {
	scale := r.Scale
	if scale == 0 {
		scale = DefaultPenaltyScale
	}

	rescored := make([]retrieval.Candidate, len(candidates))
	for i, c := range candidates {
		c.Score -= r.Weight * float64(utf8.RuneCountInString(c.Text)) / scale
		rescored[i] = c
	}
	sort.SliceStable(rescored, func(a, b int) bool {
		return rescored[a].Score > rescored[b].Score
	})

	if topK > 0 && topK < len(rescored) {
		rescored = rescored[:topK]
	}
	return rescored, nil
}

var _ Reranker = (*LengthPenalty)(nil)
