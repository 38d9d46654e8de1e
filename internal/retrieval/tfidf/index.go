package tfidf

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kenolab/retriever/internal/retrieval"
)

// Index is the local sparse backend. Ingest replaces the fitted state
// wholesale under the write lock; searches over a built index are pure reads
// and may run concurrently.
type Index struct {
	mu       sync.RWMutex
	maxVocab int

	vec     *vectorizer
	docIDs  []string
	docMeta []map[string]any
	docText []string
	matrix  csrMatrix
	built   bool
}

// Option configures an Index.
type Option func(*Index)

// WithMaxVocab overrides the vocabulary cap. Zero or negative disables it.
func WithMaxVocab(n int) Option {
	return func(ix *Index) {
		ix.maxVocab = n
	}
}

// New creates an empty index. It cannot serve searches until Ingest or Load.
func New(opts ...Option) *Index {
	ix := &Index{maxVocab: DefaultMaxVocab}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Ingest fits the vectorizer and term-document matrix over docs, replacing
// any previously held state. There is no incremental update.
func (ix *Index) Ingest(ctx context.Context, docs []retrieval.Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("fit vectorizer: %w", retrieval.ErrEmptyCorpus)
	}

	texts := make([]string, len(docs))
	ids := make([]string, len(docs))
	metas := make([]map[string]any, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
		ids[i] = d.ID
		metas[i] = d.Meta
	}

	vec := fitVectorizer(texts, ix.maxVocab)
	matrix := newCSRMatrix()
	for _, text := range texts {
		matrix.appendRow(vec.transform(text))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.vec = vec
	ix.docIDs = ids
	ix.docMeta = metas
	ix.docText = texts
	ix.matrix = matrix
	ix.built = true
	return nil
}

// Search scores every ingested document by cosine similarity against the
// query's TF-IDF vector and returns the topK best in descending score order,
// ties broken by ingestion order.
func (ix *Index) Search(ctx context.Context, q retrieval.Query, topK int) ([]retrieval.Candidate, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.built {
		return nil, retrieval.ErrNotBuilt
	}

	qvec := ix.vec.transform(q.Text)
	n := ix.matrix.rows()
	scores := make([]float64, n)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		scores[i] = ix.matrix.dot(i, qvec)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topK > n {
		topK = n
	}
	results := make([]retrieval.Candidate, topK)
	for k := 0; k < topK; k++ {
		i := order[k]
		results[k] = retrieval.Candidate{
			ID:    ix.docIDs[i],
			Score: scores[i],
			Meta:  copyMeta(ix.docMeta[i]),
			Text:  ix.docText[i],
		}
	}
	return results, nil
}

// copyMeta shields the fitted state from callers mutating result metadata.
func copyMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Size returns the number of ingested documents.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docIDs)
}

var _ retrieval.Retriever = (*Index)(nil)
