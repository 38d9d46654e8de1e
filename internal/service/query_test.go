package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kenolab/retriever/internal/retrieval"
)

// fakeRetriever returns canned candidates and records what it was asked.
type fakeRetriever struct {
	results  []retrieval.Candidate
	err      error
	lastTopK int
	lastQ    retrieval.Query
	ingested []retrieval.Document
}

func (f *fakeRetriever) Ingest(ctx context.Context, docs []retrieval.Document) error {
	f.ingested = append(f.ingested, docs...)
	return f.err
}

func (f *fakeRetriever) Search(ctx context.Context, q retrieval.Query, topK int) ([]retrieval.Candidate, error) {
	f.lastQ = q
	f.lastTopK = topK
	return f.results, f.err
}

func (f *fakeRetriever) Save(path string) error { return nil }

// recordingReranker captures its input and passes it through unchanged.
type recordingReranker struct {
	sawIDs []string
}

func (r *recordingReranker) Rerank(ctx context.Context, query string, candidates []retrieval.Candidate, topK int) ([]retrieval.Candidate, error) {
	r.sawIDs = r.sawIDs[:0]
	for _, c := range candidates {
		r.sawIDs = append(r.sawIDs, c.ID)
	}
	if topK < len(candidates) {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func TestAsk_RerankerSeesExactlySearchResults(t *testing.T) {
	retr := &fakeRetriever{results: []retrieval.Candidate{
		{ID: "a", Score: 0.9, Text: "alpha"},
		{ID: "b", Score: 0.8, Text: "beta"},
	}}
	rr := &recordingReranker{}
	svc := NewQueryService(retr, rr)

	out, err := svc.Ask(context.Background(), AskRequest{Query: "q", TopK: 2})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	if len(rr.sawIDs) != 2 || rr.sawIDs[0] != "a" || rr.sawIDs[1] != "b" {
		t.Errorf("reranker saw %v, want exactly the search results", rr.sawIDs)
	}
}

func TestAsk_PlaceholderTextForEmptyCandidates(t *testing.T) {
	retr := &fakeRetriever{results: []retrieval.Candidate{
		{ID: "bare", Score: 0.5},
		{ID: "full", Score: 0.4, Text: "stored text"},
	}}
	rr := &recordingReranker{}
	svc := NewQueryService(retr, rr)

	out, err := svc.Ask(context.Background(), AskRequest{Query: "q", TopK: 2})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !strings.Contains(out[0].Text, "bare") {
		t.Errorf("expected placeholder naming the doc id, got %q", out[0].Text)
	}
	if out[1].Text != "stored text" {
		t.Errorf("stored text replaced: %q", out[1].Text)
	}
}

func TestAsk_DefaultTopK(t *testing.T) {
	retr := &fakeRetriever{}
	svc := NewQueryService(retr, &recordingReranker{}, WithDefaultTopK(7))

	if _, err := svc.Ask(context.Background(), AskRequest{Query: "q"}); err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if retr.lastTopK != 7 {
		t.Errorf("expected default top_k 7, got %d", retr.lastTopK)
	}
}

func TestAsk_DefaultRerankerAppliesLengthPenalty(t *testing.T) {
	retr := &fakeRetriever{results: []retrieval.Candidate{
		{ID: "a", Score: 0.9, Text: strings.Repeat("x", 2000)},
		{ID: "b", Score: 0.85, Text: strings.Repeat("x", 10)},
	}}
	svc := NewQueryService(retr, nil)

	out, err := svc.Ask(context.Background(), AskRequest{Query: "q", TopK: 2})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if out[0].ID != "b" {
		t.Errorf("expected length penalty to promote b, got %s first", out[0].ID)
	}
}

func TestAsk_SearchErrorPropagates(t *testing.T) {
	wantErr := errors.New("backend down")
	svc := NewQueryService(&fakeRetriever{err: wantErr}, &recordingReranker{})

	if _, err := svc.Ask(context.Background(), AskRequest{Query: "q"}); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
}

func TestSearch_PassesEmbeddingThrough(t *testing.T) {
	retr := &fakeRetriever{}
	svc := NewQueryService(retr, &recordingReranker{})

	emb := []float32{1, 2, 3}
	if _, err := svc.Search(context.Background(), AskRequest{Query: "q", Embedding: emb}); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(retr.lastQ.Embedding) != 3 || retr.lastQ.Text != "q" {
		t.Errorf("query not passed through: %+v", retr.lastQ)
	}
}
