package tfidf

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/kenolab/retriever/internal/retrieval"
)

func testDocs(texts ...string) []retrieval.Document {
	docs := make([]retrieval.Document, len(texts))
	for i, t := range texts {
		docs[i] = retrieval.Document{
			ID:   "doc-" + string(rune('0'+i)),
			Text: t,
			Meta: map[string]any{"line": i},
		}
	}
	return docs
}

func TestIngest_EmptyCorpus(t *testing.T) {
	ix := New()
	err := ix.Ingest(context.Background(), nil)
	if !errors.Is(err, retrieval.ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestSearch_BeforeIngest(t *testing.T) {
	ix := New()
	_, err := ix.Search(context.Background(), retrieval.Query{Text: "cat"}, 5)
	if !errors.Is(err, retrieval.ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt, got %v", err)
	}
}

func TestSearch_CatDogCorpus(t *testing.T) {
	ix := New()
	docs := testDocs("the cat sat", "the dog ran", "cats and dogs")
	if err := ix.Ingest(context.Background(), docs); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	results, err := ix.Search(context.Background(), retrieval.Query{Text: "cat"}, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "doc-0" {
		t.Errorf("expected doc-0 first (exact term match), got %s", results[0].ID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %f then %f", results[0].Score, results[1].Score)
	}
	for _, r := range results {
		if r.ID == "doc-1" {
			t.Errorf("doc-1 has no matching term and should be excluded from top 2")
		}
	}
}

func TestSearch_TopKBounds(t *testing.T) {
	ix := New()
	docs := testDocs("alpha beta", "beta gamma", "gamma delta")
	if err := ix.Ingest(context.Background(), docs); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	results, err := ix.Search(context.Background(), retrieval.Query{Text: "beta gamma"}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) > len(docs) {
		t.Errorf("got %d results for a corpus of %d", len(results), len(docs))
	}
	ids := map[string]bool{"doc-0": true, "doc-1": true, "doc-2": true}
	for i, r := range results {
		if !ids[r.ID] {
			t.Errorf("result %d has unknown id %s", i, r.ID)
		}
		if i > 0 && results[i-1].Score < r.Score {
			t.Errorf("scores not descending at %d", i)
		}
	}

	if _, err := ix.Search(context.Background(), retrieval.Query{Text: "beta"}, 0); err == nil {
		t.Error("expected error for non-positive top_k")
	}
}

func TestSearch_SelfQueryRanksHighest(t *testing.T) {
	ix := New()
	docs := testDocs(
		"quantum entanglement experiments",
		"grilled cheese sandwich recipes",
		"marathon training schedule advice",
	)
	if err := ix.Ingest(context.Background(), docs); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	for i, d := range docs {
		results, err := ix.Search(context.Background(), retrieval.Query{Text: d.Text}, 1)
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if results[0].ID != d.ID {
			t.Errorf("query %d: expected own document %s first, got %s", i, d.ID, results[0].ID)
		}
	}
}

func TestSearch_TiesKeepIngestionOrder(t *testing.T) {
	ix := New()
	// Identical documents score identically for any query.
	docs := testDocs("same words here", "same words here", "same words here")
	if err := ix.Ingest(context.Background(), docs); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	results, err := ix.Search(context.Background(), retrieval.Query{Text: "same words"}, 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	for i, want := range []string{"doc-0", "doc-1", "doc-2"} {
		if results[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, results[i].ID)
		}
	}
}

func TestSearch_OutOfVocabularyQuery(t *testing.T) {
	ix := New()
	if err := ix.Ingest(context.Background(), testDocs("alpha beta", "gamma delta")); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	results, err := ix.Search(context.Background(), retrieval.Query{Text: "zzz unknown"}, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	for _, r := range results {
		if r.Score != 0 {
			t.Errorf("expected zero score for out-of-vocabulary query, got %f", r.Score)
		}
	}
}

func TestIngest_ReplacesState(t *testing.T) {
	ix := New()
	if err := ix.Ingest(context.Background(), testDocs("old corpus about ships")); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	if err := ix.Ingest(context.Background(), testDocs("entirely new corpus about planes")); err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if ix.Size() != 1 {
		t.Fatalf("expected full replacement, size %d", ix.Size())
	}
	results, err := ix.Search(context.Background(), retrieval.Query{Text: "ships"}, 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if results[0].Score != 0 {
		t.Errorf("old vocabulary leaked into new index: score %f", results[0].Score)
	}
}

func TestSearch_ResultMetaIsACopy(t *testing.T) {
	ix := New()
	if err := ix.Ingest(context.Background(), testDocs("the cat sat")); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	results, err := ix.Search(context.Background(), retrieval.Query{Text: "cat"}, 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	results[0].Meta["line"] = 99
	results[0].Meta["injected"] = true

	again, err := ix.Search(context.Background(), retrieval.Query{Text: "cat"}, 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if again[0].Meta["line"] != 0 {
		t.Errorf("index metadata mutated through a result: line = %v", again[0].Meta["line"])
	}
	if _, ok := again[0].Meta["injected"]; ok {
		t.Error("key injected into index metadata through a result")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ix := New()
	docs := testDocs("the cat sat", "the dog ran", "cats and dogs", "parrots repeat words")
	if err := ix.Ingest(context.Background(), docs); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "nested", "index.json")
	if err := ix.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	for _, query := range []string{"cat", "dogs ran", "parrots", "nothing matches this"} {
		want, err := ix.Search(context.Background(), retrieval.Query{Text: query}, 4)
		if err != nil {
			t.Fatalf("search on original failed: %v", err)
		}
		got, err := loaded.Search(context.Background(), retrieval.Query{Text: query}, 4)
		if err != nil {
			t.Fatalf("search on loaded failed: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("query %q: result count %d != %d", query, len(got), len(want))
		}
		for i := range want {
			if got[i].ID != want[i].ID {
				t.Errorf("query %q position %d: id %s != %s", query, i, got[i].ID, want[i].ID)
			}
			if math.Abs(got[i].Score-want[i].Score) > 1e-12 {
				t.Errorf("query %q position %d: score %f != %f", query, i, got[i].Score, want[i].Score)
			}
		}
	}
}

func TestSave_BeforeIngest(t *testing.T) {
	ix := New()
	err := ix.Save(filepath.Join(t.TempDir(), "index.json"))
	if !errors.Is(err, retrieval.ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt, got %v", err)
	}
}
