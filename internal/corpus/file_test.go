package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kenolab/retriever/internal/retrieval"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLineSource(t *testing.T) {
	path := writeTemp(t, "corpus.txt", "the cat sat\n\n  the dog ran  \n")

	docs, err := LineSource{Path: path}.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents (blank line skipped), got %d", len(docs))
	}
	if docs[0].ID != "doc-0" || docs[0].Text != "the cat sat" {
		t.Errorf("doc 0 = %+v", docs[0])
	}
	// Line numbers survive blank-line gaps.
	if docs[1].ID != "doc-2" || docs[1].Meta["line"] != 2 {
		t.Errorf("doc 1 = %+v", docs[1])
	}
	if docs[1].Text != "the dog ran" {
		t.Errorf("whitespace not trimmed: %q", docs[1].Text)
	}
}

func TestJSONLSource(t *testing.T) {
	path := writeTemp(t, "corpus.jsonl",
		`{"doc_id":"a","text":"first","meta":{"source":"s"}}`+"\n"+
			`{"text":"second"}`+"\n")

	docs, err := JSONLSource{Path: path}.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "a" || docs[0].Meta["source"] != "s" {
		t.Errorf("doc 0 = %+v", docs[0])
	}
	if docs[1].ID == "" {
		t.Error("missing doc_id should have been assigned")
	}
}

func TestJSONLSource_BadRecord(t *testing.T) {
	path := writeTemp(t, "corpus.jsonl", "{not json}\n")
	if _, err := (JSONLSource{Path: path}).Load(context.Background()); err == nil {
		t.Fatal("expected error for malformed record")
	}
}

func TestDedupeByHash(t *testing.T) {
	docs := []retrieval.Document{
		{ID: "a", Text: "same text"},
		{ID: "b", Text: "other text"},
		{ID: "c", Text: "same text"},
	}
	out := DedupeByHash(docs)
	if len(out) != 2 {
		t.Fatalf("expected 2 documents after dedupe, got %d", len(out))
	}
	if out[0].ID != "a" || out[1].ID != "b" {
		t.Errorf("first occurrence should win: %s, %s", out[0].ID, out[1].ID)
	}
}

func TestAssignIDs(t *testing.T) {
	docs := AssignIDs([]retrieval.Document{{ID: "keep", Text: "x"}, {Text: "y"}})
	if docs[0].ID != "keep" {
		t.Errorf("existing ID replaced: %s", docs[0].ID)
	}
	if docs[1].ID == "" {
		t.Error("missing ID not assigned")
	}
}
