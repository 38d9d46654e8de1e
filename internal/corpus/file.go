package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kenolab/retriever/internal/retrieval"
)

// LineSource reads a plaintext corpus with one document per line. Blank
// lines are skipped; documents get IDs doc-<n> and a "line" meta field, where
// n is the zero-based line number in the file.
type LineSource struct {
	Path string
}

func (s LineSource) Load(ctx context.Context) ([]retrieval.Document, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	var docs []retrieval.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 0; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		docs = append(docs, retrieval.Document{
			ID:   fmt.Sprintf("doc-%d", line),
			Text: text,
			Meta: map[string]any{"line": line},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	return docs, nil
}

// JSONLSource reads one JSON document record per line:
// {"doc_id": ..., "text": ..., "meta": {...}}. Records without a doc_id get
// one assigned.
type JSONLSource struct {
	Path string
}

func (s JSONLSource) Load(ctx context.Context) ([]retrieval.Document, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	var docs []retrieval.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 0; scanner.Scan(); line++ {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var doc retrieval.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("bad record at line %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	return AssignIDs(docs), nil
}

var (
	_ Source = LineSource{}
	_ Source = JSONLSource{}
)
