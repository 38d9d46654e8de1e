// Package corpus loads documents from upstream sources and prepares them for
// ingestion. The index itself never deduplicates; dedupe by content hash
// happens here, upstream of either backend.
package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/kenolab/retriever/internal/retrieval"
)

// Source yields a batch of documents ready for ingestion.
type Source interface {
	Load(ctx context.Context) ([]retrieval.Document, error)
}

// ContentHash returns the hex SHA-256 of the document text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// DedupeByHash drops documents whose text hashes identically to an earlier
// one, keeping first occurrences in order.
func DedupeByHash(docs []retrieval.Document) []retrieval.Document {
	seen := make(map[string]struct{}, len(docs))
	out := docs[:0:0]
	for _, d := range docs {
		h := ContentHash(d.Text)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, d)
	}
	return out
}

// AssignIDs fills in a random UUID for every document that arrived without
// an ID. Documents with IDs are left alone.
func AssignIDs(docs []retrieval.Document) []retrieval.Document {
	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = uuid.NewString()
		}
	}
	return docs
}
