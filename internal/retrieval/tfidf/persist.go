package tfidf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kenolab/retriever/internal/retrieval"
)

// formatVersion is bumped whenever the on-disk layout changes incompatibly.
const formatVersion = 1

// indexFile is the on-disk record: vocabulary in column order, IDF weights,
// the id/meta/text sequences aligned with matrix rows, and the matrix in CSR
// layout.
type indexFile struct {
	FormatVersion int              `json:"format_version"`
	MaxVocab      int              `json:"max_vocab"`
	Vocabulary    []string         `json:"vocabulary"`
	IDF           []float64        `json:"idf"`
	DocIDs        []string         `json:"doc_ids"`
	DocMeta       []map[string]any `json:"doc_meta"`
	DocText       []string         `json:"doc_text"`
	MatrixRowPtr  []int            `json:"matrix_row_ptr"`
	MatrixCols    []int            `json:"matrix_cols"`
	MatrixVals    []float64        `json:"matrix_vals"`
}

// Save writes the complete fitted state to path, creating parent directories
// as needed.
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.built {
		return fmt.Errorf("save index: %w", retrieval.ErrNotBuilt)
	}

	file := indexFile{
		FormatVersion: formatVersion,
		MaxVocab:      ix.maxVocab,
		Vocabulary:    ix.vec.terms,
		IDF:           ix.vec.idf,
		DocIDs:        ix.docIDs,
		DocMeta:       ix.docMeta,
		DocText:       ix.docText,
		MatrixRowPtr:  ix.matrix.RowPtr,
		MatrixCols:    ix.matrix.Cols,
		MatrixVals:    ix.matrix.Vals,
	}
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// Load reads a saved index from path. The restored index serves searches
// identical to those of the index that was saved.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	if file.FormatVersion != formatVersion {
		return nil, fmt.Errorf("unsupported index format version %d (want %d)", file.FormatVersion, formatVersion)
	}
	if len(file.DocIDs) != len(file.DocMeta) || len(file.DocIDs) != len(file.DocText) ||
		len(file.MatrixRowPtr) != len(file.DocIDs)+1 {
		return nil, fmt.Errorf("corrupt index: row counts disagree")
	}
	if len(file.Vocabulary) != len(file.IDF) {
		return nil, fmt.Errorf("corrupt index: vocabulary and idf lengths disagree")
	}

	ix := &Index{
		maxVocab: file.MaxVocab,
		vec:      restoreVectorizer(file.Vocabulary, file.IDF),
		docIDs:   file.DocIDs,
		docMeta:  file.DocMeta,
		docText:  file.DocText,
		matrix: csrMatrix{
			RowPtr: file.MatrixRowPtr,
			Cols:   file.MatrixCols,
			Vals:   file.MatrixVals,
		},
		built: true,
	}
	return ix, nil
}
