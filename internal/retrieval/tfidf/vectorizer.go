// Package tfidf implements the local sparse index: an exact cosine-similarity
// search over L2-normalized TF-IDF vectors, fitted in one batch over the
// ingested corpus.
package tfidf

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxVocab caps the fitted vocabulary. When the corpus vocabulary is
// larger, terms are selected by global term frequency.
const DefaultMaxVocab = 20000

// Word tokens of two or more letters, digits or underscores, lowercased.
// Single-character tokens are dropped.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_][\p{L}\p{N}_]+`)

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// vectorizer holds the fitted vocabulary and IDF weights. Columns are
// assigned in sorted term order so the layout is deterministic for a given
// corpus.
type vectorizer struct {
	terms []string       // column -> term
	vocab map[string]int // term -> column
	idf   []float64
}

// fitVectorizer builds the vocabulary and smoothed IDF weights from the
// corpus: idf(t) = ln((1+n)/(1+df(t))) + 1. When the observed vocabulary
// exceeds maxVocab, the most frequent terms by total count are kept, ties
// broken alphabetically.
func fitVectorizer(texts []string, maxVocab int) *vectorizer {
	df := make(map[string]int)
	tf := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(text) {
			tf[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				df[tok]++
			}
		}
	}

	terms := make([]string, 0, len(tf))
	for term := range tf {
		terms = append(terms, term)
	}
	if maxVocab > 0 && len(terms) > maxVocab {
		sort.Slice(terms, func(i, j int) bool {
			if tf[terms[i]] != tf[terms[j]] {
				return tf[terms[i]] > tf[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:maxVocab]
	}
	sort.Strings(terms)

	v := &vectorizer{
		terms: terms,
		vocab: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	n := float64(len(texts))
	for col, term := range terms {
		v.vocab[term] = col
		v.idf[col] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

// restore rebuilds the term lookup for a vectorizer loaded from disk.
func restoreVectorizer(terms []string, idf []float64) *vectorizer {
	v := &vectorizer{
		terms: terms,
		vocab: make(map[string]int, len(terms)),
		idf:   idf,
	}
	for col, term := range terms {
		v.vocab[term] = col
	}
	return v
}

// transform computes the L2-normalized TF-IDF vector for text as a sparse
// column->weight map. Terms outside the fitted vocabulary are ignored.
func (v *vectorizer) transform(text string) map[int]float64 {
	counts := make(map[int]int)
	for _, tok := range tokenize(text) {
		if col, ok := v.vocab[tok]; ok {
			counts[col]++
		}
	}
	vec := make(map[int]float64, len(counts))
	var norm float64
	for col, c := range counts {
		w := float64(c) * v.idf[col]
		vec[col] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for col := range vec {
			vec[col] /= norm
		}
	}
	return vec
}
