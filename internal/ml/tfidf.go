package ml

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// DefaultMaxFeatures bounds the vocabulary when no explicit cap is configured.
const DefaultMaxFeatures = 5000

// VectorizerConfig controls how the shared vector space is fitted.
type VectorizerConfig struct {
	MaxFeatures int `json:"max_features"`
	MaxNGram    int `json:"max_ngram"`
}

// SparseVector is a TF-IDF row. Indices are strictly increasing.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Len returns the number of non-zero entries.
func (v SparseVector) Len() int {
	return len(v.Indices)
}

// Norm returns the Euclidean length of the vector.
func (v SparseVector) Norm() float64 {
	if len(v.Values) == 0 {
		return 0
	}
	return floats.Norm(v.Values, 2)
}

// Dot computes the inner product with a dense vector of the same space.
func (v SparseVector) Dot(dense []float64) float64 {
	var sum float64
	for i, idx := range v.Indices {
		if idx < len(dense) {
			sum += v.Values[i] * dense[idx]
		}
	}
	return sum
}

// AddScaledTo adds alpha*v to dst in place.
func (v SparseVector) AddScaledTo(dst []float64, alpha float64) {
	for i, idx := range v.Indices {
		if idx < len(dst) {
			dst[idx] += alpha * v.Values[i]
		}
	}
}

// Dense expands the vector into a slice of length dim.
func (v SparseVector) Dense(dim int) []float64 {
	out := make([]float64, dim)
	v.AddScaledTo(out, 1)
	return out
}

// TextModel is a TF-IDF vector space fitted over an ordered document set.
// Row i corresponds to document i. It is read-only after FitTextModel returns.
type TextModel struct {
	terms []string
	vocab map[string]int
	idf   []float64
	rows  []SparseVector
	norms []float64
}

// FitTextModel fits unigram+bigram TF-IDF weighting over docs. Rows are
// L2-normalised and IDF is smoothed as ln((1+n)/(1+df))+1. An empty document
// set, or one whose vocabulary is empty after stop word removal, yields an
// unfitted model.
func FitTextModel(docs []string, config VectorizerConfig) *TextModel {
	if config.MaxFeatures <= 0 {
		config.MaxFeatures = DefaultMaxFeatures
	}
	if config.MaxNGram <= 0 {
		config.MaxNGram = 2
	}

	model := &TextModel{}
	if len(docs) == 0 {
		return model
	}

	docCounts := make([]map[string]int, len(docs))
	corpusCounts := make(map[string]int)
	docFreq := make(map[string]int)

	for i, doc := range docs {
		counts := make(map[string]int)
		for _, term := range Analyze(doc, config.MaxNGram) {
			counts[term]++
		}
		for term, c := range counts {
			corpusCounts[term] += c
			docFreq[term]++
		}
		docCounts[i] = counts
	}

	if len(corpusCounts) == 0 {
		return model
	}

	model.terms = selectVocabulary(corpusCounts, config.MaxFeatures)
	model.vocab = make(map[string]int, len(model.terms))
	model.idf = make([]float64, len(model.terms))

	n := float64(len(docs))
	for idx, term := range model.terms {
		model.vocab[term] = idx
		model.idf[idx] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	model.rows = make([]SparseVector, len(docs))
	model.norms = make([]float64, len(docs))
	for i, counts := range docCounts {
		row := model.weigh(counts)
		model.rows[i] = row
		model.norms[i] = row.Norm()
	}

	return model
}

// selectVocabulary keeps the maxFeatures most frequent terms across the
// corpus. Ties go to the lexicographically smaller term; the result is sorted.
func selectVocabulary(corpusCounts map[string]int, maxFeatures int) []string {
	terms := make([]string, 0, len(corpusCounts))
	for term := range corpusCounts {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	if len(terms) > maxFeatures {
		sort.SliceStable(terms, func(i, j int) bool {
			return corpusCounts[terms[i]] > corpusCounts[terms[j]]
		})
		terms = terms[:maxFeatures]
		sort.Strings(terms)
	}
	return terms
}

func (m *TextModel) weigh(counts map[string]int) SparseVector {
	var row SparseVector
	for term := range counts {
		idx, ok := m.vocab[term]
		if !ok {
			continue
		}
		row.Indices = append(row.Indices, idx)
	}
	sort.Ints(row.Indices)

	row.Values = make([]float64, len(row.Indices))
	for i, idx := range row.Indices {
		row.Values[i] = float64(counts[m.terms[idx]]) * m.idf[idx]
	}

	if norm := row.Norm(); norm > 0 {
		floats.Scale(1/norm, row.Values)
	}
	return row
}

// Fitted reports whether the model holds a feature matrix.
func (m *TextModel) Fitted() bool {
	return m != nil && len(m.rows) > 0
}

// Dim returns the vocabulary size.
func (m *TextModel) Dim() int {
	if m == nil {
		return 0
	}
	return len(m.terms)
}

// Rows returns the number of documents in the fitted matrix.
func (m *TextModel) Rows() int {
	if m == nil {
		return 0
	}
	return len(m.rows)
}

// Row returns the feature vector of document i.
func (m *TextModel) Row(i int) (SparseVector, bool) {
	if !m.Fitted() || i < 0 || i >= len(m.rows) {
		return SparseVector{}, false
	}
	return m.rows[i], true
}

// SimilarityToAll returns the cosine similarity between v and every row,
// aligned to row order. It returns nil for an unfitted model.
func (m *TextModel) SimilarityToAll(v SparseVector) []float64 {
	if !m.Fitted() {
		return nil
	}
	return m.SimilarityToAllDense(v.Dense(m.Dim()))
}

// SimilarityToAllDense is SimilarityToAll for a dense query. A zero query, or
// a zero row, has similarity 0.
func (m *TextModel) SimilarityToAllDense(query []float64) []float64 {
	if !m.Fitted() {
		return nil
	}

	sims := make([]float64, len(m.rows))
	if len(query) == 0 {
		return sims
	}
	qNorm := floats.Norm(query, 2)
	if qNorm == 0 {
		return sims
	}

	for i, row := range m.rows {
		if m.norms[i] == 0 {
			continue
		}
		sims[i] = row.Dot(query) / (qNorm * m.norms[i])
	}
	return sims
}
