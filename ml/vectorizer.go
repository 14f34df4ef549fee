package ml

import (
	"math"
	"regexp"
	"strings"
)

// Tokens are runs of at least two word characters, matched on the lowercased
// input. Single-character tokens carry no signal for article text.
var tokenRegex = regexp.MustCompile(`\w\w+`)

func tokenize(text string) []string {
	return tokenRegex.FindAllString(strings.ToLower(text), -1)
}

// TfidfVectorizer turns documents into sparse tf-idf vectors. The vocabulary
// and the inverse document frequencies are learned once from the training
// corpus; transforming unseen documents drops terms outside the vocabulary.
//
// The idf is smoothed (every term behaves as if one extra document contained
// it) and each output vector is l2-normalized, so scores are comparable
// across documents of different lengths.
type TfidfVectorizer struct {
	Vocabulary map[string]int
	IDF        []float64
}

// SparseVector maps feature index to weight. Only non-zero entries are kept.
type SparseVector map[int]float64

// Fit learns the vocabulary and idf weights from the given documents.
func (v *TfidfVectorizer) Fit(documents []string) {
	v.Vocabulary = make(map[string]int)
	docFreq := []int{}

	for _, doc := range documents {
		seen := make(map[int]bool)
		for _, term := range tokenize(doc) {
			idx, ok := v.Vocabulary[term]
			if !ok {
				idx = len(v.Vocabulary)
				v.Vocabulary[term] = idx
				docFreq = append(docFreq, 0)
			}
			if !seen[idx] {
				docFreq[idx]++
				seen[idx] = true
			}
		}
	}

	n := float64(len(documents))
	v.IDF = make([]float64, len(docFreq))
	for idx, df := range docFreq {
		v.IDF[idx] = math.Log((1+n)/(1+float64(df))) + 1
	}
}

// Transform converts a single document into a tf-idf vector using the
// learned vocabulary. Unknown terms are ignored.
func (v *TfidfVectorizer) Transform(document string) SparseVector {
	counts := make(SparseVector)
	for _, term := range tokenize(document) {
		if idx, ok := v.Vocabulary[term]; ok {
			counts[idx]++
		}
	}

	var norm float64
	for idx, tf := range counts {
		w := tf * v.IDF[idx]
		counts[idx] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range counts {
			counts[idx] /= norm
		}
	}
	return counts
}

// TransformAll converts a batch of documents.
func (v *TfidfVectorizer) TransformAll(documents []string) []SparseVector {
	vectors := make([]SparseVector, len(documents))
	for i, doc := range documents {
		vectors[i] = v.Transform(doc)
	}
	return vectors
}

// FitTransform fits the vectorizer and returns the vectors of the training
// corpus in one pass.
func (v *TfidfVectorizer) FitTransform(documents []string) []SparseVector {
	v.Fit(documents)
	return v.TransformAll(documents)
}

// NumFeatures returns the size of the learned vocabulary.
func (v *TfidfVectorizer) NumFeatures() int {
	return len(v.Vocabulary)
}
