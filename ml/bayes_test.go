package ml

import (
	"errors"
	"math"
	"testing"
)

func trainedClassifier(t *testing.T) (*MultinomialNB, *TfidfVectorizer) {
	t.Helper()

	docs := []string{
		"deep learning neural networks",
		"convolutional neural networks vision",
		"neural machine translation",
		"soil bacteria fertilizer",
		"crop rotation fertilizer yield",
		"bacteria in agricultural soil",
	}
	targets := []int{
		ClassInteresting, ClassInteresting, ClassInteresting,
		ClassIrrelevant, ClassIrrelevant, ClassIrrelevant,
	}
	weights := []float64{1, 1, 1, 1, 1, 1}

	v := &TfidfVectorizer{}
	vectors := v.FitTransform(docs)

	nb := NewMultinomialNB()
	if err := nb.Fit(vectors, targets, weights); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return nb, v
}

func TestPredictSeparatesClasses(t *testing.T) {
	nb, v := trainedClassifier(t)

	tests := []struct {
		text string
		want int
	}{
		{"neural networks for translation", ClassInteresting},
		{"fertilizer effects on soil bacteria", ClassIrrelevant},
	}
	for _, tt := range tests {
		got, err := nb.Predict([]SparseVector{v.Transform(tt.text)})
		if err != nil {
			t.Fatalf("Predict(%q): %v", tt.text, err)
		}
		if got[0] != tt.want {
			t.Errorf("Predict(%q) = %d, want %d", tt.text, got[0], tt.want)
		}
	}
}

func TestPredictProbaSumsToOne(t *testing.T) {
	nb, v := trainedClassifier(t)

	probs, err := nb.PredictProba([]SparseVector{v.Transform("neural networks")})
	if err != nil {
		t.Fatalf("PredictProba: %v", err)
	}
	var sum float64
	for _, p := range probs[0] {
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("probabilities sum to %f, want 1.0", sum)
	}
}

func TestPredictProbaNotFitted(t *testing.T) {
	nb := &MultinomialNB{}
	_, err := nb.PredictProba([]SparseVector{{0: 1}})
	if !errors.Is(err, ErrNotFitted) {
		t.Errorf("err = %v, want ErrNotFitted", err)
	}
}

func TestFitSampleWeights(t *testing.T) {
	// Two contradictory samples for the same text. The heavier one should
	// decide the prediction.
	v := &TfidfVectorizer{}
	vectors := v.FitTransform([]string{"quantum computing", "quantum computing"})

	nb := NewMultinomialNB()
	err := nb.Fit(vectors, []int{ClassInteresting, ClassIrrelevant}, []float64{1.0, 0.25})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	got, err := nb.Predict([]SparseVector{v.Transform("quantum computing")})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got[0] != ClassInteresting {
		t.Errorf("Predict = %d, want the heavier class %d", got[0], ClassInteresting)
	}
}

func TestFitRejectsMismatchedLengths(t *testing.T) {
	nb := NewMultinomialNB()
	err := nb.Fit([]SparseVector{{0: 1}}, []int{0, 1}, []float64{1})
	if err == nil {
		t.Error("expected error for mismatched lengths")
	}
}
