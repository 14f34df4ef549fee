package ml

import (
	"fmt"
	"math"
	"sort"
)

// MultinomialNB is a multinomial naive Bayes classifier over tf-idf vectors.
// It supports per-sample weights, which the training set uses to down-weight
// weaker interaction signals.
type MultinomialNB struct {
	// Alpha is the additive smoothing applied to feature counts.
	Alpha float64

	Classes        []int
	ClassLogPrior  []float64
	FeatureLogProb [][]float64
	NumFeatures    int
}

// NewMultinomialNB returns a classifier with the default smoothing of 1.
func NewMultinomialNB() *MultinomialNB {
	return &MultinomialNB{Alpha: 1.0}
}

// Fit trains the classifier on vectorized samples. Weights scale each
// sample's contribution to both the class prior and the feature counts.
func (nb *MultinomialNB) Fit(vectors []SparseVector, targets []int, weights []float64) error {
	if len(vectors) == 0 {
		return fmt.Errorf("fit: no samples")
	}
	if len(vectors) != len(targets) || len(vectors) != len(weights) {
		return fmt.Errorf("fit: got %d vectors, %d targets, %d weights",
			len(vectors), len(targets), len(weights))
	}

	classSet := make(map[int]bool)
	numFeatures := 0
	for i, vec := range vectors {
		classSet[targets[i]] = true
		for idx := range vec {
			if idx >= numFeatures {
				numFeatures = idx + 1
			}
		}
	}

	nb.Classes = make([]int, 0, len(classSet))
	for c := range classSet {
		nb.Classes = append(nb.Classes, c)
	}
	sort.Ints(nb.Classes)
	nb.NumFeatures = numFeatures

	classIndex := make(map[int]int, len(nb.Classes))
	for i, c := range nb.Classes {
		classIndex[c] = i
	}

	classWeight := make([]float64, len(nb.Classes))
	featureCount := make([][]float64, len(nb.Classes))
	for i := range featureCount {
		featureCount[i] = make([]float64, numFeatures)
	}

	var totalWeight float64
	for i, vec := range vectors {
		ci := classIndex[targets[i]]
		w := weights[i]
		classWeight[ci] += w
		totalWeight += w
		for idx, val := range vec {
			featureCount[ci][idx] += w * val
		}
	}

	nb.ClassLogPrior = make([]float64, len(nb.Classes))
	nb.FeatureLogProb = make([][]float64, len(nb.Classes))
	for ci := range nb.Classes {
		nb.ClassLogPrior[ci] = math.Log(classWeight[ci] / totalWeight)

		var classTotal float64
		for _, cnt := range featureCount[ci] {
			classTotal += cnt
		}
		denom := math.Log(classTotal + nb.Alpha*float64(numFeatures))

		nb.FeatureLogProb[ci] = make([]float64, numFeatures)
		for idx, cnt := range featureCount[ci] {
			nb.FeatureLogProb[ci][idx] = math.Log(cnt+nb.Alpha) - denom
		}
	}
	return nil
}

// fitted reports whether Fit has run.
func (nb *MultinomialNB) fitted() bool {
	return nb != nil && len(nb.Classes) > 0
}

// PredictProba returns, for each input vector, one probability per class in
// the order of nb.Classes. Returns ErrNotFitted if the classifier was never
// trained (a deserialized but empty artifact hits this).
func (nb *MultinomialNB) PredictProba(vectors []SparseVector) ([][]float64, error) {
	if !nb.fitted() {
		return nil, ErrNotFitted
	}

	probs := make([][]float64, len(vectors))
	for i, vec := range vectors {
		jll := make([]float64, len(nb.Classes))
		for ci := range nb.Classes {
			sum := nb.ClassLogPrior[ci]
			for idx, val := range vec {
				if idx < nb.NumFeatures {
					sum += val * nb.FeatureLogProb[ci][idx]
				}
			}
			jll[ci] = sum
		}
		probs[i] = softmaxFromLog(jll)
	}
	return probs, nil
}

// Predict returns the most probable class for each input vector.
func (nb *MultinomialNB) Predict(vectors []SparseVector) ([]int, error) {
	probs, err := nb.PredictProba(vectors)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, p := range probs {
		best := 0
		for ci := 1; ci < len(p); ci++ {
			if p[ci] > p[best] {
				best = ci
			}
		}
		out[i] = nb.Classes[best]
	}
	return out, nil
}

// softmaxFromLog exponentiates log-likelihoods into normalized probabilities
// using the log-sum-exp trick for numeric stability.
func softmaxFromLog(logs []float64) []float64 {
	maxLog := math.Inf(-1)
	for _, l := range logs {
		if l > maxLog {
			maxLog = l
		}
	}
	probs := make([]float64, len(logs))
	var total float64
	for i, l := range logs {
		probs[i] = math.Exp(l - maxLog)
		total += probs[i]
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs
}
