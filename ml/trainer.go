package ml

import (
	"math"

	"go.uber.org/zap"
)

// Sample is one unit of training input: the text to learn from, the target
// class and a weight. Clicks without an explicit like carry half weight.
type Sample struct {
	Data   string
	Target int
	Weight float64
}

// Trainer collects samples and fits a model on them.
type Trainer struct {
	samples []Sample
	cv      int
	log     *zap.Logger
}

// NewTrainer returns a trainer with 10-fold cross-validation reporting.
func NewTrainer(log *zap.Logger) *Trainer {
	return &Trainer{cv: 10, log: log}
}

// AddData appends one sample to the training set. A non-positive weight is
// treated as the default weight of 1.
func (t *Trainer) AddData(data string, target int, weight float64) {
	if weight <= 0 {
		weight = 1
	}
	t.samples = append(t.samples, Sample{Data: data, Target: target, Weight: weight})
}

// NumSamples returns how many samples were added so far.
func (t *Trainer) NumSamples() int {
	return len(t.samples)
}

// Train fits a tf-idf vectorizer and a naive Bayes classifier on the
// collected samples and returns the resulting model. Returns nil when no
// samples were added. Cross-validated precision and recall are logged as a
// quality signal only; they never block training.
func (t *Trainer) Train() (*Model, error) {
	if len(t.samples) == 0 {
		return nil, nil
	}

	data := make([]string, len(t.samples))
	targets := make([]int, len(t.samples))
	weights := make([]float64, len(t.samples))
	for i, s := range t.samples {
		data[i] = s.Data
		targets[i] = s.Target
		weights[i] = s.Weight
	}

	t.log.Info("Extracting features ...")
	model := &Model{Vectorizer: &TfidfVectorizer{}}
	vectors := model.Vectorizer.FitTransform(data)
	t.log.Info("Feature extraction done",
		zap.Int("samples", len(t.samples)),
		zap.Int("features", model.Vectorizer.NumFeatures()))

	t.log.Info("Training the model ...")
	model.Classifier = NewMultinomialNB()
	if err := model.Classifier.Fit(vectors, targets, weights); err != nil {
		return nil, err
	}

	t.logCrossValidation(vectors, targets, weights)
	return model, nil
}

// logCrossValidation reports k-fold precision/recall/F-measure for the
// interesting class. Purely informational.
func (t *Trainer) logCrossValidation(vectors []SparseVector, targets []int, weights []float64) {
	k := t.cv
	if len(vectors) < k {
		k = len(vectors)
	}
	if k < 2 {
		return
	}

	t.log.Info("Calculating cross-validation ...")
	var precisions, recalls []float64

	for fold := 0; fold < k; fold++ {
		var trainVec, testVec []SparseVector
		var trainTgt, testTgt []int
		var trainW []float64
		for i := range vectors {
			if i%k == fold {
				testVec = append(testVec, vectors[i])
				testTgt = append(testTgt, targets[i])
			} else {
				trainVec = append(trainVec, vectors[i])
				trainTgt = append(trainTgt, targets[i])
				trainW = append(trainW, weights[i])
			}
		}
		if len(trainVec) == 0 || len(testVec) == 0 {
			continue
		}

		nb := NewMultinomialNB()
		if err := nb.Fit(trainVec, trainTgt, trainW); err != nil {
			continue
		}
		predicted, err := nb.Predict(testVec)
		if err != nil {
			continue
		}

		var tp, fp, fn float64
		for i, pred := range predicted {
			actual := testTgt[i]
			switch {
			case pred == ClassInteresting && actual == ClassInteresting:
				tp++
			case pred == ClassInteresting && actual != ClassInteresting:
				fp++
			case pred != ClassInteresting && actual == ClassInteresting:
				fn++
			}
		}
		if tp+fp > 0 {
			precisions = append(precisions, tp/(tp+fp))
		}
		if tp+fn > 0 {
			recalls = append(recalls, tp/(tp+fn))
		}
	}

	if len(precisions) == 0 || len(recalls) == 0 {
		return
	}
	p, pStd := meanStd(precisions)
	r, rStd := meanStd(recalls)
	t.log.Info("Cross-validation results",
		zap.Float64("precision", p),
		zap.Float64("precision_spread", pStd*2),
		zap.Float64("recall", r),
		zap.Float64("recall_spread", rStd*2),
		zap.Float64("f_measure", 2*p*r/(p+r)))
}

func meanStd(values []float64) (mean, std float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		std += (v - mean) * (v - mean)
	}
	std = math.Sqrt(std / float64(len(values)))
	return mean, std
}
