package ml

import "errors"

// Target classes the classifiers predict.
const (
	ClassInteresting = 0
	ClassIrrelevant  = 1
)

var (
	// ErrNotFitted is returned when a model is asked for predictions
	// before it was ever trained.
	ErrNotFitted = errors.New("model is not fitted")

	// ErrNoModel is returned by the ranker when no model was supplied.
	ErrNoModel = errors.New("no model supplied")

	// ErrNoData is returned by the ranker when there is nothing to score.
	ErrNoData = errors.New("no data to predict")
)

// Model pairs a fitted vectorizer with a fitted classifier. Both halves are
// serialized separately; a model is only usable when both are present.
type Model struct {
	Vectorizer *TfidfVectorizer
	Classifier *MultinomialNB
}

// IsInitialized reports whether both halves of the model are present.
func (m *Model) IsInitialized() bool {
	if m == nil {
		return false
	}
	return m.Vectorizer != nil && m.Classifier != nil
}
