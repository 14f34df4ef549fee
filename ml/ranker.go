package ml

import (
	"sort"

	"scholarfeed/models"
)

// ScoredArticle pairs an article with the probability that it belongs to the
// interesting class.
type ScoredArticle struct {
	Article *models.Article
	Score   float64
}

// Ranker applies a model to batches of articles. Feed data with AddArticle or
// AddArticles, then call GetPredictions; or use RankArticles for the whole
// add-predict-sort cycle.
type Ranker struct {
	model *Model
	data  []string
}

// NewRanker returns a ranker bound to the given model.
func NewRanker(model *Model) *Ranker {
	return &Ranker{model: model}
}

// ResetData drops previously added data samples.
func (r *Ranker) ResetData() {
	r.data = nil
}

// AddArticle feeds a single article for later prediction.
func (r *Ranker) AddArticle(a *models.Article) {
	r.data = append(r.data, PrepareArticle(a))
}

// AddArticles feeds a list of articles for later prediction.
func (r *Ranker) AddArticles(articles []*models.Article) {
	for _, a := range articles {
		r.AddArticle(a)
	}
}

// GetPredictions returns one probability vector per added data sample, in
// insertion order. Each vector holds one probability per class the model was
// trained on. Returns ErrNoModel when no usable model was supplied, ErrNoData
// when nothing was added and ErrNotFitted when the classifier artifact was
// never actually trained.
func (r *Ranker) GetPredictions() ([][]float64, error) {
	if !r.model.IsInitialized() {
		return nil, ErrNoModel
	}
	if len(r.data) == 0 {
		return nil, ErrNoData
	}
	vectors := r.model.Vectorizer.TransformAll(r.data)
	return r.model.Classifier.PredictProba(vectors)
}

// PredictSingle predicts one data sample and returns its probability vector.
func (r *Ranker) PredictSingle(a *models.Article) ([]float64, error) {
	r.ResetData()
	r.AddArticle(a)
	predictions, err := r.GetPredictions()
	if err != nil {
		return nil, err
	}
	return predictions[0], nil
}

// interestingIndex locates the interesting class in the model's class order.
func (r *Ranker) interestingIndex() int {
	for i, c := range r.model.Classifier.Classes {
		if c == ClassInteresting {
			return i
		}
	}
	return -1
}

// Scores returns the interesting-class probability for each added sample.
func (r *Ranker) Scores() ([]float64, error) {
	predictions, err := r.GetPredictions()
	if err != nil {
		return nil, err
	}
	idx := r.interestingIndex()
	scores := make([]float64, len(predictions))
	if idx < 0 {
		// Model never saw a positive sample; everything scores zero.
		return scores, nil
	}
	for i, p := range predictions {
		scores[i] = p[idx]
	}
	return scores, nil
}

// RankArticles scores the given articles and returns them sorted by score in
// descending order. Ties keep their input order.
func (r *Ranker) RankArticles(articles []*models.Article) ([]ScoredArticle, error) {
	r.ResetData()
	r.AddArticles(articles)
	scores, err := r.Scores()
	if err != nil {
		return nil, err
	}

	ranked := make([]ScoredArticle, len(articles))
	for i, a := range articles {
		ranked[i] = ScoredArticle{Article: a, Score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}
