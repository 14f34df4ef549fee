package ml

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"scholarfeed/models"
)

func trainedModel(t *testing.T) *Model {
	t.Helper()
	trainer := NewTrainer(zap.NewNop())
	trainer.AddData("deep neural networks learning", ClassInteresting, 1)
	trainer.AddData("neural machine translation", ClassInteresting, 1)
	trainer.AddData("soil bacteria fertilizer", ClassIrrelevant, 1)
	trainer.AddData("crop rotation agriculture", ClassIrrelevant, 1)
	model, err := trainer.Train()
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	return model
}

func TestRankArticlesOrdering(t *testing.T) {
	ranker := NewRanker(trainedModel(t))

	articles := []*models.Article{
		{Title: "Fertilizer application in crop soil"},
		{Title: "Neural networks for machine translation"},
	}
	ranked, err := ranker.RankArticles(articles)
	if err != nil {
		t.Fatalf("RankArticles: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2", len(ranked))
	}
	if ranked[0].Article.Title != articles[1].Title {
		t.Errorf("best ranked = %q, want the neural networks article", ranked[0].Article.Title)
	}
	if ranked[0].Score < ranked[1].Score {
		t.Errorf("scores not descending: %f < %f", ranked[0].Score, ranked[1].Score)
	}
}

func TestRankArticlesDeterministic(t *testing.T) {
	ranker := NewRanker(trainedModel(t))
	articles := []*models.Article{
		{Title: "Neural networks"},
		{Title: "Soil bacteria"},
		{Title: "Machine translation"},
	}

	first, err := ranker.RankArticles(articles)
	if err != nil {
		t.Fatalf("RankArticles: %v", err)
	}
	second, err := ranker.RankArticles(articles)
	if err != nil {
		t.Fatalf("RankArticles (second run): %v", err)
	}
	for i := range first {
		if first[i].Article != second[i].Article || first[i].Score != second[i].Score {
			t.Fatalf("ranking not deterministic at position %d", i)
		}
	}
}

func TestGetPredictionsErrors(t *testing.T) {
	t.Run("no model", func(t *testing.T) {
		ranker := NewRanker(&Model{})
		ranker.AddArticle(&models.Article{Title: "anything"})
		_, err := ranker.GetPredictions()
		if !errors.Is(err, ErrNoModel) {
			t.Errorf("err = %v, want ErrNoModel", err)
		}
	})

	t.Run("no data", func(t *testing.T) {
		ranker := NewRanker(trainedModel(t))
		_, err := ranker.GetPredictions()
		if !errors.Is(err, ErrNoData) {
			t.Errorf("err = %v, want ErrNoData", err)
		}
	})

	t.Run("unfitted classifier", func(t *testing.T) {
		model := &Model{Vectorizer: &TfidfVectorizer{Vocabulary: map[string]int{}}, Classifier: &MultinomialNB{}}
		ranker := NewRanker(model)
		ranker.AddArticle(&models.Article{Title: "anything"})
		_, err := ranker.GetPredictions()
		if !errors.Is(err, ErrNotFitted) {
			t.Errorf("err = %v, want ErrNotFitted", err)
		}
	})
}

func TestScoresWithoutInterestingClass(t *testing.T) {
	trainer := NewTrainer(zap.NewNop())
	trainer.AddData("only negative samples here", ClassIrrelevant, 1)
	trainer.AddData("more negative samples", ClassIrrelevant, 1)
	model, err := trainer.Train()
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	ranker := NewRanker(model)
	ranker.AddArticle(&models.Article{Title: "negative samples"})
	scores, err := ranker.Scores()
	if err != nil {
		t.Fatalf("Scores: %v", err)
	}
	if scores[0] != 0 {
		t.Errorf("score = %f, want 0 when the model has no interesting class", scores[0])
	}
}
