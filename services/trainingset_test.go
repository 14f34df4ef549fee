package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"scholarfeed/ml"
	"scholarfeed/models"
	"scholarfeed/store"
)

type builderFixture struct {
	builder *TrainingSetBuilder
	arts    *store.ArticleStore
	recs    *store.RecommendationStore
	uploads *store.UploadStore
}

func newBuilderFixture(t *testing.T) *builderFixture {
	t.Helper()
	db := newTestDB(t)
	arts := store.NewArticleStore(db)
	recs := store.NewRecommendationStore(db)
	uploads := store.NewUploadStore(db)
	builder := NewTrainingSetBuilder(testConfig(t), arts, recs, uploads, nil, zap.NewNop())
	return &builderFixture{builder: builder, arts: arts, recs: recs, uploads: uploads}
}

func (f *builderFixture) seedArticles(t *testing.T, n int) []*models.Article {
	t.Helper()
	articles := make([]*models.Article, n)
	for i := range articles {
		a := &models.Article{Title: fmt.Sprintf("article number %d about topic %d", i, i)}
		if err := f.arts.Create(a); err != nil {
			t.Fatalf("create article: %v", err)
		}
		articles[i] = a
	}
	return articles
}

func (f *builderFixture) interact(t *testing.T, articleID uint, clicked, liked, disliked bool) {
	t.Helper()
	err := f.recs.Create(&models.Recommendation{
		UserID: 1, ArticleID: articleID,
		Clicked: clicked, Liked: liked, Disliked: disliked,
	})
	if err != nil {
		t.Fatalf("create recommendation: %v", err)
	}
}

func TestBuildInsufficientData(t *testing.T) {
	f := newBuilderFixture(t)
	articles := f.seedArticles(t, 5)
	f.interact(t, articles[0].ID, false, true, false)

	trainer := ml.NewTrainer(zap.NewNop())
	err := f.builder.Build(context.Background(), 1, false, trainer)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
	if trainer.NumSamples() != 0 {
		t.Errorf("trainer got %d samples despite abort", trainer.NumSamples())
	}
}

func TestBuildBalancesClasses(t *testing.T) {
	f := newBuilderFixture(t)
	articles := f.seedArticles(t, 20)

	// 3 likes, 1 dislike and 2 plain clicks: 5 positives against 1
	// negative, so 4 random negatives get drawn on top.
	f.interact(t, articles[0].ID, false, true, false)
	f.interact(t, articles[1].ID, false, true, false)
	f.interact(t, articles[2].ID, true, true, false)
	f.interact(t, articles[3].ID, false, false, true)
	f.interact(t, articles[4].ID, true, false, false)
	f.interact(t, articles[5].ID, true, false, false)

	trainer := ml.NewTrainer(zap.NewNop())
	if err := f.builder.Build(context.Background(), 1, false, trainer); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if trainer.NumSamples() != 10 {
		t.Errorf("samples = %d, want 10 (6 interactions + 4 padding)", trainer.NumSamples())
	}
}

func TestBuildNegativeSurplusNotPadded(t *testing.T) {
	f := newBuilderFixture(t)
	articles := f.seedArticles(t, 20)

	// 1 like against 4 dislikes: nothing to pad, the surplus stays.
	f.interact(t, articles[0].ID, false, true, false)
	for i := 1; i <= 4; i++ {
		f.interact(t, articles[i].ID, false, false, true)
	}

	trainer := ml.NewTrainer(zap.NewNop())
	if err := f.builder.Build(context.Background(), 1, false, trainer); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if trainer.NumSamples() != 5 {
		t.Errorf("samples = %d, want exactly the 5 interactions", trainer.NumSamples())
	}
}

func TestBuildTrainsEndToEnd(t *testing.T) {
	f := newBuilderFixture(t)

	// Positive and negative interactions with clearly separated vocabulary.
	for i := 0; i < 4; i++ {
		a := &models.Article{Title: fmt.Sprintf("neural network learning paper %d", i)}
		if err := f.arts.Create(a); err != nil {
			t.Fatalf("create: %v", err)
		}
		f.interact(t, a.ID, false, true, false)
	}
	for i := 0; i < 4; i++ {
		a := &models.Article{Title: fmt.Sprintf("soil fertilizer agriculture study %d", i)}
		if err := f.arts.Create(a); err != nil {
			t.Fatalf("create: %v", err)
		}
		f.interact(t, a.ID, false, false, true)
	}

	trainer := ml.NewTrainer(zap.NewNop())
	if err := f.builder.Build(context.Background(), 1, false, trainer); err != nil {
		t.Fatalf("Build: %v", err)
	}
	model, err := trainer.Train()
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	ranker := ml.NewRanker(model)
	probs, err := ranker.PredictSingle(&models.Article{Title: "a neural network paper"})
	if err != nil {
		t.Fatalf("PredictSingle: %v", err)
	}
	if len(probs) != 2 {
		t.Fatalf("got %d class probabilities, want 2", len(probs))
	}
}

func TestNormalizeTitleMatching(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Deep Learning", "deep learning", true},
		{"Deep-Learning!", "deep learning", true},
		{"Deep Learning", "deep learner", false},
	}
	for _, tt := range tests {
		got := normalizeTitle(tt.a) == normalizeTitle(tt.b)
		if got != tt.want {
			t.Errorf("match(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
