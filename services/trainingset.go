package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"scholarfeed/config"
	"scholarfeed/ml"
	"scholarfeed/models"
	"scholarfeed/parsers"
	"scholarfeed/providers"
	"scholarfeed/store"
)

// ErrInsufficientData signals that a user does not have enough labeled
// articles to train on. Callers treat this as a skip, not a failure.
var ErrInsufficientData = errors.New("not enough training data")

var nonAlnumRegex = regexp.MustCompile(`[\W_]+`)

// TrainingSetBuilder assembles the labeled, weighted training samples for
// one user from their interaction history and their uploaded or pasted
// reference libraries.
type TrainingSetBuilder struct {
	Config  *config.Config
	Arts    *store.ArticleStore
	Recs    *store.RecommendationStore
	Uploads *store.UploadStore
	Sources []providers.Source
	Logger  *zap.Logger
}

// NewTrainingSetBuilder creates a builder over the given collaborators.
func NewTrainingSetBuilder(cfg *config.Config, arts *store.ArticleStore, recs *store.RecommendationStore,
	uploads *store.UploadStore, sources []providers.Source, logger *zap.Logger) *TrainingSetBuilder {
	return &TrainingSetBuilder{
		Config:  cfg,
		Arts:    arts,
		Recs:    recs,
		Uploads: uploads,
		Sources: sources,
		Logger:  logger,
	}
}

// Build fills the trainer with this user's samples.
//
// Labeling: likes are interesting with weight 1, dislikes irrelevant with
// weight 1, clicks without a like or dislike are interesting with weight
// 0.5, uploaded and pasted references are interesting with weight 1. When
// positives outnumber negatives, random articles (excluding everything
// already sampled) pad the negative side until the classes are balanced;
// a surplus of negatives is left as is.
//
// Returns ErrInsufficientData when fewer samples than the configured
// minimum are available.
func (b *TrainingSetBuilder) Build(ctx context.Context, userID uint, exhaustive bool, trainer *ml.Trainer) error {
	log := b.Logger.With(zap.Uint("user_id", userID))

	likes, err := b.Recs.LikedArticles(userID)
	if err != nil {
		return err
	}
	dislikes, err := b.Recs.DislikedArticles(userID)
	if err != nil {
		return err
	}
	clicks, err := b.Recs.ClickedOnlyArticles(userID)
	if err != nil {
		return err
	}
	uploaded := b.uploadedArticles(ctx, userID, exhaustive)
	typed := b.typedArticles(ctx, userID)

	log.Info("Assembling training set",
		zap.Int("likes", len(likes)),
		zap.Int("dislikes", len(dislikes)),
		zap.Int("clicks", len(clicks)),
		zap.Int("uploaded", len(uploaded)),
		zap.Int("typed", len(typed)))

	total := len(likes) + len(dislikes) + len(clicks) + len(uploaded) + len(typed)
	if total < b.Config.MinTrainingSamples {
		log.Warn("Aborting training, not enough data",
			zap.Int("samples", total),
			zap.Int("minimum", b.Config.MinTrainingSamples))
		return ErrInsufficientData
	}

	addAll(trainer, likes, ml.ClassInteresting, 1)
	addAll(trainer, dislikes, ml.ClassIrrelevant, 1)
	addAll(trainer, clicks, ml.ClassInteresting, 0.5)
	addAll(trainer, uploaded, ml.ClassInteresting, 1)
	addAll(trainer, typed, ml.ClassInteresting, 1)

	// Pad with random negatives until both classes are the same size. If
	// negatives already dominate we accept the imbalance.
	numPositives := len(likes) + len(clicks) + len(uploaded) + len(typed)
	numPadding := numPositives - len(dislikes)
	if numPadding > 0 {
		// Uploaded and typed articles have no id in our database, so only
		// the interaction-based ones can be excluded from the draw.
		var excluded []uint
		for _, set := range [][]*models.Article{likes, dislikes, clicks} {
			for _, a := range set {
				excluded = append(excluded, a.ID)
			}
		}

		random, err := b.Arts.RandomSample(numPadding, excluded)
		if err != nil {
			return err
		}
		log.Info("Padding with random negatives", zap.Int("count", len(random)))
		addAll(trainer, random, ml.ClassIrrelevant, 1)
	}

	return nil
}

func addAll(trainer *ml.Trainer, articles []*models.Article, target int, weight float64) {
	for _, a := range articles {
		trainer.AddData(ml.PrepareArticle(a), target, weight)
	}
}

// uploadedArticles parses every reference file the user uploaded. A file
// that fails to parse is logged and skipped; it never aborts the run.
func (b *TrainingSetBuilder) uploadedArticles(ctx context.Context, userID uint, exhaustive bool) []*models.Article {
	log := b.Logger.With(zap.Uint("user_id", userID))

	uploads, err := b.Uploads.ForUser(userID)
	if err != nil {
		log.Error("Could not list uploads", zap.Error(err))
		return nil
	}

	var all []*models.Article
	for _, upload := range uploads {
		articles, err := parsers.ParseFile(upload.Path)
		if err != nil {
			log.Error("Skipping malformed upload",
				zap.String("filename", upload.Filename), zap.Error(err))
			continue
		}
		all = append(all, articles...)
	}

	if exhaustive {
		b.completeArticles(ctx, all)
	}
	return all
}

// typedArticles resolves pasted identifier lists through the upstream
// sources.
func (b *TrainingSetBuilder) typedArticles(ctx context.Context, userID uint) []*models.Article {
	log := b.Logger.With(zap.Uint("user_id", userID))

	inputs, err := b.Uploads.TextInputsForUser(userID)
	if err != nil {
		log.Error("Could not list text inputs", zap.Error(err))
		return nil
	}

	var all []*models.Article
	for _, input := range inputs {
		ids := parsers.ParseIdentifierList(input.Text)
		if len(ids) == 0 {
			continue
		}
		for _, source := range b.Sources {
			var articles []*models.Article
			err := providers.WithRetry(ctx, log, b.Config.FetchRetries, b.Config.FetchRetryWait, func() error {
				var qerr error
				articles, qerr = source.QueryByIDs(ctx, ids, len(ids))
				return qerr
			})
			if err != nil {
				log.Warn("Could not resolve identifiers",
					zap.String("source", source.Name()), zap.Error(err))
				continue
			}
			all = append(all, articles...)
		}
	}
	return all
}

// completeArticles fills missing abstract/journal/author fields by querying
// the sources by title and taking the first exact title match. The pass runs
// under a wall-clock budget; whatever is still incomplete when the budget
// runs out stays incomplete.
func (b *TrainingSetBuilder) completeArticles(ctx context.Context, articles []*models.Article) {
	ctx, cancel := context.WithTimeout(ctx, b.Config.ExhaustiveBudget)
	defer cancel()

	for i, a := range articles {
		if a.Title == "" {
			continue // nothing to search by
		}
		if a.Abstract != "" && a.Journal != "" && a.AuthorsString != "" {
			continue // already complete
		}
		if ctx.Err() != nil {
			b.Logger.Warn("Exhaustive completion budget exhausted",
				zap.Int("completed", i), zap.Int("total", len(articles)))
			return
		}

		b.Logger.Info("Completing article fields",
			zap.Int("index", i), zap.Int("total", len(articles)))

		for _, source := range b.Sources {
			var results []*models.Article
			err := providers.WithRetry(ctx, b.Logger, b.Config.FetchRetries, b.Config.FetchRetryWait, func() error {
				var qerr error
				results, qerr = source.QueryTitle(ctx, a.Title, 10)
				return qerr
			})
			if err != nil {
				b.Logger.Warn("Title lookup failed, keeping article incomplete",
					zap.String("source", source.Name()), zap.Error(err))
				continue
			}

			if match := firstTitleMatch(a, results); match != nil {
				*a = *match
				break
			}
		}
	}
}

// firstTitleMatch returns the first candidate whose title matches the
// article's, ignoring case and all non-alphanumeric characters.
func firstTitleMatch(a *models.Article, candidates []*models.Article) *models.Article {
	want := normalizeTitle(a.Title)
	for _, c := range candidates {
		if normalizeTitle(c.Title) == want {
			return c
		}
	}
	return nil
}

func normalizeTitle(title string) string {
	return nonAlnumRegex.ReplaceAllString(strings.ToLower(title), "")
}
