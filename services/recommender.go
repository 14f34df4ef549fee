package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"scholarfeed/classifier"
	"scholarfeed/config"
	"scholarfeed/ml"
	"scholarfeed/models"
	"scholarfeed/store"
)

// CandidateFilter selects which articles a recommendation run scores.
// The first non-empty selector wins: an explicit id list, then a publication
// window, then unranked-only, then the whole corpus. PreserveExisting drops
// articles the user already has a recommendation for from the candidate set,
// so existing scores stay untouched and do not take per-batch slots away from
// fresh articles.
type CandidateFilter struct {
	ArticleIDs       []uint `json:"article_ids"`
	LastDays         int    `json:"last_days"`
	UnrankedOnly     bool   `json:"unranked_only"`
	PreserveExisting bool   `json:"preserve_existing"`
}

// Recommender materializes scored recommendations for users. Candidate
// articles are scored in fixed-size batches and only the best of each batch
// are persisted, which bounds the number of rows a single run can write.
type Recommender struct {
	Config *config.Config
	Arts   *store.ArticleStore
	Recs   *store.RecommendationStore
	Models *classifier.Store
	Logger *zap.Logger
}

// NewRecommender creates a Recommender.
func NewRecommender(cfg *config.Config, arts *store.ArticleStore, recs *store.RecommendationStore,
	models *classifier.Store, logger *zap.Logger) *Recommender {
	return &Recommender{
		Config: cfg,
		Arts:   arts,
		Recs:   recs,
		Models: models,
		Logger: logger,
	}
}

// RunForUser scores the selected candidates with the user's model and
// persists the top recommendations of every batch. Existing records keep
// their interaction flags; only the score is overwritten.
//
// A user without a complete model is skipped with a warning. A model whose
// classifier artifact exists but was never fitted aborts the run with an
// error, since every batch would fail the same way.
func (r *Recommender) RunForUser(ctx context.Context, userID uint, filter CandidateFilter) (int, error) {
	log := r.Logger.With(zap.Uint("user_id", userID))

	model, err := r.Models.Load(userID)
	if err != nil {
		return 0, fmt.Errorf("loading model for user %d: %w", userID, err)
	}
	if !model.IsInitialized() {
		log.Warn("Skipping user, classifier not yet initialized")
		return 0, nil
	}

	candidates, err := r.candidates(userID, filter)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		log.Info("No candidate articles to rank")
		return 0, nil
	}
	log.Info("Ranking candidates", zap.Int("count", len(candidates)))

	ranker := ml.NewRanker(model)
	written := 0
	batchSize := r.Config.RankingBatchSize
	for start := 0; start < len(candidates); start += batchSize {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		ranked, err := ranker.RankArticles(candidates[start:end])
		if err != nil {
			if errors.Is(err, ml.ErrNotFitted) {
				return written, fmt.Errorf("ranking for user %d: %w", userID, err)
			}
			return written, err
		}

		top := ranked
		if len(top) > r.Config.RecommendationsPerBatch {
			top = top[:r.Config.RecommendationsPerBatch]
		}
		for _, scored := range top {
			wrote, err := r.upsertScore(userID, scored.Article.ID, scored.Score)
			if err != nil {
				return written, err
			}
			if wrote {
				written++
			}
		}
	}

	log.Info("Recommendations written", zap.Int("count", written))
	return written, nil
}

// RunForUsers runs RunForUser for each given user. A failing user is logged
// and the sweep continues with the next one.
func (r *Recommender) RunForUsers(ctx context.Context, userIDs []uint, filter CandidateFilter) int {
	total := 0
	for _, userID := range userIDs {
		n, err := r.RunForUser(ctx, userID, filter)
		total += n
		if err != nil {
			r.Logger.Error("Recommendation run failed",
				zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return total
}

func (r *Recommender) candidates(userID uint, filter CandidateFilter) ([]*models.Article, error) {
	var arts []*models.Article
	var err error
	switch {
	case len(filter.ArticleIDs) > 0:
		arts, err = r.Arts.GetByIDs(filter.ArticleIDs)
	case filter.LastDays > 0:
		since := time.Now().AddDate(0, 0, -filter.LastDays)
		arts, err = r.Arts.PublishedSince(since)
	case filter.UnrankedOnly:
		return r.Arts.Unranked(userID)
	default:
		arts, err = r.Arts.All()
	}
	if err != nil || !filter.PreserveExisting {
		return arts, err
	}

	// Preserved recommendations must not compete for the per-batch slots, so
	// they leave the candidate set before ranking.
	ranked, err := r.Recs.ArticleIDs(userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]struct{}, len(ranked))
	for _, id := range ranked {
		seen[id] = struct{}{}
	}
	kept := arts[:0]
	for _, a := range arts {
		if _, ok := seen[a.ID]; !ok {
			kept = append(kept, a)
		}
	}
	return kept, nil
}

// upsertScore writes the new score, keeping any interaction flags already on
// the record. A concurrent create of the same pair is resolved by reloading
// and saving once more.
func (r *Recommender) upsertScore(userID, articleID uint, score float64) (bool, error) {
	rec, err := r.Recs.GetOrNew(userID, articleID)
	if err != nil {
		return false, err
	}
	rec.Score = score

	err = r.Recs.Save(rec)
	if errors.Is(err, store.ErrDuplicateRecommendation) {
		rec, err = r.Recs.Get(userID, articleID)
		if err != nil {
			return false, err
		}
		rec.Score = score
		return true, r.Recs.Save(rec)
	}
	return err == nil, err
}
