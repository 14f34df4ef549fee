package services

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"scholarfeed/config"
	"scholarfeed/store"
)

// RetrainPolicy decides when a user's accumulated interactions justify a
// retraining pass.
type RetrainPolicy struct {
	Absolute int
	Percent  float64
}

// Permitted reports whether retraining may run. The threshold is the smaller
// of the absolute count and the percentage of all interactions the user ever
// made, so fresh accounts with a short history retrain early while heavy
// users are not retrained on every click.
func (p RetrainPolicy) Permitted(recent int, lifetime int64) bool {
	threshold := math.Min(float64(p.Absolute), p.Percent*float64(lifetime))
	return float64(recent) >= threshold
}

// RetrainService runs the full retraining cycle for users: check the policy,
// train, reset the interaction counter and rescore the recently interacted
// articles.
type RetrainService struct {
	Config      *config.Config
	Users       *store.UserStore
	Recs        *store.RecommendationStore
	Train       *TrainService
	Recommender *Recommender
	Policy      RetrainPolicy
	Logger      *zap.Logger
}

// NewRetrainService creates a RetrainService with the policy taken from the
// configuration.
func NewRetrainService(cfg *config.Config, users *store.UserStore, recs *store.RecommendationStore,
	train *TrainService, recommender *Recommender, logger *zap.Logger) *RetrainService {
	return &RetrainService{
		Config:      cfg,
		Users:       users,
		Recs:        recs,
		Train:       train,
		Recommender: recommender,
		Policy: RetrainPolicy{
			Absolute: cfg.RetrainThresholdAbsolute,
			Percent:  cfg.RetrainThresholdPercent,
		},
		Logger: logger,
	}
}

// RunForUser retrains one user if the policy permits it (or force is set).
// On success the recent-interaction counter is reset and every article the
// user interacted with inside the rescore window gets a fresh score. A user
// with too little training data is skipped without resetting the counter, so
// the signal is not lost. Reports whether a training pass actually ran.
func (s *RetrainService) RunForUser(ctx context.Context, userID uint, force bool) (bool, error) {
	log := s.Logger.With(zap.Uint("user_id", userID))

	profile, err := s.Users.Profile(userID)
	if err != nil {
		return false, err
	}
	lifetime, err := s.Recs.LifetimeInteractions(userID)
	if err != nil {
		return false, err
	}

	if !force && !s.Policy.Permitted(profile.RecentInteractions, lifetime) {
		log.Debug("Retraining not permitted yet",
			zap.Int("recent", profile.RecentInteractions),
			zap.Int64("lifetime", lifetime))
		return false, nil
	}

	if err := s.Train.TrainUser(ctx, userID, true); err != nil {
		if errors.Is(err, ErrInsufficientData) {
			log.Warn("Skipping retraining, not enough data")
			return false, nil
		}
		return false, err
	}

	if err := s.Users.ResetInteractions(userID); err != nil {
		return true, err
	}

	// Rescore what the user recently touched so the feed reflects the new
	// model right away. Older recommendations keep their scores until the
	// next full run.
	since := time.Now().AddDate(0, 0, -s.Config.RescoreWindowDays)
	ids, err := s.Recs.InteractedArticleIDsSince(userID, since)
	if err != nil {
		return true, err
	}
	if len(ids) > 0 {
		if _, err := s.Recommender.RunForUser(ctx, userID, CandidateFilter{ArticleIDs: ids}); err != nil {
			return true, err
		}
	}

	log.Info("Retraining cycle completed")
	return true, nil
}

// RunSweep retrains every given user (all users when the list is empty),
// continuing past individual failures. Returns how many users were actually
// retrained.
func (s *RetrainService) RunSweep(ctx context.Context, userIDs []uint, force bool) (int, error) {
	users, err := s.Users.GetByIDs(userIDs)
	if err != nil {
		return 0, err
	}
	retrained := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return retrained, err
		}
		ran, err := s.RunForUser(ctx, u.ID, force)
		if ran {
			retrained++
		}
		if err != nil {
			s.Logger.Error("Retraining failed", zap.Uint("user_id", u.ID), zap.Error(err))
		}
	}
	return retrained, nil
}
