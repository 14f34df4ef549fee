package services

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"scholarfeed/classifier"
	"scholarfeed/config"
	"scholarfeed/store"
)

// AccountService handles destructive account operations: resetting a user's
// learned state and deleting accounts.
type AccountService struct {
	Config  *config.Config
	Users   *store.UserStore
	Recs    *store.RecommendationStore
	Uploads *store.UploadStore
	Models  *classifier.Store
	Logger  *zap.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(cfg *config.Config, users *store.UserStore, recs *store.RecommendationStore,
	uploads *store.UploadStore, models *classifier.Store, logger *zap.Logger) *AccountService {
	return &AccountService{
		Config:  cfg,
		Users:   users,
		Recs:    recs,
		Uploads: uploads,
		Models:  models,
		Logger:  logger,
	}
}

// Reset wipes everything the system learned about a user: uploaded files and
// their records, pasted identifier lists, the model artifacts and all
// interaction flags on their recommendations. The recommendations themselves
// and the account stay.
func (s *AccountService) Reset(userID uint) error {
	log := s.Logger.With(zap.Uint("user_id", userID))
	log.Info("Resetting account")

	uploads, err := s.Uploads.ForUser(userID)
	if err != nil {
		return err
	}
	for _, upload := range uploads {
		if err := os.Remove(upload.Path); err != nil && !os.IsNotExist(err) {
			log.Error("Could not delete uploaded file",
				zap.String("path", upload.Path), zap.Error(err))
		}
	}
	if err := s.Uploads.DeleteForUser(userID); err != nil {
		return err
	}
	if err := s.Uploads.DeleteTextInputsForUser(userID); err != nil {
		return err
	}

	s.Models.DeleteFiles(userID)

	if err := s.Recs.ResetFlags(userID); err != nil {
		return err
	}
	return s.Users.ResetInteractions(userID)
}

// Delete removes a user account entirely. Artifact deletion runs first and
// is logged but never blocks the database deletion; a leftover directory is
// cheaper than a half-deleted account.
func (s *AccountService) Delete(userID uint) error {
	s.Logger.Info("Deleting user", zap.Uint("user_id", userID))
	s.Models.DeleteFiles(userID)

	uploads, err := s.Uploads.ForUser(userID)
	if err == nil {
		for _, upload := range uploads {
			if err := os.Remove(upload.Path); err != nil && !os.IsNotExist(err) {
				s.Logger.Error("Could not delete uploaded file",
					zap.String("path", upload.Path), zap.Error(err))
			}
		}
	}

	return s.Users.Delete(userID)
}

// DeleteInactive removes every non-staff account whose last visit is older
// than the configured number of days. Returns how many accounts were
// deleted.
func (s *AccountService) DeleteInactive(ctx context.Context) (int, error) {
	threshold := time.Now().AddDate(0, 0, -s.Config.InactiveUserDays)
	users, err := s.Users.InactiveSince(threshold)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := s.Delete(u.ID); err != nil {
			s.Logger.Error("Could not delete inactive user",
				zap.Uint("user_id", u.ID), zap.Error(err))
			continue
		}
		deleted++
	}
	if deleted > 0 {
		s.Logger.Info("Inactive accounts deleted", zap.Int("count", deleted))
	}
	return deleted, nil
}
