package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"scholarfeed/classifier"
	"scholarfeed/config"
	"scholarfeed/ml"
)

// TrainService trains one user's classifier from their assembled training
// set and persists the resulting artifacts.
type TrainService struct {
	Config  *config.Config
	Builder *TrainingSetBuilder
	Models  *classifier.Store
	Logger  *zap.Logger
}

// NewTrainService creates a TrainService.
func NewTrainService(cfg *config.Config, builder *TrainingSetBuilder, models *classifier.Store, logger *zap.Logger) *TrainService {
	return &TrainService{
		Config:  cfg,
		Builder: builder,
		Models:  models,
		Logger:  logger,
	}
}

// TrainUser builds the training set, fits a fresh model and saves it. With
// exhaustive set, incomplete uploaded references are completed from the
// upstream sources first.
//
// Returns ErrInsufficientData when the user has too few samples; the
// previously saved artifacts are left untouched in that case.
func (s *TrainService) TrainUser(ctx context.Context, userID uint, exhaustive bool) error {
	log := s.Logger.With(zap.Uint("user_id", userID))
	log.Info("Training classifier", zap.Bool("exhaustive", exhaustive))

	trainer := ml.NewTrainer(log)
	if err := s.Builder.Build(ctx, userID, exhaustive, trainer); err != nil {
		if errors.Is(err, ErrInsufficientData) {
			return err
		}
		return fmt.Errorf("building training set for user %d: %w", userID, err)
	}

	model, err := trainer.Train()
	if err != nil {
		return fmt.Errorf("training model for user %d: %w", userID, err)
	}
	if model == nil {
		return ErrInsufficientData
	}

	if err := s.Models.Save(userID, model); err != nil {
		return fmt.Errorf("saving model for user %d: %w", userID, err)
	}
	log.Info("Classifier trained and saved", zap.Int("samples", trainer.NumSamples()))
	return nil
}
