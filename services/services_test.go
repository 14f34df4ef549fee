package services

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"scholarfeed/config"
	"scholarfeed/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.UserProfile{},
		&models.Article{}, &models.Recommendation{},
		&models.UserUpload{}, &models.UserTextInput{}, &models.UserLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ModelDir:                 t.TempDir(),
		UploadDir:                t.TempDir(),
		RetrainThresholdAbsolute: 10,
		RetrainThresholdPercent:  0.1,
		MinTrainingSamples:       5,
		RankingBatchSize:         10000,
		RecommendationsPerBatch:  100,
		RescoreWindowDays:        30,
		InactiveUserDays:         365,
		FetchRetries:             1,
		FetchRetryWait:           0,
		ExhaustiveBudget:         0,
	}
}
