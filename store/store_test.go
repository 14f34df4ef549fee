package store

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

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

func mustCreateArticle(t *testing.T, s *ArticleStore, title string) *models.Article {
	t.Helper()
	a := &models.Article{Title: title}
	if err := s.Create(a); err != nil {
		t.Fatalf("create article %q: %v", title, err)
	}
	return a
}

func mustCreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %q: %v", email, err)
	}
	return u
}
