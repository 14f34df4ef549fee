package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"scholarfeed/models"
)

// RecommendationStore reads and writes per-user recommendation records.
type RecommendationStore struct {
	db *gorm.DB
}

func NewRecommendationStore(db *gorm.DB) *RecommendationStore {
	return &RecommendationStore{db: db}
}

// Create saves a new recommendation after checking that none exists yet for
// this (user, article) pair. The check runs in application code rather than
// as a database constraint, matching how the rest of the write path treats
// conflicts: callers doing upserts catch ErrDuplicateRecommendation and
// carry on.
func (s *RecommendationStore) Create(r *models.Recommendation) error {
	var count int64
	err := s.db.Model(&models.Recommendation{}).
		Where("user_id = ? AND article_id = ?", r.UserID, r.ArticleID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateRecommendation
	}
	return s.db.Create(r).Error
}

// Save persists changes to an existing recommendation, or creates it when it
// was never saved before.
func (s *RecommendationStore) Save(r *models.Recommendation) error {
	if r.ID == 0 {
		return s.Create(r)
	}
	return s.db.Save(r).Error
}

// Get returns the recommendation for a (user, article) pair.
func (s *RecommendationStore) Get(userID, articleID uint) (*models.Recommendation, error) {
	var r models.Recommendation
	err := s.db.Where("user_id = ? AND article_id = ?", userID, articleID).First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetOrNew returns the persisted recommendation for the pair if one exists,
// otherwise an unsaved record with score zero. The caller decides whether to
// save it.
func (s *RecommendationStore) GetOrNew(userID, articleID uint) (*models.Recommendation, error) {
	r, err := s.Get(userID, articleID)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &models.Recommendation{UserID: userID, ArticleID: articleID, Score: 0}, nil
}

// ForUser returns every recommendation of a user, best scores first.
func (s *RecommendationStore) ForUser(userID uint, limit int) ([]*models.Recommendation, error) {
	var recs []*models.Recommendation
	q := s.db.Where("user_id = ?", userID).Order("score desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&recs).Error
	return recs, err
}

// LikedArticles returns articles the user liked (and did not later dislike).
func (s *RecommendationStore) LikedArticles(userID uint) ([]*models.Article, error) {
	return s.articlesByFlags(userID, "liked = ? AND disliked = ?", true, false)
}

// DislikedArticles returns articles the user disliked.
func (s *RecommendationStore) DislikedArticles(userID uint) ([]*models.Article, error) {
	return s.articlesByFlags(userID, "liked = ? AND disliked = ?", false, true)
}

// ClickedOnlyArticles returns articles the user clicked but neither liked
// nor disliked. These are weaker interest signals than likes.
func (s *RecommendationStore) ClickedOnlyArticles(userID uint) ([]*models.Article, error) {
	return s.articlesByFlags(userID, "clicked = ? AND liked = ? AND disliked = ?", true, false, false)
}

func (s *RecommendationStore) articlesByFlags(userID uint, cond string, args ...any) ([]*models.Article, error) {
	var articles []*models.Article
	err := s.db.Model(&models.Article{}).
		Joins("JOIN recommendations ON recommendations.article_id = articles.id").
		Where("recommendations.user_id = ?", userID).
		Where(cond, args...).
		Find(&articles).Error
	return articles, err
}

// ArticleIDs returns the ids of every article the user already has a
// recommendation for, whatever its score or flags.
func (s *RecommendationStore) ArticleIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.Recommendation{}).
		Where("user_id = ?", userID).
		Pluck("article_id", &ids).Error
	return ids, err
}

// LifetimeInteractions counts how many recommendations of this user carry at
// least one interaction flag. This is the denominator of the percentage
// retraining threshold.
func (s *RecommendationStore) LifetimeInteractions(userID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.Recommendation{}).
		Where("user_id = ?", userID).
		Where("clicked = ? OR liked = ? OR disliked = ?", true, true, true).
		Count(&count).Error
	return count, err
}

// InteractedArticleIDsSince returns ids of articles published on or after
// the given date that the user clicked, liked or disliked.
func (s *RecommendationStore) InteractedArticleIDsSince(userID uint, since time.Time) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.Recommendation{}).
		Joins("JOIN articles ON articles.id = recommendations.article_id").
		Where("recommendations.user_id = ?", userID).
		Where("articles.pub_date >= ?", since).
		Where("clicked = ? OR liked = ? OR disliked = ?", true, true, true).
		Pluck("recommendations.article_id", &ids).Error
	return ids, err
}

// ResetFlags clears all interaction flags on a user's recommendations in a
// single bulk update. The recommendations themselves stay.
func (s *RecommendationStore) ResetFlags(userID uint) error {
	return s.db.Model(&models.Recommendation{}).
		Where("user_id = ?", userID).
		Where("clicked = ? OR liked = ? OR disliked = ?", true, true, true).
		Updates(map[string]any{"clicked": false, "liked": false, "disliked": false}).Error
}

// DeleteForUser removes every recommendation of a user.
func (s *RecommendationStore) DeleteForUser(userID uint) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.Recommendation{}).Error
}
