// Package store wraps all database access behind small per-entity stores.
package store

import (
	"errors"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"scholarfeed/models"
)

var (
	// ErrDuplicateArticle signals a second article with the same title.
	ErrDuplicateArticle = errors.New("article with this title already exists")

	// ErrDuplicateRecommendation signals a second recommendation for the
	// same (user, article) pair.
	ErrDuplicateRecommendation = errors.New("recommendation already exists")
)

// ArticleStore reads and writes articles.
type ArticleStore struct {
	db *gorm.DB
}

func NewArticleStore(db *gorm.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// Create saves a new article. Titles are unique; a clash yields
// ErrDuplicateArticle. The uniqueness check runs on the truncated title,
// matching what actually lands in the index.
func (s *ArticleStore) Create(a *models.Article) error {
	title := models.TruncateTitle(a.Title)
	var count int64
	if err := s.db.Model(&models.Article{}).Where("title = ?", title).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateArticle
	}
	return s.db.Create(a).Error
}

// GetByID returns a single article.
func (s *ArticleStore) GetByID(id uint) (*models.Article, error) {
	var a models.Article
	if err := s.db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByIDs returns the articles with the given ids.
func (s *ArticleStore) GetByIDs(ids []uint) ([]*models.Article, error) {
	var articles []*models.Article
	if len(ids) == 0 {
		return articles, nil
	}
	err := s.db.Where("id IN ?", ids).Find(&articles).Error
	return articles, err
}

// FilterByDateRange returns articles published inside [start, end].
func (s *ArticleStore) FilterByDateRange(start, end time.Time) ([]*models.Article, error) {
	var articles []*models.Article
	err := s.db.Where("pub_date >= ? AND pub_date <= ?", start, end).Find(&articles).Error
	return articles, err
}

// PublishedSince returns articles published on or after the given date.
func (s *ArticleStore) PublishedSince(since time.Time) ([]*models.Article, error) {
	var articles []*models.Article
	err := s.db.Where("pub_date >= ?", since).Find(&articles).Error
	return articles, err
}

// All returns every article in the store.
func (s *ArticleStore) All() ([]*models.Article, error) {
	var articles []*models.Article
	err := s.db.Find(&articles).Error
	return articles, err
}

// Unranked returns articles that have no recommendation for the given user.
func (s *ArticleStore) Unranked(userID uint) ([]*models.Article, error) {
	var articles []*models.Article
	err := s.db.
		Where("id NOT IN (?)", s.db.Model(&models.Recommendation{}).
			Select("article_id").Where("user_id = ?", userID)).
		Find(&articles).Error
	return articles, err
}

// Count returns the number of stored articles.
func (s *ArticleStore) Count() (int64, error) {
	var count int64
	err := s.db.Model(&models.Article{}).Count(&count).Error
	return count, err
}

// RandomSample draws up to n random articles, never picking any id from the
// excluded list. Used for padding the training set with negatives.
func (s *ArticleStore) RandomSample(n int, excluding []uint) ([]*models.Article, error) {
	var validKeys []uint
	if err := s.db.Model(&models.Article{}).Pluck("id", &validKeys).Error; err != nil {
		return nil, err
	}

	excluded := make(map[uint]bool, len(excluding))
	for _, id := range excluding {
		excluded[id] = true
	}
	candidates := validKeys[:0]
	for _, id := range validKeys {
		if !excluded[id] {
			candidates = append(candidates, id)
		}
	}

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if n > len(candidates) {
		n = len(candidates)
	}
	return s.GetByIDs(candidates[:n])
}
