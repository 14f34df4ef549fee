package store

import (
	"time"

	"gorm.io/gorm"

	"scholarfeed/models"
)

// UserStore reads and writes users and their profiles.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Get returns one user by id.
func (s *UserStore) Get(id uint) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDs returns the users with the given ids, or all users when the list
// is empty. Batch jobs default to "everyone" this way.
func (s *UserStore) GetByIDs(ids []uint) ([]*models.User, error) {
	var users []*models.User
	q := s.db
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	err := q.Find(&users).Error
	return users, err
}

// Profile returns the user's profile, creating it on first access.
func (s *UserStore) Profile(userID uint) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.Where(models.UserProfile{UserID: userID}).
		Attrs(models.UserProfile{LastVisit: time.Now()}).
		FirstOrCreate(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// IncrementInteractions bumps the recent-interaction counter by one. The
// increment runs as a single SQL expression so concurrent requests never
// lose an update.
func (s *UserStore) IncrementInteractions(userID uint) error {
	if _, err := s.Profile(userID); err != nil {
		return err
	}
	return s.db.Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		Update("recent_interactions", gorm.Expr("recent_interactions + 1")).Error
}

// ResetInteractions zeroes the recent-interaction counter. Called only after
// a retraining pass completed successfully.
func (s *UserStore) ResetInteractions(userID uint) error {
	return s.db.Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		Update("recent_interactions", 0).Error
}

// TouchLastVisit records user activity for the inactive-account sweep.
func (s *UserStore) TouchLastVisit(userID uint) error {
	if _, err := s.Profile(userID); err != nil {
		return err
	}
	return s.db.Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		Update("last_visit", time.Now()).Error
}

// InactiveSince returns non-staff users whose last visit predates the given
// time.
func (s *UserStore) InactiveSince(threshold time.Time) ([]*models.User, error) {
	var users []*models.User
	err := s.db.Model(&models.User{}).
		Joins("JOIN user_profiles ON user_profiles.user_id = users.id").
		Where("users.is_staff = ?", false).
		Where("user_profiles.last_visit < ?", threshold).
		Find(&users).Error
	return users, err
}

// Delete removes the user record and its dependents (profile, uploads,
// recommendations, logs). Model artifacts on disk are the account service's
// responsibility and must be cleaned up before calling this.
func (s *UserStore) Delete(userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{
			&models.Recommendation{},
			&models.UserUpload{},
			&models.UserTextInput{},
			&models.UserLog{},
			&models.UserProfile{},
		} {
			if err := tx.Where("user_id = ?", userID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, userID).Error
	})
}
