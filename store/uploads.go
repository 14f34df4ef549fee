package store

import (
	"gorm.io/gorm"

	"scholarfeed/models"
)

// UploadStore tracks user-supplied reference libraries: uploaded files and
// pasted identifier lists.
type UploadStore struct {
	db *gorm.DB
}

func NewUploadStore(db *gorm.DB) *UploadStore {
	return &UploadStore{db: db}
}

// Create records an uploaded file.
func (s *UploadStore) Create(u *models.UserUpload) error {
	return s.db.Create(u).Error
}

// ForUser returns all uploads of a user.
func (s *UploadStore) ForUser(userID uint) ([]*models.UserUpload, error) {
	var uploads []*models.UserUpload
	err := s.db.Where("user_id = ?", userID).Find(&uploads).Error
	return uploads, err
}

// DeleteForUser removes a user's upload records. The files on disk are
// deleted by the account service.
func (s *UploadStore) DeleteForUser(userID uint) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.UserUpload{}).Error
}

// CreateTextInput records a pasted identifier list.
func (s *UploadStore) CreateTextInput(t *models.UserTextInput) error {
	return s.db.Create(t).Error
}

// TextInputsForUser returns all pasted identifier lists of a user.
func (s *UploadStore) TextInputsForUser(userID uint) ([]*models.UserTextInput, error) {
	var inputs []*models.UserTextInput
	err := s.db.Where("user_id = ?", userID).Find(&inputs).Error
	return inputs, err
}

// DeleteTextInputsForUser removes a user's pasted identifier lists.
func (s *UploadStore) DeleteTextInputsForUser(userID uint) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.UserTextInput{}).Error
}
