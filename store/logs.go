package store

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"scholarfeed/models"
)

// LogStore appends user event logs.
type LogStore struct {
	db *gorm.DB
}

func NewLogStore(db *gorm.DB) *LogStore {
	return &LogStore{db: db}
}

// CreateLog records an event with an arbitrary JSON context.
func (s *LogStore) CreateLog(userID uint, event string, context map[string]any) error {
	ctx, err := json.Marshal(context)
	if err != nil {
		return err
	}
	return s.db.Create(&models.UserLog{
		UserID:  userID,
		Event:   event,
		Context: datatypes.JSON(ctx),
	}).Error
}

// ForUser returns a user's event log, newest first.
func (s *LogStore) ForUser(userID uint, limit int) ([]*models.UserLog, error) {
	var logs []*models.UserLog
	q := s.db.Where("user_id = ?", userID).Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&logs).Error
	return logs, err
}
