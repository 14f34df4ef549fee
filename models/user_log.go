package models

import (
	"time"

	"gorm.io/datatypes"
)

// Supported user log events.
const (
	EventClick        = "CLICK"
	EventLike         = "LIKE"
	EventDislike      = "DISLIKE"
	EventSearch       = "SEARCH"
	EventRegistration = "REGISTRATION"
)

// UserLog records a single user action. Event details go into the JSON
// context column (article id, search query, ...).
type UserLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Timestamp time.Time `json:"timestamp" gorm:"autoCreateTime"`

	UserID  uint           `json:"user_id" gorm:"index;not null"`
	Event   string         `json:"event" gorm:"size:50;not null"`
	Context datatypes.JSON `json:"context"`
}

func (UserLog) TableName() string { return "user_logs" }
