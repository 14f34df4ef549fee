package models

import "time"

// User is the account record. Authentication lives at the web boundary; this
// service only needs identity and a couple of account-level flags.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email   string `json:"email" gorm:"uniqueIndex;not null"`
	IsStaff bool   `json:"is_staff" gorm:"default:false"`
}

func (User) TableName() string { return "users" }

// UserProfile carries the per-user recommendation state. Exactly one profile
// exists per user; the store creates it on first access.
type UserProfile struct {
	UserID    uint      `json:"user_id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Interactions since the last classifier retraining. Incremented on
	// every click/like/dislike, reset to zero after a retraining pass.
	RecentInteractions int `json:"recent_interactions" gorm:"default:0"`

	LastVisit time.Time `json:"last_visit"`
}

func (UserProfile) TableName() string { return "user_profiles" }
