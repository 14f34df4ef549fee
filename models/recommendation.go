package models

import "time"

// Recommendation relates one user to one article. It carries the score the
// user's classifier assigned to the article and the interaction flags the
// user set on it. At most one recommendation may exist per (user, article)
// pair; the store enforces this with an explicit pre-save check.
type Recommendation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID    uint    `json:"user_id" gorm:"index;not null"`
	ArticleID uint    `json:"article_id" gorm:"index;not null"`
	Article   Article `json:"article,omitempty" gorm:"constraint:OnDelete:CASCADE"`

	Score float64 `json:"score" gorm:"index;default:0"`

	// Liked and disliked are mutually exclusive; the interaction service
	// clears the opposite flag on every toggle. Clicked is sticky.
	Clicked  bool `json:"clicked" gorm:"default:false"`
	Liked    bool `json:"liked" gorm:"default:false"`
	Disliked bool `json:"disliked" gorm:"default:false"`
}

func (Recommendation) TableName() string { return "recommendations" }

// Interacted reports whether the user touched this recommendation at all.
func (r *Recommendation) Interacted() bool {
	return r.Clicked || r.Liked || r.Disliked
}
