package models

import "time"

// UserUpload is a bibliographic file (BibTeX, RIS, EndNote XML) a user
// provided as a reference library. The file itself lives on disk under the
// upload directory; the row records ownership and format.
type UserUpload struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	UserID   uint   `json:"user_id" gorm:"index;not null"`
	Filename string `json:"filename" gorm:"not null"`
	Path     string `json:"path" gorm:"not null"`
}

func (UserUpload) TableName() string { return "user_uploads" }

// UserTextInput is a pasted list of article identifiers (one per line) that
// the training set resolves through the upstream sources.
type UserTextInput struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	UserID uint   `json:"user_id" gorm:"index;not null"`
	Text   string `json:"text" gorm:"type:text;not null"`
}

func (UserTextInput) TableName() string { return "user_text_inputs" }
