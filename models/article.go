package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
)

// MaxTitleLength is the longest title the database indexes. Longer titles are
// truncated before the uniqueness check so that the index stays usable.
const MaxTitleLength = 255

// Article is a normalized bibliographic record. Articles are de-duplicated by
// title and read-only once created; fetchers and file parsers produce them.
type Article struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title         string    `json:"title" gorm:"size:255;uniqueIndex;not null"`
	Abstract      string    `json:"abstract,omitempty" gorm:"type:text"`
	Journal       string    `json:"journal,omitempty"`
	AuthorsString string    `json:"authors" gorm:"type:text"`
	PubDate       time.Time `json:"pubdate" gorm:"index"`
	URLSource     string    `json:"url_source,omitempty"`
	URLFulltext   string    `json:"url_fulltext,omitempty"`
}

func (Article) TableName() string { return "articles" }

// BeforeSave truncates over-long titles with a trailing ellipsis.
func (a *Article) BeforeSave(tx *gorm.DB) error {
	a.Title = TruncateTitle(a.Title)
	return nil
}

// TruncateTitle shortens a title to at most MaxTitleLength bytes, replacing
// the cut-off part with " ...". The cut never splits a multi-byte rune; the
// database rejects invalid UTF-8 text.
func TruncateTitle(title string) string {
	if len(title) <= MaxTitleLength {
		return title
	}
	cut := MaxTitleLength - 4
	for cut > 0 && !utf8.RuneStart(title[cut]) {
		cut--
	}
	return title[:cut] + " ..."
}

// AuthorsList splits the stored author string ("surname, firstname" entries
// joined by semicolons) into a slice.
func (a *Article) AuthorsList() []string {
	if a.AuthorsString == "" {
		return nil
	}
	return strings.Split(a.AuthorsString, ";")
}

// SetAuthorsList stores a list of author names as a single string.
func (a *Article) SetAuthorsList(authors []string) {
	a.AuthorsString = strings.Join(authors, ";")
}
