package ml

import (
	"strings"

	"scholarfeed/models"
)

// PrepareArticle renders an article as the single string the models are
// trained on and score against. This is the one place that decides which
// article fields the machine learning sees. No normalization happens here;
// casing and tokenization are the vectorizer's job.
//
// Works for persisted articles and for transient parsed records alike.
func PrepareArticle(a *models.Article) string {
	return strings.Join([]string{
		a.Title,
		a.Abstract,
		a.Journal,
		a.AuthorsString,
	}, " ")
}
