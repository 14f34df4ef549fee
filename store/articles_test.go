package store

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"scholarfeed/models"
)

func TestArticleCreateAndTruncate(t *testing.T) {
	s := NewArticleStore(newTestDB(t))

	long := strings.Repeat("x", 300)
	a := &models.Article{Title: long}
	if err := s.Create(a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.GetByID(a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.Title) != models.MaxTitleLength {
		t.Errorf("title length = %d, want %d", len(got.Title), models.MaxTitleLength)
	}
	if !strings.HasSuffix(got.Title, " ...") {
		t.Errorf("truncated title should end in ellipsis, got %q", got.Title[250:])
	}
}

func TestArticleTruncateMultiByteTitle(t *testing.T) {
	s := NewArticleStore(newTestDB(t))

	// The truncation point lands inside a two-byte rune.
	long := strings.Repeat("a", 250) + "ééééé"
	a := &models.Article{Title: long}
	if err := s.Create(a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.GetByID(a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !utf8.ValidString(got.Title) {
		t.Errorf("truncated title is not valid UTF-8: %q", got.Title)
	}
	if len(got.Title) > models.MaxTitleLength {
		t.Errorf("title length = %d, want at most %d", len(got.Title), models.MaxTitleLength)
	}
	if !strings.HasSuffix(got.Title, " ...") {
		t.Errorf("truncated title should end in ellipsis, got %q", got.Title)
	}
}

func TestArticleDuplicateTitle(t *testing.T) {
	s := NewArticleStore(newTestDB(t))
	mustCreateArticle(t, s, "The same title")

	err := s.Create(&models.Article{Title: "The same title"})
	if !errors.Is(err, ErrDuplicateArticle) {
		t.Errorf("err = %v, want ErrDuplicateArticle", err)
	}
}

func TestArticleDuplicateAfterTruncation(t *testing.T) {
	s := NewArticleStore(newTestDB(t))

	// Two titles differing only past the truncation point collide.
	base := strings.Repeat("y", 280)
	mustCreateArticle(t, s, base+"one")
	err := s.Create(&models.Article{Title: base + "two"})
	if !errors.Is(err, ErrDuplicateArticle) {
		t.Errorf("err = %v, want ErrDuplicateArticle for titles equal after truncation", err)
	}
}

func TestPublishedSince(t *testing.T) {
	db := newTestDB(t)
	s := NewArticleStore(db)

	old := &models.Article{Title: "old", PubDate: time.Now().AddDate(0, 0, -60)}
	recent := &models.Article{Title: "recent", PubDate: time.Now().AddDate(0, 0, -5)}
	for _, a := range []*models.Article{old, recent} {
		if err := s.Create(a); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := s.PublishedSince(time.Now().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("PublishedSince: %v", err)
	}
	if len(got) != 1 || got[0].Title != "recent" {
		t.Errorf("got %d articles, want only the recent one", len(got))
	}
}

func TestUnranked(t *testing.T) {
	db := newTestDB(t)
	arts := NewArticleStore(db)
	recs := NewRecommendationStore(db)

	a1 := mustCreateArticle(t, arts, "ranked")
	a2 := mustCreateArticle(t, arts, "not ranked")

	if err := recs.Create(&models.Recommendation{UserID: 1, ArticleID: a1.ID, Score: 0.5}); err != nil {
		t.Fatalf("create recommendation: %v", err)
	}

	got, err := arts.Unranked(1)
	if err != nil {
		t.Fatalf("Unranked: %v", err)
	}
	if len(got) != 1 || got[0].ID != a2.ID {
		t.Errorf("Unranked returned %d articles, want only the unranked one", len(got))
	}

	// A different user has no recommendations yet, everything is unranked.
	got, err = arts.Unranked(2)
	if err != nil {
		t.Fatalf("Unranked: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Unranked for fresh user = %d articles, want 2", len(got))
	}
}

func TestRandomSampleExcludes(t *testing.T) {
	s := NewArticleStore(newTestDB(t))

	var excluded []uint
	for _, title := range []string{"a1", "a2", "a3", "a4", "a5"} {
		a := mustCreateArticle(t, s, title)
		if title == "a1" || title == "a2" {
			excluded = append(excluded, a.ID)
		}
	}

	got, err := s.RandomSample(10, excluded)
	if err != nil {
		t.Fatalf("RandomSample: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d articles, want 3", len(got))
	}
	for _, a := range got {
		for _, ex := range excluded {
			if a.ID == ex {
				t.Errorf("excluded article %d was sampled", ex)
			}
		}
	}
}
