package services

import (
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"scholarfeed/models"
	"scholarfeed/store"
)

func newInteractionService(t *testing.T) (*InteractionService, *store.UserStore, *store.RecommendationStore) {
	t.Helper()
	db := newTestDB(t)
	users := store.NewUserStore(db)
	recs := store.NewRecommendationStore(db)
	logs := store.NewLogStore(db)
	if err := db.Create(&models.User{Email: "t@example.org"}).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return NewInteractionService(users, recs, logs, zap.NewNop()), users, recs
}

func TestRecordClickIsSticky(t *testing.T) {
	svc, _, _ := newInteractionService(t)

	rec, err := svc.Record(1, 10, InteractionClick)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !rec.Clicked {
		t.Error("click not set")
	}

	// A second click keeps the flag.
	rec, err = svc.Record(1, 10, InteractionClick)
	if err != nil {
		t.Fatalf("Record (second): %v", err)
	}
	if !rec.Clicked {
		t.Error("click should stay set")
	}
}

func TestRecordLikeToggles(t *testing.T) {
	svc, _, _ := newInteractionService(t)

	rec, err := svc.Record(1, 10, InteractionLike)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !rec.Liked {
		t.Error("like not set")
	}

	rec, err = svc.Record(1, 10, InteractionLike)
	if err != nil {
		t.Fatalf("Record (toggle off): %v", err)
	}
	if rec.Liked {
		t.Error("second like should toggle the flag off")
	}
}

func TestRecordLikeDislikeExclusive(t *testing.T) {
	svc, _, recs := newInteractionService(t)

	if _, err := svc.Record(1, 10, InteractionLike); err != nil {
		t.Fatalf("Record like: %v", err)
	}
	rec, err := svc.Record(1, 10, InteractionDislike)
	if err != nil {
		t.Fatalf("Record dislike: %v", err)
	}
	if rec.Liked || !rec.Disliked {
		t.Errorf("dislike should clear like: %+v", rec)
	}

	stored, err := recs.Get(1, 10)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Liked || !stored.Disliked {
		t.Errorf("persisted record disagrees: %+v", stored)
	}
}

func TestRecordIncrementsCounter(t *testing.T) {
	svc, users, _ := newInteractionService(t)

	for i := 0; i < 2; i++ {
		if _, err := svc.Record(1, 10, InteractionClick); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	p, err := users.Profile(1)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.RecentInteractions != 2 {
		t.Errorf("interactions = %d, want 2", p.RecentInteractions)
	}
}

func TestRecordLogsFirstInteraction(t *testing.T) {
	db := newTestDB(t)
	users := store.NewUserStore(db)
	recs := store.NewRecommendationStore(db)
	logs := store.NewLogStore(db)
	svc := NewInteractionService(users, recs, logs, zap.NewNop())

	rec, err := svc.Record(1, 10, InteractionClick)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !rec.Interacted() {
		t.Error("recorded recommendation should count as interacted")
	}
	if _, err := svc.Record(1, 10, InteractionLike); err != nil {
		t.Fatalf("Record (second): %v", err)
	}

	entries, err := logs.ForUser(1, 0)
	if err != nil {
		t.Fatalf("ForUser: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	firsts := 0
	for _, e := range entries {
		var ctx map[string]any
		if err := json.Unmarshal(e.Context, &ctx); err != nil {
			t.Fatalf("context unmarshal: %v", err)
		}
		if ctx["first_interaction"] == true {
			firsts++
		}
	}
	if firsts != 1 {
		t.Errorf("first_interaction set on %d entries, want exactly the first one", firsts)
	}
}

func TestRecordUnknownKind(t *testing.T) {
	svc, _, _ := newInteractionService(t)
	_, err := svc.Record(1, 10, "star")
	if !errors.Is(err, ErrUnknownInteraction) {
		t.Errorf("err = %v, want ErrUnknownInteraction", err)
	}
}

func TestRecordPreservesScore(t *testing.T) {
	svc, _, recs := newInteractionService(t)

	if err := recs.Create(&models.Recommendation{UserID: 1, ArticleID: 10, Score: 0.42}); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec, err := svc.Record(1, 10, InteractionLike)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Score != 0.42 {
		t.Errorf("score changed by interaction: %f", rec.Score)
	}
}
