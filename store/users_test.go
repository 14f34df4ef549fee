package store

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"scholarfeed/models"
)

func TestProfileCreatedOnFirstAccess(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	u := mustCreateUser(t, db, "a@example.org")

	p, err := users.Profile(u.ID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.RecentInteractions != 0 {
		t.Errorf("fresh profile has %d interactions", p.RecentInteractions)
	}
	if p.LastVisit.IsZero() {
		t.Error("fresh profile has zero last visit")
	}
}

func TestIncrementAndResetInteractions(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	u := mustCreateUser(t, db, "b@example.org")

	for i := 0; i < 3; i++ {
		if err := users.IncrementInteractions(u.ID); err != nil {
			t.Fatalf("IncrementInteractions: %v", err)
		}
	}
	p, err := users.Profile(u.ID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.RecentInteractions != 3 {
		t.Errorf("interactions = %d, want 3", p.RecentInteractions)
	}

	if err := users.ResetInteractions(u.ID); err != nil {
		t.Fatalf("ResetInteractions: %v", err)
	}
	p, _ = users.Profile(u.ID)
	if p.RecentInteractions != 0 {
		t.Errorf("interactions after reset = %d, want 0", p.RecentInteractions)
	}
}

func TestInactiveSince(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)

	inactive := mustCreateUser(t, db, "inactive@example.org")
	active := mustCreateUser(t, db, "active@example.org")
	staff := &models.User{Email: "staff@example.org", IsStaff: true}
	if err := db.Create(staff).Error; err != nil {
		t.Fatalf("create staff: %v", err)
	}

	for _, u := range []*models.User{inactive, active, staff} {
		if _, err := users.Profile(u.ID); err != nil {
			t.Fatalf("Profile: %v", err)
		}
	}
	longAgo := time.Now().AddDate(-2, 0, 0)
	for _, id := range []uint{inactive.ID, staff.ID} {
		err := db.Model(&models.UserProfile{}).Where("user_id = ?", id).
			Update("last_visit", longAgo).Error
		if err != nil {
			t.Fatalf("backdate: %v", err)
		}
	}

	got, err := users.InactiveSince(time.Now().AddDate(-1, 0, 0))
	if err != nil {
		t.Fatalf("InactiveSince: %v", err)
	}
	if len(got) != 1 || got[0].ID != inactive.ID {
		t.Errorf("got %d inactive users, want only the non-staff one", len(got))
	}
}

func TestDeleteRemovesDependents(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	recs := NewRecommendationStore(db)
	uploads := NewUploadStore(db)
	u := mustCreateUser(t, db, "gone@example.org")

	if _, err := users.Profile(u.ID); err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if err := recs.Create(&models.Recommendation{UserID: u.ID, ArticleID: 1}); err != nil {
		t.Fatalf("create rec: %v", err)
	}
	if err := uploads.Create(&models.UserUpload{UserID: u.ID, Filename: "refs.bib", Path: "/tmp/refs.bib"}); err != nil {
		t.Fatalf("create upload: %v", err)
	}

	if err := users.Delete(u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := users.Get(u.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("user still present, err = %v", err)
	}
	list, err := recs.ForUser(u.ID, 0)
	if err != nil {
		t.Fatalf("ForUser: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("%d recommendations survived deletion", len(list))
	}
	ups, err := uploads.ForUser(u.ID)
	if err != nil {
		t.Fatalf("ForUser uploads: %v", err)
	}
	if len(ups) != 0 {
		t.Errorf("%d uploads survived deletion", len(ups))
	}
}
