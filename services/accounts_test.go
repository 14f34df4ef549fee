package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scholarfeed/classifier"
	"scholarfeed/ml"
	"scholarfeed/models"
	"scholarfeed/store"
)

type accountFixture struct {
	svc     *AccountService
	db      *gorm.DB
	users   *store.UserStore
	recs    *store.RecommendationStore
	uploads *store.UploadStore
	models  *classifier.Store
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig(t)
	users := store.NewUserStore(db)
	recs := store.NewRecommendationStore(db)
	uploads := store.NewUploadStore(db)
	modelStore := classifier.NewStore(cfg.ModelDir, zap.NewNop())
	return &accountFixture{
		svc:     NewAccountService(cfg, users, recs, uploads, modelStore, zap.NewNop()),
		db:      db,
		users:   users,
		recs:    recs,
		uploads: uploads,
		models:  modelStore,
	}
}

func (f *accountFixture) seedUserState(t *testing.T, userID uint) string {
	t.Helper()
	if err := f.db.Create(&models.User{Email: "seed@example.org"}).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	path := filepath.Join(t.TempDir(), "refs.bib")
	if err := os.WriteFile(path, []byte("@article{k, title={T}}"), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}
	if err := f.uploads.Create(&models.UserUpload{UserID: userID, Filename: "refs.bib", Path: path}); err != nil {
		t.Fatalf("record upload: %v", err)
	}
	if err := f.uploads.CreateTextInput(&models.UserTextInput{UserID: userID, Text: "12345"}); err != nil {
		t.Fatalf("record text input: %v", err)
	}

	trainer := ml.NewTrainer(zap.NewNop())
	trainer.AddData("some text", ml.ClassInteresting, 1)
	trainer.AddData("other text", ml.ClassIrrelevant, 1)
	model, err := trainer.Train()
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if err := f.models.Save(userID, model); err != nil {
		t.Fatalf("Save model: %v", err)
	}

	if err := f.recs.Create(&models.Recommendation{UserID: userID, ArticleID: 1, Score: 0.6, Clicked: true, Liked: true}); err != nil {
		t.Fatalf("create rec: %v", err)
	}
	if err := f.users.IncrementInteractions(userID); err != nil {
		t.Fatalf("increment: %v", err)
	}
	return path
}

func TestResetClearsLearnedState(t *testing.T) {
	f := newAccountFixture(t)
	uploadPath := f.seedUserState(t, 1)

	if err := f.svc.Reset(1); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if _, err := os.Stat(uploadPath); !os.IsNotExist(err) {
		t.Error("uploaded file should be deleted")
	}
	ups, _ := f.uploads.ForUser(1)
	if len(ups) != 0 {
		t.Errorf("%d upload records survived reset", len(ups))
	}
	inputs, _ := f.uploads.TextInputsForUser(1)
	if len(inputs) != 0 {
		t.Errorf("%d text inputs survived reset", len(inputs))
	}
	if f.models.IsInitialized(1) {
		t.Error("model artifacts survived reset")
	}

	rec, err := f.recs.Get(1, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Interacted() {
		t.Errorf("interaction flags survived reset: %+v", rec)
	}
	if rec.Score != 0.6 {
		t.Error("recommendation score should survive reset")
	}

	p, err := f.users.Profile(1)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.RecentInteractions != 0 {
		t.Errorf("interaction counter survived reset: %d", p.RecentInteractions)
	}
}

func TestDeleteRemovesEverything(t *testing.T) {
	f := newAccountFixture(t)
	f.seedUserState(t, 1)

	if err := f.svc.Delete(1); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if f.models.IsInitialized(1) {
		t.Error("model artifacts survived deletion")
	}
	if _, err := f.users.Get(1); err == nil {
		t.Error("user record survived deletion")
	}
	list, _ := f.recs.ForUser(1, 0)
	if len(list) != 0 {
		t.Errorf("%d recommendations survived deletion", len(list))
	}
}

func TestDeleteInactive(t *testing.T) {
	f := newAccountFixture(t)

	inactive := &models.User{Email: "sleepy@example.org"}
	active := &models.User{Email: "awake@example.org"}
	for _, u := range []*models.User{inactive, active} {
		if err := f.db.Create(u).Error; err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := f.users.Profile(u.ID); err != nil {
			t.Fatalf("profile: %v", err)
		}
	}
	err := f.db.Model(&models.UserProfile{}).Where("user_id = ?", inactive.ID).
		Update("last_visit", time.Now().AddDate(-2, 0, 0)).Error
	if err != nil {
		t.Fatalf("backdate: %v", err)
	}

	deleted, err := f.svc.DeleteInactive(context.Background())
	if err != nil {
		t.Fatalf("DeleteInactive: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if _, err := f.users.Get(active.ID); err != nil {
		t.Error("active user should survive the sweep")
	}
}
