// Package classifier persists per-user model artifacts on disk. Every user
// owns exactly one model, stored as two files (classifier and vectorizer)
// under a user-scoped directory. Loading is an explicit call, never a side
// effect of constructing something else.
package classifier

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"scholarfeed/ml"
)

const (
	classifierFile = "classifier.gob"
	vectorizerFile = "vectorizer.gob"
)

// Store reads and writes model artifacts below a base directory.
type Store struct {
	baseDir string
	log     *zap.Logger
}

// NewStore returns a store rooted at baseDir.
func NewStore(baseDir string, log *zap.Logger) *Store {
	return &Store{baseDir: baseDir, log: log}
}

// UserDir returns the artifact directory for one user.
func (s *Store) UserDir(userID uint) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("user_%d", userID))
}

// Load reads both artifacts for a user. A missing file leaves the respective
// slot nil; the returned model is then simply uninitialized. Only genuinely
// broken artifacts produce an error.
func (s *Store) Load(userID uint) (*ml.Model, error) {
	m := &ml.Model{}

	clf := &ml.MultinomialNB{}
	found, err := s.loadArtifact(filepath.Join(s.UserDir(userID), classifierFile), clf)
	if err != nil {
		return nil, fmt.Errorf("loading classifier for user %d: %w", userID, err)
	}
	if found {
		m.Classifier = clf
	}

	vec := &ml.TfidfVectorizer{}
	found, err = s.loadArtifact(filepath.Join(s.UserDir(userID), vectorizerFile), vec)
	if err != nil {
		return nil, fmt.Errorf("loading vectorizer for user %d: %w", userID, err)
	}
	if found {
		m.Vectorizer = vec
	}

	return m, nil
}

func (s *Store) loadArtifact(path string, target any) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(target); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes the non-nil halves of the model to disk, creating the user
// directory if needed. A nil slot is not written; if an older file exists for
// that slot it stays behind, which we only warn about.
func (s *Store) Save(userID uint, m *ml.Model) error {
	dir := s.UserDir(userID)

	if m.Classifier != nil {
		if err := s.saveArtifact(filepath.Join(dir, classifierFile), m.Classifier); err != nil {
			return fmt.Errorf("saving classifier for user %d: %w", userID, err)
		}
	} else {
		s.warnStale(filepath.Join(dir, classifierFile))
	}

	if m.Vectorizer != nil {
		if err := s.saveArtifact(filepath.Join(dir, vectorizerFile), m.Vectorizer); err != nil {
			return fmt.Errorf("saving vectorizer for user %d: %w", userID, err)
		}
	} else {
		s.warnStale(filepath.Join(dir, vectorizerFile))
	}

	return nil
}

func (s *Store) saveArtifact(path string, artifact any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(artifact)
}

func (s *Store) warnStale(path string) {
	if _, err := os.Stat(path); err == nil {
		s.log.Warn("Artifact slot is empty but an older file remains on disk",
			zap.String("path", path))
	}
}

// DeleteFiles removes both artifacts and the containing directory. It is
// idempotent; files that are already gone are logged and skipped.
func (s *Store) DeleteFiles(userID uint) {
	dir := s.UserDir(userID)
	s.log.Info("Deleting classifier files", zap.Uint("user_id", userID))

	for _, name := range []string{classifierFile, vectorizerFile} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Error("Could not delete artifact", zap.String("file", name), zap.Error(err))
		}
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Error("Could not remove artifact directory", zap.String("dir", dir), zap.Error(err))
	}
}

// IsInitialized reports whether a complete model exists for the user.
func (s *Store) IsInitialized(userID uint) bool {
	m, err := s.Load(userID)
	if err != nil {
		s.log.Warn("Could not load model", zap.Uint("user_id", userID), zap.Error(err))
		return false
	}
	return m.IsInitialized()
}
