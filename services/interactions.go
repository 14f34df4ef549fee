package services

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"scholarfeed/models"
	"scholarfeed/store"
)

// Interaction kinds accepted by Record.
const (
	InteractionClick   = "click"
	InteractionLike    = "like"
	InteractionDislike = "dislike"
)

// ErrUnknownInteraction signals an interaction kind Record does not handle.
var ErrUnknownInteraction = errors.New("unknown interaction kind")

// InteractionService applies user feedback to recommendation records and
// keeps the retraining counter and the event log in step.
type InteractionService struct {
	Users  *store.UserStore
	Recs   *store.RecommendationStore
	Logs   *store.LogStore
	Logger *zap.Logger
}

// NewInteractionService creates an InteractionService.
func NewInteractionService(users *store.UserStore, recs *store.RecommendationStore,
	logs *store.LogStore, logger *zap.Logger) *InteractionService {
	return &InteractionService{Users: users, Recs: recs, Logs: logs, Logger: logger}
}

// Record applies one interaction to the (user, article) recommendation,
// creating the record if the article was never recommended to this user.
//
// Clicks are sticky: once set, the flag stays. Likes and dislikes toggle and
// are mutually exclusive; liking clears an earlier dislike and vice versa.
func (s *InteractionService) Record(userID, articleID uint, kind string) (*models.Recommendation, error) {
	rec, err := s.Recs.GetOrNew(userID, articleID)
	if err != nil {
		return nil, err
	}
	first := !rec.Interacted()

	var event string
	switch kind {
	case InteractionClick:
		rec.Clicked = true
		event = models.EventClick
	case InteractionLike:
		rec.Liked = !rec.Liked
		rec.Disliked = false
		event = models.EventLike
	case InteractionDislike:
		rec.Disliked = !rec.Disliked
		rec.Liked = false
		event = models.EventDislike
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownInteraction, kind)
	}

	if err := s.save(rec, kind); err != nil {
		return nil, err
	}

	if err := s.Users.IncrementInteractions(userID); err != nil {
		return nil, err
	}
	ctx := map[string]any{"article_id": articleID, "first_interaction": first}
	if err := s.Logs.CreateLog(userID, event, ctx); err != nil {
		// The event log is best effort; losing an entry must not fail the
		// interaction itself.
		s.Logger.Warn("Could not write event log",
			zap.Uint("user_id", userID), zap.Error(err))
	}
	return rec, nil
}

// save persists the flags, retrying once when a concurrent request created
// the record first.
func (s *InteractionService) save(rec *models.Recommendation, kind string) error {
	err := s.Recs.Save(rec)
	if !errors.Is(err, store.ErrDuplicateRecommendation) {
		return err
	}

	existing, err := s.Recs.Get(rec.UserID, rec.ArticleID)
	if err != nil {
		return err
	}
	existing.Clicked = existing.Clicked || rec.Clicked
	if kind != InteractionClick {
		existing.Liked = rec.Liked
		existing.Disliked = rec.Disliked
	}
	*rec = *existing
	return s.Recs.Save(rec)
}
