// Package providers contains the connectors to external bibliographic
// sources. Each source implements the Source interface and is selected via
// configuration at startup.
package providers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"scholarfeed/models"
)

// Source is the contract every upstream connector implements. All methods
// return transient article records (title/abstract/journal/authors filled as
// far as the upstream provides them); nothing is written to the database
// here.
type Source interface {
	// Name returns the unique name of this source (e.g. "pubmed").
	Name() string

	// Query searches the source for a query string, optionally limited to a
	// publication time span.
	Query(ctx context.Context, query string, start, end time.Time, maxResults int) ([]*models.Article, error)

	// QueryTitle searches the source restricted to article titles.
	QueryTitle(ctx context.Context, title string, maxResults int) ([]*models.Article, error)

	// QueryByIDs resolves source-specific identifiers to articles.
	QueryByIDs(ctx context.Context, ids []string, maxResults int) ([]*models.Article, error)

	// Download returns all articles the source published in the given time
	// span, for ingestion into the article store.
	Download(ctx context.Context, start, end time.Time) ([]*models.Article, error)
}

// WithRetry runs fn up to attempts times, waiting a fixed interval between
// tries. Upstream sources are flaky; a bounded fixed-wait retry is enough,
// after that the caller treats the item as unavailable.
func WithRetry(ctx context.Context, log *zap.Logger, attempts int, wait time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		log.Warn("Upstream request failed, trying again",
			zap.Duration("wait", wait),
			zap.Int("attempt", i+1),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
