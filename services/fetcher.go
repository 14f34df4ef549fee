package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"scholarfeed/config"
	"scholarfeed/models"
	"scholarfeed/providers"
	"scholarfeed/store"
)

// FetchService ingests newly published articles from the enabled upstream
// sources into the article store.
type FetchService struct {
	Config  *config.Config
	Arts    *store.ArticleStore
	Sources []providers.Source
	Logger  *zap.Logger
}

// NewFetchService creates a FetchService.
func NewFetchService(cfg *config.Config, arts *store.ArticleStore, sources []providers.Source, logger *zap.Logger) *FetchService {
	return &FetchService{Config: cfg, Arts: arts, Sources: sources, Logger: logger}
}

// FetchRange downloads everything the sources published inside [start, end]
// and stores it. Duplicate titles, both across sources and against already
// stored articles, are skipped silently; a source that stays down past its
// retries is logged and the other sources still run. Returns the number of
// newly stored articles.
func (f *FetchService) FetchRange(ctx context.Context, start, end time.Time) (int, error) {
	f.Logger.Info("Fetching articles",
		zap.Time("start", start), zap.Time("end", end))

	stored := 0
	seen := make(map[string]bool)
	for _, source := range f.Sources {
		var articles []*models.Article
		err := providers.WithRetry(ctx, f.Logger, f.Config.FetchRetries, f.Config.FetchRetryWait, func() error {
			var derr error
			articles, derr = source.Download(ctx, start, end)
			return derr
		})
		if err != nil {
			f.Logger.Error("Source download failed",
				zap.String("source", source.Name()), zap.Error(err))
			continue
		}

		for _, a := range articles {
			key := normalizeTitle(a.Title)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true

			err := f.Arts.Create(a)
			if errors.Is(err, store.ErrDuplicateArticle) {
				continue
			}
			if err != nil {
				return stored, err
			}
			stored++
		}
		f.Logger.Info("Source fetched",
			zap.String("source", source.Name()), zap.Int("articles", len(articles)))
	}

	f.Logger.Info("Fetch completed", zap.Int("stored", stored))
	return stored, nil
}

// FetchLastDays fetches the publications of the last n days up to now.
func (f *FetchService) FetchLastDays(ctx context.Context, days int) (int, error) {
	end := time.Now()
	return f.FetchRange(ctx, end.AddDate(0, 0, -days), end)
}
