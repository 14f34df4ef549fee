package biorxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"scholarfeed/config"
	"scholarfeed/models"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// feed maps the parts of the bioRxiv RDF feed we consume.
type feed struct {
	Items []item `xml:"item"`
}

type item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Creator     string `xml:"creator"`
	Date        string `xml:"date"`
}

// Fetcher reads the bioRxiv subject feeds. bioRxiv has no search API, so only
// Download is implemented; the query methods report nothing found.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a new bioRxiv fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name returns the name of this source.
func (f *Fetcher) Name() string {
	return "biorxiv"
}

// Query is unsupported, the feed cannot be searched or filtered by date.
func (f *Fetcher) Query(ctx context.Context, query string, start, end time.Time, maxResults int) ([]*models.Article, error) {
	return nil, nil
}

// QueryTitle is unsupported.
func (f *Fetcher) QueryTitle(ctx context.Context, title string, maxResults int) ([]*models.Article, error) {
	return nil, nil
}

// QueryByIDs is unsupported.
func (f *Fetcher) QueryByIDs(ctx context.Context, ids []string, maxResults int) ([]*models.Article, error) {
	return nil, nil
}

// Download reads every configured subject feed. The feeds only carry the most
// recent postings, so the requested time span is ignored; the article store
// drops what it already has.
func (f *Fetcher) Download(ctx context.Context, start, end time.Time) ([]*models.Article, error) {
	var articles []*models.Article
	for _, subject := range strings.Split(f.Config.BiorxivSubjects, ",") {
		subject = strings.TrimSpace(subject)
		if subject == "" {
			continue
		}
		items, err := f.fetchSubject(ctx, subject)
		if err != nil {
			f.Logger.Error("bioRxiv subject feed failed",
				zap.String("subject", subject), zap.Error(err))
			continue
		}
		articles = append(articles, items...)
	}
	return articles, nil
}

func (f *Fetcher) fetchSubject(ctx context.Context, subject string) ([]*models.Article, error) {
	feedURL := fmt.Sprintf("%s?subject=%s", f.Config.BiorxivFeedURL, url.QueryEscape(subject))
	f.Logger.Debug("Calling bioRxiv feed", zap.String("url", feedURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var fd feed
	if err := xml.Unmarshal(body, &fd); err != nil {
		return nil, fmt.Errorf("biorxiv feed parse: %w", err)
	}

	articles := make([]*models.Article, 0, len(fd.Items))
	for i := range fd.Items {
		articles = append(articles, mapItemToArticle(&fd.Items[i]))
	}
	return articles, nil
}

// mapItemToArticle converts a feed item into our article model.
func mapItemToArticle(it *item) *models.Article {
	a := &models.Article{
		Title:       strings.Join(strings.Fields(it.Title), " "),
		Abstract:    strings.TrimSpace(it.Description),
		Journal:     "bioRxiv",
		URLSource:   it.Link,
		URLFulltext: it.Link,
	}
	a.SetAuthorsList(splitAuthors(it.Creator))

	if t, err := time.Parse("2006-01-02", it.Date); err == nil {
		a.PubDate = t
	}
	return a
}

// splitAuthors breaks the single creator string ("Doe, J., Roe, A. B.") into
// one entry per author, restoring the trailing period the separator swallows.
func splitAuthors(creator string) []string {
	var authors []string
	for _, name := range strings.Split(creator, "., ") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !strings.HasSuffix(name, ".") {
			name += "."
		}
		authors = append(authors, name)
	}
	return authors
}
