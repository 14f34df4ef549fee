package arxiv

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

// Feed maps the parts of the arXiv Atom reply we consume.
type Feed struct {
	Entries []Entry `xml:"entry"`
}

type Entry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []Person `xml:"author"`
}

type Person struct {
	Name string `xml:"name"`
}

// Fetcher talks to the arXiv Atom API.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a new arXiv fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name returns the name of this source.
func (f *Fetcher) Name() string {
	return "arxiv"
}

// Query searches arXiv across all fields.
func (f *Fetcher) Query(ctx context.Context, query string, start, end time.Time, maxResults int) ([]*models.Article, error) {
	search := "all:" + quote(query)
	if !start.IsZero() {
		search = fmt.Sprintf("%s AND submittedDate:[%s TO %s]",
			search, start.Format("200601021504"), end.Format("200601021504"))
	}
	return f.search(ctx, url.Values{"search_query": {search}}, maxResults)
}

// QueryTitle searches arXiv restricted to titles.
func (f *Fetcher) QueryTitle(ctx context.Context, title string, maxResults int) ([]*models.Article, error) {
	return f.search(ctx, url.Values{"search_query": {"ti:" + quote(title)}}, maxResults)
}

// QueryByIDs resolves arXiv identifiers.
func (f *Fetcher) QueryByIDs(ctx context.Context, ids []string, maxResults int) ([]*models.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return f.search(ctx, url.Values{"id_list": {strings.Join(ids, ",")}}, maxResults)
}

// Download returns everything arXiv published in the given time span.
func (f *Fetcher) Download(ctx context.Context, start, end time.Time) ([]*models.Article, error) {
	search := fmt.Sprintf("submittedDate:[%s TO %s]",
		start.Format("200601021504"), end.Format("200601021504"))
	return f.search(ctx, url.Values{"search_query": {search}}, 0)
}

func (f *Fetcher) search(ctx context.Context, params url.Values, maxResults int) ([]*models.Article, error) {
	if maxResults <= 0 {
		maxResults = 1000
	}
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	searchURL := fmt.Sprintf("%s?%s", f.Config.ArxivBaseURL, params.Encode())
	f.Logger.Debug("Calling arXiv API", zap.String("url", searchURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
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

	var feed Feed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv feed parse: %w", err)
	}

	articles := make([]*models.Article, 0, len(feed.Entries))
	for i := range feed.Entries {
		articles = append(articles, mapEntryToArticle(&feed.Entries[i]))
	}
	return articles, nil
}

// mapEntryToArticle converts an Atom entry into our article model.
func mapEntryToArticle(entry *Entry) *models.Article {
	a := &models.Article{
		Title:       strings.Join(strings.Fields(entry.Title), " "),
		Abstract:    strings.TrimSpace(entry.Summary),
		Journal:     "arXiv",
		URLSource:   entry.ID,
		URLFulltext: strings.Replace(entry.ID, "/abs/", "/pdf/", 1),
	}

	var authors []string
	for _, p := range entry.Authors {
		authors = append(authors, surnameFirst(p.Name))
	}
	a.SetAuthorsList(authors)

	if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		a.PubDate = t
	}
	return a
}

// surnameFirst reorders "Firstname Surname" into "Surname, Firstname" to
// match the author format of the other sources.
func surnameFirst(name string) string {
	parts := strings.Fields(name)
	if len(parts) < 2 {
		return name
	}
	last := parts[len(parts)-1]
	return last + ", " + strings.Join(parts[:len(parts)-1], " ")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, "") + `"`
}
