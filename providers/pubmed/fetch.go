package pubmed

import (
	"context"
	"encoding/json"
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

// Fetcher talks to the NCBI eutils API.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a new PubMed fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name returns the name of this source.
func (f *Fetcher) Name() string {
	return "pubmed"
}

// Query searches PubMed for a term, optionally limited to a publication
// date window.
func (f *Fetcher) Query(ctx context.Context, query string, start, end time.Time, maxResults int) ([]*models.Article, error) {
	ids, err := f.searchIDs(ctx, query, start, end, maxResults)
	if err != nil {
		return nil, fmt.Errorf("pubmed id search: %w", err)
	}
	return f.QueryByIDs(ctx, ids, maxResults)
}

// QueryTitle searches PubMed restricted to the title field.
func (f *Fetcher) QueryTitle(ctx context.Context, title string, maxResults int) ([]*models.Article, error) {
	return f.Query(ctx, fmt.Sprintf("%s[Title]", title), time.Time{}, time.Time{}, maxResults)
}

// QueryByIDs loads articles for a list of PMIDs via efetch.
func (f *Fetcher) QueryByIDs(ctx context.Context, ids []string, maxResults int) ([]*models.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if maxResults > 0 && len(ids) > maxResults {
		ids = ids[:maxResults]
	}

	params := f.baseParams()
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")
	fetchURL := fmt.Sprintf("%s/efetch.fcgi?%s", f.Config.PubMedBaseURL, params.Encode())

	body, err := f.get(ctx, fetchURL)
	if err != nil {
		return nil, fmt.Errorf("pubmed efetch: %w", err)
	}

	var response EFetchResponse
	if err := xml.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("pubmed efetch parse: %w", err)
	}

	articles := make([]*models.Article, 0, len(response.Articles))
	for i := range response.Articles {
		articles = append(articles, mapRecordToArticle(&response.Articles[i]))
	}
	return articles, nil
}

// Download returns everything PubMed published in the given time span.
func (f *Fetcher) Download(ctx context.Context, start, end time.Time) ([]*models.Article, error) {
	return f.Query(ctx, "all[sb]", start, end, 0)
}

// searchIDs runs an esearch query and returns the matching PMIDs.
func (f *Fetcher) searchIDs(ctx context.Context, query string, start, end time.Time, maxResults int) ([]string, error) {
	log := f.Logger.With(zap.String("query", query))
	log.Debug("Running PubMed esearch")

	params := f.baseParams()
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmode", "json")
	if maxResults > 0 {
		params.Set("retmax", fmt.Sprintf("%d", maxResults))
	} else {
		params.Set("retmax", "10000")
	}
	if !start.IsZero() {
		params.Set("datetype", "pdat")
		params.Set("mindate", start.Format("2006/01/02"))
		params.Set("maxdate", end.Format("2006/01/02"))
	}
	searchURL := fmt.Sprintf("%s/esearch.fcgi?%s", f.Config.PubMedBaseURL, params.Encode())

	body, err := f.get(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	var response ESearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	log.Debug("PubMed esearch done", zap.Int("ids", len(response.ESearchResult.IDList)))
	return response.ESearchResult.IDList, nil
}

func (f *Fetcher) baseParams() url.Values {
	params := url.Values{}
	params.Set("tool", f.Config.PubMedTool)
	if f.Config.PubMedEmail != "" {
		params.Set("email", f.Config.PubMedEmail)
	}
	if f.Config.PubMedAPIKey != "" {
		params.Set("api_key", f.Config.PubMedAPIKey)
	}
	return params
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
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
	return io.ReadAll(resp.Body)
}

// mapRecordToArticle converts a PubMed record into our article model.
func mapRecordToArticle(record *PubmedArticle) *models.Article {
	a := &models.Article{
		Title:    record.MedlineCitation.Article.Title,
		Abstract: strings.Join(record.MedlineCitation.Article.Abstract.Text, " "),
		Journal:  record.MedlineCitation.Article.Journal.Title,
	}

	var authors []string
	for _, author := range record.MedlineCitation.Article.AuthorList.Authors {
		if author.LastName == "" {
			continue
		}
		authors = append(authors, fmt.Sprintf("%s, %s", author.LastName, author.ForeName))
	}
	a.SetAuthorsList(authors)

	d := record.MedlineCitation.Article.ArticleDate
	if d.Year != "" {
		if t, err := time.Parse("2006-1-2", fmt.Sprintf("%s-%s-%s", d.Year, orOne(d.Month), orOne(d.Day))); err == nil {
			a.PubDate = t
		}
	}

	if pmid := record.MedlineCitation.PMID; pmid != "" {
		a.URLSource = "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
	}
	return a
}

func orOne(s string) string {
	if s == "" {
		return "1"
	}
	return s
}
