// Package lookup composes search, news, summarization and history into the
// company lookup workflows served by the API.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Saul-Punybz/scout/internal/models"
	"github.com/Saul-Punybz/scout/internal/news"
	"github.com/Saul-Punybz/scout/internal/scraper"
)

const (
	maxCandidates     = 5
	perSubqueryLimit  = 3
	unknownWebsite    = "Unknown"
	noNewsText        = "No recent news found."
	newsTextSeparator = " | "

	persistTimeout = 10 * time.Second
	archiveTimeout = 15 * time.Second
)

// candidateSites are the site filters used to disambiguate a company name.
var candidateSites = []string{"linkedin.com", "crunchbase.com"}

// ErrInvalidInput is returned when a required parameter is missing or blank.
var ErrInvalidInput = errors.New("lookup: invalid input")

// NewsFetcher returns up to four recent articles about a company.
type NewsFetcher interface {
	Fetch(ctx context.Context, company string) news.Result
}

// Summarizer writes the prose summary for a company.
type Summarizer interface {
	SummarizeCompany(ctx context.Context, company, website, newsText string) string
	Model() string
}

// Recorder persists one lookup atomically.
type Recorder interface {
	Record(ctx context.Context, search models.SearchRecord, summary models.SummaryRecord, items []models.NewsRecord) (int64, error)
}

// Archiver keeps a copy of each lookup payload. Optional.
type Archiver interface {
	ArchiveLookup(ctx context.Context, searchID int64, payload any) error
}

// Deps are the collaborators a Service is built from.
type Deps struct {
	Search     scraper.Searcher
	News       NewsFetcher
	Summarizer Summarizer
	History    Recorder
	Archive    Archiver
}

// Service runs candidate searches and company lookups.
type Service struct {
	search     scraper.Searcher
	news       NewsFetcher
	summarizer Summarizer
	history    Recorder
	archive    Archiver
}

// New creates a Service from its dependencies.
func New(d Deps) *Service {
	return &Service{
		search:     d.Search,
		news:       d.News,
		summarizer: d.Summarizer,
		history:    d.History,
		archive:    d.Archive,
	}
}

// CompanyInfo is the result of one lookup.
type CompanyInfo struct {
	Company string         `json:"company"`
	Website string         `json:"website"`
	Summary string         `json:"summary"`
	News    []news.Article `json:"news"`

	SearchID int64     `json:"-"`
	NewsPath news.Path `json:"-"`
}

// SearchCompanies returns up to five candidates, unique by URL, drawn from
// LinkedIn and Crunchbase results for query. A failing site query is logged
// and skipped.
func (s *Service) SearchCompanies(ctx context.Context, query string) ([]scraper.WebResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	candidates := []scraper.WebResult{}
	seen := make(map[string]bool)

	for _, site := range candidateSites {
		results, err := s.search.Search(ctx, query+" site:"+site, perSubqueryLimit)
		if err != nil {
			slog.Warn("lookup: candidate search failed", "site", site, "query", query, "err", err)
			continue
		}
		if len(results) > perSubqueryLimit {
			results = results[:perSubqueryLimit]
		}
		for _, r := range results {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			candidates = append(candidates, r)
			if len(candidates) == maxCandidates {
				return candidates, nil
			}
		}
	}
	return candidates, nil
}

// CompanyInfo resolves the company's website, gathers news, summarizes, and
// records the lookup for userID (nil for guests). Only validation and
// persistence failures are returned; every outbound failure degrades the
// result instead.
func (s *Service) CompanyInfo(ctx context.Context, selectedName string, userID *string) (*CompanyInfo, error) {
	company := strings.TrimSpace(selectedName)
	if company == "" {
		return nil, fmt.Errorf("%w: selected_name is required", ErrInvalidInput)
	}

	website, ok := scraper.ResolveOfficialSite(ctx, s.search, company)
	if !ok {
		website = unknownWebsite
	}

	fetched := s.news.Fetch(ctx, company)
	articles := fetched.Articles
	if articles == nil {
		articles = []news.Article{}
	}

	summary := s.summarizer.SummarizeCompany(ctx, company, website, buildNewsText(articles))

	var officialSite *string
	if ok {
		officialSite = &website
	}

	// The outbound steps may have used up the request deadline; a degraded
	// lookup is still recorded.
	detached := context.WithoutCancel(ctx)
	recordCtx, cancel := context.WithTimeout(detached, persistTimeout)
	defer cancel()

	searchID, err := s.history.Record(recordCtx,
		models.SearchRecord{UserID: userID, QueryText: selectedName, SelectedName: company},
		models.SummaryRecord{
			CompanyName:     company,
			OfficialWebsite: officialSite,
			SummaryText:     summary,
			ModelName:       s.summarizer.Model(),
		},
		newsRecords(articles),
	)
	if err != nil {
		return nil, fmt.Errorf("lookup company info: %w", err)
	}

	info := &CompanyInfo{
		Company:  company,
		Website:  website,
		Summary:  summary,
		News:     articles,
		SearchID: searchID,
		NewsPath: fetched.Path,
	}

	slog.Info("lookup: company info",
		"company", company,
		"search_id", searchID,
		"website_known", ok,
		"news_path", fetched.Path,
		"news", len(articles),
	)

	if s.archive != nil {
		archiveCtx, cancel := context.WithTimeout(detached, archiveTimeout)
		defer cancel()
		if err := s.archive.ArchiveLookup(archiveCtx, searchID, info); err != nil {
			slog.Warn("lookup: archive failed", "search_id", searchID, "err", err)
		}
	}

	return info, nil
}

// buildNewsText joins "<title>. <description>" for every titled article.
func buildNewsText(articles []news.Article) string {
	var parts []string
	for _, a := range articles {
		if a.Title == "" {
			continue
		}
		parts = append(parts, a.Title+". "+a.Description)
	}
	if len(parts) == 0 {
		return noNewsText
	}
	return strings.Join(parts, newsTextSeparator)
}

func newsRecords(articles []news.Article) []models.NewsRecord {
	if len(articles) > news.MaxArticles {
		articles = articles[:news.MaxArticles]
	}
	records := make([]models.NewsRecord, len(articles))
	for i, a := range articles {
		records[i] = models.NewsRecord{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source,
			PublishedAt: a.PublishedAt,
		}
	}
	return records
}
