// Package news retrieves recent articles about a company, preferring a
// structured news API and falling back to scraped search results.
package news

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Saul-Punybz/scout/internal/scraper"
)

// MaxArticles is the most articles a lookup ever carries.
const MaxArticles = 4

// FallbackSource tags articles that came from scraped search results.
const FallbackSource = "fallback-search"

// ErrProviderEmpty marks a provider call that returned no usable articles.
var ErrProviderEmpty = errors.New("news: provider returned no articles")

var errNoProvider = errors.New("news: no api key configured")

// Article is a single news item. PublishedAt is nil when unknown.
type Article struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	Source      string  `json:"source"`
	PublishedAt *string `json:"publishedAt"`
}

// Path records which source supplied a Result.
type Path string

const (
	PathPrimary  Path = "primary"
	PathFallback Path = "fallback"
	PathEmpty    Path = "empty"
)

// Result is the outcome of one Fetch: the articles plus the path that
// produced them. Articles is never nil.
type Result struct {
	Path     Path
	Articles []Article
}

// Provider is a structured news source.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, max int) ([]Article, error)
}

// Aggregator picks between the primary provider and the search fallback.
type Aggregator struct {
	primary  Provider
	fallback scraper.Searcher
}

// NewAggregator creates an Aggregator. A nil primary means no news API is
// configured and every fetch goes straight to the fallback.
func NewAggregator(primary Provider, fallback scraper.Searcher) *Aggregator {
	return &Aggregator{primary: primary, fallback: fallback}
}

// Fetch returns up to MaxArticles articles about company. The fallback runs
// only when the primary path produced nothing; the two are never merged.
// Fetch never fails: errors are logged and yield an empty result.
func (a *Aggregator) Fetch(ctx context.Context, company string) Result {
	articles, err := a.fetchPrimary(ctx, company)
	switch {
	case err == nil:
		return Result{Path: PathPrimary, Articles: articles}
	case errors.Is(err, errNoProvider):
		slog.Debug("news: no api key, using fallback", "company", company)
	default:
		slog.Warn("news: primary provider", "company", company, "err", err)
	}

	articles, err = a.fetchFallback(ctx, company)
	if err != nil {
		slog.Warn("news: fallback search", "company", company, "err", err)
		return Result{Path: PathEmpty, Articles: []Article{}}
	}
	return Result{Path: PathFallback, Articles: articles}
}

func (a *Aggregator) fetchPrimary(ctx context.Context, company string) ([]Article, error) {
	if a.primary == nil {
		return nil, errNoProvider
	}

	articles, err := a.primary.Search(ctx, company, MaxArticles)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, ErrProviderEmpty
	}
	if len(articles) > MaxArticles {
		articles = articles[:MaxArticles]
	}
	return articles, nil
}

func (a *Aggregator) fetchFallback(ctx context.Context, company string) ([]Article, error) {
	if a.fallback == nil {
		return nil, errors.New("news: no fallback searcher")
	}

	results, err := a.fallback.Search(ctx, company+" news", MaxArticles)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrProviderEmpty
	}

	articles := make([]Article, 0, len(results))
	for _, r := range results {
		if len(articles) >= MaxArticles {
			break
		}
		articles = append(articles, Article{
			Title:       r.Title,
			Description: r.Snippet,
			URL:         r.URL,
			Source:      FallbackSource,
		})
	}
	return articles, nil
}
