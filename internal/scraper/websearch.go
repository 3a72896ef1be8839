// Package scraper queries the HTML search-results page and resolves company
// websites from it.
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/Saul-Punybz/scout/internal/config"
)

// WebResult holds a single web search result.
type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher runs a text query and returns at most limit results in page order.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]WebResult, error)
}

// TransportError reports an outbound call that failed or came back with a
// non-success status. StatusCode is zero when no response was received.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// WebSearcher scrapes the DuckDuckGo HTML endpoint. All instances created from
// the same config share nothing; callers should reuse one per process so the
// rate limiter applies across requests.
type WebSearcher struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
}

// NewWebSearcher creates a WebSearcher from the search configuration. A zero
// or negative rate disables limiting.
func NewWebSearcher(cfg config.SearchConfig) *WebSearcher {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebSearcher{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		timeout:   timeout,
		limiter:   rate.NewLimiter(limit, burst),
	}
}

// newCollector creates a fresh Colly collector for one search page. Each call
// gets its own collector to avoid state leakage between requests.
func (s *WebSearcher) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.AllowURLRevisit(),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	return c
}

// Search fetches the results page for query and returns up to limit results.
// Snippets are matched to anchors by position; a missing snippet is empty.
func (s *WebSearcher) Search(ctx context.Context, query string, limit int) ([]WebResult, error) {
	if limit <= 0 {
		return []WebResult{}, nil
	}

	searchURL := s.baseURL + "/html/?q=" + url.QueryEscape(query)

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Op: "websearch: rate limit", URL: searchURL, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	c := s.newCollector()

	var (
		anchors  []WebResult
		snippets []string
		mu       sync.Mutex
		scrErr   error
	)

	c.OnHTML("a.result__a", func(e *colly.HTMLElement) {
		mu.Lock()
		anchors = append(anchors, WebResult{
			Title: strings.TrimSpace(e.Text),
			URL:   resolveResultURL(e.Attr("href")),
		})
		mu.Unlock()
	})

	c.OnHTML(".result__snippet", func(e *colly.HTMLElement) {
		mu.Lock()
		snippets = append(snippets, strings.TrimSpace(e.Text))
		mu.Unlock()
	})

	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		mu.Lock()
		scrErr = &TransportError{Op: "websearch: fetch", URL: searchURL, StatusCode: status, Err: err}
		mu.Unlock()
	})

	// Respect context cancellation.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Visit(searchURL); err != nil {
			mu.Lock()
			if scrErr == nil {
				scrErr = &TransportError{Op: "websearch: visit", URL: searchURL, Err: err}
			}
			mu.Unlock()
		}
		c.Wait()
	}()

	select {
	case <-ctx.Done():
		return nil, &TransportError{Op: "websearch: fetch", URL: searchURL, Err: ctx.Err()}
	case <-done:
	}

	mu.Lock()
	defer mu.Unlock()

	if scrErr != nil {
		return nil, scrErr
	}

	if len(anchors) > limit {
		anchors = anchors[:limit]
	}
	results := make([]WebResult, 0, len(anchors))
	for i, a := range anchors {
		if i < len(snippets) {
			a.Snippet = snippets[i]
		}
		results = append(results, a)
	}
	return results, nil
}

// resolveResultURL turns a result href into the destination URL. DuckDuckGo
// wraps outbound links as //duckduckgo.com/l/?uddg=<target>.
func resolveResultURL(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}
