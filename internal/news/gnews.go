package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Saul-Punybz/scout/internal/config"
	"github.com/Saul-Punybz/scout/internal/scraper"
)

const (
	breakerMaxFailures = 5
	breakerOpenTimeout = 60 * time.Second
	breakerInterval    = 5 * time.Minute
)

// GNewsClient queries the GNews search API. Calls pass through a circuit
// breaker so a dead API fails fast and the aggregator falls back right away.
type GNewsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]Article]
}

// NewGNewsClient creates a GNewsClient from the news configuration.
func NewGNewsClient(cfg config.NewsConfig) *GNewsClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &GNewsClient{
		apiKey:     cfg.GNewsAPIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[[]Article](gobreaker.Settings{
			Name:        "news:gnews",
			MaxRequests: 1,
			Interval:    breakerInterval,
			Timeout:     breakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerMaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state change",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}
}

// Name implements Provider.
func (c *GNewsClient) Name() string { return "gnews" }

type gnewsResponse struct {
	TotalArticles int            `json:"totalArticles"`
	Articles      []gnewsArticle `json:"articles"`
}

type gnewsArticle struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	PublishedAt *string `json:"publishedAt"`
	Source      *struct {
		Name string `json:"name"`
	} `json:"source"`
}

// Search returns up to max English articles about query, in API order.
func (c *GNewsClient) Search(ctx context.Context, query string, max int) ([]Article, error) {
	articles, err := c.breaker.Execute(func() ([]Article, error) {
		return c.search(ctx, query, max)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("gnews: circuit open: %w", err)
		}
		return nil, err
	}
	return articles, nil
}

func (c *GNewsClient) search(ctx context.Context, query string, max int) ([]Article, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("lang", "en")
	params.Set("max", strconv.Itoa(max))
	params.Set("token", c.apiKey)
	endpoint := c.baseURL + "/api/v4/search"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("gnews: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &scraper.TransportError{Op: "gnews: request", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &scraper.TransportError{
			Op:         "gnews: request",
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}

	var raw gnewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("gnews: decode response: %w", err)
	}

	articles := make([]Article, 0, len(raw.Articles))
	for _, a := range raw.Articles {
		if len(articles) >= max {
			break
		}
		article := Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
		}
		if a.Source != nil {
			article.Source = a.Source.Name
		}
		articles = append(articles, article)
	}
	return articles, nil
}
