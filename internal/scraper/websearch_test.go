package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saul-Punybz/scout/internal/config"
)

const resultsPage = `<!DOCTYPE html>
<html><body>
<div class="result">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Facme.com%2F&amp;rut=abc"> Acme - About </a></h2>
  <a class="result__snippet" href="#">Acme makes <b>everything</b>.</a>
</div>
<div class="result">
  <h2><a class="result__a" href="https://www.linkedin.com/company/acme">Acme | LinkedIn</a></h2>
  <a class="result__snippet" href="#">Follow Acme on LinkedIn.</a>
</div>
<div class="result">
  <h2><a class="result__a" href="https://www.crunchbase.com/organization/acme">Acme - Crunchbase</a></h2>
</div>
</body></html>`

func newTestSearcher(t *testing.T, handler http.HandlerFunc) *WebSearcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewWebSearcher(config.SearchConfig{
		BaseURL:   srv.URL,
		UserAgent: "scout-test",
		Timeout:   2 * time.Second,
	})
}

func htmlHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

func TestWebSearchParsesResults(t *testing.T) {
	var gotQuery, gotPath, gotUA string
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.UserAgent()
		htmlHandler(resultsPage)(w, r)
	})

	results, err := s.Search(context.Background(), "Acme Corp", 5)
	require.NoError(t, err)

	assert.Equal(t, "/html/", gotPath)
	assert.Equal(t, "Acme Corp", gotQuery)
	assert.Equal(t, "scout-test", gotUA)

	require.Len(t, results, 3)
	assert.Equal(t, WebResult{Title: "Acme - About", URL: "https://acme.com/", Snippet: "Acme makes everything."}, results[0])
	assert.Equal(t, "https://www.linkedin.com/company/acme", results[1].URL)
	assert.Equal(t, "Follow Acme on LinkedIn.", results[1].Snippet)
	// Third anchor has no snippet of its own.
	assert.Equal(t, "Acme - Crunchbase", results[2].Title)
	assert.Equal(t, "", results[2].Snippet)
}

func TestWebSearchCapsResults(t *testing.T) {
	s := newTestSearcher(t, htmlHandler(resultsPage))

	results, err := s.Search(context.Background(), "acme", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Acme - About", results[0].Title)
	assert.Equal(t, "Acme | LinkedIn", results[1].Title)
}

func TestWebSearchZeroLimitSkipsRequest(t *testing.T) {
	var hits atomic.Int32
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	results, err := s.Search(context.Background(), "acme", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int32(0), hits.Load())
}

func TestWebSearchEmptyPage(t *testing.T) {
	s := newTestSearcher(t, htmlHandler("<html><body><p>No results.</p></body></html>"))

	results, err := s.Search(context.Background(), "nothing here", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWebSearchStatusError(t *testing.T) {
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	})

	_, err := s.Search(context.Background(), "acme", 5)
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusForbidden, te.StatusCode)
	assert.True(t, strings.Contains(te.URL, "/html/?q=acme"))
}

func TestWebSearchConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	s := NewWebSearcher(config.SearchConfig{BaseURL: base, Timeout: time.Second})

	_, err := s.Search(context.Background(), "acme", 5)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.StatusCode)
}

func TestWebSearchCancelledContext(t *testing.T) {
	s := newTestSearcher(t, htmlHandler(resultsPage))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, "acme", 5)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveResultURL(t *testing.T) {
	wrapped := "//duckduckgo.com/l/?uddg=" + url.QueryEscape("https://example.org/a?b=c") + "&rut=x"

	assert.Equal(t, "https://example.org/a?b=c", resolveResultURL(wrapped))
	assert.Equal(t, "https://example.org/", resolveResultURL(" https://example.org/ "))
	assert.Equal(t, "https://cdn.example.org/x", resolveResultURL("//cdn.example.org/x"))
	assert.Equal(t, "https://duckduckgo.com/l/", resolveResultURL("https://duckduckgo.com/l/"))
}
