package scraper

import (
	"context"
	"log/slog"
	"strings"
)

const officialSiteResults = 5

// ResolveOfficialSite guesses a company's website: the first result for
// "<company> official site" that is not a LinkedIn page. It reports false when
// nothing qualifies or the search fails. Companies sharing a name may resolve
// to the wrong site.
func ResolveOfficialSite(ctx context.Context, s Searcher, company string) (string, bool) {
	results, err := s.Search(ctx, company+" official site", officialSiteResults)
	if err != nil {
		slog.Warn("resolver: official site search", "company", company, "err", err)
		return "", false
	}

	for _, r := range results {
		if r.URL == "" || strings.Contains(r.URL, "linkedin.com") {
			continue
		}
		return r.URL, true
	}
	return "", false
}
