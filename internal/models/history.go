package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Saul-Punybz/scout/internal/db"
)

const (
	maxNewsItems        = 4
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ErrUnauthorized is returned when history is requested without a user.
var ErrUnauthorized = errors.New("history: authenticated user required")

// SearchRecord is the parent row of one lookup. UserID is nil for guests.
type SearchRecord struct {
	UserID       *string
	QueryText    string
	SelectedName string
}

// SummaryRecord is the generated summary for one lookup. OfficialWebsite is
// nil when the site could not be resolved.
type SummaryRecord struct {
	CompanyName     string
	OfficialWebsite *string
	SummaryText     string
	ModelName       string
}

// NewsRecord is one news article attached to a lookup. Rank is assigned by
// HistoryStore.Record from its position.
type NewsRecord struct {
	Title       string
	Description string
	URL         string
	Source      string
	PublishedAt *string
}

// HistoryNews is a persisted news item as returned by ListHistory.
type HistoryNews struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	Source      string  `json:"source"`
	PublishedAt *string `json:"publishedAt"`
	Rank        int     `json:"rank"`
}

// HistoryEntry is one past lookup with its summary and ranked news.
type HistoryEntry struct {
	SearchID     int64         `json:"id"`
	Query        string        `json:"query"`
	SelectedName string        `json:"selected_name"`
	CreatedAt    time.Time     `json:"created_at"`
	Summary      string        `json:"summary"`
	Website      *string       `json:"website"`
	News         []HistoryNews `json:"news"`
}

// HistoryStore persists lookups (searches, summaries, news_items) and replays
// them per user.
type HistoryStore struct {
	db  *db.DB
	now func() time.Time

	// beforeCommit runs inside the transaction after every insert; tests use
	// it to force a failure at the last moment.
	beforeCommit func(tx *sql.Tx) error
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(d *db.DB) *HistoryStore {
	return &HistoryStore{db: d, now: func() time.Time { return time.Now().UTC() }}
}

// Record writes a search, its summary, and up to four news items in one
// transaction and returns the new search id. News items are ranked 1..n in
// the order given; items past the fourth are ignored.
func (s *HistoryStore) Record(ctx context.Context, search SearchRecord, summary SummaryRecord, items []NewsRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("history record: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()

	var searchID int64
	err = tx.QueryRowContext(ctx, s.db.Rebind(`
		INSERT INTO searches (user_id, query_text, selected_name, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`), nullString(search.UserID), search.QueryText, search.SelectedName, now).Scan(&searchID)
	if err != nil {
		return 0, fmt.Errorf("history record: insert search: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO summaries (search_id, company_name, official_website, summary_text, model_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), searchID, summary.CompanyName, nullString(summary.OfficialWebsite), summary.SummaryText, summary.ModelName, now)
	if err != nil {
		return 0, fmt.Errorf("history record: insert summary: %w", err)
	}

	if len(items) > maxNewsItems {
		items = items[:maxNewsItems]
	}
	insertNews := s.db.Rebind(`
		INSERT INTO news_items (search_id, title, description, url, source, published_at, rank, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for i, n := range items {
		_, err := tx.ExecContext(ctx, insertNews,
			searchID, n.Title, n.Description, n.URL, n.Source, nullString(n.PublishedAt), i+1, now)
		if err != nil {
			return 0, fmt.Errorf("history record: insert news rank %d: %w", i+1, err)
		}
	}

	if s.beforeCommit != nil {
		if err := s.beforeCommit(tx); err != nil {
			return 0, fmt.Errorf("history record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history record: commit: %w", err)
	}
	return searchID, nil
}

// ListHistory returns the user's most recent lookups, newest first, each with
// its news ordered by rank. A nil or empty userID yields ErrUnauthorized.
func (s *HistoryStore) ListHistory(ctx context.Context, userID *string, limit int) ([]HistoryEntry, error) {
	if userID == nil || *userID == "" {
		return nil, ErrUnauthorized
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT s.id, s.query_text, s.selected_name, s.created_at,
		       COALESCE(m.summary_text, ''), m.official_website
		FROM searches s
		LEFT JOIN summaries m ON m.search_id = s.id
		WHERE s.user_id = ?
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT ?
	`), *userID, limit)
	if err != nil {
		return nil, fmt.Errorf("history list: %w", err)
	}

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e       HistoryEntry
			website sql.NullString
		)
		if err := rows.Scan(&e.SearchID, &e.Query, &e.SelectedName, &e.CreatedAt, &e.Summary, &website); err != nil {
			rows.Close()
			return nil, fmt.Errorf("history scan: %w", err)
		}
		if website.Valid {
			e.Website = &website.String
		}
		e.News = []HistoryNews{}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("history rows: %w", err)
	}
	// Close before the next query: SQLite runs with a single connection.
	rows.Close()

	if len(entries) == 0 {
		return []HistoryEntry{}, nil
	}

	if err := s.attachNews(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// attachNews loads the news items for every entry in one query.
func (s *HistoryStore) attachNews(ctx context.Context, entries []HistoryEntry) error {
	index := make(map[int64]int, len(entries))
	args := make([]any, 0, len(entries))
	for i, e := range entries {
		index[e.SearchID] = i
		args = append(args, e.SearchID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT search_id, COALESCE(title, ''), COALESCE(description, ''), COALESCE(url, ''),
		       COALESCE(source, ''), published_at, rank
		FROM news_items
		WHERE search_id IN (`+placeholders+`)
		ORDER BY search_id, rank ASC
	`), args...)
	if err != nil {
		return fmt.Errorf("history news: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			searchID  int64
			n         HistoryNews
			published sql.NullString
		)
		if err := rows.Scan(&searchID, &n.Title, &n.Description, &n.URL, &n.Source, &published, &n.Rank); err != nil {
			return fmt.Errorf("history news scan: %w", err)
		}
		if published.Valid {
			n.PublishedAt = &published.String
		}
		i := index[searchID]
		entries[i].News = append(entries[i].News, n)
	}
	return rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
