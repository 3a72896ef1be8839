package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Saul-Punybz/scout/internal/lookup"
	"github.com/Saul-Punybz/scout/internal/middleware"
	"github.com/Saul-Punybz/scout/internal/models"
	"github.com/Saul-Punybz/scout/internal/scraper"
)

const (
	invalidQuery        = "Please provide a valid query parameter."
	invalidSelectedName = "Please provide a valid selected_name query parameter."
)

// LookupService runs the company lookup workflows.
type LookupService interface {
	SearchCompanies(ctx context.Context, query string) ([]scraper.WebResult, error)
	CompanyInfo(ctx context.Context, selectedName string, userID *string) (*lookup.CompanyInfo, error)
}

// HistoryLister replays a user's past lookups.
type HistoryLister interface {
	ListHistory(ctx context.Context, userID *string, limit int) ([]models.HistoryEntry, error)
}

// LookupHandler groups the company lookup endpoints.
type LookupHandler struct {
	Lookup  LookupService
	History HistoryLister
}

// SearchCompanies handles GET /search_companies?query=. Invalid input is
// reported in a 200 body.
func (h *LookupHandler) SearchCompanies(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.Lookup.SearchCompanies(r.Context(), r.URL.Query().Get("query"))
	if errors.Is(err, lookup.ErrInvalidInput) {
		writeError(w, http.StatusOK, invalidQuery)
		return
	}
	if err != nil {
		slog.Error("search companies", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

// CompanyInfo handles GET /company_info?selected_name=. Invalid input is
// reported in a 200 body.
func (h *LookupHandler) CompanyInfo(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	info, err := h.Lookup.CompanyInfo(r.Context(), r.URL.Query().Get("selected_name"), userID)
	if errors.Is(err, lookup.ErrInvalidInput) {
		writeError(w, http.StatusOK, invalidSelectedName)
		return
	}
	if err != nil {
		slog.Error("company info", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to save lookup")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// History handles GET /history?limit=.
func (h *LookupHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.History.ListHistory(r.Context(), middleware.UserIDFromContext(r.Context()), limit)
	if errors.Is(err, models.ErrUnauthorized) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err != nil {
		slog.Error("list history", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
