package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Saul-Punybz/scout/internal/middleware"
	"github.com/Saul-Punybz/scout/internal/models"
)

type ConversationHandler struct {
	Conversations *models.ConversationStore
}

// ListConversations handles GET /conversations.
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conversations, err := h.Conversations.ListByUser(r.Context(), user.ID, 50)
	if err != nil {
		slog.Error("list conversations", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

type createConversationRequest struct {
	Title string `json:"title"`
}

// CreateConversation handles POST /conversations.
func (h *ConversationHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := &models.Conversation{UserID: user.ID, Title: strings.TrimSpace(req.Title)}
	if err := h.Conversations.Create(r.Context(), c); err != nil {
		slog.Error("create conversation", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// GetConversation handles GET /conversations/{id}.
func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedConversation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type appendMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AppendMessage handles POST /conversations/{id}/messages.
func (h *ConversationHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedConversation(w, r)
	if !ok {
		return
	}

	var req appendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content required")
		return
	}

	m := &models.Message{ConversationID: c.ID, Role: req.Role, Content: req.Content}
	err := h.Conversations.AppendMessage(r.Context(), m)
	if errors.Is(err, models.ErrInvalidRole) {
		writeError(w, http.StatusBadRequest, "role must be user or assistant")
		return
	}
	if err != nil {
		slog.Error("append message", "conversation_id", c.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// ownedConversation loads the {id} conversation and checks it belongs to the
// caller, writing the error response when it does not.
func (h *ConversationHandler) ownedConversation(w http.ResponseWriter, r *http.Request) (*models.Conversation, bool) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return nil, false
	}

	c, err := h.Conversations.Get(r.Context(), id)
	if errors.Is(err, models.ErrConversationNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return nil, false
	}
	if err != nil {
		slog.Error("get conversation", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}

	if c.UserID != user.ID {
		writeError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return c, true
}
