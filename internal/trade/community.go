package trade

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/apextrader/paper-engine/internal/model"
	"github.com/apextrader/paper-engine/internal/store"
)

// Community board handlers: users, chat boards, and messages.

// ListUsers handles GET /api/users.
func (s *Service) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, "failed to list users", http.StatusServiceUnavailable)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUser handles POST /api/users.
func (s *Service) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}

	u := &model.User{ID: uuid.New().String(), Name: req.Name}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		writeError(w, "failed to create user", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// ListChats handles GET /api/chats.
func (s *Service) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.store.ListChats(r.Context())
	if err != nil {
		writeError(w, "failed to list chats", http.StatusServiceUnavailable)
		return
	}
	if chats == nil {
		chats = []model.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

// CreateChat handles POST /api/chats.
func (s *Service) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, "title is required", http.StatusBadRequest)
		return
	}

	c := &model.Chat{ID: uuid.New().String(), Title: req.Title}
	if err := s.store.CreateChat(r.Context(), c); err != nil {
		writeError(w, "failed to create chat", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListMessages handles GET /api/chats/{chatID}/messages.
func (s *Service) ListMessages(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	msgs, err := s.store.ListMessages(r.Context(), chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "chat not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to list messages", http.StatusServiceUnavailable)
		return
	}
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// PostMessage handles POST /api/chats/{chatID}/messages.
func (s *Service) PostMessage(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	var req struct {
		UserID string `json:"userId"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "userId is required", http.StatusBadRequest)
		return
	}

	msg := &model.ChatMessage{
		ID:     uuid.New().String(),
		ChatID: chatID,
		UserID: req.UserID,
		Text:   req.Text,
		TS:     time.Now().UTC(),
	}
	if err := s.store.AppendMessage(r.Context(), msg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "chat not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to post message", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
