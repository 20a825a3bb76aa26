package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/psicoflow/internal/identity"
	"github.com/ashureev/psicoflow/internal/intake"
)

const (
	maxBodyBytes   = 16 << 10
	maxMessageLen  = 4000
	channelHTTP    = "http"
	errEmptyText   = "text is required"
	errMessageSize = "message too long"
)

// Messenger handles one inbound chat message for a user.
type Messenger interface {
	Handle(ctx context.Context, userID, text string) []intake.Reply
}

// ChatHandler exposes the intake conversation over plain HTTP.
type ChatHandler struct {
	messenger Messenger
	logger    *slog.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(messenger Messenger, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{messenger: messenger, logger: logger}
}

// MessageRequest is the body of POST /api/chat/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// MessageResponse carries the replies in delivery order.
type MessageResponse struct {
	Replies []intake.Reply `json:"replies"`
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/messages", h.PostMessage)
	})
}

// PostMessage runs one conversation turn for the caller.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req MessageRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, errMessageSize)
			return
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		Error(w, http.StatusBadRequest, errEmptyText)
		return
	}
	if utf8.RuneCountInString(text) > maxMessageLen {
		Error(w, http.StatusRequestEntityTooLarge, errMessageSize)
		return
	}

	ctx := intake.WithChannel(r.Context(), channelHTTP)
	replies := h.messenger.Handle(ctx, userID, text)
	if replies == nil {
		replies = []intake.Reply{}
	}
	JSON(w, http.StatusOK, MessageResponse{Replies: replies})
}
