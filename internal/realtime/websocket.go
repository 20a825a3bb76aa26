package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/psicoflow/internal/identity"
	"github.com/ashureev/psicoflow/internal/intake"
)

const (
	channelWebSocket = "websocket"
	maxFrameBytes    = 16 << 10
	writeTimeout     = 10 * time.Second
)

// Messenger handles one inbound chat message for a user.
type Messenger interface {
	Handle(ctx context.Context, userID, text string) []intake.Reply
}

// Frame is the JSON message exchanged in both directions.
type Frame struct {
	Type    string   `json:"type"`
	Text    string   `json:"text,omitempty"`
	Choices []string `json:"choices,omitempty"`
	Crisis  bool     `json:"crisis,omitempty"`
}

// Frame types.
const (
	FrameMessage = "message"
	FrameReply   = "reply"
	FramePing    = "ping"
	FramePong    = "pong"
	FrameError   = "error"
)

// WebSocketHandler serves /ws/chat.
type WebSocketHandler struct {
	messenger     Messenger
	cm            *ConnManager
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(messenger Messenger, cm *ConnManager, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		messenger:     messenger,
		cm:            cm,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	slog.Info("WebSocket connection request", "user_id", userID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	ws.SetReadLimit(maxFrameBytes)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.cm.Register(userID, ws)
	defer h.cm.Unregister(userID, ws)

	h.readLoop(r.Context(), ws, userID)
	slog.Info("Chat connection ended", "user_id", userID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, userID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Debug("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			// Plain text frames are treated as messages.
			frame = Frame{Type: FrameMessage, Text: string(message)}
		}

		switch frame.Type {
		case FramePing:
			if err := writeFrame(ctx, ws, Frame{Type: FramePong}); err != nil {
				return
			}
		case FrameMessage:
			text := strings.TrimSpace(frame.Text)
			if text == "" {
				if err := writeFrame(ctx, ws, Frame{Type: FrameError, Text: "text is required"}); err != nil {
					return
				}
				continue
			}
			replies := h.messenger.Handle(intake.WithChannel(ctx, channelWebSocket), userID, text)
			for _, reply := range replies {
				if err := writeFrame(ctx, ws, Frame{
					Type:    FrameReply,
					Text:    reply.Text,
					Choices: reply.Choices,
					Crisis:  reply.Crisis,
				}); err != nil {
					slog.Debug("WebSocket write error", "error", err, "user_id", userID)
					return
				}
			}
		default:
			slog.Debug("Ignoring unknown frame", "type", frame.Type, "user_id", userID)
		}
	}
}

func writeFrame(ctx context.Context, ws *websocket.Conn, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
