package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/fairlend/advisor/internal/advisor"
	"github.com/fairlend/advisor/internal/domain"
)

// ChatSocketHandler serves the web-chat channel over a WebSocket. One
// socket drives one session: a start or resume frame, then message
// frames.
type ChatSocketHandler struct {
	orch          *advisor.Orchestrator
	allowedOrigin string
	isDev         bool
}

// NewChatSocketHandler creates a new WebSocket chat handler.
func NewChatSocketHandler(orch *advisor.Orchestrator, allowedOrigin string, isDev bool) *ChatSocketHandler {
	return &ChatSocketHandler{orch: orch, allowedOrigin: allowedOrigin, isDev: isDev}
}

// chatFrame is the wire shape in both directions.
type chatFrame struct {
	Type      string         `json:"type"`
	Channel   domain.Channel `json:"channel,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Text      string         `json:"text,omitempty"`

	Reply     string           `json:"reply,omitempty"`
	Greeting  string           `json:"greeting,omitempty"`
	Stage     domain.Stage     `json:"stage,omitempty"`
	Actions   []advisor.Action `json:"actions,omitempty"`
	NextSteps []string         `json:"next_steps,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *ChatSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept chat WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("failed to close chat websocket", "error", closeErr)
		}
	}()

	ctx := r.Context()
	sessionID := ""

	for {
		_, raw, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("chat WebSocket closed by client", "session_id", sessionID)
			} else {
				slog.Warn("chat WebSocket read error", "session_id", sessionID, "error", err)
			}
			return
		}

		var frame chatFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.write(ctx, ws, chatFrame{Type: "error", Error: "malformed frame"})
			continue
		}

		switch frame.Type {
		case "start":
			channel := frame.Channel
			if channel == "" {
				channel = domain.ChannelWeb
			}
			res, err := h.orch.StartSession(ctx, channel)
			if err != nil {
				h.write(ctx, ws, chatFrame{Type: "error", Error: err.Error()})
				continue
			}
			sessionID = res.SessionID
			h.write(ctx, ws, chatFrame{Type: "session", SessionID: res.SessionID, Greeting: res.Greeting})

		case "resume":
			snap, err := h.orch.Sessions().Snapshot(frame.SessionID)
			if err != nil {
				h.write(ctx, ws, chatFrame{Type: "error", Error: "session not found"})
				continue
			}
			sessionID = frame.SessionID
			h.write(ctx, ws, chatFrame{Type: "session", SessionID: sessionID, Stage: snap.Stage})

		case "message":
			if sessionID == "" {
				h.write(ctx, ws, chatFrame{Type: "error", Error: "send a start or resume frame first"})
				continue
			}
			result, err := h.orch.ProcessMessage(ctx, sessionID, frame.Text)
			if err != nil {
				h.write(ctx, ws, chatFrame{Type: "error", Error: err.Error()})
				continue
			}
			h.write(ctx, ws, chatFrame{
				Type:      "reply",
				SessionID: sessionID,
				Reply:     result.Reply,
				Stage:     result.Stage,
				Actions:   result.Actions,
				NextSteps: result.NextSteps,
			})

		case "end":
			if sessionID != "" {
				if err := h.orch.EndSession(ctx, sessionID); err != nil {
					slog.Debug("failed to end chat session", "session_id", sessionID, "error", err)
				}
			}
			return

		default:
			h.write(ctx, ws, chatFrame{Type: "error", Error: "unknown frame type"})
		}
	}
}

func (h *ChatSocketHandler) write(ctx context.Context, ws *websocket.Conn, frame chatFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Error("failed to marshal chat frame", "error", err)
		return
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("chat WebSocket write error", "error", err)
	}
}

func (h *ChatSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("chat WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
