package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/fairlend/advisor/internal/advisor"
	"github.com/fairlend/advisor/internal/session"
	"github.com/fairlend/advisor/internal/validation"
)

func newChatServer(t *testing.T) (*httptest.Server, *advisor.Orchestrator) {
	t.Helper()
	orch := advisor.NewOrchestrator(session.NewStore(), validation.NewRegistry(), nil, nil, &memoryRepo{})
	r := chi.NewRouter()
	r.Get("/ws/chat", NewChatSocketHandler(orch, "", true).ServeHTTP)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, orch
}

func dialChat(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http", "ws", 1) + "/ws/chat"
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial %s: %v", url, err)
	}
	t.Cleanup(func() { ws.Close(websocket.StatusNormalClosure, "test done") })
	return ws
}

func sendFrame(t *testing.T, ctx context.Context, ws *websocket.Conn, frame chatFrame) chatFrame {
	t.Helper()
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("Marshal frame: %v", err)
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("Write frame: %v", err)
	}
	_, raw, err := ws.Read(ctx)
	if err != nil {
		t.Fatalf("Read frame: %v", err)
	}
	var reply chatFrame
	if err := json.Unmarshal(raw, &reply); err != nil {
		t.Fatalf("Unmarshal reply: %v", err)
	}
	return reply
}

func TestChatSocket_StartAndMessage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv, _ := newChatServer(t)
	ws := dialChat(t, ctx, srv)

	opened := sendFrame(t, ctx, ws, chatFrame{Type: "start", Channel: "web"})
	if opened.Type != "session" || opened.SessionID == "" {
		t.Fatalf("Start reply = %+v, want a session frame with an id", opened)
	}
	if opened.Greeting == "" {
		t.Error("Expected the fixed web greeting")
	}

	reply := sendFrame(t, ctx, ws, chatFrame{Type: "message", Text: "hello"})
	if reply.Type != "reply" || reply.Reply == "" {
		t.Fatalf("Message reply = %+v, want a reply frame", reply)
	}
	if reply.Stage != "greeting" {
		t.Errorf("Stage = %v, want greeting", reply.Stage)
	}
}

// A resume frame for a dead session must be rejected up front, not
// confirmed and then failed on the first message.
func TestChatSocket_ResumeUnknownSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv, _ := newChatServer(t)
	ws := dialChat(t, ctx, srv)

	reply := sendFrame(t, ctx, ws, chatFrame{Type: "resume", SessionID: "sess_missing"})
	if reply.Type != "error" {
		t.Fatalf("Resume reply = %+v, want an error frame", reply)
	}

	// No session is bound afterwards.
	reply = sendFrame(t, ctx, ws, chatFrame{Type: "message", Text: "hello?"})
	if reply.Type != "error" {
		t.Errorf("Message after failed resume = %+v, want an error frame", reply)
	}
}

func TestChatSocket_ResumeExistingSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv, orch := newChatServer(t)

	started, err := orch.StartSession(ctx, "web")
	if err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}

	ws := dialChat(t, ctx, srv)
	resumed := sendFrame(t, ctx, ws, chatFrame{Type: "resume", SessionID: started.SessionID})
	if resumed.Type != "session" || resumed.SessionID != started.SessionID {
		t.Fatalf("Resume reply = %+v, want the session confirmed", resumed)
	}
	if resumed.Stage != "greeting" {
		t.Errorf("Resumed stage = %v, want greeting", resumed.Stage)
	}

	reply := sendFrame(t, ctx, ws, chatFrame{Type: "message", Text: "hello again"})
	if reply.Type != "reply" || reply.SessionID != started.SessionID {
		t.Errorf("Message reply = %+v, want a reply on the resumed session", reply)
	}
}
