package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"rps-arena/middleware"
	"rps-arena/services"
)

type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newWSTestServer(t *testing.T, origins []string) (*httptest.Server, *services.LobbyService, *middleware.ConnectionTokens) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := services.NewHub(16, log)
	lobby := services.NewLobbyService(services.LobbyDeps{
		Games:       services.NewGameService(),
		Tournaments: services.NewTournamentService(),
		Replays:     services.NewReplayService(10),
		AI:          services.NewAIOpponent(),
		Notifier:    hub,
		Scheduler:   idleScheduler{},
		Log:         log,
	}, services.LobbyConfig{})
	tokens := middleware.NewConnectionTokens("test-secret")
	ws := NewWebSocketServer(hub, lobby, NewDispatcher(lobby, hub, log), tokens, origins, log)
	srv := httptest.NewServer(ws.Handler())
	t.Cleanup(srv.Close)
	return srv, lobby, tokens
}

func dialHello(t *testing.T, url string) (*websocket.Conn, services.ConnectedPayload) {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	first := readFrame(t, c)
	if first.Type != services.EventConnected {
		t.Fatalf("expected connected first, got %s", first.Type)
	}
	var hello services.ConnectedPayload
	if err := json.Unmarshal(first.Data, &hello); err != nil || hello.ConnectionID == "" || hello.Token == "" {
		t.Fatalf("connected payload missing id or token: %s", first.Data)
	}
	return c, hello
}

func readFrame(t *testing.T, c *websocket.Conn) wsFrame {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var f wsFrame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode frame %s: %v", data, err)
	}
	return f
}

func TestWebSocketConnectAndJoin(t *testing.T) {
	srv, lobby, _ := newWSTestServer(t, []string{"*"})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	c, hello := dialHello(t, url)
	defer c.Close()

	msg := `{"type":"join_game","data":{"mode":"ai","playerName":"Sock"}}`
	if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatal(err)
	}
	state := readFrame(t, c)
	if state.Type != services.EventGameState || !strings.Contains(string(state.Data), `"opponent":"AI"`) {
		t.Fatalf("expected game_state against AI, got %s %s", state.Type, state.Data)
	}
	if p, ok := lobby.Player(hello.ConnectionID); !ok || p.CurrentGame == "" {
		t.Fatal("socket connection should be seated in a game")
	}

	if err := c.WriteMessage(websocket.TextMessage, []byte(`{"type":"fly"}`)); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, c); f.Type != services.EventError {
		t.Fatalf("expected error for unknown action, got %s", f.Type)
	}
}

func TestWebSocketResumeNeedsToken(t *testing.T) {
	srv, _, tokens := newWSTestServer(t, []string{"*"})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	first, hello := dialHello(t, url)
	first.Close()
	if id, err := tokens.Verify(hello.Token); err != nil || id != hello.ConnectionID {
		t.Fatalf("token should name the connection, got %q %v", id, err)
	}

	bare, fresh := dialHello(t, url+"?conn="+hello.ConnectionID)
	bare.Close()
	if fresh.ConnectionID == hello.ConnectionID {
		t.Fatal("a bare id must not resume its connection")
	}

	resumed, again := dialHello(t, url+"?conn="+hello.Token)
	resumed.Close()
	if again.ConnectionID != hello.ConnectionID {
		t.Fatalf("expected %s resumed with its token, got %s", hello.ConnectionID, again.ConnectionID)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://play.example"})
	cases := map[string]bool{
		"":                     true,
		"https://play.example": true,
		"https://evil.example": false,
	}
	for origin, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		if got := check(r); got != want {
			t.Errorf("origin %q allowed = %v, want %v", origin, got, want)
		}
	}
	if !originChecker([]string{"*"})(httptest.NewRequest(http.MethodGet, "/ws", nil)) {
		t.Fatal("wildcard should allow everything")
	}
}
