package handlers

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"rps-arena/middleware"
	"rps-arena/services"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 8 * 1024
)

// wsMessage is the frame format in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wsOutbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// WebSocketServer carries the same actions and events as the HTTP transport
// over a single socket per client.
type WebSocketServer struct {
	hub        *services.Hub
	lobby      *services.LobbyService
	dispatcher *Dispatcher
	tokens     *middleware.ConnectionTokens
	upgrader   websocket.Upgrader
	log        *slog.Logger
}

func NewWebSocketServer(hub *services.Hub, lobby *services.LobbyService, dispatcher *Dispatcher, tokens *middleware.ConnectionTokens, allowedOrigins []string, log *slog.Logger) *WebSocketServer {
	if log == nil {
		log = slog.Default()
	}
	return &WebSocketServer{
		hub:        hub,
		lobby:      lobby,
		dispatcher: dispatcher,
		tokens:     tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

// originChecker accepts requests without an Origin header, any listed
// origin, or anything when the list contains "*".
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

// Handler mounts the socket endpoint on /ws.
func (s *WebSocketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

func (s *WebSocketServer) serveWS(w http.ResponseWriter, r *http.Request) {
	// A missing or unverifiable resume token starts a fresh connection.
	connID, err := s.tokens.Verify(r.URL.Query().Get("conn"))
	if err != nil {
		connID = uuid.NewString()
	}
	token, err := s.tokens.Issue(connID)
	if err != nil {
		http.Error(w, "could not issue connection token", http.StatusInternalServerError)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws_upgrade_failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	conn := s.hub.Register(connID)
	s.lobby.Connect(connID)
	s.log.Info("ws_connected", "conn_id", connID, "remote", r.RemoteAddr)

	go s.writePump(ws, conn, token)
	s.readPump(ws, conn)
}

func (s *WebSocketServer) readPump(ws *websocket.Conn, conn *services.Conn) {
	defer func() {
		if s.hub.Release(conn) {
			s.lobby.Disconnect(conn.ID)
		}
		ws.Close()
	}()

	ws.SetReadLimit(wsMaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("ws_read_failed", "conn_id", conn.ID, "err", err)
			}
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.hub.Send(conn.ID, services.Event{Type: services.EventError, Data: services.ErrorPayload{Message: "malformed message"}})
			continue
		}
		_, _ = s.dispatcher.Dispatch(conn.ID, msg.Type, msg.Data)
	}
}

func (s *WebSocketServer) writePump(ws *websocket.Conn, conn *services.Conn, token string) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	if err := s.write(ws, services.Event{
		Type: services.EventConnected,
		Data: services.ConnectedPayload{ConnectionID: conn.ID, Token: token},
	}); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-conn.Events():
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.write(ws, ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *WebSocketServer) write(ws *websocket.Conn, ev services.Event) error {
	payload, err := json.Marshal(wsOutbound{Type: ev.Type, Data: ev.Data})
	if err != nil {
		s.log.Error("ws_encode_failed", "event", ev.Type, "err", err)
		return nil
	}
	_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return ws.WriteMessage(websocket.TextMessage, payload)
}
