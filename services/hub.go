// services/hub.go
package services

import (
	"log/slog"
	"sync"
)

// Notifier delivers events to connections and rooms. Rooms are keyed by game
// session or tournament ID.
type Notifier interface {
	Send(connID string, ev Event)
	Broadcast(room string, ev Event)
	Join(room, connID string)
	Leave(room, connID string)
	CloseRoom(room string)
}

// Conn is the outbound side of one client connection.
type Conn struct {
	ID   string
	send chan Event
	done chan struct{}
}

// Events yields queued messages until the connection is unregistered.
func (c *Conn) Events() <-chan Event { return c.send }

// Done is closed when the connection is unregistered.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Hub is the in-process Notifier. Every connection has a bounded queue and a
// full queue drops the message instead of blocking the caller.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	rooms  map[string]map[string]struct{}
	buffer int
	log    *slog.Logger
}

func NewHub(buffer int, log *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		conns:  make(map[string]*Conn),
		rooms:  make(map[string]map[string]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// Register opens a queue for connID, replacing any previous one.
func (h *Hub) Register(connID string) *Conn {
	c := &Conn{ID: connID, send: make(chan Event, h.buffer), done: make(chan struct{})}
	h.mu.Lock()
	if old, ok := h.conns[connID]; ok {
		close(old.done)
		close(old.send)
	}
	h.conns[connID] = c
	h.mu.Unlock()
	return c
}

// Release unregisters c only if it is still the live queue for its ID, so a
// stream replaced by a reconnect does not tear down its successor.
func (h *Hub) Release(c *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[c.ID] != c {
		return false
	}
	h.unregisterLocked(c.ID)
	return true
}

func (h *Hub) unregisterLocked(connID string) {
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)
	close(c.done)
	close(c.send)
	for room, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) Send(connID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliverLocked(connID, ev)
}

func (h *Hub) Broadcast(room string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.rooms[room] {
		h.deliverLocked(connID, ev)
	}
}

// deliverLocked requires at least the read lock, which keeps the channel open.
func (h *Hub) deliverLocked(connID string, ev Event) {
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	select {
	case c.send <- ev:
	default:
		h.log.Warn("send_queue_full", "conn_id", connID, "event", ev.Type)
	}
}

func (h *Hub) Join(room, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[room] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) Leave(room, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) CloseRoom(room string) {
	h.mu.Lock()
	delete(h.rooms, room)
	h.mu.Unlock()
}

// HubStats counts live streams and non-empty rooms.
type HubStats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HubStats{Connections: len(h.conns), Rooms: len(h.rooms)}
}
