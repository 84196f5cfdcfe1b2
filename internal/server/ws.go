package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/orvandal/gridworld/internal/engine"
)

// presenceEvent is the wire form of an engine event on the feed.
type presenceEvent struct {
	Kind    string `json:"kind"`
	Player  string `json:"player,omitempty"`
	From    uint16 `json:"from,omitempty"`
	To      uint16 `json:"to"`
	Turns   uint8  `json:"turns,omitempty"`
	Arrival int64  `json:"arrival,omitempty"`
	MapName string `json:"map,omitempty"`
	Tiles   uint32 `json:"tiles,omitempty"`
}

// Hub fans engine events out to websocket subscribers. Slow subscribers
// are dropped rather than blocking the feed.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]chan []byte

	upgrader websocket.Upgrader
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]chan []byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Broadcast is the engine observer entry point.
func (h *Hub) Broadcast(ev engine.Event) {
	out := presenceEvent{
		Player:  ev.Player,
		From:    ev.From,
		To:      ev.To,
		Turns:   ev.Turns,
		Arrival: ev.Arrival,
		MapName: ev.MapName,
		Tiles:   ev.Tiles,
	}
	switch ev.Kind {
	case engine.EventEntered:
		out.Kind = "entered"
	case engine.EventMoved:
		out.Kind = "moved"
	case engine.EventMapFinalized:
		out.Kind = "map_finalized"
	default:
		return
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.sessions {
		select {
		case ch <- payload:
		default:
			// Subscriber is not keeping up; drop it.
			close(ch)
			delete(h.sessions, id)
			slog.Warn("presence subscriber dropped", "session", id)
		}
	}
}

// HandleWS upgrades the connection and streams events until the client
// disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.sessions[id] = ch
	h.mu.Unlock()
	slog.Info("presence subscriber connected", "session", id)

	defer func() {
		h.mu.Lock()
		if _, ok := h.sessions[id]; ok {
			close(ch)
			delete(h.sessions, id)
		}
		h.mu.Unlock()
	}()

	// Reader goroutine: we never expect client messages, but reading is
	// what surfaces the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
