package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hormonetrack/db"
)

// Hub fans classification events out to connected dashboard clients.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*wsClient]bool
	broadcast chan []byte
	done      chan struct{}
	upgrader  websocket.Upgrader
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// PredictionEvent is the wire format of one live classification.
type PredictionEvent struct {
	Type      string              `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
	Record    db.PredictionRecord `json:"record"`
}

var hub *Hub

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*wsClient]bool),
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func SetHub(h *Hub) {
	hub = h
}

func RegisterLiveHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/ws/live", handleLive)
}

// Run pumps broadcast messages to every client until Stop.
func (h *Hub) Run() {
	for {
		select {
		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop the message rather than block the hub.
				}
			}
			h.mu.RUnlock()
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				client.conn.Close()
			}
			h.clients = make(map[*wsClient]bool)
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) add(client *wsClient) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	logger().Info("ws client connected", zap.Int("total", total))
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	logger().Info("ws client disconnected", zap.Int("total", total))
}

// BroadcastPrediction publishes one classification to all live clients.
// A nil hub makes this a no-op.
func BroadcastPrediction(record db.PredictionRecord) {
	if hub == nil {
		return
	}
	event := PredictionEvent{
		Type:      "prediction",
		Timestamp: time.Now(),
		Record:    record,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger().Warn("failed to marshal prediction event", zap.Error(err))
		return
	}
	select {
	case hub.broadcast <- payload:
	default:
	}
}

func handleLive(w http.ResponseWriter, r *http.Request) {
	if hub == nil {
		writeError(w, http.StatusServiceUnavailable, "live feed not enabled")
		return
	}
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger().Warn("ws upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 64)}
	hub.add(client)

	go func() {
		defer func() {
			hub.remove(client)
			conn.Close()
		}()
		for message := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		}
	}()

	// Reader only consumes control frames; the feed is one-way.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.remove(client)
				return
			}
		}
	}()
}
