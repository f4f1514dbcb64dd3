package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Cronos79/station-game/internal/events"
	"github.com/Cronos79/station-game/internal/platform/logger"
	"github.com/Cronos79/station-game/internal/platform/metrics"
	"github.com/Cronos79/station-game/internal/universe"
)

// Message is the envelope for every WebSocket frame the server sends.
type Message struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Outgoing message types.
const (
	MsgTypeTick     = "tick"
	MsgTypeEvent    = "event"
	MsgTypeOrderAck = "order_ack"
	MsgTypeError    = "error"
)

// TickPayload is pushed to every client once per simulation tick.
type TickPayload struct {
	SimTime float64 `json:"sim_time"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
// It implements the engine's Notifier so ticks and resolved events reach
// connected players without polling.
type Hub struct {
	uni        *universe.Universe
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	logger     *logger.Logger
}

// NewHub initializes a new WebSocket Hub.
func NewHub(uni *universe.Universe, log *logger.Logger) *Hub {
	return &Hub{
		uni:        uni,
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     log,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("WebSocket client connected (user %d)", client.userID)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.Get().RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected (user %d)", client.userID)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					metrics.Get().RecordWSMessage(false)
				default:
					close(client.send)
					delete(h.clients, client)
					metrics.Get().RecordWSConnection(-1)
				}
			}
			h.mu.Unlock()
		}
	}
}

// NotifyTick pushes the new sim time and any events resolved this tick.
// Called inline by the engine's tick loop; must not block.
func (h *Hub) NotifyTick(simTime float64, applied []events.Event) {
	h.Broadcast(Message{
		Type:      MsgTypeTick,
		Timestamp: time.Now().Unix(),
		Payload:   TickPayload{SimTime: simTime},
	})
	for _, e := range applied {
		h.Broadcast(Message{
			Type:      MsgTypeEvent,
			Timestamp: time.Now().Unix(),
			Payload:   e,
		})
	}
}

// Broadcast serializes a message and queues it for every client. Drops the
// message when the broadcast queue is full rather than stalling the caller.
func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to serialize message for WebSocket broadcast: %v", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		metrics.Get().RecordWSError()
		h.logger.Warn("WebSocket broadcast queue full, dropping %s message", msg.Type)
	}
}

// ConnectedCount reports the number of active clients.
func (h *Hub) ConnectedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
