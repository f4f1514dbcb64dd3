package network

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Cronos79/station-game/internal/platform/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Order intake limit per connection.
	ordersPerSecond = 2
	orderBurst      = 5
)

// Client represents an authenticated WebSocket connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	userID  int64
	limiter *rate.Limiter
}

// NewClient creates a WebSocket client bound to an authenticated user.
func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		userID:  userID,
		limiter: rate.NewLimiter(ordersPerSecond, orderBurst),
	}
}

// PlayerAction represents an incoming command from the client.
type PlayerAction struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Register adds the client to the hub.
func (c *Client) Register() {
	c.hub.register <- c
}

// ReadPump pumps messages from the websocket connection into actions.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read error (user %d): %v", c.userID, err)
				metrics.Get().RecordWSError()
			}
			break
		}
		metrics.Get().RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.sendError("malformed action")
			continue
		}
		c.handlePlayerAction(action)
	}
}

func (c *Client) handlePlayerAction(action PlayerAction) {
	switch action.Type {
	case "build_module":
		c.handleBuildModule(action.Payload)
	default:
		c.sendError("unknown action type: " + action.Type)
	}
}

func (c *Client) handleBuildModule(rawPayload []byte) {
	if !c.limiter.Allow() {
		c.sendError("rate limit exceeded")
		return
	}

	var parsed struct {
		StationID int64  `json:"station_id"`
		ModuleID  string `json:"module_id"`
	}
	if err := json.Unmarshal(rawPayload, &parsed); err != nil {
		c.sendError("malformed build_module payload")
		return
	}

	receipt, err := c.hub.uni.SubmitBuildOrder(parsed.StationID, parsed.ModuleID, c.userID)
	metrics.Get().RecordOrder(err == nil)
	if err != nil {
		c.sendMessage(Message{
			Type:      MsgTypeError,
			Timestamp: time.Now().Unix(),
			Payload:   map[string]string{"error": err.Error()},
		})
		return
	}

	c.sendMessage(Message{
		Type:      MsgTypeOrderAck,
		Timestamp: time.Now().Unix(),
		Payload: map[string]interface{}{
			"station_id": parsed.StationID,
			"module_id":  parsed.ModuleID,
			"event_id":   receipt.EventID,
			"fires_at":   receipt.FiresAt,
		},
	})
}

func (c *Client) sendError(msg string) {
	c.sendMessage(Message{
		Type:      MsgTypeError,
		Timestamp: time.Now().Unix(),
		Payload:   map[string]string{"error": msg},
	})
}

// sendMessage queues a frame for this client only. Drops when the client's
// queue is full; the write pump will disconnect a stalled peer anyway.
func (c *Client) sendMessage(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("Failed to serialize client message: %v", err)
		return
	}
	select {
	case c.send <- payload:
		metrics.Get().RecordWSMessage(false)
	default:
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}