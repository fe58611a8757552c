package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/idleclicker/game/engine"
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

	// Pending broadcasts before new ones are dropped.
	broadcastBuffer = 256
)

// Event names
const (
	EventStateUpdate = "state_update"
	EventTick        = "tick"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message represents a WebSocket message
type Message struct {
	PlayerID string            `json:"player_id"`
	State    *engine.StateView `json:"state,omitempty"`
	Event    string            `json:"event,omitempty"`
	Data     interface{}       `json:"data,omitempty"`
}

// Client represents a WebSocket client watching one player's world
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	playerID string
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by player ID
	players map[string]map[*Client]bool
	mu      sync.RWMutex

	// Outbound messages for players
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	logger *slog.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		players:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's event loop; it returns when ctx is done, after
// closing every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.players {
				for client := range clients {
					close(client.send)
				}
			}
			h.players = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, playerID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "player_id", playerID, "error", err)
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		playerID: playerID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// HasClients reports whether anyone is watching playerID
func (h *Hub) HasClients(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.players[playerID]) > 0
}

// BroadcastState sends a state update to all clients of a player
func (h *Hub) BroadcastState(playerID string, state *engine.StateView) {
	h.enqueue(&Message{
		PlayerID: playerID,
		State:    state,
		Event:    EventStateUpdate,
	})
}

// BroadcastEvent sends a custom event to all clients of a player
func (h *Hub) BroadcastEvent(playerID string, event string, data interface{}) {
	h.enqueue(&Message{
		PlayerID: playerID,
		Event:    event,
		Data:     data,
	})
}

// enqueue never blocks the caller, which may be a world's tick loop
func (h *Hub) enqueue(message *Message) {
	if !h.HasClients(message.PlayerID) {
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("websocket broadcast dropped", "player_id", message.PlayerID, "event", message.Event)
	}
}

// registerClient adds a client to a player
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.players[client.playerID] == nil {
		h.players[client.playerID] = make(map[*Client]bool)
	}
	h.players[client.playerID][client] = true

	h.logger.Debug("websocket client registered", "player_id", client.playerID, "clients", len(h.players[client.playerID]))
}

// unregisterClient removes a client from a player
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.players[client.playerID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)

	// Clean up players without watchers
	if len(clients) == 0 {
		delete(h.players, client.playerID)
	}
	h.logger.Debug("websocket client unregistered", "player_id", client.playerID, "clients", len(clients))
}

// broadcastMessage sends a message to all clients of a player
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", "player_id", message.PlayerID, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.players[message.PlayerID] {
		select {
		case client.send <- data:
		default:
			// Client's send channel is full, drop it
			h.removeLocked(client)
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Incoming messages only keep the connection alive
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", "player_id", c.playerID, "error", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
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
