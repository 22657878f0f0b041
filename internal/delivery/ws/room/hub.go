package ws_room

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const DefaultSendBuffer = 256

// Message is the frame exchanged in both directions. Acknowledgements carry
// the id of the command they answer.
type Message struct {
	ID      string `json:"id,omitempty"`
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// Hub keeps track of live connections and the room channels they are
// subscribed to. Every write into a Send channel happens under mu so a
// dropped client is never written to after its channel is closed.
type Hub struct {
	mu sync.RWMutex

	clients map[string]*Client
	rooms   map[string]map[string]*Client

	sendBuffer int
	logger     *slog.Logger
}

type HubOption func(*Hub)

func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

func WithSendBuffer(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.sendBuffer = size
		}
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		sendBuffer: DefaultSendBuffer,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) RegisterClient(conn *websocket.Conn) *Client {
	client := &Client{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, h.sendBuffer),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.logger.Info("client registered", "conn_id", client.ID)
	return client
}

func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.drop(client) {
		h.logger.Info("client unregistered", "conn_id", client.ID)
	}
}

// drop must be called with mu held.
func (h *Hub) drop(client *Client) bool {
	if _, ok := h.clients[client.ID]; !ok {
		return false
	}
	delete(h.clients, client.ID)
	for code, members := range h.rooms {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
	close(client.Send)
	return true
}

func (h *Hub) Subscribe(code string, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	if _, ok := h.rooms[code]; !ok {
		h.rooms[code] = make(map[string]*Client)
	}
	h.rooms[code][connID] = client
}

func (h *Hub) Unsubscribe(code string, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[code]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
}

// Members reports how many connections listen on a room channel.
func (h *Hub) Members(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[code])
}

func (h *Hub) Broadcast(code string, event string, payload any) {
	data, err := json.Marshal(Message{Event: event, Payload: payload})
	if err != nil {
		h.logger.Error("failed to encode event", "room", code, "event", event, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.rooms[code] {
		h.deliver(client, data)
	}
}

// SendTo writes a message to a single connection.
func (h *Hub) SendTo(connID string, msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", "conn_id", connID, "event", msg.Event, "error", err)
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return false
	}
	return h.deliver(client, data)
}

// deliver must be called with mu held. A client whose buffer is full is
// dropped so one slow reader cannot stall the room.
func (h *Hub) deliver(client *Client, data []byte) bool {
	select {
	case client.Send <- data:
		return true
	default:
		h.logger.Warn("send buffer full, dropping client", "conn_id", client.ID)
		h.drop(client)
		return false
	}
}
