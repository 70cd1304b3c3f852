// Package gateway fans room events out to websocket connections.
package gateway

import (
	"encoding/json"
	"sync"

	"github.com/mossy-p/tombola/internal/metrics"
	"github.com/mossy-p/tombola/internal/models"
	"go.uber.org/zap"
)

const sendBuffer = 256

// Client is the outbound side of one connection. Send is closed by the hub
// when the connection is unregistered or disconnected.
type Client struct {
	ID   string
	Send chan []byte
}

// Hub tracks live connections and the broadcast group of every room. It
// never blocks: a client whose buffer is full misses the message.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	groups  map[string]map[string]*Client

	metrics *metrics.Collector
	log     *zap.Logger
}

func NewHub(m *metrics.Collector, log *zap.Logger) *Hub {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]*Client),
		metrics: m,
		log:     log,
	}
}

func (h *Hub) Register(connID string) *Client {
	c := &Client{ID: connID, Send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[connID] = c
	h.mu.Unlock()

	h.metrics.Connections.Inc()
	return c
}

// Unregister forgets connID and closes its Send channel. It is a no-op for
// a connection that was already disconnected.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(connID)
}

func (h *Hub) removeLocked(connID string) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	for code, members := range h.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, code)
		}
	}
	close(c.Send)
	h.metrics.Connections.Dec()
}

func (h *Hub) Send(connID string, msg models.OutboundMessage) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.deliver(c, data)
	}
}

func (h *Hub) Broadcast(roomCode string, msg models.OutboundMessage) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.groups[roomCode] {
		h.deliver(c, data)
	}
}

func (h *Hub) Subscribe(roomCode, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}
	members := h.groups[roomCode]
	if members == nil {
		members = make(map[string]*Client)
		h.groups[roomCode] = members
	}
	members[connID] = c
}

func (h *Hub) Unsubscribe(roomCode, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.groups[roomCode]
	delete(members, connID)
	if len(members) == 0 {
		delete(h.groups, roomCode)
	}
}

// Disconnect queues msg as the last frame for connID and closes it. The
// write pump flushes what is buffered before sending the close frame.
func (h *Hub) Disconnect(connID string, msg models.OutboundMessage) {
	data, ok := h.encode(msg)

	h.mu.Lock()
	defer h.mu.Unlock()

	c, exists := h.clients[connID]
	if !exists {
		return
	}
	if ok {
		h.deliver(c, data)
	}
	h.removeLocked(connID)
}

func (h *Hub) DropRoom(roomCode string) {
	h.mu.Lock()
	delete(h.groups, roomCode)
	h.mu.Unlock()
}

// Members returns the connections subscribed to roomCode.
func (h *Hub) Members(roomCode string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.groups[roomCode]))
	for id := range h.groups[roomCode] {
		out = append(out, id)
	}
	return out
}

func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) encode(msg models.OutboundMessage) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal message", zap.String("type", string(msg.Type)), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case c.Send <- data:
	default:
		h.log.Warn("send buffer full, dropping message", zap.String("conn", c.ID))
	}
}
