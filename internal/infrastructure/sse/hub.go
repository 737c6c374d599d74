package sse

import (
	"sync"
)

// Message is a server-sent event carrying a processed poll vote decision.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Client is a single SSE subscriber. TenantID filters which decisions it
// receives; empty means all tenants.
type Client struct {
	ClientID    string
	TenantID    string
	MessageChan chan *Message

	closeOnce sync.Once
}

func NewClient(clientID, tenantID string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 16
	}
	return &Client{
		ClientID:    clientID,
		TenantID:    tenantID,
		MessageChan: make(chan *Message, buffer),
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.MessageChan)
	})
}

// Hub manages SSE clients subscribed to poll vote decisions.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastToAll delivers a message to every connected client. Clients with
// a full channel miss the message rather than block the pipeline.
func (h *Hub) BroadcastToAll(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		trySend(c, message)
	}
}

// BroadcastToTenant delivers a message to clients subscribed to the tenant,
// plus clients with no tenant filter.
func (h *Hub) BroadcastToTenant(tenantID string, message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.TenantID == "" || c.TenantID == tenantID {
			trySend(c, message)
		}
	}
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

func trySend(c *Client, msg *Message) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		return false
	}
}
