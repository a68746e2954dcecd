package notifications

import (
	"context"
	"errors"
	"sync"

	"quotewall/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// Max connections per project
	maxConnsPerProject = 50
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerLimit  = errors.New("server connection limit reached")
	ErrProjectLimit = errors.New("project connection limit reached")
)

// Hub is a websocket hub that maps projectID -> set of Clients.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uuid.UUID]map[*Client]struct{}
	totalConns int
	closed     bool
}

// NewHub creates a new Hub instance for project event subscribers.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[uuid.UUID]map[*Client]struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "project event hub" }

// Register a connection for a project. Returns the Client or an error if limits are exceeded.
func (h *Hub) Register(projectID uuid.UUID, memberID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.totalConns >= maxTotalConns {
		return nil, ErrServerLimit
	}

	m, ok := h.conns[projectID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[projectID] = m
	}
	if len(m) >= maxConnsPerProject {
		return nil, ErrProjectLimit
	}

	client := NewClient(h, conn, projectID, memberID)
	m[client] = struct{}{}
	h.totalConns++
	observability.EventSubscribers.Inc()
	return client, nil
}

// UnregisterClient removes client. Calling it twice is harmless.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.ProjectID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	h.totalConns--
	observability.EventSubscribers.Dec()
	if len(m) == 0 {
		delete(h.conns, client.ProjectID)
	}
	client.closeSend()
}

// Broadcast sends message to every subscriber of projectID.
func (h *Hub) Broadcast(projectID uuid.UUID, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.conns[projectID]; ok {
		data := []byte(message)
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// Subscribers returns the number of live connections for projectID.
func (h *Hub) Subscribers(projectID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[projectID])
}

// StartWiring connects the Notifier to this hub: every project event published through
// Redis is forwarded to that project's local subscribers.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartProjectSubscriber(ctx, h.Broadcast)
}

// Shutdown stops every client with a going-away frame. Each client's WritePump sends the
// frame and closes its connection.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	for _, clients := range h.conns {
		for client := range clients {
			client.closeWith(websocket.CloseGoingAway, "Server shutting down")
		}
	}
	observability.EventSubscribers.Sub(float64(h.totalConns))
	h.conns = make(map[uuid.UUID]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
