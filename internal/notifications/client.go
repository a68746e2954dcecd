package notifications

import (
	"log/slog"
	"sync"
	"time"

	"quotewall/internal/middleware"
	"quotewall/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Subscribers only send control frames.
	maxMessageSize = 1024

	sendBuffer = 64
)

// WSHub is implemented by hubs that own Clients.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is a middleman between one dashboard websocket and the hub.
type Client struct {
	Hub WSHub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	ProjectID uuid.UUID
	MemberID  string

	closeOnce  sync.Once
	closed     chan struct{}
	closeFrame []byte
}

// NewClient creates a new Client instance
func NewClient(hub WSHub, conn *websocket.Conn, projectID uuid.UUID, memberID string) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		ProjectID: projectID,
		MemberID:  memberID,
		Send:      make(chan []byte, sendBuffer),
		closed:    make(chan struct{}),
	}
}

func (c *Client) closeSend() {
	c.closeWith(websocket.CloseNormalClosure, "")
}

// closeWith stops the client. WritePump, the connection's only writer, sends the close frame.
func (c *Client) closeWith(code int, text string) {
	c.closeOnce.Do(func() {
		c.closeFrame = websocket.FormatCloseMessage(code, text)
		close(c.closed)
	})
}

// ReadPump drains the connection until it closes. Incoming messages are ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Debug("event websocket closed",
					slog.String("project_id", c.ProjectID.String()), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, c.closeFrame)
			return

		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. A full buffer drops it and queues a
// notice so the dashboard knows to refetch.
func (c *Client) TrySend(message []byte) {
	select {
	case <-c.closed:
		return
	default:
	}

	select {
	case c.Send <- message:
	default:
		observability.EventDrops.Inc()
		dropNotice := []byte(`{"type":"events_dropped","payload":{"reason":"buffer_full"}}`)
		select {
		case c.Send <- dropNotice:
		default:
		}
	}
}
