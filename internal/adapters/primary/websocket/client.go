package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lorrc/reviewhub-realtime/internal/adapters/primary/realtime"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	defaultPongWait = 60 * time.Second
)

// Config tunes the keep-alive of one connection.
type Config struct {
	PongWait     time.Duration
	PingInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.PongWait <= 0 {
		c.PongWait = defaultPongWait
	}
	// Pings must go out before the peer's read deadline expires.
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = (c.PongWait * 9) / 10
	}
	return c
}

// Client relays one filtered realtime stream over a websocket connection.
type Client struct {
	conn   *websocket.Conn
	stream ports.RealtimeStream
	cfg    Config

	// control carries replies to client pings; only WritePump writes.
	control chan domain.RealtimeEvent

	closeOnce sync.Once
	logger    *slog.Logger
}

// NewClient creates a client. Call Run to start relaying.
func NewClient(conn *websocket.Conn, stream ports.RealtimeStream, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		conn:    conn,
		stream:  stream,
		cfg:     cfg.withDefaults(),
		control: make(chan domain.RealtimeEvent, 1),
		logger:  logger,
	}
}

// Run starts both pumps and returns once the connection is done.
func (c *Client) Run() {
	go c.ReadPump()
	c.WritePump()
}

// Close unsubscribes and closes the connection exactly once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.stream.Unsubscribe()
		_ = c.conn.Close()
	})
}

// ReadPump consumes pongs and client pings until the peer goes away.
func (c *Client) ReadPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump relays stream events and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	if err := c.writeEvent(domain.RealtimeEvent{Type: domain.RealtimeConnected}); err != nil {
		c.logger.Debug("failed to write connected message", "error", err)
		return
	}

	for {
		select {
		case <-c.stream.Done():
			if err := c.stream.Err(); err != nil {
				c.logger.Warn("realtime stream ended", "error", err)
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return

		case event := <-c.stream.Events():
			if err := c.writeEvent(event); err != nil {
				c.logger.Debug("failed to write message", "error", err)
				return
			}

		case event := <-c.control:
			if err := c.writeEvent(event); err != nil {
				c.logger.Debug("failed to write pong", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeEvent sends the same JSON object an SSE frame carries.
func (c *Client) writeEvent(event domain.RealtimeEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	body, err := realtime.NewWireMessage(event).EncodeJSON()
	if err != nil {
		c.logger.Error("failed to encode realtime event", "type", event.Type, "error", err)
		return nil
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, body)
}

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type string `json:"type"`
}

// handleIncomingMessage answers application-level pings. Everything else
// is ignored: the stream is server-push only.
func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Debug("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case "ping", "PING":
		select {
		case c.control <- domain.RealtimeEvent{Type: domain.RealtimeHeartbeat}:
		default:
			// a reply is already queued
		}
	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}
