package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/draftcore/draftcore/backend-go/internal/engine"
)

const (
	writeWait   = 10 * time.Second
	pingPeriod  = 30 * time.Second
	maxMsgSize  = 64 * 1024
	sendBacklog = 256
)

// Conn is the websocket side of a client. *websocket.Conn satisfies it.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
	SetReadLimit(n int64)
}

// Client is one browser tab in a room. Each client drafts with its own
// engine over the room's shared sketch.
type Client struct {
	hub         *Hub
	conn        Conn
	send        chan []byte    // closed by the hub on leave
	engine      *engine.Engine // owned by the hub goroutine
	UserID      string
	DisplayName string
	ProjectID   string
	ClientID    string
}

func NewClient(hub *Hub, conn Conn, userID, displayName, projectID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBacklog),
		UserID:      userID,
		DisplayName: displayName,
		ProjectID:   projectID,
		ClientID:    clientID,
	}
}

// Serve pumps the connection until it closes or ctx ends, then leaves the
// room. The client must already be registered.
func (c *Client) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.conn.SetReadLimit(maxMsgSize)
	go c.writeLoop(ctx)

	status, reason := c.readLoop(ctx)
	c.hub.leave(c)
	c.conn.Close(status, reason)
}

func (c *Client) readLoop(ctx context.Context) (websocket.StatusCode, string) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				slog.Debug("read error", "error", err, "user", c.UserID)
			}
			return websocket.StatusNormalClosure, ""
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			slog.Warn("invalid message", "error", err, "user", c.UserID, "project", c.ProjectID)
			continue
		}
		msg.UserID = c.UserID
		msg.ClientID = c.ClientID
		msg.ProjectID = c.ProjectID

		select {
		case c.hub.inbound <- inbound{client: c, msg: &msg}:
		case <-c.hub.done:
			return websocket.StatusGoingAway, "server shutting down"
		case <-ctx.Done():
			return websocket.StatusNormalClosure, ""
		}
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "user", c.UserID)
				c.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.conn.Close(websocket.StatusPolicyViolation, "ping timeout")
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Send encodes msg and queues it for the write loop.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "type", msg.Type, "error", err)
		return
	}
	c.enqueue(data, msg.Type)
}

// enqueue drops the frame when the client has fallen too far behind.
func (c *Client) enqueue(data []byte, typ string) {
	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "user", c.UserID, "type", typ)
	}
}
