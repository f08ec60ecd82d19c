package websocket

import (
	"context"
	"sync"
	"time"

	"diagramsync/domain/config"
	"diagramsync/domain/core/valueobjects"
	"diagramsync/pkg/common"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// MessageHandler processes the inbound frames of a connection
type MessageHandler interface {
	HandleMessage(ctx context.Context, c *Client, message []byte)
	Disconnect(c *Client)
}

// Session is what a connection is bound to after a successful join
type Session struct {
	Room        string
	Identity    string
	DisplayName string
	Role        valueobjects.Role
}

// Bound reports whether the session belongs to a room
func (s Session) Bound() bool {
	return s.Room != "" && s.Identity != ""
}

// Client represents a WebSocket client connection
type Client struct {
	id           string          // Unique connection ID
	authIdentity string          // Identity from the upgrade token, empty when anonymous
	authName     string          // Display name from the upgrade token
	hub          *Hub            // Reference to hub
	handler      MessageHandler  // Inbound event dispatcher
	conn         *websocket.Conn // WebSocket connection
	send         chan []byte     // Buffered channel of outbound messages
	readLimit    int64
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	session   Session
	closeOnce sync.Once
}

// NewClient creates a new WebSocket client. conn may be nil for connections
// driven without a socket.
func NewClient(
	id, authIdentity, authName string,
	hub *Hub,
	handler MessageHandler,
	conn *websocket.Conn,
	cfg *config.SyncConfig,
	logger *zap.Logger,
) *Client {
	ctx := common.WithConnectionID(context.Background(), id)
	if authIdentity != "" {
		ctx = common.WithIdentity(ctx, authIdentity, authName)
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Client{
		id:           id,
		authIdentity: authIdentity,
		authName:     authName,
		hub:          hub,
		handler:      handler,
		conn:         conn,
		send:         make(chan []byte, cfg.ConnectionSendBuffer),
		readLimit:    cfg.MaxMessageBytes,
		logger: logger.With(
			zap.String("connectionID", id),
			zap.String("identity", authIdentity),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers the client and begins its read and write pumps
func (c *Client) Start() {
	c.hub.Register(c)

	go c.writePump()
	go c.readPump()
}

// readPump pumps messages from the WebSocket connection to the handler.
// Frames of one connection are handled in arrival order.
func (c *Client) readPump() {
	defer func() {
		c.handler.Disconnect(c)
		c.cancel()
		c.close()
		c.logger.Info("Read pump stopped")
	}()

	c.conn.SetReadLimit(c.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.handler.HandleMessage(c.ctx, c, message)
		case websocket.BinaryMessage:
			c.logger.Warn("Binary messages not supported")
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		c.logger.Info("Write pump stopped")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

			// Add queued messages to the current message batch
			n := len(c.send)
			for i := 0; i < n; i++ {
				queued, ok := <-c.send
				if !ok {
					return
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, queued); err != nil {
					c.logger.Error("Failed to write batched message", zap.Error(err))
					return
				}
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// close shuts the socket once; the read pump notices and cleans up
func (c *Client) close() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// ID returns the client's connection ID
func (c *Client) ID() string {
	return c.id
}

// AuthIdentity returns the identity proven by the upgrade token, if any
func (c *Client) AuthIdentity() string {
	return c.authIdentity
}

// Session returns a copy of the connection's binding
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) bind(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) setRole(role valueobjects.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Role = role
}

func (c *Client) unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = Session{}
}
