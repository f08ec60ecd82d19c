package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"diagramsync/application/ports"
	"diagramsync/pkg/observability"

	"go.uber.org/zap"
)

// Hub is the room registry. It maps connection ids to clients and rooms to
// the connections bound to them, and fans out server events.
type Hub struct {
	clients map[string]*Client            // connectionID -> client
	rooms   map[string]map[string]*Client // room -> connectionID -> client
	mu      sync.RWMutex

	metrics *observability.Collector
	logger  *zap.Logger
}

var _ ports.Broadcaster = (*Hub)(nil)

// NewHub creates an empty hub
func NewHub(metrics *observability.Collector, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		metrics: metrics,
		logger:  logger,
	}
}

// Run keeps the connection gauge current until ctx is done, then closes
// every connection
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllConnections()
			return

		case <-ticker.C:
			count := h.ConnectionCount()
			h.metrics.SetConnections(count)
			h.logger.Debug("Hub health check",
				zap.Int("connections", count),
				zap.Int("rooms", h.RoomCount()),
			)
		}
	}
}

// Register adds a client connection
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetConnections(count)
	h.logger.Info("Client registered",
		zap.String("connectionID", client.id),
		zap.String("identity", client.authIdentity),
		zap.Int("connections", count),
	)
}

// Unregister removes a client and closes its send channel. Unregistering
// twice is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	h.removeFromRooms(client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetConnections(count)
	h.logger.Info("Client unregistered",
		zap.String("connectionID", client.id),
		zap.Int("connections", count),
	)
}

// JoinRoom binds a registered client to room, detaching it from any other room
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.id]; !ok {
		return
	}
	h.removeFromRooms(client)
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[client.id] = client
}

// LeaveRoom detaches client from room
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, client.id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// BroadcastToRoom implements ports.Broadcaster
func (h *Hub) BroadcastToRoom(room, exceptConnID, eventType string, data interface{}) {
	message, err := encode(eventType, data)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message",
			zap.String("room", room),
			zap.String("messageType", eventType),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	successCount := 0
	failCount := 0
	for connID, client := range h.rooms[room] {
		if connID == exceptConnID {
			continue
		}
		if h.deliver(client, message) {
			successCount++
		} else {
			failCount++
		}
	}
	h.metrics.RecordBroadcast(eventType)

	h.logger.Debug("Broadcast complete",
		zap.String("room", room),
		zap.String("messageType", eventType),
		zap.Int("success", successCount),
		zap.Int("failed", failCount),
	)
}

// SendTo implements ports.Broadcaster
func (h *Hub) SendTo(connID, eventType string, data interface{}) {
	message, err := encode(eventType, data)
	if err != nil {
		h.logger.Error("Failed to marshal message",
			zap.String("connectionID", connID),
			zap.String("messageType", eventType),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		h.logger.Debug("No active connection",
			zap.String("connectionID", connID),
			zap.String("messageType", eventType),
		)
		return
	}
	h.deliver(client, message)
	h.metrics.RecordBroadcast(eventType)
}

// ConnectionCount returns the number of registered connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of rooms with at least one bound connection
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// RoomMembers returns the connection ids bound to room
func (h *Hub) RoomMembers(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.rooms[room]))
	for id := range h.rooms[room] {
		ids = append(ids, id)
	}
	return ids
}

// deliver never blocks. A client whose buffer is full is closed; its read
// pump then runs the disconnect cleanup. Callers hold h.mu.
func (h *Hub) deliver(client *Client, message []byte) bool {
	select {
	case client.send <- message:
		return true
	default:
		h.metrics.RecordDropped()
		h.logger.Warn("Closing slow client",
			zap.String("connectionID", client.id),
			zap.String("identity", client.authIdentity),
		)
		go client.close()
		return false
	}
}

// removeFromRooms requires h.mu held for writing
func (h *Hub) removeFromRooms(client *Client) {
	for room, members := range h.rooms {
		if _, ok := members[client.id]; !ok {
			continue
		}
		delete(members, client.id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// closeAllConnections closes all active connections during shutdown
func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for id, client := range h.clients {
		close(client.send)
		clients = append(clients, client)
		delete(h.clients, id)
	}
	h.rooms = make(map[string]map[string]*Client)
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
	h.metrics.SetConnections(0)
	h.logger.Info("All connections closed", zap.Int("closed", len(clients)))
}

func encode(eventType string, data interface{}) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(OutboundMessage{
		Type:      eventType,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	})
}
