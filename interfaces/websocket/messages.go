package websocket

import (
	"encoding/json"

	"diagramsync/domain/mutations"
)

// Client-to-server event types
const (
	EventJoin        = "join"
	EventHeartbeat   = "heartbeat"
	EventLeave       = "leave"
	EventMutate      = "mutate"
	EventLockAcquire = "lock-acquire"
	EventLockRelease = "lock-release"
)

// InboundMessage is the envelope of every client frame
type InboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// OutboundMessage is the envelope of every server frame
type OutboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// JoinPayload binds the connection to a room. A role sent by the client is
// ignored; the membership resolver decides it.
type JoinPayload struct {
	Identity    string `json:"identity" validate:"required"`
	Room        string `json:"room" validate:"required"`
	DisplayName string `json:"displayName,omitempty" validate:"max=256"`
	Role        string `json:"role,omitempty"`
}

// HeartbeatPayload keeps a presence entry alive
type HeartbeatPayload struct {
	Room     string `json:"room"`
	Identity string `json:"identity"`
}

// LeavePayload detaches the connection from its room
type LeavePayload struct {
	Room     string `json:"room"`
	Identity string `json:"identity"`
}

// MutatePayload carries one diagram edit
type MutatePayload struct {
	Room    string          `json:"room"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// LockAcquirePayload requests the lease on a resource
type LockAcquirePayload struct {
	Room       string `json:"room"`
	ResourceID string `json:"resourceId"`
	OwnerID    string `json:"ownerId"`
}

// LockReleasePayload drops a lease
type LockReleasePayload struct {
	Room   string `json:"room"`
	LockID string `json:"lockId"`
}

// actionLabel bounds the metric label set to the known actions
func actionLabel(action string) string {
	for _, known := range mutations.Actions {
		if string(known) == action {
			return action
		}
	}
	return "unknown"
}
