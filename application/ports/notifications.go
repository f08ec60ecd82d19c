package ports

import (
	"encoding/json"

	"diagramsync/domain/core/entities"
)

// Server-to-client event types
const (
	EventConnectionEstablished = "connection-established"
	EventPresenceUpdate        = "presence-update"
	EventDiagramUpdate         = "diagram-update"
	EventLockUpdate            = "lock-update"
	EventLockRemoved           = "lock-removed"
	EventWarning               = "warning"
	EventError                 = "error"
)

// DiagramUpdate relays a mutation to the other members of a room
type DiagramUpdate struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// PresenceUpdate carries a room's full presence list
type PresenceUpdate struct {
	Room  string                   `json:"room"`
	Users []entities.PresenceEntry `json:"users"`
}

// LockUpdate carries an acquired or refreshed lock
type LockUpdate struct {
	Lock *entities.Lock `json:"lock"`
}

// LockRemoved announces a released lock
type LockRemoved struct {
	LockID     string `json:"lockId"`
	ResourceID string `json:"resourceId,omitempty"`
}

// Notice is the body of warning and error events
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// ConnectionEstablished greets a new connection
type ConnectionEstablished struct {
	ConnectionID string `json:"connectionId"`
	Identity     string `json:"identity,omitempty"`
}
