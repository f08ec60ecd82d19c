package entities

import (
	"time"

	"diagramsync/domain/core/valueobjects"
)

// PresenceEntry records a connected identity inside a room
type PresenceEntry struct {
	Identity      string            `json:"identity"`
	DisplayName   string            `json:"displayName"`
	Role          valueobjects.Role `json:"role"`
	ConnectionID  string            `json:"connectionId"`
	JoinedAt      time.Time         `json:"joinedAt"`
	LastHeartbeat time.Time         `json:"lastHeartbeat"`
}
