package queries

import (
	"time"

	"diagramsync/domain/core/entities"
)

// PresenceResult is the presence list of a room
type PresenceResult struct {
	Room  string                   `json:"room"`
	Users []entities.PresenceEntry `json:"users"`
}

// LockView is a lock record with its expiry evaluated at read time
type LockView struct {
	entities.Lock
	Expired bool `json:"expired"`
}

// LocksResult lists the locks of a diagram
type LocksResult struct {
	DiagramID string     `json:"diagramId"`
	Locks     []LockView `json:"locks"`
	AsOf      time.Time  `json:"asOf"`
}
