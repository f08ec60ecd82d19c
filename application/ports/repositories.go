package ports

import (
	"context"
	"time"

	"diagramsync/domain/core/aggregates"
	"diagramsync/domain/core/entities"
	"diagramsync/domain/core/valueobjects"
	"diagramsync/domain/events"
)

// DiagramStore persists the latest diagram snapshot of each project.
// This is a port in hexagonal architecture - the engine doesn't know about the implementation
type DiagramStore interface {
	// GetLatest returns the current snapshot of a project, or nil when none exists
	GetLatest(ctx context.Context, projectID string) (*aggregates.DiagramSnapshot, error)

	// Create persists the first snapshot of a project at version 1
	Create(ctx context.Context, projectID, authorID string, graph *aggregates.Graph) (*aggregates.DiagramSnapshot, error)

	// UpdateGraph overwrites the graph of current and writes version current.Version+1.
	// The write is unconditional: a concurrent writer that read the same version wins or loses silently.
	UpdateGraph(ctx context.Context, current *aggregates.DiagramSnapshot, graph *aggregates.Graph) (*aggregates.DiagramSnapshot, error)
}

// MembershipResolver looks up a member's role on a project
type MembershipResolver interface {
	// ResolveRole returns the identity's role. found is false when the identity
	// is not a member or the project does not exist.
	ResolveRole(ctx context.Context, projectID, identity string) (role valueobjects.Role, found bool, err error)
}

// IdentityProvisioner materializes placeholder identity records
type IdentityProvisioner interface {
	// EnsureExists creates the identity record if it is missing. Calling it twice is safe.
	EnsureExists(ctx context.Context, identity string) error
}

// LockStore persists advisory lock records, one per (diagramID, resourceID)
type LockStore interface {
	// FindByResource returns the lock on a resource, or nil
	FindByResource(ctx context.Context, diagramID, resourceID string) (*entities.Lock, error)

	// Put creates or overwrites the record for lock's resource
	Put(ctx context.Context, lock *entities.Lock) error

	// DeleteByID removes a lock of diagramID and reports whether it existed.
	// A lock held in another diagram is reported as missing.
	DeleteByID(ctx context.Context, diagramID, lockID string) (*entities.Lock, bool, error)

	// ListByDiagram returns every lock record of a diagram
	ListByDiagram(ctx context.Context, diagramID string) ([]*entities.Lock, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Broadcaster delivers server events to the connections of a room
type Broadcaster interface {
	// BroadcastToRoom sends to every connection bound to room except exceptConnID
	BroadcastToRoom(room, exceptConnID, eventType string, data interface{})

	// SendTo sends to a single connection
	SendTo(connID, eventType string, data interface{})
}

// Clock is injected where time matters so tests can control it
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

// Now returns the function's time
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock
var SystemClock Clock = ClockFunc(time.Now)
