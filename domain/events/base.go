package events

import "time"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	EventTypeDiagramCreated = "diagram.created"
	EventTypeDiagramUpdated = "diagram.updated"
)

// DiagramCreated is raised when the first snapshot of a project is persisted
type DiagramCreated struct {
	BaseEvent
	ProjectID string `json:"project_id"`
	AuthorID  string `json:"author_id"`
	Action    string `json:"action"`
}

// NewDiagramCreated creates a DiagramCreated event
func NewDiagramCreated(snapshotID, projectID, authorID, action string, timestamp time.Time) DiagramCreated {
	return DiagramCreated{
		BaseEvent: BaseEvent{
			AggregateID: snapshotID,
			EventType:   EventTypeDiagramCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		ProjectID: projectID,
		AuthorID:  authorID,
		Action:    action,
	}
}

// DiagramUpdated is raised when a mutation is persisted on an existing snapshot
type DiagramUpdated struct {
	BaseEvent
	ProjectID string `json:"project_id"`
	ActorID   string `json:"actor_id"`
	Action    string `json:"action"`
}

// NewDiagramUpdated creates a DiagramUpdated event
func NewDiagramUpdated(snapshotID, projectID, actorID, action string, version int, timestamp time.Time) DiagramUpdated {
	return DiagramUpdated{
		BaseEvent: BaseEvent{
			AggregateID: snapshotID,
			EventType:   EventTypeDiagramUpdated,
			Timestamp:   timestamp,
			Version:     version,
		},
		ProjectID: projectID,
		ActorID:   actorID,
		Action:    action,
	}
}
