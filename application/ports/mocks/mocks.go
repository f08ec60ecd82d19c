// Package mocks provides testify mocks of the persistence and messaging ports.
package mocks

import (
	"context"
	"sync"

	"diagramsync/domain/core/aggregates"
	"diagramsync/domain/core/valueobjects"
	"diagramsync/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockDiagramStore mocks ports.DiagramStore
type MockDiagramStore struct {
	mock.Mock
}

func (m *MockDiagramStore) GetLatest(ctx context.Context, projectID string) (*aggregates.DiagramSnapshot, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aggregates.DiagramSnapshot), args.Error(1)
}

func (m *MockDiagramStore) Create(ctx context.Context, projectID, authorID string, graph *aggregates.Graph) (*aggregates.DiagramSnapshot, error) {
	args := m.Called(ctx, projectID, authorID, graph)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aggregates.DiagramSnapshot), args.Error(1)
}

func (m *MockDiagramStore) UpdateGraph(ctx context.Context, current *aggregates.DiagramSnapshot, graph *aggregates.Graph) (*aggregates.DiagramSnapshot, error) {
	args := m.Called(ctx, current, graph)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aggregates.DiagramSnapshot), args.Error(1)
}

// MockMembershipResolver mocks ports.MembershipResolver
type MockMembershipResolver struct {
	mock.Mock
}

func (m *MockMembershipResolver) ResolveRole(ctx context.Context, projectID, identity string) (valueobjects.Role, bool, error) {
	args := m.Called(ctx, projectID, identity)
	return args.Get(0).(valueobjects.Role), args.Bool(1), args.Error(2)
}

// MockIdentityProvisioner mocks ports.IdentityProvisioner
type MockIdentityProvisioner struct {
	mock.Mock
}

func (m *MockIdentityProvisioner) EnsureExists(ctx context.Context, identity string) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

// MockEventPublisher mocks ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// Message is one event captured by RecordingBroadcaster
type Message struct {
	Room         string
	ExceptConnID string
	ConnID       string
	Type         string
	Data         interface{}
}

// RecordingBroadcaster captures outbound events instead of sending them
type RecordingBroadcaster struct {
	mu       sync.Mutex
	messages []Message
}

// BroadcastToRoom implements ports.Broadcaster
func (b *RecordingBroadcaster) BroadcastToRoom(room, exceptConnID, eventType string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, Message{Room: room, ExceptConnID: exceptConnID, Type: eventType, Data: data})
}

// SendTo implements ports.Broadcaster
func (b *RecordingBroadcaster) SendTo(connID, eventType string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, Message{ConnID: connID, Type: eventType, Data: data})
}

// Messages returns a copy of everything captured so far
func (b *RecordingBroadcaster) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// OfType returns the captured events with the given type
func (b *RecordingBroadcaster) OfType(eventType string) []Message {
	var out []Message
	for _, msg := range b.Messages() {
		if msg.Type == eventType {
			out = append(out, msg)
		}
	}
	return out
}
