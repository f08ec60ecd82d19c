// Package memory provides process-local implementations of the persistence
// ports, used for development and tests.
package memory

import (
	"context"
	"sync"

	"diagramsync/application/ports"
	"diagramsync/domain/core/aggregates"
	"diagramsync/pkg/errors"
)

// DiagramStore keeps snapshots in memory. Writes are last-writer-wins, like the DynamoDB store.
type DiagramStore struct {
	mu        sync.RWMutex
	snapshots map[string][]*aggregates.DiagramSnapshot
	clock     ports.Clock
	writes    int
}

// NewDiagramStore creates an empty store
func NewDiagramStore(clock ports.Clock) *DiagramStore {
	return &DiagramStore{
		snapshots: make(map[string][]*aggregates.DiagramSnapshot),
		clock:     clock,
	}
}

// GetLatest returns a copy of the project's current snapshot, or nil
func (s *DiagramStore) GetLatest(ctx context.Context, projectID string) (*aggregates.DiagramSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := aggregates.SelectLatest(s.snapshots[projectID])
	if latest == nil {
		return nil, nil
	}
	return copySnapshot(latest), nil
}

// Create stores a new snapshot at version 1
func (s *DiagramStore) Create(ctx context.Context, projectID, authorID string, graph *aggregates.Graph) (*aggregates.DiagramSnapshot, error) {
	snap := aggregates.NewDiagramSnapshot(projectID, authorID, graph, s.clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[projectID] = append(s.snapshots[projectID], snap)
	s.writes++
	return copySnapshot(snap), nil
}

// UpdateGraph overwrites the snapshot identified by current.ID
func (s *DiagramStore) UpdateGraph(ctx context.Context, current *aggregates.DiagramSnapshot, graph *aggregates.Graph) (*aggregates.DiagramSnapshot, error) {
	next := current.NextVersion(graph, s.clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.snapshots[current.ProjectID]
	for i, snap := range list {
		if snap.ID == current.ID {
			list[i] = next
			s.writes++
			return copySnapshot(next), nil
		}
	}
	return nil, errors.NewNotFoundError("diagram snapshot").WithCode(errors.CodeSnapshotNotFound)
}

// Seed inserts a snapshot as-is. Intended for fixtures.
func (s *DiagramStore) Seed(snap *aggregates.DiagramSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.ProjectID] = append(s.snapshots[snap.ProjectID], copySnapshot(snap))
}

// WriteCount returns the number of successful Create and UpdateGraph calls
func (s *DiagramStore) WriteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func copySnapshot(snap *aggregates.DiagramSnapshot) *aggregates.DiagramSnapshot {
	out := *snap
	out.Graph = *snap.Graph.Clone()
	return &out
}
