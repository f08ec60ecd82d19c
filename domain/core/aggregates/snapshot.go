package aggregates

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DiagramSnapshot is the single persisted latest state of a project's diagram.
// Version starts at 1 and grows by exactly one per persisted mutation.
type DiagramSnapshot struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	AuthorID  string    `json:"authorId"`
	Graph     Graph     `json:"graph"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewDiagramSnapshot creates the first snapshot of a project at version 1
func NewDiagramSnapshot(projectID, authorID string, graph *Graph, now time.Time) *DiagramSnapshot {
	g := graph.Clone().Normalize()
	return &DiagramSnapshot{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		AuthorID:  authorID,
		Graph:     *g,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NextVersion returns the snapshot that results from persisting graph on top of s
func (s *DiagramSnapshot) NextVersion(graph *Graph, now time.Time) *DiagramSnapshot {
	g := graph.Clone().Normalize()
	return &DiagramSnapshot{
		ID:        s.ID,
		ProjectID: s.ProjectID,
		AuthorID:  s.AuthorID,
		Graph:     *g,
		Version:   s.Version + 1,
		CreatedAt: s.CreatedAt,
		UpdatedAt: now,
	}
}

// SelectLatest picks the current snapshot when a project has several.
// The most recently updated wins; ties go to the highest version, then the lowest id.
func SelectLatest(snapshots []*DiagramSnapshot) *DiagramSnapshot {
	if len(snapshots) == 0 {
		return nil
	}
	sorted := make([]*DiagramSnapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if a.Version != b.Version {
			return a.Version > b.Version
		}
		return a.ID < b.ID
	})
	return sorted[0]
}
