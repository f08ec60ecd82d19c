package queries

import "diagramsync/pkg/errors"

// GetDiagramQuery reads the latest snapshot of a project
type GetDiagramQuery struct {
	ProjectID string
	Identity  string
}

// Validate validates the query
func (q GetDiagramQuery) Validate() error {
	if q.ProjectID == "" {
		return errors.NewMissingFields("projectId")
	}
	return nil
}

// ListPresenceQuery reads the presence list of a room
type ListPresenceQuery struct {
	ProjectID string
	Identity  string
}

// Validate validates the query
func (q ListPresenceQuery) Validate() error {
	if q.ProjectID == "" {
		return errors.NewMissingFields("projectId")
	}
	return nil
}

// ListLocksQuery reads the advisory locks of a project's diagram
type ListLocksQuery struct {
	ProjectID string
	Identity  string
}

// Validate validates the query
func (q ListLocksQuery) Validate() error {
	if q.ProjectID == "" {
		return errors.NewMissingFields("projectId")
	}
	return nil
}
