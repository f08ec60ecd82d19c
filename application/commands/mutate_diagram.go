package commands

import (
	"encoding/json"

	"diagramsync/domain/core/valueobjects"
	"diagramsync/pkg/errors"
)

// MutateDiagramCommand applies one incremental edit to a project's diagram.
// Identity, ProjectID and Role come from the connection's session, never from the client payload.
type MutateDiagramCommand struct {
	ConnectionID  string
	ProjectID     string
	RequestedRoom string
	Identity      string
	Role          valueobjects.Role
	Action        string
	Payload       json.RawMessage
}

// Validate runs the authorization gate before any structural checks
func (c *MutateDiagramCommand) Validate() error {
	if err := authorizeSession(c.ProjectID, c.Identity, c.RequestedRoom); err != nil {
		return err
	}
	if !c.Role.CanEdit() {
		return errors.NewAuthorizationDenied("you do not have permission to edit this diagram")
	}
	if c.Action == "" {
		return errors.NewMissingFields("action")
	}
	return nil
}

// authorizeSession rejects events from connections that have not joined the
// room they target
func authorizeSession(boundRoom, identity, requestedRoom string) error {
	if boundRoom == "" || identity == "" {
		return errors.NewNotAuthenticated()
	}
	if requestedRoom != "" && requestedRoom != boundRoom {
		return errors.NewNotAuthenticated()
	}
	return nil
}
