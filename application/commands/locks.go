package commands

import "diagramsync/pkg/errors"

// AcquireLockCommand takes the advisory lease on a resource of the room's diagram
type AcquireLockCommand struct {
	ConnectionID  string
	ProjectID     string
	RequestedRoom string
	Identity      string
	ResourceID    string
	OwnerID       string
}

// Validate implements bus.Command
func (c *AcquireLockCommand) Validate() error {
	if err := authorizeSession(c.ProjectID, c.Identity, c.RequestedRoom); err != nil {
		return err
	}
	if c.ResourceID == "" {
		return errors.NewMissingFields("resourceId")
	}
	return nil
}

// Owner returns the lease owner, defaulting to the session identity
func (c *AcquireLockCommand) Owner() string {
	if c.OwnerID != "" {
		return c.OwnerID
	}
	return c.Identity
}

// ReleaseLockCommand drops a lease by id
type ReleaseLockCommand struct {
	ConnectionID  string
	ProjectID     string
	RequestedRoom string
	Identity      string
	LockID        string
}

// Validate implements bus.Command
func (c *ReleaseLockCommand) Validate() error {
	if err := authorizeSession(c.ProjectID, c.Identity, c.RequestedRoom); err != nil {
		return err
	}
	if c.LockID == "" {
		return errors.NewMissingFields("lockId")
	}
	return nil
}
