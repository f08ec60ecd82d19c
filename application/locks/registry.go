// Package locks implements advisory per-resource leases. A lease is a hint for
// collaborators; acquiring always succeeds and replaces the previous holder.
package locks

import (
	"context"
	"fmt"
	"time"

	"diagramsync/application/ports"
	"diagramsync/domain/config"
	"diagramsync/domain/core/entities"
	"diagramsync/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry applies lease semantics on top of a LockStore
type Registry struct {
	store  ports.LockStore
	cfg    *config.SyncConfig
	clock  ports.Clock
	logger *zap.Logger
}

// NewRegistry creates a lock registry
func NewRegistry(store ports.LockStore, cfg *config.SyncConfig, clock ports.Clock, logger *zap.Logger) *Registry {
	return &Registry{
		store:  store,
		cfg:    cfg,
		clock:  clock,
		logger: logger,
	}
}

// Acquire creates or overwrites the lock on (diagramID, resourceID).
// There is no contention check: the latest requester owns the lease.
func (r *Registry) Acquire(ctx context.Context, diagramID, resourceID, ownerID string) (*entities.Lock, error) {
	var missing []string
	if diagramID == "" {
		missing = append(missing, "room")
	}
	if resourceID == "" {
		missing = append(missing, "resourceId")
	}
	if ownerID == "" {
		missing = append(missing, "ownerId")
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingFields(missing...)
	}

	existing, err := r.store.FindByResource(ctx, diagramID, resourceID)
	if err != nil {
		return nil, errors.NewPersistenceFailure("find lock", err)
	}

	now := r.clock.Now()
	lock := &entities.Lock{
		ID:         uuid.New().String(),
		DiagramID:  diagramID,
		ResourceID: resourceID,
		OwnerID:    ownerID,
		AcquiredAt: now,
		ExpiresAt:  r.cfg.LockExpiry(now),
	}
	if existing != nil {
		lock.ID = existing.ID
		if existing.OwnerID != ownerID {
			r.logger.Debug("Lock taken over",
				zap.String("diagramID", diagramID),
				zap.String("resourceID", resourceID),
				zap.String("previousOwner", existing.OwnerID),
				zap.String("owner", ownerID),
			)
		}
	}

	if err := r.store.Put(ctx, lock); err != nil {
		return nil, errors.NewPersistenceFailure("put lock", err)
	}
	return lock, nil
}

// Release deletes a lock of diagramID by id. Unknown ids and ids of locks
// held in other diagrams are not an error and leave the store untouched.
func (r *Registry) Release(ctx context.Context, diagramID, lockID string) (*entities.Lock, error) {
	var missing []string
	if diagramID == "" {
		missing = append(missing, "room")
	}
	if lockID == "" {
		missing = append(missing, "lockId")
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingFields(missing...)
	}

	lock, found, err := r.store.DeleteByID(ctx, diagramID, lockID)
	if err != nil {
		return nil, errors.NewPersistenceFailure("delete lock", err)
	}
	if !found {
		r.logger.Debug("Release of unknown lock ignored",
			zap.String("diagramID", diagramID),
			zap.String("lockID", lockID),
		)
		return nil, nil
	}
	return lock, nil
}

// List returns the locks of a diagram. Expired leases are included; callers decide how to treat them.
func (r *Registry) List(ctx context.Context, diagramID string) ([]*entities.Lock, error) {
	locks, err := r.store.ListByDiagram(ctx, diagramID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locks: %w", err)
	}
	return locks, nil
}

// Now exposes the registry clock so readers can evaluate expiry consistently
func (r *Registry) Now() time.Time {
	return r.clock.Now()
}
