package handlers

import (
	"context"
	"fmt"

	"diagramsync/application/commands"
	"diagramsync/application/commands/bus"
	"diagramsync/application/locks"
	"diagramsync/application/ports"
	"diagramsync/pkg/observability"

	"go.uber.org/zap"
)

// AcquireLockHandler takes a lease and announces it to the whole room
type AcquireLockHandler struct {
	registry    *locks.Registry
	broadcaster ports.Broadcaster
	metrics     *observability.Collector
	logger      *zap.Logger
}

// NewAcquireLockHandler creates the handler
func NewAcquireLockHandler(registry *locks.Registry, broadcaster ports.Broadcaster, metrics *observability.Collector, logger *zap.Logger) *AcquireLockHandler {
	return &AcquireLockHandler{
		registry:    registry,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger,
	}
}

// Handle implements bus.CommandHandler
func (h *AcquireLockHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*commands.AcquireLockCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	lock, err := h.registry.Acquire(ctx, c.ProjectID, c.ResourceID, c.Owner())
	if err != nil {
		return err
	}

	h.metrics.RecordLockOperation("acquire")
	h.broadcaster.BroadcastToRoom(c.ProjectID, "", ports.EventLockUpdate, ports.LockUpdate{Lock: lock})
	return nil
}

// ReleaseLockHandler drops a lease and announces the removal
type ReleaseLockHandler struct {
	registry    *locks.Registry
	broadcaster ports.Broadcaster
	metrics     *observability.Collector
	logger      *zap.Logger
}

// NewReleaseLockHandler creates the handler
func NewReleaseLockHandler(registry *locks.Registry, broadcaster ports.Broadcaster, metrics *observability.Collector, logger *zap.Logger) *ReleaseLockHandler {
	return &ReleaseLockHandler{
		registry:    registry,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger,
	}
}

// Handle implements bus.CommandHandler. Releasing an unknown lock still
// announces the removal so stale client state converges.
func (h *ReleaseLockHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*commands.ReleaseLockCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	lock, err := h.registry.Release(ctx, c.ProjectID, c.LockID)
	if err != nil {
		return err
	}

	removed := ports.LockRemoved{LockID: c.LockID}
	if lock != nil {
		removed.ResourceID = lock.ResourceID
	}

	h.metrics.RecordLockOperation("release")
	h.broadcaster.BroadcastToRoom(c.ProjectID, "", ports.EventLockRemoved, removed)
	return nil
}
