package handlers

import (
	"context"
	"fmt"
	"time"

	"diagramsync/application/commands"
	"diagramsync/application/commands/bus"
	"diagramsync/application/ports"
	"diagramsync/domain/core/aggregates"
	"diagramsync/domain/events"
	"diagramsync/domain/mutations"
	"diagramsync/pkg/errors"
	"diagramsync/pkg/observability"

	"go.uber.org/zap"
)

// MutateDiagramHandler is the mutation processor. For an authorized edit it
// relays the raw edit to the rest of the room, then folds it into the
// project's persisted snapshot.
//
// The relay happens before persistence and is never retracted. Without a
// serializer, two editors that read the same version race and the later write
// silently drops the earlier one's change from the stored snapshot.
type MutateDiagramHandler struct {
	store       ports.DiagramStore
	identities  ports.IdentityProvisioner
	broadcaster ports.Broadcaster
	publisher   ports.EventPublisher
	serializer  *ProjectSerializer
	clock       ports.Clock
	metrics     *observability.Collector
	logger      *zap.Logger
}

// NewMutateDiagramHandler creates the handler. serializer may be nil to keep
// writes unserialized.
func NewMutateDiagramHandler(
	store ports.DiagramStore,
	identities ports.IdentityProvisioner,
	broadcaster ports.Broadcaster,
	publisher ports.EventPublisher,
	serializer *ProjectSerializer,
	clock ports.Clock,
	metrics *observability.Collector,
	logger *zap.Logger,
) *MutateDiagramHandler {
	return &MutateDiagramHandler{
		store:       store,
		identities:  identities,
		broadcaster: broadcaster,
		publisher:   publisher,
		serializer:  serializer,
		clock:       clock,
		metrics:     metrics,
		logger:      logger,
	}
}

// Handle implements bus.CommandHandler
func (h *MutateDiagramHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*commands.MutateDiagramCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}
	if err := c.Validate(); err != nil {
		return err
	}

	mutation, err := mutations.Parse(c.Action, c.Payload)
	if err != nil {
		return err
	}

	start := time.Now()
	h.broadcaster.BroadcastToRoom(c.ProjectID, c.ConnectionID, ports.EventDiagramUpdate, ports.DiagramUpdate{
		Action:  c.Action,
		Payload: c.Payload,
	})

	// Persistence outlives the sender: a disconnect must not abort a write
	// whose broadcast already went out.
	ctx = context.WithoutCancel(ctx)

	// The project lock covers the read-modify-write only, not the publish
	var unlock func()
	if h.serializer != nil {
		unlock = h.serializer.Lock(c.ProjectID)
	}
	snapshot, event, err := h.persist(ctx, c, mutation)
	if unlock != nil {
		unlock()
	}
	if err != nil {
		h.logger.Error("Failed to persist diagram mutation",
			zap.String("projectID", c.ProjectID),
			zap.String("identity", c.Identity),
			zap.String("action", c.Action),
			zap.Error(err),
		)
		return err
	}

	h.metrics.RecordMutation(c.Action, "persisted", time.Since(start))
	h.logger.Debug("Diagram mutation persisted",
		zap.String("projectID", c.ProjectID),
		zap.String("action", c.Action),
		zap.Int("version", snapshot.Version),
	)

	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish diagram event",
			zap.String("projectID", c.ProjectID),
			zap.String("eventType", event.GetEventType()),
			zap.Error(err),
		)
	}

	return nil
}

// persist reads the latest snapshot and writes the merged graph. A project
// without a snapshot gets one seeded with only this mutation's effect.
func (h *MutateDiagramHandler) persist(
	ctx context.Context,
	c *commands.MutateDiagramCommand,
	mutation mutations.Mutation,
) (*aggregates.DiagramSnapshot, events.DomainEvent, error) {
	current, err := h.store.GetLatest(ctx, c.ProjectID)
	if err != nil {
		return nil, nil, errors.NewPersistenceFailure("get latest snapshot", err)
	}

	if current == nil {
		if err := h.identities.EnsureExists(ctx, c.Identity); err != nil {
			return nil, nil, errors.NewPersistenceFailure("ensure identity", err)
		}
		created, err := h.store.Create(ctx, c.ProjectID, c.Identity, mutations.Seed(mutation))
		if err != nil {
			return nil, nil, errors.NewPersistenceFailure("create snapshot", err)
		}
		return created, events.NewDiagramCreated(created.ID, c.ProjectID, c.Identity, c.Action, h.clock.Now()), nil
	}

	merged := mutations.Merge(&current.Graph, mutation)
	updated, err := h.store.UpdateGraph(ctx, current, merged)
	if err != nil {
		return nil, nil, errors.NewPersistenceFailure("update snapshot", err)
	}
	return updated, events.NewDiagramUpdated(updated.ID, c.ProjectID, c.Identity, c.Action, updated.Version, h.clock.Now()), nil
}
