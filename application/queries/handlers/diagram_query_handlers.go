package handlers

import (
	"context"
	"fmt"

	"diagramsync/application/locks"
	"diagramsync/application/ports"
	"diagramsync/application/presence"
	"diagramsync/application/queries"
	"diagramsync/application/queries/bus"
	"diagramsync/pkg/errors"

	"go.uber.org/zap"
)

// membershipGate hides projects from identities that are not members.
// Anonymous reads (no identity) are only possible when authentication is disabled.
type membershipGate struct {
	membership ports.MembershipResolver
}

func (g membershipGate) check(ctx context.Context, projectID, identity string) error {
	if identity == "" {
		return nil
	}
	_, found, err := g.membership.ResolveRole(ctx, projectID, identity)
	if err != nil {
		return errors.NewExternalError("membership", err)
	}
	if !found {
		return errors.NewNotFoundError("project").WithCode(errors.CodeProjectNotFound)
	}
	return nil
}

// GetDiagramHandler serves the latest snapshot of a project
type GetDiagramHandler struct {
	membershipGate
	store  ports.DiagramStore
	logger *zap.Logger
}

// NewGetDiagramHandler creates the handler
func NewGetDiagramHandler(store ports.DiagramStore, membership ports.MembershipResolver, logger *zap.Logger) *GetDiagramHandler {
	return &GetDiagramHandler{
		membershipGate: membershipGate{membership: membership},
		store:          store,
		logger:         logger,
	}
}

// Handle implements bus.QueryHandler
func (h *GetDiagramHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetDiagramQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}
	if err := h.check(ctx, q.ProjectID, q.Identity); err != nil {
		return nil, err
	}

	snap, err := h.store.GetLatest(ctx, q.ProjectID)
	if err != nil {
		return nil, errors.NewPersistenceFailure("get latest snapshot", err)
	}
	if snap == nil {
		return nil, errors.NewNotFoundError("diagram").WithCode(errors.CodeSnapshotNotFound)
	}
	return snap, nil
}

// ListPresenceHandler serves a room's presence list
type ListPresenceHandler struct {
	membershipGate
	tracker *presence.Tracker
}

// NewListPresenceHandler creates the handler
func NewListPresenceHandler(tracker *presence.Tracker, membership ports.MembershipResolver) *ListPresenceHandler {
	return &ListPresenceHandler{
		membershipGate: membershipGate{membership: membership},
		tracker:        tracker,
	}
}

// Handle implements bus.QueryHandler
func (h *ListPresenceHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListPresenceQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}
	if err := h.check(ctx, q.ProjectID, q.Identity); err != nil {
		return nil, err
	}
	return &queries.PresenceResult{Room: q.ProjectID, Users: h.tracker.List(q.ProjectID)}, nil
}

// ListLocksHandler serves a diagram's advisory locks with their expiry state
type ListLocksHandler struct {
	membershipGate
	registry *locks.Registry
}

// NewListLocksHandler creates the handler
func NewListLocksHandler(registry *locks.Registry, membership ports.MembershipResolver) *ListLocksHandler {
	return &ListLocksHandler{
		membershipGate: membershipGate{membership: membership},
		registry:       registry,
	}
}

// Handle implements bus.QueryHandler
func (h *ListLocksHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListLocksQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}
	if err := h.check(ctx, q.ProjectID, q.Identity); err != nil {
		return nil, err
	}

	records, err := h.registry.List(ctx, q.ProjectID)
	if err != nil {
		return nil, errors.NewPersistenceFailure("list locks", err)
	}

	now := h.registry.Now()
	views := make([]queries.LockView, 0, len(records))
	for _, lock := range records {
		views = append(views, queries.LockView{Lock: *lock, Expired: lock.IsExpired(now)})
	}
	return &queries.LocksResult{DiagramID: q.ProjectID, Locks: views, AsOf: now}, nil
}
