package handlers

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"diagramsync/application/locks"
	"diagramsync/application/ports"
	"diagramsync/application/ports/mocks"
	"diagramsync/application/presence"
	"diagramsync/application/queries"
	"diagramsync/application/queries/bus"
	"diagramsync/domain/config"
	"diagramsync/domain/core/aggregates"
	"diagramsync/domain/core/valueobjects"
	"diagramsync/infrastructure/persistence/memory"
	"diagramsync/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type queryFixture struct {
	bus        *bus.QueryBus
	store      *memory.DiagramStore
	tracker    *presence.Tracker
	registry   *locks.Registry
	membership *memory.MembershipResolver
	now        time.Time
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	f := &queryFixture{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	clock := ports.ClockFunc(func() time.Time { return f.now })
	cfg := config.DefaultSyncConfig()

	f.store = memory.NewDiagramStore(clock)
	f.tracker = presence.NewTracker(cfg, clock, zap.NewNop())
	f.registry = locks.NewRegistry(memory.NewLockStore(), cfg, clock, zap.NewNop())
	f.membership = memory.NewMembershipResolver("")
	f.membership.SetRole("P1", "alice", valueobjects.RoleEditor)

	f.bus = bus.NewQueryBus(bus.LoggingMiddleware(zap.NewNop(), time.Second))
	require.NoError(t, f.bus.Register(queries.GetDiagramQuery{}, NewGetDiagramHandler(f.store, f.membership, zap.NewNop())))
	require.NoError(t, f.bus.Register(queries.ListPresenceQuery{}, NewListPresenceHandler(f.tracker, f.membership)))
	require.NoError(t, f.bus.Register(queries.ListLocksQuery{}, NewListLocksHandler(f.registry, f.membership)))
	return f
}

func TestGetDiagram(t *testing.T) {
	ctx := context.Background()
	f := newQueryFixture(t)

	_, err := f.bus.Ask(ctx, queries.GetDiagramQuery{ProjectID: "P1", Identity: "alice"})
	assert.True(t, errors.IsNotFound(err))

	_, err = f.store.Create(ctx, "P1", "alice", aggregates.NewGraph())
	require.NoError(t, err)

	result, err := f.bus.Ask(ctx, queries.GetDiagramQuery{ProjectID: "P1", Identity: "alice"})
	require.NoError(t, err)
	snap := result.(*aggregates.DiagramSnapshot)
	assert.Equal(t, 1, snap.Version)
}

func TestGetDiagram_HidesProjectFromNonMembers(t *testing.T) {
	ctx := context.Background()
	f := newQueryFixture(t)
	_, err := f.store.Create(ctx, "P1", "alice", aggregates.NewGraph())
	require.NoError(t, err)

	_, err = f.bus.Ask(ctx, queries.GetDiagramQuery{ProjectID: "P1", Identity: "mallory"})

	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, errors.CodeProjectNotFound, errors.CodeOf(err, ""))
}

func TestListPresence(t *testing.T) {
	f := newQueryFixture(t)
	_, err := f.tracker.Join("P1", "alice", "Alice", valueobjects.RoleEditor, "c1")
	require.NoError(t, err)

	result, err := f.bus.Ask(context.Background(), queries.ListPresenceQuery{ProjectID: "P1", Identity: "alice"})

	require.NoError(t, err)
	list := result.(*queries.PresenceResult)
	require.Len(t, list.Users, 1)
	assert.Equal(t, "alice", list.Users[0].Identity)
}

func TestListLocks_FlagsExpiredLeases(t *testing.T) {
	ctx := context.Background()
	f := newQueryFixture(t)
	_, err := f.registry.Acquire(ctx, "P1", "n1", "alice")
	require.NoError(t, err)
	f.now = f.now.Add(20 * time.Second)
	_, err = f.registry.Acquire(ctx, "P1", "n2", "alice")
	require.NoError(t, err)
	f.now = f.now.Add(15 * time.Second)

	result, err := f.bus.Ask(ctx, queries.ListLocksQuery{ProjectID: "P1"})

	require.NoError(t, err)
	list := result.(*queries.LocksResult)
	require.Len(t, list.Locks, 2)
	assert.Equal(t, "n1", list.Locks[0].ResourceID)
	assert.True(t, list.Locks[0].Expired)
	assert.False(t, list.Locks[1].Expired)
}

func TestQueries_RequireProject(t *testing.T) {
	f := newQueryFixture(t)

	_, err := f.bus.Ask(context.Background(), queries.ListLocksQuery{})

	assert.True(t, errors.IsValidation(err))
}

func TestQueries_MembershipLookupFailure(t *testing.T) {
	// Arrange
	membership := new(mocks.MockMembershipResolver)
	membership.On("ResolveRole", mock.Anything, "P1", "alice").Return(valueobjects.Role(""), false, stderrors.New("throttled"))
	cfg := config.DefaultSyncConfig()
	handler := NewListPresenceHandler(presence.NewTracker(cfg, ports.SystemClock, zap.NewNop()), membership)

	// Act
	_, err := handler.Handle(context.Background(), queries.ListPresenceQuery{ProjectID: "P1", Identity: "alice"})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
	membership.AssertExpectations(t)
}
