package locks

import (
	"context"
	"testing"
	"time"

	"diagramsync/application/ports"
	"diagramsync/domain/config"
	"diagramsync/infrastructure/persistence/memory"
	"diagramsync/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry(now *time.Time) (*Registry, *memory.LockStore) {
	store := memory.NewLockStore()
	clock := ports.ClockFunc(func() time.Time { return *now })
	return NewRegistry(store, config.DefaultSyncConfig(), clock, zap.NewNop()), store
}

func TestRegistry_Acquire_SetsLease(t *testing.T) {
	// Arrange
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	registry, _ := newTestRegistry(&now)

	// Act
	lock, err := registry.Acquire(context.Background(), "p1", "n1", "alice")

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, lock.ID)
	assert.Equal(t, "alice", lock.OwnerID)
	assert.Equal(t, now, lock.AcquiredAt)
	assert.Equal(t, now.Add(30*time.Second), lock.ExpiresAt)
}

func TestRegistry_Acquire_LastRequesterWins(t *testing.T) {
	// Arrange
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	registry, _ := newTestRegistry(&now)
	first, err := registry.Acquire(ctx, "d", "r", "ownerA")
	require.NoError(t, err)
	now = now.Add(5 * time.Second)

	// Act
	second, err := registry.Acquire(ctx, "d", "r", "ownerB")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, now.Add(30*time.Second), second.ExpiresAt)

	locks, err := registry.List(ctx, "d")
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, "ownerB", locks[0].OwnerID)

	// Release leaves nothing behind
	released, err := registry.Release(ctx, "d", second.ID)
	require.NoError(t, err)
	require.NotNil(t, released)
	locks, err = registry.List(ctx, "d")
	require.NoError(t, err)
	assert.Empty(t, locks)
}

func TestRegistry_Release_UnknownIsNoop(t *testing.T) {
	now := time.Now()
	registry, _ := newTestRegistry(&now)

	lock, err := registry.Release(context.Background(), "d", "does-not-exist")

	assert.NoError(t, err)
	assert.Nil(t, lock)
}

func TestRegistry_Release_Twice(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	registry, _ := newTestRegistry(&now)
	lock, err := registry.Acquire(ctx, "d", "r", "alice")
	require.NoError(t, err)

	_, err = registry.Release(ctx, "d", lock.ID)
	require.NoError(t, err)
	_, err = registry.Release(ctx, "d", lock.ID)
	assert.NoError(t, err)
}

func TestRegistry_Release_OtherDiagramIsNoop(t *testing.T) {
	// Arrange
	ctx := context.Background()
	now := time.Now()
	registry, _ := newTestRegistry(&now)
	lock, err := registry.Acquire(ctx, "P1", "n1", "alice")
	require.NoError(t, err)

	// Act
	released, err := registry.Release(ctx, "P2", lock.ID)

	// Assert
	require.NoError(t, err)
	assert.Nil(t, released)
	locks, err := registry.List(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, lock.ID, locks[0].ID)
}

func TestRegistry_Release_MissingFields(t *testing.T) {
	now := time.Now()
	registry, _ := newTestRegistry(&now)

	_, err := registry.Release(context.Background(), "", "")

	require.Error(t, err)
	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, []string{"room", "lockId"}, appErr.Details["fields"])
}

func TestRegistry_Acquire_MissingFields(t *testing.T) {
	now := time.Now()
	registry, _ := newTestRegistry(&now)

	_, err := registry.Acquire(context.Background(), "d", "", "")

	require.Error(t, err)
	assert.Equal(t, errors.CodeMissingFields, errors.CodeOf(err, ""))
}

func TestRegistry_ExpiredLockStaysUntilReplaced(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	registry, _ := newTestRegistry(&now)
	_, err := registry.Acquire(ctx, "d", "r", "alice")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	locks, err := registry.List(ctx, "d")

	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.True(t, locks[0].IsExpired(registry.Now()))
}
