package memory

import (
	"context"
	"testing"
	"time"

	"diagramsync/application/ports"
	"diagramsync/domain/core/aggregates"
	"diagramsync/domain/core/entities"
	"diagramsync/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagramStore_CreateThenUpdate(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := NewDiagramStore(ports.SystemClock)
	g := aggregates.NewGraph()
	g.AddNode(entities.Node{ID: "n1"})

	// Act
	created, err := store.Create(ctx, "p1", "alice", g)
	require.NoError(t, err)
	g.AddNode(entities.Node{ID: "n2"})
	updated, err := store.UpdateGraph(ctx, created, g)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, 2, updated.Version)
	latest, err := store.GetLatest(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Len(t, latest.Graph.Nodes, 2)
	assert.Equal(t, 2, store.WriteCount())
}

func TestDiagramStore_GetLatest_None(t *testing.T) {
	store := NewDiagramStore(ports.SystemClock)

	snap, err := store.GetLatest(context.Background(), "missing")

	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestDiagramStore_UpdateFromStaleReadOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewDiagramStore(ports.SystemClock)
	base, err := store.Create(ctx, "p1", "alice", aggregates.NewGraph())
	require.NoError(t, err)

	first := aggregates.NewGraph()
	first.AddNode(entities.Node{ID: "B"})
	second := aggregates.NewGraph()
	second.AddNode(entities.Node{ID: "C"})

	_, err = store.UpdateGraph(ctx, base, first)
	require.NoError(t, err)
	_, err = store.UpdateGraph(ctx, base, second)
	require.NoError(t, err)

	latest, err := store.GetLatest(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	require.Len(t, latest.Graph.Nodes, 1)
	assert.Equal(t, "C", latest.Graph.Nodes[0].ID)
}

func TestDiagramStore_UpdateUnknownSnapshot(t *testing.T) {
	store := NewDiagramStore(ports.SystemClock)
	ghost := &aggregates.DiagramSnapshot{ID: "ghost", ProjectID: "p1", Version: 3}

	_, err := store.UpdateGraph(context.Background(), ghost, aggregates.NewGraph())

	assert.True(t, errors.IsNotFound(err))
}

func TestDiagramStore_PicksMostRecentlyUpdated(t *testing.T) {
	store := NewDiagramStore(ports.SystemClock)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.Seed(&aggregates.DiagramSnapshot{ID: "old", ProjectID: "p1", Version: 7, UpdatedAt: base})
	store.Seed(&aggregates.DiagramSnapshot{ID: "new", ProjectID: "p1", Version: 2, UpdatedAt: base.Add(time.Hour)})

	latest, err := store.GetLatest(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)
}
