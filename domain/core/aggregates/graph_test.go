package aggregates

import (
	"testing"
	"time"

	"diagramsync/domain/core/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableNode(id, name string) entities.Node {
	return entities.Node{
		ID:         id,
		Kind:       "table",
		Position:   entities.Position{X: 10, Y: 20},
		Attributes: map[string]interface{}{"name": name},
	}
}

func TestGraph_AddNode_IsIdempotent(t *testing.T) {
	// Arrange
	g := NewGraph()

	// Act
	first := g.AddNode(tableNode("n1", "users"))
	second := g.AddNode(tableNode("n1", "accounts"))

	// Assert
	assert.True(t, first)
	assert.False(t, second)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "users", g.Nodes[0].Attributes["name"])
}

func TestGraph_DeleteNode(t *testing.T) {
	tests := []struct {
		name        string
		nodes       []entities.Node
		deleteID    string
		wantIDs     []string
		wantChanged bool
	}{
		{
			name:        "removes matching node",
			nodes:       []entities.Node{tableNode("a", "a"), tableNode("b", "b")},
			deleteID:    "a",
			wantIDs:     []string{"b"},
			wantChanged: true,
		},
		{
			name:        "removes every duplicate",
			nodes:       []entities.Node{tableNode("a", "a"), tableNode("b", "b"), tableNode("a", "again")},
			deleteID:    "a",
			wantIDs:     []string{"b"},
			wantChanged: true,
		},
		{
			name:        "missing id leaves graph untouched",
			nodes:       []entities.Node{tableNode("a", "a")},
			deleteID:    "z",
			wantIDs:     []string{"a"},
			wantChanged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Graph{Nodes: tt.nodes}

			changed := g.DeleteNode(tt.deleteID)

			assert.Equal(t, tt.wantChanged, changed)
			ids := make([]string, 0, len(g.Nodes))
			for _, n := range g.Nodes {
				ids = append(ids, n.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestGraph_UpdateNode_ShallowMerge(t *testing.T) {
	// Arrange
	g := NewGraph()
	node := tableNode("n1", "users")
	node.Attributes["fields"] = []interface{}{"id"}
	g.AddNode(node)
	kind := "class"

	// Act
	changed := g.UpdateNode("n1", NodePatch{
		Kind:       &kind,
		Attributes: map[string]interface{}{"name": "people"},
	})

	// Assert
	require.True(t, changed)
	updated, _ := g.FindNode("n1")
	assert.Equal(t, "class", updated.Kind)
	assert.Equal(t, "people", updated.Attributes["name"])
	assert.Equal(t, []interface{}{"id"}, updated.Attributes["fields"])
	assert.Equal(t, entities.Position{X: 10, Y: 20}, updated.Position)
}

func TestGraph_UpdateNode_UnknownID(t *testing.T) {
	g := NewGraph()
	g.AddNode(tableNode("n1", "users"))

	changed := g.UpdateNode("n2", NodePatch{Attributes: map[string]interface{}{"name": "x"}})

	assert.False(t, changed)
	assert.Equal(t, "users", g.Nodes[0].Attributes["name"])
}

func TestGraph_MoveNode_OnlyTouchesPosition(t *testing.T) {
	g := NewGraph()
	g.AddNode(tableNode("n1", "users"))

	changed := g.MoveNode("n1", entities.Position{X: 300, Y: 400})

	require.True(t, changed)
	assert.Equal(t, entities.Position{X: 300, Y: 400}, g.Nodes[0].Position)
	assert.Equal(t, "table", g.Nodes[0].Kind)
	assert.Equal(t, "users", g.Nodes[0].Attributes["name"])
}

func TestGraph_Edges(t *testing.T) {
	t.Run("add edge is idempotent", func(t *testing.T) {
		g := NewGraph()
		assert.True(t, g.AddEdge(entities.Edge{ID: "e1", SourceID: "a", TargetID: "b"}))
		assert.False(t, g.AddEdge(entities.Edge{ID: "e1", SourceID: "b", TargetID: "c"}))
		require.Len(t, g.Edges, 1)
		assert.Equal(t, "a", g.Edges[0].SourceID)
	})

	t.Run("delete edge removes all matches", func(t *testing.T) {
		g := &Graph{Edges: []entities.Edge{{ID: "e1"}, {ID: "e2"}, {ID: "e1"}}}
		assert.True(t, g.DeleteEdge("e1"))
		assert.Equal(t, []entities.Edge{{ID: "e2"}}, g.Edges)
	})

	t.Run("replace edges swaps the list wholesale", func(t *testing.T) {
		g := &Graph{Edges: []entities.Edge{{ID: "old"}}}
		g.ReplaceEdges([]entities.Edge{{ID: "x"}, {ID: "y"}, {ID: "x"}})
		assert.Equal(t, []entities.Edge{{ID: "x"}, {ID: "y"}}, g.Edges)
	})
}

func TestGraph_Clone_IsIndependent(t *testing.T) {
	g := NewGraph()
	g.AddNode(tableNode("n1", "users"))

	c := g.Clone()
	c.Nodes[0].Attributes["name"] = "changed"
	c.MoveNode("n1", entities.Position{X: 1, Y: 1})

	assert.Equal(t, "users", g.Nodes[0].Attributes["name"])
	assert.Equal(t, entities.Position{X: 10, Y: 20}, g.Nodes[0].Position)
}

func TestDiagramSnapshot_NextVersion(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := NewDiagramSnapshot("p1", "alice", NewGraph(), created)
	require.Equal(t, 1, snap.Version)

	g := NewGraph()
	g.AddNode(tableNode("n1", "users"))
	next := snap.NextVersion(g, created.Add(time.Minute))

	assert.Equal(t, 2, next.Version)
	assert.Equal(t, snap.ID, next.ID)
	assert.Equal(t, created, next.CreatedAt)
	assert.Equal(t, created.Add(time.Minute), next.UpdatedAt)
	assert.Len(t, next.Graph.Nodes, 1)
	assert.Empty(t, snap.Graph.Nodes)
}

func TestSelectLatest(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := &DiagramSnapshot{ID: "a", Version: 9, UpdatedAt: base}
	newer := &DiagramSnapshot{ID: "b", Version: 2, UpdatedAt: base.Add(time.Hour)}
	tieLow := &DiagramSnapshot{ID: "c", Version: 3, UpdatedAt: base.Add(time.Hour)}
	tieSameVersion := &DiagramSnapshot{ID: "0", Version: 3, UpdatedAt: base.Add(time.Hour)}

	assert.Nil(t, SelectLatest(nil))
	assert.Same(t, newer, SelectLatest([]*DiagramSnapshot{older, newer}))
	assert.Same(t, tieLow, SelectLatest([]*DiagramSnapshot{newer, tieLow}))
	assert.Same(t, tieSameVersion, SelectLatest([]*DiagramSnapshot{tieLow, tieSameVersion}))
}
