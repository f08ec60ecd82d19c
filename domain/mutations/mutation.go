// Package mutations defines the closed set of incremental edits a client can
// apply to a diagram, and how each one folds into a graph.
package mutations

import (
	"diagramsync/domain/core/aggregates"
	"diagramsync/domain/core/entities"
)

// Action names a mutation kind on the wire
type Action string

const (
	ActionAddNode    Action = "ADD_NODE"
	ActionUpdateNode Action = "UPDATE_NODE"
	ActionMoveNode   Action = "MOVE_NODE"
	ActionDeleteNode Action = "DELETE_NODE"
	ActionAddEdge    Action = "ADD_EDGE"
	ActionDeleteEdge Action = "DELETE_EDGE"
	ActionSyncEdges  Action = "SYNC_EDGES"
)

// Actions lists every supported action
var Actions = []Action{
	ActionAddNode,
	ActionUpdateNode,
	ActionMoveNode,
	ActionDeleteNode,
	ActionAddEdge,
	ActionDeleteEdge,
	ActionSyncEdges,
}

// Mutation is one decoded edit. The set of implementations is closed to this package.
type Mutation interface {
	Action() Action
	// Apply folds the edit into g and reports whether g changed.
	Apply(g *aggregates.Graph) bool

	sealed()
}

// AddNode inserts a node unless its id is taken
type AddNode struct {
	Node entities.Node
}

// UpdateNode shallow-merges fields into an existing node
type UpdateNode struct {
	ID    string
	Patch aggregates.NodePatch
}

// MoveNode replaces a node's position
type MoveNode struct {
	ID       string
	Position entities.Position
}

// DeleteNode removes a node by id
type DeleteNode struct {
	ID string
}

// AddEdge inserts an edge unless its id is taken
type AddEdge struct {
	Edge entities.Edge
}

// DeleteEdge removes an edge by id
type DeleteEdge struct {
	ID string
}

// SyncEdges replaces the whole edge list
type SyncEdges struct {
	Edges []entities.Edge
}

func (AddNode) Action() Action    { return ActionAddNode }
func (UpdateNode) Action() Action { return ActionUpdateNode }
func (MoveNode) Action() Action   { return ActionMoveNode }
func (DeleteNode) Action() Action { return ActionDeleteNode }
func (AddEdge) Action() Action    { return ActionAddEdge }
func (DeleteEdge) Action() Action { return ActionDeleteEdge }
func (SyncEdges) Action() Action  { return ActionSyncEdges }

func (m AddNode) Apply(g *aggregates.Graph) bool    { return g.AddNode(m.Node) }
func (m UpdateNode) Apply(g *aggregates.Graph) bool { return g.UpdateNode(m.ID, m.Patch) }
func (m MoveNode) Apply(g *aggregates.Graph) bool   { return g.MoveNode(m.ID, m.Position) }
func (m DeleteNode) Apply(g *aggregates.Graph) bool { return g.DeleteNode(m.ID) }
func (m AddEdge) Apply(g *aggregates.Graph) bool    { return g.AddEdge(m.Edge) }
func (m DeleteEdge) Apply(g *aggregates.Graph) bool { return g.DeleteEdge(m.ID) }

func (m SyncEdges) Apply(g *aggregates.Graph) bool {
	g.ReplaceEdges(m.Edges)
	return true
}

func (AddNode) sealed()    {}
func (UpdateNode) sealed() {}
func (MoveNode) sealed()   {}
func (DeleteNode) sealed() {}
func (AddEdge) sealed()    {}
func (DeleteEdge) sealed() {}
func (SyncEdges) sealed()  {}

// Seed builds the initial graph of a project that has no snapshot yet:
// an empty graph carrying only the effect of m.
func Seed(m Mutation) *aggregates.Graph {
	g := aggregates.NewGraph()
	m.Apply(g)
	return g
}

// Merge applies m to a working copy of base and returns the copy
func Merge(base *aggregates.Graph, m Mutation) *aggregates.Graph {
	working := base.Clone()
	m.Apply(working)
	return working.Normalize()
}
