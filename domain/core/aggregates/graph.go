package aggregates

import "diagramsync/domain/core/entities"

// Graph is the node and edge content of a diagram. Node and edge order is
// preserved as clients sent it; ids are unique within each list.
type Graph struct {
	Nodes []entities.Node `json:"nodes" dynamodbav:"nodes"`
	Edges []entities.Edge `json:"edges" dynamodbav:"edges"`
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		Nodes: []entities.Node{},
		Edges: []entities.Edge{},
	}
}

// Clone returns a working copy that can be modified without touching g
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Nodes: make([]entities.Node, 0, len(g.Nodes)),
		Edges: make([]entities.Edge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		out.Nodes = append(out.Nodes, n.Clone())
	}
	for _, e := range g.Edges {
		out.Edges = append(out.Edges, e.Clone())
	}
	return out
}

// FindNode returns the first node with the given id
func (g *Graph) FindNode(id string) (*entities.Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// FindEdge returns the first edge with the given id
func (g *Graph) FindEdge(id string) (*entities.Edge, bool) {
	for i := range g.Edges {
		if g.Edges[i].ID == id {
			return &g.Edges[i], true
		}
	}
	return nil, false
}

// AddNode appends node unless a node with the same id already exists.
// It reports whether the graph changed.
func (g *Graph) AddNode(node entities.Node) bool {
	if _, exists := g.FindNode(node.ID); exists {
		return false
	}
	g.Nodes = append(g.Nodes, node.Clone())
	return true
}

// DeleteNode removes every node with the given id
func (g *Graph) DeleteNode(id string) bool {
	kept := g.Nodes[:0]
	removed := false
	for _, n := range g.Nodes {
		if n.ID == id {
			removed = true
			continue
		}
		kept = append(kept, n)
	}
	g.Nodes = kept
	return removed
}

// NodePatch is a partial node update. Nil fields are left untouched.
type NodePatch struct {
	Kind       *string
	Position   *entities.Position
	Attributes map[string]interface{}
}

// UpdateNode shallow-merges patch into the node with the given id. Attribute
// keys present in the patch replace the node's values; other keys survive.
func (g *Graph) UpdateNode(id string, patch NodePatch) bool {
	node, ok := g.FindNode(id)
	if !ok {
		return false
	}
	if patch.Kind != nil {
		node.Kind = *patch.Kind
	}
	if patch.Position != nil {
		node.Position = *patch.Position
	}
	if len(patch.Attributes) > 0 {
		if node.Attributes == nil {
			node.Attributes = make(map[string]interface{}, len(patch.Attributes))
		}
		for k, v := range patch.Attributes {
			node.Attributes[k] = v
		}
	}
	return true
}

// MoveNode replaces only the position of the node with the given id
func (g *Graph) MoveNode(id string, position entities.Position) bool {
	node, ok := g.FindNode(id)
	if !ok {
		return false
	}
	node.Position = position
	return true
}

// AddEdge appends edge unless an edge with the same id already exists
func (g *Graph) AddEdge(edge entities.Edge) bool {
	if _, exists := g.FindEdge(edge.ID); exists {
		return false
	}
	g.Edges = append(g.Edges, edge.Clone())
	return true
}

// DeleteEdge removes every edge with the given id
func (g *Graph) DeleteEdge(id string) bool {
	kept := g.Edges[:0]
	removed := false
	for _, e := range g.Edges {
		if e.ID == id {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	g.Edges = kept
	return removed
}

// ReplaceEdges swaps the whole edge list. Duplicate ids keep their first occurrence.
func (g *Graph) ReplaceEdges(edges []entities.Edge) {
	out := make([]entities.Edge, 0, len(edges))
	seen := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e.Clone())
	}
	g.Edges = out
}

// Normalize makes nil lists empty so snapshots always serialize as arrays
func (g *Graph) Normalize() *Graph {
	if g.Nodes == nil {
		g.Nodes = []entities.Node{}
	}
	if g.Edges == nil {
		g.Edges = []entities.Edge{}
	}
	return g
}
