package entities

// Position is a node's location on the diagram canvas
type Position struct {
	X float64 `json:"x" dynamodbav:"x"`
	Y float64 `json:"y" dynamodbav:"y"`
}

// Node is a table or class box on a diagram.
// Attributes carries the free-form properties clients attach to a node,
// including the "fields" list of table columns or class members.
type Node struct {
	ID         string                 `json:"id" dynamodbav:"id" validate:"required"`
	Kind       string                 `json:"kind,omitempty" dynamodbav:"kind,omitempty"`
	Position   Position               `json:"position" dynamodbav:"position"`
	Attributes map[string]interface{} `json:"attributes,omitempty" dynamodbav:"attributes,omitempty"`
}

// Clone returns a copy of the node that shares no maps with the receiver
func (n Node) Clone() Node {
	n.Attributes = cloneAttributes(n.Attributes)
	return n
}

// Fields returns the node's "fields" attribute when it is a list
func (n Node) Fields() []interface{} {
	if n.Attributes == nil {
		return nil
	}
	fields, _ := n.Attributes["fields"].([]interface{})
	return fields
}

func cloneAttributes(attrs map[string]interface{}) map[string]interface{} {
	if attrs == nil {
		return nil
	}
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
