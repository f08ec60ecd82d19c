package entities

// Edge is a relationship between two nodes of a diagram
type Edge struct {
	ID         string                 `json:"id" dynamodbav:"id" validate:"required"`
	SourceID   string                 `json:"sourceId" dynamodbav:"sourceId"`
	TargetID   string                 `json:"targetId" dynamodbav:"targetId"`
	Attributes map[string]interface{} `json:"attributes,omitempty" dynamodbav:"attributes,omitempty"`
}

// Clone returns a copy of the edge that shares no maps with the receiver
func (e Edge) Clone() Edge {
	e.Attributes = cloneAttributes(e.Attributes)
	return e
}
