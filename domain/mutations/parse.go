package mutations

import (
	"bytes"
	"encoding/json"
	"fmt"

	"diagramsync/domain/core/aggregates"
	"diagramsync/domain/core/entities"
	"diagramsync/pkg/errors"
	"diagramsync/pkg/utils"
)

// wireNode is a node as clients send it. "type" and "data" are accepted as
// aliases of "kind" and "attributes".
type wireNode struct {
	ID         string                 `json:"id" validate:"required"`
	Kind       *string                `json:"kind"`
	Type       *string                `json:"type"`
	Position   *entities.Position     `json:"position"`
	Attributes map[string]interface{} `json:"attributes"`
	Data       map[string]interface{} `json:"data"`
}

func (w wireNode) kind() *string {
	if w.Kind != nil {
		return w.Kind
	}
	return w.Type
}

func (w wireNode) attributes() map[string]interface{} {
	if len(w.Data) == 0 {
		return w.Attributes
	}
	merged := make(map[string]interface{}, len(w.Data)+len(w.Attributes))
	for k, v := range w.Data {
		merged[k] = v
	}
	for k, v := range w.Attributes {
		merged[k] = v
	}
	return merged
}

func (w wireNode) node() entities.Node {
	n := entities.Node{ID: w.ID, Attributes: w.attributes()}
	if k := w.kind(); k != nil {
		n.Kind = *k
	}
	if w.Position != nil {
		n.Position = *w.Position
	}
	return n
}

// wireEdge is an edge as clients send it. "source" and "target" are accepted
// as aliases of "sourceId" and "targetId".
type wireEdge struct {
	ID         string                 `json:"id" validate:"required"`
	SourceID   string                 `json:"sourceId" validate:"required_without=Source"`
	TargetID   string                 `json:"targetId" validate:"required_without=Target"`
	Source     string                 `json:"source"`
	Target     string                 `json:"target"`
	Attributes map[string]interface{} `json:"attributes"`
	Data       map[string]interface{} `json:"data"`
}

func (w wireEdge) edge() entities.Edge {
	e := entities.Edge{ID: w.ID, SourceID: w.SourceID, TargetID: w.TargetID, Attributes: w.Attributes}
	if e.SourceID == "" {
		e.SourceID = w.Source
	}
	if e.TargetID == "" {
		e.TargetID = w.Target
	}
	if len(w.Data) > 0 {
		merged := make(map[string]interface{}, len(w.Data)+len(w.Attributes))
		for k, v := range w.Data {
			merged[k] = v
		}
		for k, v := range w.Attributes {
			merged[k] = v
		}
		e.Attributes = merged
	}
	return e
}

type movePayload struct {
	ID       string             `json:"id" validate:"required"`
	Position *entities.Position `json:"position" validate:"required"`
}

type idPayload struct {
	ID string `json:"id" validate:"required"`
}

type syncEdgesPayload struct {
	Edges []wireEdge `json:"edges" validate:"required,dive"`
}

// Parse decodes the payload of action into its mutation variant.
// Unknown actions and undecodable payloads are rejected as malformed input.
func Parse(action string, payload json.RawMessage) (Mutation, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil, errors.NewMissingFields("payload")
	}

	switch Action(action) {
	case ActionAddNode:
		var w wireNode
		if err := decodeWrapped(payload, "node", &w); err != nil {
			return nil, err
		}
		return AddNode{Node: w.node()}, nil

	case ActionUpdateNode:
		var w wireNode
		if err := decode(payload, &w); err != nil {
			return nil, err
		}
		return UpdateNode{ID: w.ID, Patch: aggregates.NodePatch{
			Kind:       w.kind(),
			Position:   w.Position,
			Attributes: w.attributes(),
		}}, nil

	case ActionMoveNode:
		var p movePayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return MoveNode{ID: p.ID, Position: *p.Position}, nil

	case ActionDeleteNode:
		id, err := decodeID(payload)
		if err != nil {
			return nil, err
		}
		return DeleteNode{ID: id}, nil

	case ActionAddEdge:
		var w wireEdge
		if err := decodeWrapped(payload, "edge", &w); err != nil {
			return nil, err
		}
		return AddEdge{Edge: w.edge()}, nil

	case ActionDeleteEdge:
		id, err := decodeID(payload)
		if err != nil {
			return nil, err
		}
		return DeleteEdge{ID: id}, nil

	case ActionSyncEdges:
		var p syncEdgesPayload
		if payload[0] == '[' {
			if err := json.Unmarshal(payload, &p.Edges); err != nil {
				return nil, errors.NewMalformedInput(fmt.Sprintf("invalid %s payload: %v", action, err))
			}
			if err := utils.ValidateStruct(p); err != nil {
				return nil, err
			}
		} else if err := decode(payload, &p); err != nil {
			return nil, err
		}
		edges := make([]entities.Edge, 0, len(p.Edges))
		for _, w := range p.Edges {
			edges = append(edges, w.edge())
		}
		return SyncEdges{Edges: edges}, nil

	default:
		return nil, errors.NewMalformedInput(fmt.Sprintf("unknown action %q", action)).
			WithCode(errors.CodeUnknownAction)
	}
}

func decode(payload json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.NewMalformedInput(fmt.Sprintf("invalid payload: %v", err))
	}
	return utils.ValidateStruct(v)
}

// decodeWrapped accepts both a bare object and one nested under key
func decodeWrapped(payload json.RawMessage, key string, v interface{}) error {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(payload, &wrapper); err != nil {
		return errors.NewMalformedInput(fmt.Sprintf("invalid payload: %v", err))
	}
	if inner, ok := wrapper[key]; ok && len(inner) > 0 && inner[0] == '{' {
		return decode(inner, v)
	}
	return decode(payload, v)
}

// decodeID accepts {"id": "..."} or a bare JSON string
func decodeID(payload json.RawMessage) (string, error) {
	if payload[0] == '"' {
		var id string
		if err := json.Unmarshal(payload, &id); err != nil {
			return "", errors.NewMalformedInput(fmt.Sprintf("invalid payload: %v", err))
		}
		if id == "" {
			return "", errors.NewMissingFields("id")
		}
		return id, nil
	}
	var p idPayload
	if err := decode(payload, &p); err != nil {
		return "", err
	}
	return p.ID, nil
}
