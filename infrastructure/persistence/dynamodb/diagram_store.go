package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"diagramsync/application/ports"
	"diagramsync/domain/core/aggregates"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// DiagramStore implements ports.DiagramStore.
// UpdateGraph is an unconditional put: concurrent writers race and the last one wins.
type DiagramStore struct {
	client    API
	tableName string
	clock     ports.Clock
	logger    *zap.Logger
}

// NewDiagramStore creates a new DiagramStore
func NewDiagramStore(client API, tableName string, clock ports.Clock, logger *zap.Logger) *DiagramStore {
	return &DiagramStore{
		client:    client,
		tableName: tableName,
		clock:     clock,
		logger:    logger,
	}
}

var _ ports.DiagramStore = (*DiagramStore)(nil)

// snapshotItem is the DynamoDB item structure for a snapshot.
// The graph is stored as a JSON document so attribute values keep their client-side types.
type snapshotItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	SnapshotID string `dynamodbav:"SnapshotID"`
	ProjectID  string `dynamodbav:"ProjectID"`
	AuthorID   string `dynamodbav:"AuthorID"`
	Graph      string `dynamodbav:"Graph"`
	NodeCount  int    `dynamodbav:"NodeCount"`
	EdgeCount  int    `dynamodbav:"EdgeCount"`
	Version    int    `dynamodbav:"Version"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

func toSnapshotItem(snap *aggregates.DiagramSnapshot) (snapshotItem, error) {
	graph, err := json.Marshal(snap.Graph)
	if err != nil {
		return snapshotItem{}, fmt.Errorf("failed to marshal graph: %w", err)
	}
	return snapshotItem{
		PK:         projectKey(snap.ProjectID),
		SK:         snapshotKey(snap.ID),
		EntityType: entitySnapshot,
		SnapshotID: snap.ID,
		ProjectID:  snap.ProjectID,
		AuthorID:   snap.AuthorID,
		Graph:      string(graph),
		NodeCount:  len(snap.Graph.Nodes),
		EdgeCount:  len(snap.Graph.Edges),
		Version:    snap.Version,
		CreatedAt:  snap.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:  snap.UpdatedAt.Format(time.RFC3339Nano),
	}, nil
}

func (i snapshotItem) toSnapshot() (*aggregates.DiagramSnapshot, error) {
	graph := aggregates.NewGraph()
	if i.Graph != "" {
		if err := json.Unmarshal([]byte(i.Graph), graph); err != nil {
			return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
		}
	}
	createdAt, err := time.Parse(time.RFC3339Nano, i.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid CreatedAt: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, i.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid UpdatedAt: %w", err)
	}
	return &aggregates.DiagramSnapshot{
		ID:        i.SnapshotID,
		ProjectID: i.ProjectID,
		AuthorID:  i.AuthorID,
		Graph:     *graph.Normalize(),
		Version:   i.Version,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// GetLatest implements ports.DiagramStore
func (s *DiagramStore) GetLatest(ctx context.Context, projectID string) (*aggregates.DiagramSnapshot, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(projectKey(projectID))).
		And(expression.Key("SK").BeginsWith("SNAPSHOT#"))

	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	items, err := queryAll(ctx, s.client, &dynamodb.QueryInput{
		TableName:                 table(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}

	snapshots := make([]*aggregates.DiagramSnapshot, 0, len(items))
	for _, raw := range items {
		var item snapshotItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot item: %w", err)
		}
		// An unreadable snapshot must fail the read. Treating it as absent
		// would let the next write start over at version 1.
		snap, err := item.toSnapshot()
		if err != nil {
			s.logger.Error("Corrupt snapshot",
				zap.String("projectID", projectID),
				zap.String("snapshotID", item.SnapshotID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("corrupt snapshot %s: %w", item.SnapshotID, err)
		}
		snapshots = append(snapshots, snap)
	}

	if len(snapshots) > 1 {
		s.logger.Warn("Project has more than one snapshot",
			zap.String("projectID", projectID),
			zap.Int("count", len(snapshots)),
		)
	}

	return aggregates.SelectLatest(snapshots), nil
}

// Create implements ports.DiagramStore
func (s *DiagramStore) Create(ctx context.Context, projectID, authorID string, graph *aggregates.Graph) (*aggregates.DiagramSnapshot, error) {
	snap := aggregates.NewDiagramSnapshot(projectID, authorID, graph, s.clock.Now())
	if err := s.put(ctx, snap); err != nil {
		return nil, err
	}

	s.logger.Debug("Snapshot created",
		zap.String("projectID", projectID),
		zap.String("snapshotID", snap.ID),
	)
	return snap, nil
}

// UpdateGraph implements ports.DiagramStore
func (s *DiagramStore) UpdateGraph(ctx context.Context, current *aggregates.DiagramSnapshot, graph *aggregates.Graph) (*aggregates.DiagramSnapshot, error) {
	next := current.NextVersion(graph, s.clock.Now())
	if err := s.put(ctx, next); err != nil {
		return nil, err
	}

	s.logger.Debug("Snapshot updated",
		zap.String("projectID", next.ProjectID),
		zap.String("snapshotID", next.ID),
		zap.Int("version", next.Version),
	)
	return next, nil
}

func (s *DiagramStore) put(ctx context.Context, snap *aggregates.DiagramSnapshot) error {
	item, err := toSnapshotItem(snap)
	if err != nil {
		return err
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: table(s.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
