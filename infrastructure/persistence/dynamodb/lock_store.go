package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"diagramsync/application/ports"
	"diagramsync/domain/core/entities"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// lockRetention keeps expired lock items readable for a while before DynamoDB TTL removes them
const lockRetention = time.Hour

// LockStore implements ports.LockStore
type LockStore struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewLockStore creates a new LockStore
func NewLockStore(client API, tableName string, logger *zap.Logger) *LockStore {
	return &LockStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

var _ ports.LockStore = (*LockStore)(nil)

// lockRecord represents a lock record in DynamoDB
type lockRecord struct {
	PK         string    `dynamodbav:"PK"`     // DIAGRAM#<diagram_id>
	SK         string    `dynamodbav:"SK"`     // LOCK#<resource_id>
	GSI1PK     string    `dynamodbav:"GSI1PK"` // LOCKID#<lock_id>
	GSI1SK     string    `dynamodbav:"GSI1SK"` // LOCK
	EntityType string    `dynamodbav:"EntityType"`
	LockID     string    `dynamodbav:"LockID"`
	DiagramID  string    `dynamodbav:"DiagramID"`
	ResourceID string    `dynamodbav:"ResourceID"`
	OwnerID    string    `dynamodbav:"OwnerID"`
	AcquiredAt time.Time `dynamodbav:"AcquiredAt"`
	ExpiresAt  time.Time `dynamodbav:"ExpiresAt"`
	TTL        int64     `dynamodbav:"TTL"` // Unix timestamp for DynamoDB TTL
}

func (r lockRecord) toLock() *entities.Lock {
	return &entities.Lock{
		ID:         r.LockID,
		DiagramID:  r.DiagramID,
		ResourceID: r.ResourceID,
		OwnerID:    r.OwnerID,
		AcquiredAt: r.AcquiredAt,
		ExpiresAt:  r.ExpiresAt,
	}
}

// FindByResource implements ports.LockStore
func (s *LockStore) FindByResource(ctx context.Context, diagramID, resourceID string) (*entities.Lock, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      table(s.tableName),
		Key:            itemKey(diagramKey(diagramID), lockKey(resourceID)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get lock: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var record lockRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lock: %w", err)
	}
	return record.toLock(), nil
}

// Put implements ports.LockStore
func (s *LockStore) Put(ctx context.Context, lock *entities.Lock) error {
	record := lockRecord{
		PK:         diagramKey(lock.DiagramID),
		SK:         lockKey(lock.ResourceID),
		GSI1PK:     lockIDKey(lock.ID),
		GSI1SK:     entityLock,
		EntityType: entityLock,
		LockID:     lock.ID,
		DiagramID:  lock.DiagramID,
		ResourceID: lock.ResourceID,
		OwnerID:    lock.OwnerID,
		AcquiredAt: lock.AcquiredAt,
		ExpiresAt:  lock.ExpiresAt,
		TTL:        lock.ExpiresAt.Add(lockRetention).Unix(),
	}

	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal lock: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: table(s.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to put lock: %w", err)
	}

	s.logger.Debug("Lock stored",
		zap.String("lockID", lock.ID),
		zap.String("diagramID", lock.DiagramID),
		zap.String("resourceID", lock.ResourceID),
	)
	return nil
}

// DeleteByID implements ports.LockStore
func (s *LockStore) DeleteByID(ctx context.Context, diagramID, lockID string) (*entities.Lock, bool, error) {
	keyExpr := expression.Key("GSI1PK").Equal(expression.Value(lockIDKey(lockID))).
		And(expression.Key("GSI1SK").Equal(expression.Value(entityLock)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 table(s.tableName),
		IndexName:                 aws.String(lockIDIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up lock: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, false, nil
	}

	var record lockRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &record); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal lock: %w", err)
	}
	if record.DiagramID != diagramID {
		s.logger.Debug("Lock belongs to another diagram",
			zap.String("lockID", lockID),
			zap.String("diagramID", diagramID),
		)
		return nil, false, nil
	}

	// The resource may have been re-locked under another id since the index was read
	cond, err := expression.NewBuilder().
		WithCondition(expression.Name("LockID").Equal(expression.Value(lockID)).
			And(expression.Name("DiagramID").Equal(expression.Value(diagramID)))).
		Build()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 table(s.tableName),
		Key:                       itemKey(record.PK, record.SK),
		ConditionExpression:       cond.Condition(),
		ExpressionAttributeNames:  cond.Names(),
		ExpressionAttributeValues: cond.Values(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			s.logger.Debug("Lock already released", zap.String("lockID", lockID))
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to delete lock: %w", err)
	}

	return record.toLock(), true, nil
}

// ListByDiagram implements ports.LockStore
func (s *LockStore) ListByDiagram(ctx context.Context, diagramID string) ([]*entities.Lock, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(diagramKey(diagramID))).
		And(expression.Key("SK").BeginsWith("LOCK#"))
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
		return nil, fmt.Errorf("failed to query locks: %w", err)
	}

	locks := make([]*entities.Lock, 0, len(items))
	for _, raw := range items {
		var record lockRecord
		if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
			s.logger.Warn("Failed to unmarshal lock item", zap.Error(err))
			continue
		}
		locks = append(locks, record.toLock())
	}
	return locks, nil
}
