package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"diagramsync/application/ports"
	"diagramsync/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// MembershipResolver reads project member items
type MembershipResolver struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewMembershipResolver creates a new MembershipResolver
func NewMembershipResolver(client API, tableName string, logger *zap.Logger) *MembershipResolver {
	return &MembershipResolver{client: client, tableName: tableName, logger: logger}
}

var _ ports.MembershipResolver = (*MembershipResolver)(nil)

type memberItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	ProjectID  string `dynamodbav:"ProjectID"`
	Identity   string `dynamodbav:"Identity"`
	Role       string `dynamodbav:"Role"`
}

// ResolveRole implements ports.MembershipResolver
func (r *MembershipResolver) ResolveRole(ctx context.Context, projectID, identity string) (valueobjects.Role, bool, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: table(r.tableName),
		Key:       itemKey(projectKey(projectID), memberKey(identity)),
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to get membership: %w", err)
	}
	if result.Item == nil {
		return "", false, nil
	}

	var item memberItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal membership: %w", err)
	}

	role, ok := valueobjects.ParseRole(item.Role)
	if !ok {
		r.logger.Warn("Member has unknown role",
			zap.String("projectID", projectID),
			zap.String("identity", identity),
			zap.String("role", item.Role),
		)
		return "", false, nil
	}
	return role, true, nil
}

// PutMember writes or replaces a membership item
func (r *MembershipResolver) PutMember(ctx context.Context, projectID, identity string, role valueobjects.Role) error {
	av, err := attributevalue.MarshalMap(memberItem{
		PK:         projectKey(projectID),
		SK:         memberKey(identity),
		EntityType: entityMember,
		ProjectID:  projectID,
		Identity:   identity,
		Role:       role.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal membership: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: table(r.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to put membership: %w", err)
	}
	return nil
}

// IdentityProvisioner creates placeholder user records
type IdentityProvisioner struct {
	client    API
	tableName string
	clock     ports.Clock
	logger    *zap.Logger
}

// NewIdentityProvisioner creates a new IdentityProvisioner
func NewIdentityProvisioner(client API, tableName string, clock ports.Clock, logger *zap.Logger) *IdentityProvisioner {
	return &IdentityProvisioner{client: client, tableName: tableName, clock: clock, logger: logger}
}

var _ ports.IdentityProvisioner = (*IdentityProvisioner)(nil)

type userItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Identity   string `dynamodbav:"Identity"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

// EnsureExists implements ports.IdentityProvisioner
func (p *IdentityProvisioner) EnsureExists(ctx context.Context, identity string) error {
	av, err := attributevalue.MarshalMap(userItem{
		PK:         userKey(identity),
		SK:         "PROFILE",
		EntityType: entityUser,
		Identity:   identity,
		CreatedAt:  p.clock.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = p.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 table(p.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return nil
		}
		return fmt.Errorf("failed to provision identity: %w", err)
	}

	p.logger.Debug("Identity provisioned", zap.String("identity", identity))
	return nil
}
