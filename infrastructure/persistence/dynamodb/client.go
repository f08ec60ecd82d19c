// Package dynamodb implements the persistence ports on a single DynamoDB table.
//
// Item layout:
//
//	PROJECT#<projectId>  SNAPSHOT#<snapshotId>   diagram snapshot
//	PROJECT#<projectId>  MEMBER#<identity>       project membership with Role
//	DIAGRAM#<diagramId>  LOCK#<resourceId>       advisory lock (GSI1: LOCKID#<lockId>)
//	USER#<identity>      PROFILE                 placeholder identity record
package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// API is the subset of the DynamoDB client used by the stores
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

const (
	entitySnapshot = "SNAPSHOT"
	entityMember   = "MEMBER"
	entityLock     = "LOCK"
	entityUser     = "USER"

	lockIDIndex = "GSI1"
)

func projectKey(projectID string) string   { return fmt.Sprintf("PROJECT#%s", projectID) }
func snapshotKey(snapshotID string) string { return fmt.Sprintf("SNAPSHOT#%s", snapshotID) }
func memberKey(identity string) string     { return fmt.Sprintf("MEMBER#%s", identity) }
func diagramKey(diagramID string) string   { return fmt.Sprintf("DIAGRAM#%s", diagramID) }
func lockKey(resourceID string) string     { return fmt.Sprintf("LOCK#%s", resourceID) }
func lockIDKey(lockID string) string       { return fmt.Sprintf("LOCKID#%s", lockID) }
func userKey(identity string) string       { return fmt.Sprintf("USER#%s", identity) }

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// queryAll follows LastEvaluatedKey until the result set is exhausted
func queryAll(ctx context.Context, client API, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		result, err := client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if len(result.LastEvaluatedKey) == 0 {
			return items, nil
		}
		next := *input
		next.ExclusiveStartKey = result.LastEvaluatedKey
		input = &next
	}
}

// table is shared by all stores
func table(name string) *string { return aws.String(name) }
