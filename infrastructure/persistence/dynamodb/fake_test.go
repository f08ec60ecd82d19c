package dynamodb

import (
	"context"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeTable is a small in-memory table. Query matching is approximate: an item
// matches when its partition key equals one of the expression values and its
// sort key starts with or equals another.
type fakeTable struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	puts  int
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue)}
}

func str(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func keyOf(item map[string]types.AttributeValue) string {
	return str(item, "PK") + "|" + str(item, "SK")
}

func stringValues(values map[string]types.AttributeValue) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			out = append(out, s.Value)
		}
	}
	return out
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := keyOf(in.Item)
	if in.ConditionExpression != nil {
		if _, exists := f.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	f.items[key] = in.Item
	f.puts++
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := keyOf(in.Key)
	item, exists := f.items[key]
	if in.ConditionExpression != nil {
		// every condition value must appear among the item's LockID and DiagramID
		matched := exists
		for _, v := range stringValues(in.ExpressionAttributeValues) {
			if !exists || (str(item, "LockID") != v && str(item, "DiagramID") != v) {
				matched = false
			}
		}
		if !matched {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	delete(f.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeTable) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pkName, skName := "PK", "SK"
	if in.IndexName != nil {
		pkName, skName = "GSI1PK", "GSI1SK"
	}
	values := stringValues(in.ExpressionAttributeValues)

	var out []map[string]types.AttributeValue
	for _, item := range f.items {
		pk, sk := str(item, pkName), str(item, skName)
		pkMatch, skMatch := false, false
		for _, v := range values {
			if pk == v {
				pkMatch = true
			} else if strings.HasPrefix(sk, v) {
				skMatch = true
			}
		}
		if pkMatch && skMatch {
			out = append(out, item)
		}
	}
	return &dynamodb.QueryOutput{Items: out}, nil
}
