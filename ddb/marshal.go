package ddb

import (
	"encoding/gob"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/joeholl/unitable"
)

func init() {
	// Continuation cursors gob-encode the last evaluated key, so the
	// concrete attribute value types must be registered.
	gob.Register(map[string]types.AttributeValue{})
	gob.Register(&types.AttributeValueMemberS{})
	gob.Register(&types.AttributeValueMemberN{})
	gob.Register(&types.AttributeValueMemberB{})
	gob.Register(&types.AttributeValueMemberSS{})
	gob.Register(&types.AttributeValueMemberNS{})
	gob.Register(&types.AttributeValueMemberBS{})
	gob.Register(&types.AttributeValueMemberM{})
	gob.Register(&types.AttributeValueMemberL{})
	gob.Register(&types.AttributeValueMemberNULL{})
	gob.Register(&types.AttributeValueMemberBOOL{})
}

// recordKey builds the primary key item for a partition key value.
func recordKey(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		unitable.AttributePK: &types.AttributeValueMemberS{Value: pk},
	}
}

func marshalRecord(rec unitable.Record) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(map[string]any(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return item, nil
}

func unmarshalRecord(item map[string]types.AttributeValue) (unitable.Record, error) {
	var attrs map[string]any
	if err := attributevalue.UnmarshalMap(item, &attrs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return unitable.Record(attrs), nil
}

// marshalQuery converts a structured key condition into a DynamoDB query
// request against the index named by q.
func marshalQuery(table string, q unitable.Query) (*dynamodb.QueryInput, error) {
	keyCondition := expression.Key(q.PartitionAttribute).Equal(expression.Value(q.PartitionValue))

	switch q.Op {
	case unitable.SortNone:
		// partition equality only
	case unitable.SortBetween:
		// BETWEEN is inclusive at both ends
		keyCondition = keyCondition.And(
			expression.Key(q.SortAttribute).Between(expression.Value(q.Lower), expression.Value(q.Upper)),
		)
	case unitable.SortLessThan:
		keyCondition = keyCondition.And(
			expression.Key(q.SortAttribute).LessThan(expression.Value(q.Upper)),
		)
	case unitable.SortEquals:
		keyCondition = keyCondition.And(
			expression.Key(q.SortAttribute).Equal(expression.Value(q.Lower)),
		)
	default:
		return nil, fmt.Errorf("unsupported sort condition %d", q.Op)
	}

	expr, err := expression.NewBuilder().WithKeyCondition(keyCondition).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(q.Index),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	}

	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}

	if q.Cursor != "" {
		var startKey map[string]types.AttributeValue
		if err := unitable.DecodeCursor(q.Cursor, &startKey); err != nil {
			return nil, err
		}
		input.ExclusiveStartKey = startKey
	}

	return input, nil
}
