// Package ddb implements the unitable Store interface over the AWS SDK for
// Go v2 DynamoDB client.
package ddb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/joeholl/unitable"
)

// DynamoDBClient is the subset of the DynamoDB API used by this package,
// narrowed for easier testing and connection management.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	UpdateTable(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

// Store implements unitable.Store against one DynamoDB table. Transport
// errors from the client propagate unchanged; no retry or backoff layer is
// added beyond the SDK defaults.
type Store struct {
	client DynamoDBClient
	table  string
}

var (
	_ unitable.Store       = (*Store)(nil)
	_ unitable.BatchPutter = (*Store)(nil)
)

// New creates a Store over the client and table.
func New(client DynamoDBClient, tableName string) *Store {
	return &Store{client: client, table: tableName}
}

// TableName returns the backing table name.
func (s *Store) TableName() string { return s.table }

// Put writes the record. A colliding partition key overwrites the prior
// item entirely, regardless of its kind.
func (s *Store) Put(ctx context.Context, rec unitable.Record) error {
	item, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	return err
}

// Get retrieves the record stored under the partition key.
func (s *Store) Get(ctx context.Context, pk string) (unitable.Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       recordKey(pk),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, unitable.ErrItemNotFound
	}
	return unmarshalRecord(out.Item)
}

// Delete removes the record only when its discriminator matches kind. The
// condition failure raised on a mismatch is swallowed, so deleting with the
// wrong type tag silently leaves the record in place.
func (s *Store) Delete(ctx context.Context, pk string, kind unitable.EntityType) error {
	cond := expression.AttributeNotExists(expression.Name(unitable.AttributePK)).
		Or(expression.Name(unitable.AttributeType).Equal(expression.Value(string(kind))))

	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(s.table),
		Key:                       recordKey(pk),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var checkFailed *types.ConditionalCheckFailedException
	if errors.As(err, &checkFailed) {
		return nil // type tag mismatch, leave the record untouched
	}
	return err
}

// Update sets the given attributes on an existing record.
func (s *Store) Update(ctx context.Context, pk string, attrs map[string]any) error {
	if len(attrs) == 0 {
		return nil
	}

	var update expression.UpdateBuilder
	for name, value := range attrs {
		update = update.Set(expression.Name(name), expression.Value(value))
	}
	cond := expression.AttributeExists(expression.Name(unitable.AttributePK))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       recordKey(pk),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var checkFailed *types.ConditionalCheckFailedException
	if errors.As(err, &checkFailed) {
		return unitable.ErrItemNotFound
	}
	return err
}

// Query runs a structured key condition against a secondary index.
func (s *Store) Query(ctx context.Context, q unitable.Query) (unitable.QueryPage, error) {
	status, err := s.DescribeIndex(ctx, q.Index)
	if err != nil {
		return unitable.QueryPage{}, err
	}
	if status != unitable.IndexStatusActive {
		return unitable.QueryPage{}, fmt.Errorf("%w: %s is %s", unitable.ErrIndexNotReady, q.Index, status)
	}

	input, err := marshalQuery(s.table, q)
	if err != nil {
		return unitable.QueryPage{}, err
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return unitable.QueryPage{}, err
	}

	page := unitable.QueryPage{Records: make([]unitable.Record, 0, len(out.Items))}
	for _, item := range out.Items {
		rec, err := unmarshalRecord(item)
		if err != nil {
			return unitable.QueryPage{}, err
		}
		page.Records = append(page.Records, rec)
	}

	if len(out.LastEvaluatedKey) > 0 {
		cursor, err := unitable.EncodeCursor(out.LastEvaluatedKey)
		if err != nil {
			return unitable.QueryPage{}, err
		}
		page.NextCursor = cursor
	}
	return page, nil
}

// BatchPut writes up to unitable.MaxBatchSize records in one request.
func (s *Store) BatchPut(ctx context.Context, recs []unitable.Record) error {
	if len(recs) == 0 {
		return nil
	}
	if len(recs) > unitable.MaxBatchSize {
		return fmt.Errorf("batch of %d exceeds limit %d", len(recs), unitable.MaxBatchSize)
	}

	requests := make([]types.WriteRequest, 0, len(recs))
	for _, rec := range recs {
		item, err := marshalRecord(rec)
		if err != nil {
			return err
		}
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{s.table: requests},
	})
	if err != nil {
		return err
	}
	if len(out.UnprocessedItems) > 0 {
		return fmt.Errorf("%d items were not processed", len(out.UnprocessedItems[s.table]))
	}
	return nil
}

// CreateIndex adds a global secondary index to the table. Provisioning is
// asynchronous; poll DescribeIndex until the index reports Active. DynamoDB
// rejects a second concurrent index creation on the same table, so callers
// must serialize their requests.
func (s *Store) CreateIndex(ctx context.Context, spec unitable.IndexSpec) error {
	defs := []types.AttributeDefinition{{
		AttributeName: aws.String(spec.PartitionAttribute),
		AttributeType: types.ScalarAttributeType(spec.PartitionType),
	}}
	schema := []types.KeySchemaElement{{
		AttributeName: aws.String(spec.PartitionAttribute),
		KeyType:       types.KeyTypeHash,
	}}
	if spec.SortAttribute != "" {
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(spec.SortAttribute),
			AttributeType: types.ScalarAttributeType(spec.SortType),
		})
		schema = append(schema, types.KeySchemaElement{
			AttributeName: aws.String(spec.SortAttribute),
			KeyType:       types.KeyTypeRange,
		})
	}

	_, err := s.client.UpdateTable(ctx, &dynamodb.UpdateTableInput{
		TableName:            aws.String(s.table),
		AttributeDefinitions: defs,
		GlobalSecondaryIndexUpdates: []types.GlobalSecondaryIndexUpdate{{
			Create: &types.CreateGlobalSecondaryIndexAction{
				IndexName: aws.String(spec.Name),
				KeySchema: schema,
				Projection: &types.Projection{
					ProjectionType: types.ProjectionTypeAll,
				},
				ProvisionedThroughput: &types.ProvisionedThroughput{
					ReadCapacityUnits:  aws.Int64(5),
					WriteCapacityUnits: aws.Int64(5),
				},
			},
		}},
	})
	return err
}

// DescribeIndex reports the provisioning state of the named index.
func (s *Store) DescribeIndex(ctx context.Context, name string) (unitable.IndexStatus, error) {
	out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err != nil {
		return unitable.IndexStatusUnknown, err
	}

	for _, gsi := range out.Table.GlobalSecondaryIndexes {
		if aws.ToString(gsi.IndexName) != name {
			continue
		}
		switch gsi.IndexStatus {
		case types.IndexStatusActive:
			return unitable.IndexStatusActive, nil
		case types.IndexStatusCreating, types.IndexStatusUpdating:
			return unitable.IndexStatusCreating, nil
		default:
			return unitable.IndexStatusFailed, nil
		}
	}
	return unitable.IndexStatusUnknown, fmt.Errorf("index %q not found on table %q", name, s.table)
}
