// Package ddbmock provides a simple expectation-based mock of the DynamoDB
// API for unit testing the ddb package without a live service.
package ddbmock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/joeholl/unitable/ddb"
)

// Call is the common shape of a DynamoDB API call.
type Call[T, U any] = func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error)

// Client is a func-field mock: tests assign the operations they expect, and
// any unassigned operation fails the test when invoked.
type Client struct {
	PutItemFunc        Call[dynamodb.PutItemInput, dynamodb.PutItemOutput]
	GetItemFunc        Call[dynamodb.GetItemInput, dynamodb.GetItemOutput]
	DeleteItemFunc     Call[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput]
	UpdateItemFunc     Call[dynamodb.UpdateItemInput, dynamodb.UpdateItemOutput]
	QueryFunc          Call[dynamodb.QueryInput, dynamodb.QueryOutput]
	BatchWriteItemFunc Call[dynamodb.BatchWriteItemInput, dynamodb.BatchWriteItemOutput]
	CreateTableFunc    Call[dynamodb.CreateTableInput, dynamodb.CreateTableOutput]
	DeleteTableFunc    Call[dynamodb.DeleteTableInput, dynamodb.DeleteTableOutput]
	UpdateTableFunc    Call[dynamodb.UpdateTableInput, dynamodb.UpdateTableOutput]
	DescribeTableFunc  Call[dynamodb.DescribeTableInput, dynamodb.DescribeTableOutput]
	ListTablesFunc     Call[dynamodb.ListTablesInput, dynamodb.ListTablesOutput]
}

var _ ddb.DynamoDBClient = (*Client)(nil)

// NewClient creates a mock whose operations all fail the test until
// expectations are assigned.
func NewClient(t *testing.T) *Client {
	return &Client{
		PutItemFunc:        defaultFunc[dynamodb.PutItemInput, dynamodb.PutItemOutput](t),
		GetItemFunc:        defaultFunc[dynamodb.GetItemInput, dynamodb.GetItemOutput](t),
		DeleteItemFunc:     defaultFunc[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput](t),
		UpdateItemFunc:     defaultFunc[dynamodb.UpdateItemInput, dynamodb.UpdateItemOutput](t),
		QueryFunc:          defaultFunc[dynamodb.QueryInput, dynamodb.QueryOutput](t),
		BatchWriteItemFunc: defaultFunc[dynamodb.BatchWriteItemInput, dynamodb.BatchWriteItemOutput](t),
		CreateTableFunc:    defaultFunc[dynamodb.CreateTableInput, dynamodb.CreateTableOutput](t),
		DeleteTableFunc:    defaultFunc[dynamodb.DeleteTableInput, dynamodb.DeleteTableOutput](t),
		UpdateTableFunc:    defaultFunc[dynamodb.UpdateTableInput, dynamodb.UpdateTableOutput](t),
		DescribeTableFunc:  defaultFunc[dynamodb.DescribeTableInput, dynamodb.DescribeTableOutput](t),
		ListTablesFunc:     defaultFunc[dynamodb.ListTablesInput, dynamodb.ListTablesOutput](t),
	}
}

func defaultFunc[T, U any](t *testing.T) Call[T, U] {
	return func(ctx context.Context, params *T, optFns ...func(*dynamodb.Options)) (*U, error) {
		t.Helper()
		t.Fatal("unexpected call")
		return nil, nil
	}
}

func (m *Client) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return m.PutItemFunc(ctx, params, optFns...)
}

func (m *Client) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return m.GetItemFunc(ctx, params, optFns...)
}

func (m *Client) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return m.DeleteItemFunc(ctx, params, optFns...)
}

func (m *Client) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return m.UpdateItemFunc(ctx, params, optFns...)
}

func (m *Client) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return m.QueryFunc(ctx, params, optFns...)
}

func (m *Client) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return m.BatchWriteItemFunc(ctx, params, optFns...)
}

func (m *Client) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return m.CreateTableFunc(ctx, params, optFns...)
}

func (m *Client) DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	return m.DeleteTableFunc(ctx, params, optFns...)
}

func (m *Client) UpdateTable(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error) {
	return m.UpdateTableFunc(ctx, params, optFns...)
}

func (m *Client) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return m.DescribeTableFunc(ctx, params, optFns...)
}

func (m *Client) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	return m.ListTablesFunc(ctx, params, optFns...)
}
