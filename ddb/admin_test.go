package ddb_test

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/joeholl/unitable"
	"github.com/joeholl/unitable/ddb"
	"github.com/joeholl/unitable/ddb/ddbmock"
)

func TestAdminCreateTable(t *testing.T) {
	client := ddbmock.NewClient(t)
	var created *dynamodb.CreateTableInput
	client.CreateTableFunc = func(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
		created = params
		return &dynamodb.CreateTableOutput{}, nil
	}

	describes := 0
	client.DescribeTableFunc = func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
		describes++
		status := types.TableStatusCreating
		if describes > 1 {
			status = types.TableStatusActive
		}
		return &dynamodb.DescribeTableOutput{
			Table: &types.TableDescription{
				TableName:   params.TableName,
				TableStatus: status,
			},
		}, nil
	}

	admin := ddb.NewAdmin(client)
	err := admin.CreateTable(context.TODO(), ddb.DefaultTableSchema(testTable))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if aws.ToString(created.TableName) != testTable {
		t.Errorf("Expected table %s, got %s", testTable, aws.ToString(created.TableName))
	}
	if describes < 2 {
		t.Errorf("Expected to poll until the table is active, polled %d times", describes)
	}
}

func TestAdminListTables(t *testing.T) {
	client := ddbmock.NewClient(t)
	calls := 0
	client.ListTablesFunc = func(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
		calls++
		if calls == 1 {
			return &dynamodb.ListTablesOutput{
				TableNames:             []string{"a", "b"},
				LastEvaluatedTableName: aws.String("b"),
			}, nil
		}
		if want := "b"; aws.ToString(params.ExclusiveStartTableName) != want {
			t.Errorf("Expected start table %s, got %s", want, aws.ToString(params.ExclusiveStartTableName))
		}
		return &dynamodb.ListTablesOutput{TableNames: []string{"c"}}, nil
	}

	admin := ddb.NewAdmin(client)
	names, err := admin.ListTables(context.TODO())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(names) != 3 {
		t.Errorf("Expected 3 tables across pages, got %v", names)
	}
}

func TestWaitForIndexActive(t *testing.T) {
	client := ddbmock.NewClient(t)
	describes := 0
	client.DescribeTableFunc = func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
		describes++
		status := types.IndexStatusCreating
		if describes > 1 {
			status = types.IndexStatusActive
		}
		out := activeTable()
		out.Table.GlobalSecondaryIndexes = []types.GlobalSecondaryIndexDescription{{
			IndexName:   aws.String("orders-by-date"),
			IndexStatus: status,
		}}
		return out, nil
	}

	store := ddb.New(client, testTable)
	err := store.WaitForIndexActive(context.TODO(), "orders-by-date", 30*time.Second)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	status, err := store.DescribeIndex(context.TODO(), "orders-by-date")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if status != unitable.IndexStatusActive {
		t.Errorf("Expected active index, got %s", status)
	}
}
