package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/joeholl/unitable"
)

// Admin performs table lifecycle operations: the create-table, delete-table
// and list-tables sample programs run through it.
type Admin struct {
	client DynamoDBClient
}

// NewAdmin creates an Admin over the client.
func NewAdmin(client DynamoDBClient) *Admin {
	return &Admin{client: client}
}

// CreateTable creates the table described by the schema and waits for it to
// become active.
func (a *Admin) CreateTable(ctx context.Context, schema TableSchema) error {
	if _, err := a.client.CreateTable(ctx, schema.CreateTableInput()); err != nil {
		return fmt.Errorf("failed to create table %s: %w", schema.Name, err)
	}
	return a.WaitForTableActive(ctx, schema.Name, 2*time.Minute)
}

// DeleteTable removes the table and everything in it.
func (a *Admin) DeleteTable(ctx context.Context, name string) error {
	_, err := a.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete table %s: %w", name, err)
	}
	return nil
}

// ListTables returns all table names visible to the client.
func (a *Admin) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	var start *string
	for {
		out, err := a.client.ListTables(ctx, &dynamodb.ListTablesInput{
			ExclusiveStartTableName: start,
		})
		if err != nil {
			return nil, err
		}
		names = append(names, out.TableNames...)
		if out.LastEvaluatedTableName == nil {
			return names, nil
		}
		start = out.LastEvaluatedTableName
	}
}

// WaitForTableActive polls until the table reports active status.
func (a *Admin) WaitForTableActive(ctx context.Context, name string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		out, err := a.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(name),
		})
		if err != nil {
			return fmt.Errorf("failed to describe table %s: %w", name, err)
		}
		if out.Table.TableStatus == types.TableStatusActive {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("table %s not active after %v", name, timeout)
}

// WaitForIndexActive polls until the secondary index reports active status.
// Callers provisioning several indexes wait for each before requesting the
// next; the service does not queue concurrent index creations.
func (s *Store) WaitForIndexActive(ctx context.Context, index string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		status, err := s.DescribeIndex(ctx, index)
		if err != nil {
			return err
		}
		switch status {
		case unitable.IndexStatusActive:
			return nil
		case unitable.IndexStatusFailed:
			return fmt.Errorf("index %s failed to provision", index)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("index %s not active after %v", index, timeout)
}
