package ddb

import (
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"gopkg.in/yaml.v3"

	"github.com/joeholl/unitable"
)

// Schema is the root of a declarative table description file.
type Schema struct {
	Tables []TableSchema `yaml:"tables"`
}

// TableSchema describes one table: its partition key and any secondary
// indexes to create along with it. Tables in this design have no sort key;
// the partition key alone locates a record.
type TableSchema struct {
	Name         string   `yaml:"name"`
	PartitionKey KeyDef   `yaml:"partitionKey"`
	GSIs         []GSIDef `yaml:"gsis,omitempty"`
}

// KeyDef describes a key attribute.
type KeyDef struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // "S" or "N"
}

// GSIDef describes a global secondary index.
type GSIDef struct {
	Name         string  `yaml:"name"`
	PartitionKey KeyDef  `yaml:"partitionKey"`
	SortKey      *KeyDef `yaml:"sortKey,omitempty"`
}

// LoadSchema parses a yaml schema document.
func LoadSchema(r io.Reader) (*Schema, error) {
	var schema Schema
	if err := yaml.NewDecoder(r).Decode(&schema); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	for _, t := range schema.Tables {
		if t.Name == "" || t.PartitionKey.Name == "" {
			return nil, fmt.Errorf("schema table requires a name and partition key")
		}
	}
	return &schema, nil
}

// Lookup returns the named table schema.
func (s *Schema) Lookup(name string) (TableSchema, error) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, nil
		}
	}
	return TableSchema{}, fmt.Errorf("table %q not found in schema", name)
}

// DefaultTableSchema describes a table holding the shared entity records,
// keyed by the global partition key with no secondary indexes. Indexes are
// provisioned afterwards, one at a time.
func DefaultTableSchema(name string) TableSchema {
	return TableSchema{
		Name:         name,
		PartitionKey: KeyDef{Name: unitable.AttributePK, Kind: string(unitable.KeyString)},
	}
}

// SchemaFromRegistry describes a table whose secondary indexes mirror the
// registry's access patterns. Creating a table this way provisions the
// whole index set in one request, which sidesteps the one-at-a-time rule
// for index creation on existing tables.
func SchemaFromRegistry(name string, reg *unitable.Registry) TableSchema {
	t := DefaultTableSchema(name)
	for _, spec := range reg.Specs() {
		gsi := GSIDef{
			Name:         spec.Name,
			PartitionKey: KeyDef{Name: spec.PartitionAttribute, Kind: string(spec.PartitionType)},
		}
		if spec.SortAttribute != "" {
			gsi.SortKey = &KeyDef{Name: spec.SortAttribute, Kind: string(spec.SortType)}
		}
		t.GSIs = append(t.GSIs, gsi)
	}
	return t
}

// CreateTableInput converts the schema into a create table request.
func (t TableSchema) CreateTableInput() *dynamodb.CreateTableInput {
	seen := map[string]bool{}
	var defs []types.AttributeDefinition
	addDef := func(key KeyDef) {
		if key.Name == "" || seen[key.Name] {
			return
		}
		seen[key.Name] = true
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(key.Name),
			AttributeType: types.ScalarAttributeType(key.Kind),
		})
	}

	addDef(t.PartitionKey)
	input := &dynamodb.CreateTableInput{
		TableName: aws.String(t.Name),
		KeySchema: []types.KeySchemaElement{{
			AttributeName: aws.String(t.PartitionKey.Name),
			KeyType:       types.KeyTypeHash,
		}},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(5),
			WriteCapacityUnits: aws.Int64(5),
		},
	}

	for _, gsi := range t.GSIs {
		addDef(gsi.PartitionKey)
		schema := []types.KeySchemaElement{{
			AttributeName: aws.String(gsi.PartitionKey.Name),
			KeyType:       types.KeyTypeHash,
		}}
		if gsi.SortKey != nil {
			addDef(*gsi.SortKey)
			schema = append(schema, types.KeySchemaElement{
				AttributeName: aws.String(gsi.SortKey.Name),
				KeyType:       types.KeyTypeRange,
			})
		}
		input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName: aws.String(gsi.Name),
			KeySchema: schema,
			Projection: &types.Projection{
				ProjectionType: types.ProjectionTypeAll,
			},
			ProvisionedThroughput: &types.ProvisionedThroughput{
				ReadCapacityUnits:  aws.Int64(5),
				WriteCapacityUnits: aws.Int64(5),
			},
		})
	}

	input.AttributeDefinitions = defs
	return input
}
