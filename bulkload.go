package unitable

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// MaxBatchSize is the largest chunk of records handed to a BatchPutter in
// one call, matching the DynamoDB batch write limit.
const MaxBatchSize = 25

// Row is one already-parsed tabular record from a bulk-load source: column
// header name to raw string value. Header names match attribute names.
type Row map[string]string

// DecodeRow converts a tabular row into the entity variant for kind.
func DecodeRow(kind EntityType, row Row) (Entity, error) {
	id, ok := row[AttributeID]
	if !ok || id == "" {
		return nil, fmt.Errorf("row is missing %q", AttributeID)
	}

	switch kind {
	case EntityCustomer:
		return &Customer{
			ID:      id,
			Name:    row[AttributeName],
			Address: row[AttributeAddress],
			Email:   row[AttributeEmail],
		}, nil

	case EntityOrder:
		date, err := time.Parse(DateLayout, row[AttributeOrderDate])
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", AttributeOrderDate, err)
		}
		return &Order{
			ID:         id,
			CustomerID: row[AttributeCustomerID],
			ProductID:  row[AttributeProductID],
			OrderDate:  date,
			Status:     row[AttributeStatus],
		}, nil

	case EntityProduct:
		quantity, err := strconv.Atoi(row[AttributeQuantity])
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", AttributeQuantity, err)
		}
		cost, err := strconv.ParseFloat(row[AttributeCost], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", AttributeCost, err)
		}
		return &Product{
			ID:          id,
			Description: row[AttributeDescription],
			Quantity:    quantity,
			Cost:        cost,
		}, nil

	default:
		return nil, fmt.Errorf("unknown entity type %q", kind)
	}
}

// Loader imports batches of entities into the store as independent writes.
// The first failure stops the load and reports how many records were
// written before it.
type Loader struct {
	store Store
	opts  []func(*MarshalOptions)
}

// NewLoader creates a Loader over the store. The marshal options are
// applied to every loaded entity; callers that keep per-kind identifier
// namespaces supply a WithPartitionKey option per entity instead.
func NewLoader(store Store, opts ...func(*MarshalOptions)) *Loader {
	return &Loader{store: store, opts: opts}
}

// LoadEntities writes each entity to the store and returns the count
// written. Stores that implement BatchPutter receive the records in chunks
// of MaxBatchSize; others get one Put per record.
func (l *Loader) LoadEntities(ctx context.Context, entities []Entity) (int, error) {
	recs := make([]Record, 0, len(entities))
	for i, e := range entities {
		rec, err := MarshalEntity(e, l.opts...)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal entity %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return l.write(ctx, recs)
}

// LoadRows decodes each tabular row as kind, writes the results to the
// store, and returns the count written.
func (l *Loader) LoadRows(ctx context.Context, kind EntityType, rows []Row) (int, error) {
	entities := make([]Entity, 0, len(rows))
	for i, row := range rows {
		e, err := DecodeRow(kind, row)
		if err != nil {
			return 0, fmt.Errorf("failed to decode row %d: %w", i, err)
		}
		entities = append(entities, e)
	}
	return l.LoadEntities(ctx, entities)
}

func (l *Loader) write(ctx context.Context, recs []Record) (int, error) {
	if batcher, ok := l.store.(BatchPutter); ok {
		for i := 0; i < len(recs); i += MaxBatchSize {
			end := i + MaxBatchSize
			if end > len(recs) {
				end = len(recs)
			}
			if err := batcher.BatchPut(ctx, recs[i:end]); err != nil {
				return i, fmt.Errorf("failed to write batch at %d: %w", i, err)
			}
		}
		return len(recs), nil
	}

	for i, rec := range recs {
		if err := l.store.Put(ctx, rec); err != nil {
			return i, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return len(recs), nil
}
