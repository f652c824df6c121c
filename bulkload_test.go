package unitable

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// batchStore layers a func-field BatchPut over fakeStore.
type batchStore struct {
	*fakeStore
	batchPut func(context.Context, []Record) error
}

func (b *batchStore) BatchPut(ctx context.Context, recs []Record) error {
	if b.batchPut == nil {
		b.t.Fatal("unexpected call to BatchPut")
	}
	return b.batchPut(ctx, recs)
}

func TestLoaderLoadRows(t *testing.T) {
	store := newFakeStore(t)
	var written []Record
	store.put = func(ctx context.Context, rec Record) error {
		written = append(written, rec)
		return nil
	}

	rows := []Row{
		{"id": "c1", "name": "Ada", "address": "1 Main St", "email": "ada@example.com"},
		{"id": "c2", "name": "Grace", "address": "2 Side St", "email": "grace@example.com"},
	}

	loader := NewLoader(store)
	n, err := loader.LoadRows(context.TODO(), EntityCustomer, rows)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 records written, got %d", n)
	}
	if len(written) != 2 {
		t.Fatalf("Expected 2 puts, got %d", len(written))
	}
	if written[0].PartitionKey() != "c1" || written[1].PartitionKey() != "c2" {
		t.Errorf("Unexpected partition keys: %s, %s", written[0].PartitionKey(), written[1].PartitionKey())
	}
}

func TestLoaderDecodeFailure(t *testing.T) {
	store := newFakeStore(t)
	// put is left nil: no write should happen on a decode failure

	rows := []Row{
		{"id": "p1", "quantity": "10", "cost": "1.00"},
		{"id": "p2", "quantity": "bad", "cost": "1.00"},
	}

	loader := NewLoader(store)
	n, err := loader.LoadRows(context.TODO(), EntityProduct, rows)
	if err == nil {
		t.Fatal("Expected decode error")
	}
	if !strings.Contains(err.Error(), "row 1") {
		t.Errorf("Expected error to name the failing row, got %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 records written, got %d", n)
	}
}

func TestLoaderWriteFailure(t *testing.T) {
	store := newFakeStore(t)
	calls := 0
	store.put = func(ctx context.Context, rec Record) error {
		calls++
		if calls == 3 {
			return fmt.Errorf("write failed")
		}
		return nil
	}

	entities := []Entity{
		&Customer{ID: "c1"}, &Customer{ID: "c2"}, &Customer{ID: "c3"}, &Customer{ID: "c4"},
	}

	loader := NewLoader(store)
	n, err := loader.LoadEntities(context.TODO(), entities)
	if err == nil {
		t.Fatal("Expected write error")
	}
	if n != 2 {
		t.Errorf("Expected 2 records written before the failure, got %d", n)
	}
}

func TestLoaderBatchChunking(t *testing.T) {
	store := &batchStore{fakeStore: newFakeStore(t)}
	var chunks []int
	store.batchPut = func(ctx context.Context, recs []Record) error {
		chunks = append(chunks, len(recs))
		return nil
	}

	entities := make([]Entity, 60)
	for i := range entities {
		entities[i] = &Customer{ID: fmt.Sprintf("c%d", i+1)}
	}

	loader := NewLoader(store)
	n, err := loader.LoadEntities(context.TODO(), entities)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != 60 {
		t.Errorf("Expected 60 records written, got %d", n)
	}

	want := []int{MaxBatchSize, MaxBatchSize, 10}
	if len(chunks) != len(want) {
		t.Fatalf("Expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, size := range want {
		if chunks[i] != size {
			t.Errorf("Expected chunk %d to hold %d records, got %d", i, size, chunks[i])
		}
	}
}

func TestLoaderMarshalOptions(t *testing.T) {
	store := newFakeStore(t)
	var written Record
	store.put = func(ctx context.Context, rec Record) error {
		written = rec
		return nil
	}

	loader := NewLoader(store, WithClock(testClock))
	if _, err := loader.LoadEntities(context.TODO(), []Entity{&Customer{ID: "c1"}}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if written.String(AttributeCreated) != "2025-01-01T00:00:00Z" {
		t.Errorf("Expected pinned creation timestamp, got %s", written.String(AttributeCreated))
	}
}
