// Package memstore implements the unitable Store interface in memory,
// backed by a badger key-value store. Sorted key iteration stands in for
// the secondary indexes of the real service, and index provisioning is
// simulated so tests can exercise the Creating and Failed states.
package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/joeholl/unitable"
)

// Store is an in-memory table with emulated secondary indexes.
type Store struct {
	db *badger.DB

	mu      sync.Mutex
	indexes map[string]*indexState

	manual bool // indexes stay Creating until ActivateIndex is called
}

type indexState struct {
	spec   unitable.IndexSpec
	status unitable.IndexStatus
}

var _ unitable.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithManualProvisioning keeps created indexes in the Creating state until
// ActivateIndex or FailIndex is called, so tests can observe provisioning.
// By default indexes activate immediately.
func WithManualProvisioning() Option {
	return func(s *Store) { s.manual = true }
}

// New opens an empty in-memory store.
func New(opts ...Option) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	s := &Store{
		db:      db,
		indexes: make(map[string]*indexState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put writes the record, overwriting any record under the same partition
// key regardless of its kind.
func (s *Store) Put(ctx context.Context, rec unitable.Record) error {
	pk := rec.PartitionKey()
	if pk == "" {
		return fmt.Errorf("record has no partition key")
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	specs := s.specSnapshot()
	return s.db.Update(func(txn *badger.Txn) error {
		if err := s.dropIndexEntries(txn, pk, specs); err != nil {
			return err
		}
		if err := txn.Set(primaryKey(pk), value); err != nil {
			return err
		}
		return writeIndexEntries(txn, rec, value, specs)
	})
}

// Get returns the record stored under the partition key.
func (s *Store) Get(ctx context.Context, pk string) (unitable.Record, error) {
	var rec unitable.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(primaryKey(pk))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return unitable.ErrItemNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the record only when its discriminator matches kind. A
// mismatched kind leaves the record present and unchanged, and still
// reports success.
func (s *Store) Delete(ctx context.Context, pk string, kind unitable.EntityType) error {
	specs := s.specSnapshot()
	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, pk)
		if errors.Is(err, unitable.ErrItemNotFound) {
			return nil // nothing to delete
		}
		if err != nil {
			return err
		}
		if rec.EntityType() != kind {
			return nil // silent no-op on type tag mismatch
		}
		if err := s.dropIndexEntries(txn, pk, specs); err != nil {
			return err
		}
		return txn.Delete(primaryKey(pk))
	})
}

// Update sets the given attributes on an existing record.
func (s *Store) Update(ctx context.Context, pk string, attrs map[string]any) error {
	specs := s.specSnapshot()
	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, pk)
		if err != nil {
			return err
		}
		for name, value := range attrs {
			rec[name] = value
		}
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		if err := s.dropIndexEntries(txn, pk, specs); err != nil {
			return err
		}
		if err := txn.Set(primaryKey(pk), value); err != nil {
			return err
		}
		return writeIndexEntries(txn, rec, value, specs)
	})
}

// CreateIndex starts provisioning a secondary index. Only one index may be
// provisioning at a time; a second request fails with ErrIndexCreating.
func (s *Store) CreateIndex(ctx context.Context, spec unitable.IndexSpec) error {
	s.mu.Lock()
	for name, state := range s.indexes {
		if state.status == unitable.IndexStatusCreating {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", unitable.ErrIndexCreating, name)
		}
	}
	if _, exists := s.indexes[spec.Name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("index %q already exists", spec.Name)
	}
	s.indexes[spec.Name] = &indexState{spec: spec, status: unitable.IndexStatusCreating}
	s.mu.Unlock()

	if s.manual {
		return nil
	}
	return s.ActivateIndex(spec.Name)
}

// ActivateIndex finishes provisioning: it backfills index entries from the
// existing records and flips the index to Active.
func (s *Store) ActivateIndex(name string) error {
	s.mu.Lock()
	state, ok := s.indexes[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("index %q not found", name)
	}

	if err := s.backfill(state.spec); err != nil {
		return err
	}

	s.mu.Lock()
	state.status = unitable.IndexStatusActive
	s.mu.Unlock()
	return nil
}

// FailIndex marks the index as failed, for testing provisioning failures.
func (s *Store) FailIndex(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.indexes[name]
	if !ok {
		return fmt.Errorf("index %q not found", name)
	}
	state.status = unitable.IndexStatusFailed
	return nil
}

// DescribeIndex reports the provisioning state of the named index.
func (s *Store) DescribeIndex(ctx context.Context, name string) (unitable.IndexStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.indexes[name]
	if !ok {
		return unitable.IndexStatusUnknown, fmt.Errorf("index %q not found", name)
	}
	return state.status, nil
}

// Query runs a structured key condition against a secondary index. Querying
// an index that is not Active fails with ErrIndexNotReady rather than
// returning a partial result.
func (s *Store) Query(ctx context.Context, q unitable.Query) (unitable.QueryPage, error) {
	s.mu.Lock()
	state, ok := s.indexes[q.Index]
	s.mu.Unlock()
	if !ok {
		return unitable.QueryPage{}, fmt.Errorf("index %q not found", q.Index)
	}
	if state.status != unitable.IndexStatusActive {
		return unitable.QueryPage{}, fmt.Errorf("%w: %s is %s", unitable.ErrIndexNotReady, q.Index, state.status)
	}

	spec := state.spec
	pkenc := encodeQueryValue(q.PartitionValue, spec.PartitionType)
	prefix := indexPrefix(q.Index, pkenc)

	var lower, upper string
	switch q.Op {
	case unitable.SortNone:
	case unitable.SortBetween:
		lower = encodeQueryValue(q.Lower, spec.SortType)
		upper = encodeQueryValue(q.Upper, spec.SortType)
	case unitable.SortLessThan:
		upper = encodeQueryValue(q.Upper, spec.SortType)
	case unitable.SortEquals:
		lower = encodeQueryValue(q.Lower, spec.SortType)
		upper = lower
	default:
		return unitable.QueryPage{}, fmt.Errorf("unsupported sort condition %d", q.Op)
	}

	inBounds := func(skenc string) bool {
		switch q.Op {
		case unitable.SortNone:
			return true
		case unitable.SortLessThan:
			return skenc < upper // strict: quantity == threshold is excluded
		default:
			return between(skenc, lower, upper)
		}
	}

	page := unitable.QueryPage{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		start := []byte(prefix)
		if q.Op == unitable.SortBetween || q.Op == unitable.SortEquals {
			start = []byte(prefix + lower)
		}
		it.Seek(start)

		if q.Cursor != "" {
			var after []byte
			if err := unitable.DecodeCursor(q.Cursor, &after); err != nil {
				return err
			}
			it.Seek(after)
			if it.ValidForPrefix([]byte(prefix)) && string(it.Item().Key()) == string(after) {
				it.Next()
			}
		}

		var lastEmitted []byte
		for ; it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			skenc := sortValueOf(item.Key(), prefix)
			if !inBounds(skenc) {
				break // keys are ordered, nothing further can match
			}

			if q.Limit > 0 && len(page.Records) == q.Limit {
				// More matches remain: hand back a cursor instead.
				cursor, err := unitable.EncodeCursor(lastEmitted)
				if err != nil {
					return err
				}
				page.NextCursor = cursor
				return nil
			}

			var rec unitable.Record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			page.Records = append(page.Records, rec)
			lastEmitted = item.KeyCopy(nil)
		}
		return nil
	})
	if err != nil {
		return unitable.QueryPage{}, err
	}
	return page, nil
}
