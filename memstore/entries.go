package memstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/joeholl/unitable"
)

func (s *Store) specSnapshot() []unitable.IndexSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	specs := make([]unitable.IndexSpec, 0, len(s.indexes))
	for _, state := range s.indexes {
		specs = append(specs, state.spec)
	}
	return specs
}

func readRecord(txn *badger.Txn, pk string) (unitable.Record, error) {
	item, err := txn.Get(primaryKey(pk))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, unitable.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec unitable.Record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

// entryKeysFor computes the index entry keys a record occupies. Records
// missing an index's partition or declared sort attribute are not indexed
// there, matching sparse index semantics.
func entryKeysFor(rec unitable.Record, specs []unitable.IndexSpec) [][]byte {
	pk := rec.PartitionKey()
	var keys [][]byte
	for _, spec := range specs {
		if !rec.Has(spec.PartitionAttribute) {
			continue
		}
		if spec.SortAttribute != "" && !rec.Has(spec.SortAttribute) {
			continue
		}
		pkenc := encodeKeyValue(rec, spec.PartitionAttribute, spec.PartitionType)
		skenc := ""
		if spec.SortAttribute != "" {
			skenc = encodeKeyValue(rec, spec.SortAttribute, spec.SortType)
		}
		keys = append(keys, indexEntryKey(spec.Name, pkenc, skenc, pk))
	}
	return keys
}

// dropIndexEntries removes the index entries of the record currently stored
// under pk, if any. Overwrites and deletes go through here so stale entries
// never survive the record they point at.
func (s *Store) dropIndexEntries(txn *badger.Txn, pk string, specs []unitable.IndexSpec) error {
	old, err := readRecord(txn, pk)
	if errors.Is(err, unitable.ErrItemNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, key := range entryKeysFor(old, specs) {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func writeIndexEntries(txn *badger.Txn, rec unitable.Record, value []byte, specs []unitable.IndexSpec) error {
	for _, key := range entryKeysFor(rec, specs) {
		if err := txn.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// backfill writes index entries for every record already in the table,
// simulating the service-side backfill that runs while an index is in the
// Creating state.
func (s *Store) backfill(spec unitable.IndexSpec) error {
	specs := []unitable.IndexSpec{spec}
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(primaryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(primaryPrefix)); it.ValidForPrefix([]byte(primaryPrefix)); it.Next() {
			var rec unitable.Record
			var value []byte
			err := it.Item().Value(func(val []byte) error {
				value = append([]byte(nil), val...)
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			if err := writeIndexEntries(txn, rec, value, specs); err != nil {
				return err
			}
		}
		return nil
	})
}
