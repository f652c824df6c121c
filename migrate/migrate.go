// Package migrate produces bulk-load rows from the systems a single-table
// design is migrated from: CSV exports and relational SQLite databases.
// Sources emit already-parsed rows; decoding and writing is the loader's
// job.
package migrate

import (
	"context"
	"fmt"

	"github.com/joeholl/unitable"
)

// Source yields tabular rows for one entity kind.
type Source interface {
	Rows(ctx context.Context, kind unitable.EntityType) ([]unitable.Row, error)
	Close() error
}

// DefaultKinds is the load order: customers and products before the orders
// that reference them.
var DefaultKinds = []unitable.EntityType{
	unitable.EntityCustomer,
	unitable.EntityProduct,
	unitable.EntityOrder,
}

// Run reads each kind from the source and writes it through the loader.
// Returns the total count of records written.
func Run(ctx context.Context, src Source, loader *unitable.Loader, kinds ...unitable.EntityType) (int, error) {
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}

	total := 0
	for _, kind := range kinds {
		rows, err := src.Rows(ctx, kind)
		if err != nil {
			return total, fmt.Errorf("failed to read %s rows: %w", kind, err)
		}
		n, err := loader.LoadRows(ctx, kind, rows)
		total += n
		if err != nil {
			return total, fmt.Errorf("failed to load %s rows: %w", kind, err)
		}
	}
	return total, nil
}
