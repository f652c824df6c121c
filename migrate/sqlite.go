package migrate

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/joeholl/unitable"
)

// SQLSource reads entity rows out of the relational database the data is
// being migrated from. Each entity kind maps to one table whose column
// names match the attribute names.
type SQLSource struct {
	db     *sql.DB
	tables map[unitable.EntityType]string
}

// OpenSQLite opens a SQLite database as a migration source with the
// default table names customers, orders and products.
func OpenSQLite(path string) (*SQLSource, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return NewSQLSource(db), nil
}

// NewSQLSource wraps an open database handle. Callers with non-standard
// table names override them via WithTable.
func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{
		db: db,
		tables: map[unitable.EntityType]string{
			unitable.EntityCustomer: "customers",
			unitable.EntityOrder:    "orders",
			unitable.EntityProduct:  "products",
		},
	}
}

// WithTable maps an entity kind to a table name.
func (s *SQLSource) WithTable(kind unitable.EntityType, table string) *SQLSource {
	s.tables[kind] = table
	return s
}

func (s *SQLSource) Rows(ctx context.Context, kind unitable.EntityType) ([]unitable.Row, error) {
	table, ok := s.tables[kind]
	if !ok {
		return nil, fmt.Errorf("no table mapped for entity type %q", kind)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []unitable.Row
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		scan := make([]any, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}

		row := make(unitable.Row, len(columns))
		for i, col := range columns {
			if values[i].Valid {
				row[col] = values[i].String
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}
