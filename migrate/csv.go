package migrate

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joeholl/unitable"
)

// CSVSource reads one CSV file per entity kind from a directory:
// customers.csv, orders.csv and products.csv. The header row names the
// attributes; each following row becomes one record.
type CSVSource struct {
	dir string
}

// NewCSVSource creates a source over the directory.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

func (s *CSVSource) Rows(ctx context.Context, kind unitable.EntityType) ([]unitable.Row, error) {
	path := filepath.Join(s.dir, string(kind)+"s.csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s has no header row", path)
	}

	header := records[0]
	rows := make([]unitable.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(unitable.Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *CSVSource) Close() error { return nil }
