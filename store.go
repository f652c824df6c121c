package unitable

import "context"

// SortOp enumerates the sort-key conditions an index query may carry.
type SortOp int

const (
	// SortNone scans the whole partition.
	SortNone SortOp = iota
	// SortBetween matches sort values in [Lower, Upper], inclusive at both
	// ends.
	SortBetween
	// SortLessThan matches sort values strictly below Upper.
	SortLessThan
	// SortEquals matches sort values equal to Lower.
	SortEquals
)

// Query is a structured key condition against one secondary index. The
// partition attribute is always an equality match; the sort attribute, when
// present, is constrained by Op.
type Query struct {
	Index              string
	PartitionAttribute string
	PartitionValue     any
	SortAttribute      string
	Op                 SortOp
	Lower              any
	Upper              any
	Limit              int
	Cursor             string // continuation cursor from a prior page
}

// QueryPage is one page of query results. NextCursor is non-empty when the
// store paginated the result; the caller re-issues the query with it to
// continue. Result sequences are finite and not restartable across store
// pagination boundaries.
type QueryPage struct {
	Records    []Record
	NextCursor string
}

// BatchPutter is an optional Store capability: bulk loads hand records to
// it in chunks instead of issuing one Put per record.
type BatchPutter interface {
	BatchPut(ctx context.Context, recs []Record) error
}

// Store is the narrow capability boundary to the backing table. Implementing
// it with an in-memory fake keeps the router and mapper testable without a
// live service. All operations are independent, stateless round trips;
// transport errors propagate unchanged, with no retry layer added here.
type Store interface {
	// Put writes the record, overwriting any record with the same partition
	// key regardless of its kind.
	Put(ctx context.Context, rec Record) error
	// Get returns the record stored under the partition key, or
	// ErrItemNotFound.
	Get(ctx context.Context, pk string) (Record, error)
	// Delete removes the record only when its discriminator matches kind.
	// A mismatched kind is a silent no-op, not an error: success does not
	// imply a type match.
	Delete(ctx context.Context, pk string, kind EntityType) error
	// Update sets the given attributes on an existing record. Returns
	// ErrItemNotFound when no record is stored under the partition key.
	Update(ctx context.Context, pk string, attrs map[string]any) error
	// Query runs a structured key condition against a secondary index.
	// Returns ErrIndexNotReady when the index is not Active.
	Query(ctx context.Context, q Query) (QueryPage, error)
	// CreateIndex starts asynchronous provisioning of a secondary index.
	// Returns ErrIndexCreating when another index is still provisioning.
	CreateIndex(ctx context.Context, spec IndexSpec) error
	// DescribeIndex reports the provisioning state of the named index.
	DescribeIndex(ctx context.Context, name string) (IndexStatus, error)
}
