package unitable

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MismatchPolicy controls what a Router does when a delete or high-level
// update targets a record whose discriminator names a different kind.
type MismatchPolicy int

const (
	// MismatchIgnore silently no-ops, reproducing the behavior observed in
	// the original samples. Callers cannot distinguish "applied" from
	// "skipped".
	MismatchIgnore MismatchPolicy = iota
	// MismatchError fails with ErrTypeMismatch.
	MismatchError
	// MismatchReport fails with ErrNotApplicable, so callers can tell
	// "nothing to change" apart from "wrong kind".
	MismatchReport
)

// Page bounds one page of an index query.
type Page struct {
	Limit  int
	Cursor string
}

// Router dispatches the supported query shapes to the correct physical
// access path: primary-key lookups go straight to the table, everything
// else to the secondary index registered for the pattern.
type Router struct {
	store    Store
	registry *Registry
	policy   MismatchPolicy
}

// NewRouter creates a Router over the store with the default index registry.
func NewRouter(store Store, opts ...func(*Router)) *Router {
	r := &Router{
		store:    store,
		registry: DefaultRegistry(),
		policy:   MismatchIgnore,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithRegistry replaces the default index registry.
func WithRegistry(reg *Registry) func(*Router) {
	return func(r *Router) { r.registry = reg }
}

// WithMismatchPolicy sets the behavior for type-tag mismatches on deletes
// and high-level updates.
func WithMismatchPolicy(p MismatchPolicy) func(*Router) {
	return func(r *Router) { r.policy = p }
}

// Registry returns the router's index registry.
func (r *Router) Registry() *Registry { return r.registry }

// PutEntity marshals the entity and writes it to the table. A colliding
// partition key overwrites the prior record entirely, even across kinds.
func (r *Router) PutEntity(ctx context.Context, e Entity, opts ...func(*MarshalOptions)) error {
	rec, err := MarshalEntity(e, opts...)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, rec)
}

// LookupByID retrieves a record by partition key. A missing key yields
// ErrItemNotFound; this is the only path that reports it.
func (r *Router) LookupByID(ctx context.Context, pk string) (Record, error) {
	return r.store.Get(ctx, pk)
}

// OrdersByDateRange returns orders with a date in [start, end], ordered by
// date ascending. Both bounds are inclusive: a range with start == end
// returns exactly the orders dated start.
func (r *Router) OrdersByDateRange(ctx context.Context, start, end time.Time, page Page) (QueryPage, error) {
	spec, err := r.readyIndex(ctx, PatternOrdersByDate)
	if err != nil {
		return QueryPage{}, err
	}
	return r.store.Query(ctx, Query{
		Index:              spec.Name,
		PartitionAttribute: spec.PartitionAttribute,
		PartitionValue:     string(EntityOrder),
		SortAttribute:      spec.SortAttribute,
		Op:                 SortBetween,
		Lower:              start.Format(DateLayout),
		Upper:              end.Format(DateLayout),
		Limit:              page.Limit,
		Cursor:             page.Cursor,
	})
}

// OrdersByProduct returns all orders for the product. The result set is
// unordered.
func (r *Router) OrdersByProduct(ctx context.Context, productID string, page Page) (QueryPage, error) {
	spec, err := r.readyIndex(ctx, PatternOrdersByProduct)
	if err != nil {
		return QueryPage{}, err
	}
	return r.store.Query(ctx, Query{
		Index:              spec.Name,
		PartitionAttribute: spec.PartitionAttribute,
		PartitionValue:     productID,
		Op:                 SortNone,
		Limit:              page.Limit,
		Cursor:             page.Cursor,
	})
}

// ProductsBelowQuantity returns products with a quantity strictly less than
// threshold. A product with quantity equal to the threshold is never
// returned.
func (r *Router) ProductsBelowQuantity(ctx context.Context, threshold int, page Page) (QueryPage, error) {
	spec, err := r.readyIndex(ctx, PatternProductsByQuantity)
	if err != nil {
		return QueryPage{}, err
	}
	return r.store.Query(ctx, Query{
		Index:              spec.Name,
		PartitionAttribute: spec.PartitionAttribute,
		PartitionValue:     string(EntityProduct),
		SortAttribute:      spec.SortAttribute,
		Op:                 SortLessThan,
		Upper:              threshold,
		Limit:              page.Limit,
		Cursor:             page.Cursor,
	})
}

// ProvisionIndex requests creation of the index serving the access pattern.
// The store provisions asynchronously; callers poll IndexStatus until the
// index reports Active. Creation requests are serialized: while any
// registered index is still Creating this fails with ErrIndexCreating.
func (r *Router) ProvisionIndex(ctx context.Context, pattern AccessPattern) error {
	spec, err := r.registry.Lookup(pattern)
	if err != nil {
		return err
	}
	for _, other := range r.registry.Specs() {
		if other.Name == spec.Name {
			continue
		}
		status, err := r.store.DescribeIndex(ctx, other.Name)
		if err != nil {
			continue // not created yet
		}
		if status == IndexStatusCreating {
			return fmt.Errorf("%w: %s", ErrIndexCreating, other.Name)
		}
	}
	return r.store.CreateIndex(ctx, spec)
}

// IndexStatus reports the provisioning state of the index serving the
// access pattern.
func (r *Router) IndexStatus(ctx context.Context, pattern AccessPattern) (IndexStatus, error) {
	spec, err := r.registry.Lookup(pattern)
	if err != nil {
		return IndexStatusUnknown, err
	}
	return r.store.DescribeIndex(ctx, spec.Name)
}

// UpdateOrderStatus is the high-level update path: it sets the status
// attribute when the target is an Order. When the target is some other
// kind, the router's MismatchPolicy decides between a silent no-op (the
// observed sample behavior) and an explicit error.
func (r *Router) UpdateOrderStatus(ctx context.Context, pk string, status string) error {
	rec, err := r.store.Get(ctx, pk)
	if err != nil {
		return err
	}
	if rec.EntityType() != EntityOrder {
		return r.mismatch(EntityOrder, rec.EntityType())
	}
	return r.store.Update(ctx, pk, map[string]any{AttributeStatus: status})
}

// UpdateAttributes is the low-level update path. Unlike UpdateOrderStatus
// it always fails with ErrTypeMismatch when the stored record is not of the
// expected kind; the two paths are deliberately asymmetric.
func (r *Router) UpdateAttributes(ctx context.Context, pk string, expect EntityType, attrs map[string]any) error {
	rec, err := r.store.Get(ctx, pk)
	if err != nil {
		return err
	}
	if err := expectKind(rec, expect); err != nil {
		return err
	}
	return r.store.Update(ctx, pk, attrs)
}

// DeleteEntity removes the record stored under pk when its discriminator
// matches kind. Deleting an absent record succeeds. On a type-tag mismatch
// the MismatchPolicy decides: the default preserves the store's silent
// no-op, so the target record remains present and unchanged.
func (r *Router) DeleteEntity(ctx context.Context, pk string, kind EntityType) error {
	if r.policy == MismatchIgnore {
		return r.store.Delete(ctx, pk, kind)
	}

	rec, err := r.store.Get(ctx, pk)
	if errors.Is(err, ErrItemNotFound) {
		return nil // nothing to delete
	}
	if err != nil {
		return err
	}
	if rec.EntityType() != kind {
		return r.mismatch(kind, rec.EntityType())
	}
	return r.store.Delete(ctx, pk, kind)
}

func (r *Router) mismatch(want, got EntityType) error {
	switch r.policy {
	case MismatchError:
		return fmt.Errorf("%w: expected %s, got %s", ErrTypeMismatch, want, got)
	case MismatchReport:
		return fmt.Errorf("%w: expected %s, got %s", ErrNotApplicable, want, got)
	default:
		return nil
	}
}

func (r *Router) readyIndex(ctx context.Context, pattern AccessPattern) (IndexSpec, error) {
	spec, err := r.registry.Lookup(pattern)
	if err != nil {
		return IndexSpec{}, err
	}
	status, err := r.store.DescribeIndex(ctx, spec.Name)
	if err != nil {
		return IndexSpec{}, err
	}
	if status != IndexStatusActive {
		return IndexSpec{}, fmt.Errorf("%w: %s is %s", ErrIndexNotReady, spec.Name, status)
	}
	return spec, nil
}
