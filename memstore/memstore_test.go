package memstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeholl/unitable"
	"github.com/joeholl/unitable/memstore"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse(unitable.DateLayout, value)
	require.NoError(t, err)
	return d
}

// seed populates the store with the sample data set: three customers, four
// products, and twelve orders. Orders o4 and o8 are for product p3; orders
// o1, o11, and o12 fall inside the 2020-05-04 .. 2020-08-13 window.
func seed(t *testing.T, store *memstore.Store) {
	t.Helper()
	ctx := context.Background()

	customers := []unitable.Customer{
		{ID: "1", Name: "John Doe", Address: "123 Main St", Email: "john@example.com"},
		{ID: "2", Name: "Jane Smith", Address: "456 Oak Ave", Email: "jane@example.com"},
		{ID: "3", Name: "Bob Brown", Address: "789 Pine Rd", Email: "bob@example.com"},
	}
	for _, c := range customers {
		rec, err := unitable.MarshalEntity(&c, unitable.WithPartitionKey("c"+c.ID))
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, rec))
	}

	products := []unitable.Product{
		{ID: "1", Description: "Laptop", Quantity: 120, Cost: 999.99},
		{ID: "2", Description: "Monitor", Quantity: 250, Cost: 199.99},
		{ID: "3", Description: "Keyboard", Quantity: 100, Cost: 49.99},
		{ID: "4", Description: "Mouse", Quantity: 45, Cost: 19.99},
	}
	for _, p := range products {
		rec, err := unitable.MarshalEntity(&p, unitable.WithPartitionKey("p"+p.ID))
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, rec))
	}

	orders := []unitable.Order{
		{ID: "1", CustomerID: "1", ProductID: "p1", OrderDate: date(t, "2020-05-04 05:00:00"), Status: "delivered"},
		{ID: "2", CustomerID: "2", ProductID: "p2", OrderDate: date(t, "2020-01-10 10:00:00"), Status: "delivered"},
		{ID: "3", CustomerID: "3", ProductID: "p1", OrderDate: date(t, "2020-02-11 11:00:00"), Status: "delivered"},
		{ID: "4", CustomerID: "1", ProductID: "p3", OrderDate: date(t, "2020-03-12 12:00:00"), Status: "delivered"},
		{ID: "5", CustomerID: "2", ProductID: "p4", OrderDate: date(t, "2020-04-01 09:00:00"), Status: "delivered"},
		{ID: "6", CustomerID: "3", ProductID: "p2", OrderDate: date(t, "2020-04-20 15:00:00"), Status: "delivered"},
		{ID: "7", CustomerID: "1", ProductID: "p1", OrderDate: date(t, "2020-09-01 08:00:00"), Status: "pending"},
		{ID: "8", CustomerID: "2", ProductID: "p3", OrderDate: date(t, "2020-09-15 10:30:00"), Status: "pending"},
		{ID: "9", CustomerID: "3", ProductID: "p4", OrderDate: date(t, "2020-10-02 14:00:00"), Status: "pending"},
		{ID: "10", CustomerID: "1", ProductID: "p2", OrderDate: date(t, "2020-11-23 16:45:00"), Status: "pending"},
		{ID: "11", CustomerID: "2", ProductID: "p1", OrderDate: date(t, "2020-06-15 12:00:00"), Status: "shipped"},
		{ID: "12", CustomerID: "3", ProductID: "p4", OrderDate: date(t, "2020-08-13 09:00:00"), Status: "shipped"},
	}
	for _, o := range orders {
		rec, err := unitable.MarshalEntity(&o, unitable.WithPartitionKey("o"+o.ID))
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, rec))
	}
}

func newTestStore(t *testing.T, opts ...memstore.Option) *memstore.Store {
	t.Helper()
	store, err := memstore.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// newActiveStore returns a seeded store with all three indexes Active.
func newActiveStore(t *testing.T) *memstore.Store {
	t.Helper()
	store := newTestStore(t)
	seed(t, store)
	for _, spec := range unitable.DefaultRegistry().Specs() {
		require.NoError(t, store.CreateIndex(context.Background(), spec))
	}
	return store
}

func orderIDs(page unitable.QueryPage) []string {
	ids := make([]string, 0, len(page.Records))
	for _, rec := range page.Records {
		ids = append(ids, rec.String(unitable.AttributeID))
	}
	return ids
}

func TestGetPutDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, "c404")
		assert.ErrorIs(t, err, unitable.ErrItemNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		rec, err := unitable.MarshalEntity(&unitable.Customer{ID: "1", Name: "John Doe"}, unitable.WithPartitionKey("c1"))
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, rec))

		got, err := store.Get(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, unitable.EntityCustomer, got.EntityType())
		assert.Equal(t, "John Doe", got.String(unitable.AttributeName))
	})

	t.Run("cross-kind overwrite", func(t *testing.T) {
		rec, err := unitable.MarshalEntity(&unitable.Product{ID: "1", Quantity: 5, Cost: 1}, unitable.WithPartitionKey("c1"))
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, rec))

		got, err := store.Get(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, unitable.EntityProduct, got.EntityType())
		assert.False(t, got.Has(unitable.AttributeName), "overwrite must replace the record entirely")
	})

	t.Run("delete with matching kind", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "c1", unitable.EntityProduct))
		_, err := store.Get(ctx, "c1")
		assert.ErrorIs(t, err, unitable.ErrItemNotFound)
	})

	t.Run("delete absent record succeeds", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "c1", unitable.EntityProduct))
	})

	t.Run("delete with mismatched kind is a no-op", func(t *testing.T) {
		rec, err := unitable.MarshalEntity(&unitable.Customer{ID: "2", Name: "Jane Smith"}, unitable.WithPartitionKey("c2"))
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, rec))

		require.NoError(t, store.Delete(ctx, "c2", unitable.EntityOrder))

		got, err := store.Get(ctx, "c2")
		require.NoError(t, err)
		assert.Equal(t, "Jane Smith", got.String(unitable.AttributeName), "record must survive a mismatched delete")
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t.Run("missing record", func(t *testing.T) {
		err := store.Update(ctx, "o404", map[string]any{unitable.AttributeStatus: "shipped"})
		assert.ErrorIs(t, err, unitable.ErrItemNotFound)
	})

	t.Run("sets attributes", func(t *testing.T) {
		rec, err := unitable.MarshalEntity(&unitable.Order{
			ID: "1", ProductID: "p1", OrderDate: date(t, "2020-05-04 05:00:00"), Status: "pending",
		}, unitable.WithPartitionKey("o1"))
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, rec))

		require.NoError(t, store.Update(ctx, "o1", map[string]any{unitable.AttributeStatus: "shipped"}))

		got, err := store.Get(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, "shipped", got.String(unitable.AttributeStatus))
		assert.Equal(t, "p1", got.String(unitable.AttributeProductID), "other attributes must survive")
	})
}

func TestOrdersByDateRange(t *testing.T) {
	store := newActiveStore(t)
	router := unitable.NewRouter(store)
	ctx := context.Background()

	t.Run("inclusive range", func(t *testing.T) {
		page, err := router.OrdersByDateRange(ctx,
			date(t, "2020-05-04 05:00:00"), date(t, "2020-08-13 09:00:00"), unitable.Page{})
		require.NoError(t, err)
		// o1 sits on the start bound, o12 on the end bound.
		assert.Equal(t, []string{"1", "11", "12"}, orderIDs(page))
		assert.Empty(t, page.NextCursor)
	})

	t.Run("start equals end", func(t *testing.T) {
		page, err := router.OrdersByDateRange(ctx,
			date(t, "2020-06-15 12:00:00"), date(t, "2020-06-15 12:00:00"), unitable.Page{})
		require.NoError(t, err)
		assert.Equal(t, []string{"11"}, orderIDs(page))
	})

	t.Run("empty range", func(t *testing.T) {
		page, err := router.OrdersByDateRange(ctx,
			date(t, "2021-01-01 00:00:00"), date(t, "2021-12-31 00:00:00"), unitable.Page{})
		require.NoError(t, err)
		assert.Empty(t, page.Records)
	})

	t.Run("ordered by date ascending", func(t *testing.T) {
		page, err := router.OrdersByDateRange(ctx,
			date(t, "2020-01-01 00:00:00"), date(t, "2020-12-31 00:00:00"), unitable.Page{})
		require.NoError(t, err)
		require.Len(t, page.Records, 12)
		var prev string
		for _, rec := range page.Records {
			cur := rec.String(unitable.AttributeOrderDate)
			assert.LessOrEqual(t, prev, cur)
			prev = cur
		}
	})

	t.Run("excludes other kinds", func(t *testing.T) {
		page, err := router.OrdersByDateRange(ctx,
			date(t, "2020-01-01 00:00:00"), date(t, "2020-12-31 00:00:00"), unitable.Page{})
		require.NoError(t, err)
		for _, rec := range page.Records {
			assert.Equal(t, unitable.EntityOrder, rec.EntityType())
		}
	})
}

func TestOrdersByProduct(t *testing.T) {
	store := newActiveStore(t)
	router := unitable.NewRouter(store)
	ctx := context.Background()

	t.Run("orders for one product", func(t *testing.T) {
		page, err := router.OrdersByProduct(ctx, "p3", unitable.Page{})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"4", "8"}, orderIDs(page))
	})

	t.Run("unknown product", func(t *testing.T) {
		page, err := router.OrdersByProduct(ctx, "p999", unitable.Page{})
		require.NoError(t, err)
		assert.Empty(t, page.Records)
	})
}

func TestProductsBelowQuantity(t *testing.T) {
	store := newActiveStore(t)
	router := unitable.NewRouter(store)
	ctx := context.Background()

	t.Run("strictly below threshold", func(t *testing.T) {
		page, err := router.ProductsBelowQuantity(ctx, 100, unitable.Page{})
		require.NoError(t, err)
		// p3 has quantity exactly 100 and must not appear.
		require.Len(t, page.Records, 1)
		assert.Equal(t, "4", page.Records[0].String(unitable.AttributeID))
		assert.Equal(t, 45, page.Records[0].Int(unitable.AttributeQuantity))
	})

	t.Run("threshold above all quantities", func(t *testing.T) {
		page, err := router.ProductsBelowQuantity(ctx, 1000, unitable.Page{})
		require.NoError(t, err)
		assert.Len(t, page.Records, 4)
	})

	t.Run("threshold below all quantities", func(t *testing.T) {
		page, err := router.ProductsBelowQuantity(ctx, 10, unitable.Page{})
		require.NoError(t, err)
		assert.Empty(t, page.Records)
	})
}

func TestQueryPagination(t *testing.T) {
	store := newActiveStore(t)
	router := unitable.NewRouter(store)
	ctx := context.Background()

	start := date(t, "2020-01-01 00:00:00")
	end := date(t, "2020-12-31 00:00:00")

	var all []string
	page := unitable.Page{Limit: 5}
	pages := 0
	for {
		result, err := router.OrdersByDateRange(ctx, start, end, page)
		require.NoError(t, err)
		all = append(all, orderIDs(result)...)
		pages++
		if result.NextCursor == "" {
			break
		}
		page.Cursor = result.NextCursor
	}

	assert.Equal(t, 3, pages, "expected pages of 5, 5, and 2")
	assert.Len(t, all, 12)

	seen := map[string]bool{}
	for _, id := range all {
		assert.False(t, seen[id], "order %s appeared twice", id)
		seen[id] = true
	}
}

func TestQueryInvalidCursor(t *testing.T) {
	store := newActiveStore(t)
	router := unitable.NewRouter(store)

	_, err := router.OrdersByDateRange(context.Background(),
		date(t, "2020-01-01 00:00:00"), date(t, "2020-12-31 00:00:00"),
		unitable.Page{Cursor: "not a cursor"})
	assert.ErrorIs(t, err, unitable.ErrInvalidCursor)
}

func TestIndexProvisioning(t *testing.T) {
	ctx := context.Background()

	t.Run("manual provisioning", func(t *testing.T) {
		store := newTestStore(t, memstore.WithManualProvisioning())
		seed(t, store)
		router := unitable.NewRouter(store)

		require.NoError(t, router.ProvisionIndex(ctx, unitable.PatternOrdersByDate))

		status, err := router.IndexStatus(ctx, unitable.PatternOrdersByDate)
		require.NoError(t, err)
		assert.Equal(t, unitable.IndexStatusCreating, status)

		// Queries are rejected until the index is Active.
		_, err = router.OrdersByDateRange(ctx,
			date(t, "2020-01-01 00:00:00"), date(t, "2020-12-31 00:00:00"), unitable.Page{})
		assert.ErrorIs(t, err, unitable.ErrIndexNotReady)

		// A second creation is rejected while the first is in flight.
		err = router.ProvisionIndex(ctx, unitable.PatternOrdersByProduct)
		assert.ErrorIs(t, err, unitable.ErrIndexCreating)

		// Activation backfills the pre-existing records.
		require.NoError(t, store.ActivateIndex(string(unitable.PatternOrdersByDate)))

		page, err := router.OrdersByDateRange(ctx,
			date(t, "2020-01-01 00:00:00"), date(t, "2020-12-31 00:00:00"), unitable.Page{})
		require.NoError(t, err)
		assert.Len(t, page.Records, 12)

		// With nothing left in flight, the next creation goes through.
		assert.NoError(t, router.ProvisionIndex(ctx, unitable.PatternOrdersByProduct))
	})

	t.Run("failed index stays unqueryable", func(t *testing.T) {
		store := newTestStore(t, memstore.WithManualProvisioning())
		router := unitable.NewRouter(store)

		require.NoError(t, router.ProvisionIndex(ctx, unitable.PatternOrdersByDate))
		require.NoError(t, store.FailIndex(string(unitable.PatternOrdersByDate)))

		status, err := router.IndexStatus(ctx, unitable.PatternOrdersByDate)
		require.NoError(t, err)
		assert.Equal(t, unitable.IndexStatusFailed, status)

		_, err = router.OrdersByDateRange(ctx,
			date(t, "2020-01-01 00:00:00"), date(t, "2020-12-31 00:00:00"), unitable.Page{})
		assert.ErrorIs(t, err, unitable.ErrIndexNotReady)
	})

	t.Run("duplicate index", func(t *testing.T) {
		store := newTestStore(t)
		spec := unitable.IndexSpec{Name: "dup", PartitionAttribute: unitable.AttributeType, PartitionType: unitable.KeyString}
		require.NoError(t, store.CreateIndex(ctx, spec))
		assert.Error(t, store.CreateIndex(ctx, spec))
	})
}

func TestIndexMaintenance(t *testing.T) {
	store := newActiveStore(t)
	router := unitable.NewRouter(store)
	ctx := context.Background()

	t.Run("delete removes index entries", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "o4", unitable.EntityOrder))

		page, err := router.OrdersByProduct(ctx, "p3", unitable.Page{})
		require.NoError(t, err)
		assert.Equal(t, []string{"8"}, orderIDs(page))
	})

	t.Run("update moves index entries", func(t *testing.T) {
		// Restock the mouse above the threshold.
		require.NoError(t, store.Update(ctx, "p4", map[string]any{unitable.AttributeQuantity: 150}))

		page, err := router.ProductsBelowQuantity(ctx, 100, unitable.Page{})
		require.NoError(t, err)
		assert.Empty(t, page.Records)

		page, err = router.ProductsBelowQuantity(ctx, 200, unitable.Page{})
		require.NoError(t, err)
		ids := orderIDs(page)
		assert.Contains(t, ids, "4")
	})

	t.Run("overwrite replaces index entries", func(t *testing.T) {
		rec, err := unitable.MarshalEntity(&unitable.Order{
			ID: "8", CustomerID: "2", ProductID: "p1",
			OrderDate: date(t, "2020-09-15 10:30:00"), Status: "pending",
		}, unitable.WithPartitionKey("o8"))
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, rec))

		page, err := router.OrdersByProduct(ctx, "p3", unitable.Page{})
		require.NoError(t, err)
		assert.Empty(t, page.Records, "o8 no longer references p3")
	})
}

func TestRouterPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("update status on an order", func(t *testing.T) {
		store := newActiveStore(t)
		router := unitable.NewRouter(store)

		require.NoError(t, router.UpdateOrderStatus(ctx, "o7", "shipped"))

		got, err := store.Get(ctx, "o7")
		require.NoError(t, err)
		assert.Equal(t, "shipped", got.String(unitable.AttributeStatus))
	})

	t.Run("update status on a customer is a silent no-op", func(t *testing.T) {
		store := newActiveStore(t)
		router := unitable.NewRouter(store)

		require.NoError(t, router.UpdateOrderStatus(ctx, "c1", "shipped"))

		got, err := store.Get(ctx, "c1")
		require.NoError(t, err)
		assert.False(t, got.Has(unitable.AttributeStatus), "customer must be untouched")
	})

	t.Run("report policy distinguishes the mismatch", func(t *testing.T) {
		store := newActiveStore(t)
		router := unitable.NewRouter(store, unitable.WithMismatchPolicy(unitable.MismatchReport))

		err := router.UpdateOrderStatus(ctx, "c1", "shipped")
		assert.ErrorIs(t, err, unitable.ErrNotApplicable)
	})

	t.Run("delete mismatch leaves record under every policy", func(t *testing.T) {
		for _, policy := range []unitable.MismatchPolicy{unitable.MismatchIgnore, unitable.MismatchError} {
			store := newActiveStore(t)
			router := unitable.NewRouter(store, unitable.WithMismatchPolicy(policy))

			_ = router.DeleteEntity(ctx, "p1", unitable.EntityOrder)

			_, err := store.Get(ctx, "p1")
			assert.NoError(t, err, "product must survive a mismatched delete")
		}
	})
}

func TestBulkLoad(t *testing.T) {
	store := newTestStore(t)
	loader := unitable.NewLoader(store)
	ctx := context.Background()

	rows := make([]unitable.Row, 0, 12)
	for i := 1; i <= 12; i++ {
		rows = append(rows, unitable.Row{
			"id":          fmt.Sprintf("%d", i),
			"customer_id": "1",
			"product_id":  "p1",
			"order_date":  "2020-05-04 05:00:00",
			"status":      "pending",
		})
	}

	n, err := loader.LoadRows(ctx, unitable.EntityOrder, rows)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	got, err := store.Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, unitable.EntityOrder, got.EntityType())
}
