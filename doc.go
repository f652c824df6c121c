// Package unitable implements a single-table, multi-entity access layer for
// DynamoDB-style key-value stores.
//
// Three logical entity kinds share one physical table: Customer, Order and
// Product. Every record carries a globally unique partition key and an
// entity_type discriminator; the remaining attributes are the union of the
// three entity shapes, with unused attributes absent rather than null.
//
// # Access paths
//
// The primary path is a point lookup by partition key. Every other query
// shape is served by exactly one secondary index:
//
//	| index                | partition   | sort       | shape                     |
//	| ==================== | =========== | ========== | ========================= |
//	| orders-by-date       | entity_type | order_date | range, inclusive bounds   |
//	| orders-by-product    | product_id  | (none)     | equality                  |
//	| products-by-quantity | entity_type | quantity   | range, strict less-than   |
//
// The Router selects the physical path for each shape:
//
//	router := unitable.NewRouter(store)
//	rec, err := router.LookupByID(ctx, "o42")
//	page, err := router.OrdersByDateRange(ctx, start, end, unitable.Page{})
//
// # Store boundary
//
// All storage access goes through the narrow Store interface
// (put/get/delete/update/query/createIndex). The ddb package implements it
// over the AWS SDK v2 DynamoDB client; the memstore package implements it
// in memory for tests. Index creation is asynchronous on both: an index
// must reach the Active state before the router will query it, and only one
// index may be provisioning at a time.
//
// # Bulk load
//
// Loader imports already-parsed tabular rows (header names matching
// attribute names) as independent writes. The migrate package produces rows
// from CSV files or a relational SQLite source.
package unitable
