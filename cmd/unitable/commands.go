package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joeholl/unitable"
	"github.com/joeholl/unitable/ddb"
	"github.com/joeholl/unitable/migrate"
)

// common holds the flags every command shares.
type common struct {
	table  string
	region string
	local  int
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.table, "table", "entities", "table name")
	fs.StringVar(&c.region, "region", "us-east-1", "aws region")
	fs.IntVar(&c.local, "local", 0, "connect to DynamoDB Local on this port instead of AWS")
}

func (c *common) client(ctx context.Context) (ddb.DynamoDBClient, error) {
	if c.local > 0 {
		return ddb.NewLocalClient(c.local), nil
	}
	return ddb.NewClient(ctx, c.region)
}

func (c *common) store(ctx context.Context) (*ddb.Store, error) {
	client, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	return ddb.New(client, c.table), nil
}

func (c *common) router(ctx context.Context) (*unitable.Router, error) {
	store, err := c.store(ctx)
	if err != nil {
		return nil, err
	}
	return unitable.NewRouter(store), nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printPage(page unitable.QueryPage) error {
	if err := printJSON(page.Records); err != nil {
		return err
	}
	if page.NextCursor != "" {
		fmt.Println("next cursor:", page.NextCursor)
	}
	return nil
}

func runListTables() error {
	var c common
	fs := flag.NewFlagSet("list-tables", flag.ExitOnError)
	c.register(fs)
	fs.Parse(os.Args[1:])

	ctx := context.Background()
	client, err := c.client(ctx)
	if err != nil {
		return err
	}
	names, err := ddb.NewAdmin(client).ListTables(ctx)
	if err != nil {
		return err
	}
	return printJSON(names)
}

func runCreateTable() error {
	var c common
	fs := flag.NewFlagSet("create-table", flag.ExitOnError)
	c.register(fs)
	withIndexes := fs.Bool("with-indexes", false, "create the standard index set with the table")
	schemaPath := fs.String("schema", "", "yaml schema file describing the table")
	fs.Parse(os.Args[1:])

	ctx := context.Background()
	client, err := c.client(ctx)
	if err != nil {
		return err
	}

	var schema ddb.TableSchema
	switch {
	case *schemaPath != "":
		f, err := os.Open(*schemaPath)
		if err != nil {
			return err
		}
		defer f.Close()
		doc, err := ddb.LoadSchema(f)
		if err != nil {
			return err
		}
		schema, err = doc.Lookup(c.table)
		if err != nil {
			return err
		}
	case *withIndexes:
		schema = ddb.SchemaFromRegistry(c.table, unitable.DefaultRegistry())
	default:
		schema = ddb.DefaultTableSchema(c.table)
	}

	if err := ddb.NewAdmin(client).CreateTable(ctx, schema); err != nil {
		return err
	}
	fmt.Println("created table", c.table)
	return nil
}

func runDeleteTable() error {
	var c common
	fs := flag.NewFlagSet("delete-table", flag.ExitOnError)
	c.register(fs)
	fs.Parse(os.Args[1:])

	ctx := context.Background()
	client, err := c.client(ctx)
	if err != nil {
		return err
	}
	if err := ddb.NewAdmin(client).DeleteTable(ctx, c.table); err != nil {
		return err
	}
	fmt.Println("deleted table", c.table)
	return nil
}

func runCreateIndex() error {
	var c common
	fs := flag.NewFlagSet("create-index", flag.ExitOnError)
	c.register(fs)
	pattern := fs.String("pattern", "", "access pattern to provision (orders-by-date, orders-by-product, products-by-quantity)")
	wait := fs.Bool("wait", true, "wait for the index to become active")
	fs.Parse(os.Args[1:])

	ctx := context.Background()
	store, err := c.store(ctx)
	if err != nil {
		return err
	}
	router := unitable.NewRouter(store)

	spec, err := router.Registry().Lookup(unitable.AccessPattern(*pattern))
	if err != nil {
		return err
	}
	if err := router.ProvisionIndex(ctx, unitable.AccessPattern(*pattern)); err != nil {
		return err
	}
	if !*wait {
		fmt.Println("creating index", spec.Name)
		return nil
	}

	if err := store.WaitForIndexActive(ctx, spec.Name, 10*time.Minute); err != nil {
		return err
	}
	fmt.Println("index active for", *pattern)
	return nil
}

func runIndexStatus() error {
	var c common
	fs := flag.NewFlagSet("index-status", flag.ExitOnError)
	c.register(fs)
	pattern := fs.String("pattern", "", "access pattern to inspect")
	fs.Parse(os.Args[1:])

	ctx := context.Background()
	router, err := c.router(ctx)
	if err != nil {
		return err
	}
	status, err := router.IndexStatus(ctx, unitable.AccessPattern(*pattern))
	if err != nil {
		return err
	}
	fmt.Println(status)
	return nil
}

func runLoad() error {
	var c common
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	c.register(fs)
	sqlitePath := fs.String("sqlite", "", "SQLite database to migrate from")
	csvDir := fs.String("csv", "", "directory of customers.csv, orders.csv, products.csv")
	fs.Parse(os.Args[1:])

	ctx := context.Background()
	store, err := c.store(ctx)
	if err != nil {
		return err
	}

	var src migrate.Source
	switch {
	case *sqlitePath != "":
		src, err = migrate.OpenSQLite(*sqlitePath)
		if err != nil {
			return err
		}
	case *csvDir != "":
		src = migrate.NewCSVSource(*csvDir)
	default:
		return fmt.Errorf("either -sqlite or -csv is required")
	}
	defer src.Close()

	n, err := migrate.Run(ctx, src, unitable.NewLoader(store))
	if err != nil {
		return fmt.Errorf("loaded %d records before failing: %w", n, err)
	}
	fmt.Println("loaded", n, "records")
	return nil
}

func runGet() error {
	var c common
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	c.register(fs)
	id := fs.String("id", "", "partition key")
	fs.Parse(os.Args[1:])

	ctx := context.Background()
	router, err := c.router(ctx)
	if err != nil {
		return err
	}
	rec, err := router.LookupByID(ctx, *id)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func runQueryDate() error {
	var c common
	fs := flag.NewFlagSet("query-date", flag.ExitOnError)
	c.register(fs)
	startArg := fs.String("start", "", "start of the date range, inclusive")
	endArg := fs.String("end", "", "end of the date range, inclusive")
	cursor := fs.String("cursor", "", "continuation cursor from a prior page")
	limit := fs.Int("limit", 0, "page size")
	fs.Parse(os.Args[1:])

	start, err := time.Parse(unitable.DateLayout, *startArg)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	end, err := time.Parse(unitable.DateLayout, *endArg)
	if err != nil {
		return fmt.Errorf("invalid -end: %w", err)
	}

	ctx := context.Background()
	router, err := c.router(ctx)
	if err != nil {
		return err
	}
	page, err := router.OrdersByDateRange(ctx, start, end, unitable.Page{Limit: *limit, Cursor: *cursor})
	if err != nil {
		return err
	}
	return printPage(page)
}

func runQueryProduct() error {
	var c common
	fs := flag.NewFlagSet("query-product", flag.ExitOnError)
	c.register(fs)
	product := fs.String("product", "", "product id")
	cursor := fs.String("cursor", "", "continuation cursor from a prior page")
	limit := fs.Int("limit", 0, "page size")
	fs.Parse(os.Args[1:])

	ctx := context.Background()
	router, err := c.router(ctx)
	if err != nil {
		return err
	}
	page, err := router.OrdersByProduct(ctx, *product, unitable.Page{Limit: *limit, Cursor: *cursor})
	if err != nil {
		return err
	}
	return printPage(page)
}

func runQueryQuantity() error {
	var c common
	fs := flag.NewFlagSet("query-quantity", flag.ExitOnError)
	c.register(fs)
	max := fs.Int("max", 0, "return products with quantity strictly below this")
	cursor := fs.String("cursor", "", "continuation cursor from a prior page")
	limit := fs.Int("limit", 0, "page size")
	fs.Parse(os.Args[1:])

	ctx := context.Background()
	router, err := c.router(ctx)
	if err != nil {
		return err
	}
	page, err := router.ProductsBelowQuantity(ctx, *max, unitable.Page{Limit: *limit, Cursor: *cursor})
	if err != nil {
		return err
	}
	return printPage(page)
}

func runUpdateStatus() error {
	var c common
	fs := flag.NewFlagSet("update-status", flag.ExitOnError)
	c.register(fs)
	id := fs.String("id", "", "partition key")
	status := fs.String("status", "", "new order status")
	strict := fs.Bool("strict", false, "fail instead of silently skipping non-order records")
	fs.Parse(os.Args[1:])

	ctx := context.Background()
	store, err := c.store(ctx)
	if err != nil {
		return err
	}

	policy := unitable.MismatchIgnore
	if *strict {
		policy = unitable.MismatchError
	}
	router := unitable.NewRouter(store, unitable.WithMismatchPolicy(policy))

	if err := router.UpdateOrderStatus(ctx, *id, *status); err != nil {
		return err
	}
	fmt.Println("updated", *id)
	return nil
}

func runDelete() error {
	var c common
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	c.register(fs)
	id := fs.String("id", "", "partition key")
	kindArg := fs.String("type", "", "entity type tag (customer, order, product)")
	strict := fs.Bool("strict", false, "fail instead of silently skipping mismatched type tags")
	fs.Parse(os.Args[1:])

	kind, err := unitable.ParseEntityType(*kindArg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := c.store(ctx)
	if err != nil {
		return err
	}

	policy := unitable.MismatchIgnore
	if *strict {
		policy = unitable.MismatchReport
	}
	router := unitable.NewRouter(store, unitable.WithMismatchPolicy(policy))

	if err := router.DeleteEntity(ctx, *id, kind); err != nil {
		return err
	}
	fmt.Println("deleted", *id)
	return nil
}
