// unitable is a command line tool for working with the shared entity table:
// table lifecycle, bulk loads from relational sources, and the supported
// query shapes.
//
//	unitable list-tables
//	unitable create-table   -table orders -with-indexes
//	unitable delete-table   -table orders
//	unitable create-index   -table orders -pattern orders-by-date
//	unitable index-status   -table orders -pattern orders-by-date
//	unitable load           -table orders -sqlite legacy.db
//	unitable get            -table orders -id o42
//	unitable query-date     -table orders -start "2020-05-04 05:00:00" -end "2020-08-13 09:00:00"
//	unitable query-product  -table orders -product p3
//	unitable query-quantity -table orders -max 100
//	unitable update-status  -table orders -id o42 -status delivered
//	unitable delete         -table orders -id o42 -type order
//
// Each invocation performs one operation against the table and exits.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	// Remove the subcommand from args so flag parsing works
	os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

	var err error
	switch cmd {
	case "list-tables":
		err = runListTables()
	case "create-table":
		err = runCreateTable()
	case "delete-table":
		err = runDeleteTable()
	case "create-index":
		err = runCreateIndex()
	case "index-status":
		err = runIndexStatus()
	case "load":
		err = runLoad()
	case "get":
		err = runGet()
	case "query-date":
		err = runQueryDate()
	case "query-product":
		err = runQueryProduct()
	case "query-quantity":
		err = runQueryQuantity()
	case "update-status":
		err = runUpdateStatus()
	case "delete":
		err = runDelete()
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`usage: unitable <command> [flags]

commands:
  list-tables     List tables visible to the client
  create-table    Create the shared entity table
  delete-table    Delete a table and everything in it
  create-index    Provision the index for an access pattern
  index-status    Report an index's provisioning state
  load            Bulk load entities from a CSV directory or SQLite database
  get             Point lookup by partition key
  query-date      Orders with a date in [start, end]
  query-product   Orders for one product
  query-quantity  Products with quantity strictly below a threshold
  update-status   Set the status of an order
  delete          Delete a record by key and type tag

run "unitable <command> -h" for command flags`)
}
