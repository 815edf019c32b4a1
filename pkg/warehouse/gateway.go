// Package warehouse provides relational-store access for the pipeline.
// The Gateway is the only shared mutable resource in a run: it owns the
// connection pool and wraps every call in its own transaction, so the
// pipeline never holds a connection across phase boundaries.
package warehouse

import (
	"context"

	"github.com/commercelake/etl-engine/pkg/extract"
)

// LoadStrategy selects how WriteTable treats existing rows.
type LoadStrategy string

const (
	// Replace truncates the target before writing. Used for dimension
	// tables, which carry full reference snapshots.
	Replace LoadStrategy = "replace"
	// Append leaves existing rows in place. Used for fact tables.
	Append LoadStrategy = "append"
)

// Gateway exposes query execution, bulk writes and metadata
// introspection over the warehouse. The pipeline never constructs raw
// connections itself.
type Gateway interface {
	// ExecuteQuery runs a statement in its own transaction. With fetch
	// set it returns the result rows; otherwise it returns nil.
	ExecuteQuery(ctx context.Context, sql string, params []any, fetch bool) ([]map[string]any, error)

	// ReadTable runs a parameterized SELECT and shapes the result as a
	// Table.
	ReadTable(ctx context.Context, sql string, params []any) (*extract.Table, error)

	// WriteTable bulk-writes a table, creating it if absent. Replace
	// truncates first; rows are inserted in batchSize chunks inside one
	// transaction.
	WriteTable(ctx context.Context, t *extract.Table, name string, strategy LoadStrategy, batchSize int) error

	// TableExists reports whether the named table exists.
	TableExists(ctx context.Context, name string) (bool, error)

	// Close releases the connection pool.
	Close()
}
