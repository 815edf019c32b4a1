package extract

import "context"

// Extractor pulls tabular data from one configured source. Each
// implementation owns its descriptor exclusively; instances share no
// mutable state.
type Extractor interface {
	// Validate reports whether the source is reachable. It never
	// returns an error: failures are logged and reduce to false.
	Validate(ctx context.Context) bool

	// Extract pulls the source into a Table. It fails with
	// apperrors.ErrSourceUnavailable unless a prior Validate succeeded,
	// and with apperrors.ErrExtraction (or ErrUnsupportedStructure)
	// when the underlying read fails.
	Extract(ctx context.Context) (*Table, error)
}

// TableReader is the warehouse capability the query extractor needs:
// running a parameterized statement and shaping the result as a Table.
type TableReader interface {
	// ReadTable runs a parameterized SELECT and returns the results.
	ReadTable(ctx context.Context, sql string, params []any) (*Table, error)

	// ExecuteQuery runs a statement, optionally fetching rows.
	ExecuteQuery(ctx context.Context, sql string, params []any, fetch bool) ([]map[string]any, error)
}
