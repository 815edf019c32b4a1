package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/commercelake/etl-engine/pkg/config"
	"github.com/commercelake/etl-engine/pkg/extract"
)

// defaultBatchSize bounds bulk-insert chunks when the caller passes no
// batch size.
const defaultBatchSize = 10000

// Postgres implements Gateway over a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres connects to the warehouse and verifies reachability with
// a ping.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse warehouse config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 10
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping warehouse: %w", err)
	}

	return &Postgres{pool: pool, logger: logger}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests that manage
// their own container lifecycle.
func NewPostgresFromPool(pool *pgxpool.Pool, logger *zap.Logger) *Postgres {
	return &Postgres{pool: pool, logger: logger}
}

// ExecuteQuery runs one statement in its own transaction, committing on
// success and rolling back on failure.
func (g *Postgres) ExecuteQuery(ctx context.Context, sql string, params []any, fetch bool) ([]map[string]any, error) {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var result []map[string]any
	if fetch {
		rows, err := tx.Query(ctx, sql, params...)
		if err != nil {
			return nil, fmt.Errorf("query execution failed: %w", err)
		}
		_, result, err = collectRows(rows)
		if err != nil {
			return nil, err
		}
	} else {
		if _, err := tx.Exec(ctx, sql, params...); err != nil {
			return nil, fmt.Errorf("statement execution failed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

// ReadTable runs a parameterized SELECT and returns the results as a
// Table.
func (g *Postgres) ReadTable(ctx context.Context, sql string, params []any) (*extract.Table, error) {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	columns, result, err := collectRows(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &extract.Table{Columns: columns, Rows: result}, nil
}

// WriteTable creates the target if absent, truncates it under Replace,
// and bulk-inserts the rows with CopyFrom in batchSize chunks. The
// whole write happens in one transaction.
func (g *Postgres) WriteTable(ctx context.Context, t *extract.Table, name string, strategy LoadStrategy, batchSize int) error {
	if t == nil || len(t.Columns) == 0 {
		g.logger.Warn("Skipping write of empty table", zap.String("table", name))
		return nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	ident := pgx.Identifier{name}
	if _, err := tx.Exec(ctx, createTableSQL(name, t)); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}

	if strategy == Replace {
		if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+ident.Sanitize()); err != nil {
			return fmt.Errorf("truncate %s: %w", name, err)
		}
	}

	for start := 0; start < len(t.Rows); start += batchSize {
		end := start + batchSize
		if end > len(t.Rows) {
			end = len(t.Rows)
		}

		chunk := make([][]any, 0, end-start)
		for _, row := range t.Rows[start:end] {
			values := make([]any, len(t.Columns))
			for i, col := range t.Columns {
				values[i] = row[col]
			}
			chunk = append(chunk, values)
		}

		if _, err := tx.CopyFrom(ctx, ident, t.Columns, pgx.CopyFromRows(chunk)); err != nil {
			return fmt.Errorf("bulk insert into %s: %w", name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	g.logger.Info("Table written",
		zap.String("table", name),
		zap.String("strategy", string(strategy)),
		zap.Int("records", t.RowCount()),
	)
	return nil
}

// TableExists checks information_schema for the named public table.
func (g *Postgres) TableExists(ctx context.Context, name string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`

	var exists bool
	if err := g.pool.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("table existence check failed: %w", err)
	}
	return exists, nil
}

// Close releases the connection pool.
func (g *Postgres) Close() {
	g.pool.Close()
}

// collectRows drains a pgx result set into column names and row maps.
func collectRows(rows pgx.Rows) ([]string, []map[string]any, error) {
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	result := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		result = append(result, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return columns, result, nil
}

// createTableSQL renders CREATE TABLE IF NOT EXISTS with column types
// inferred from the first non-null value in each column.
func createTableSQL(name string, t *extract.Table) string {
	defs := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		defs[i] = pgx.Identifier{col}.Sanitize() + " " + columnType(t, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pgx.Identifier{name}.Sanitize(), strings.Join(defs, ", "))
}

func columnType(t *extract.Table, col string) string {
	for _, row := range t.Rows {
		switch row[col].(type) {
		case nil:
			continue
		case int64, int, int32:
			return "BIGINT"
		case float64, float32:
			return "DOUBLE PRECISION"
		case bool:
			return "BOOLEAN"
		case time.Time:
			return "TIMESTAMP"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

// Ensure Postgres implements both the gateway and the extractor-facing
// reader at compile time.
var (
	_ Gateway             = (*Postgres)(nil)
	_ extract.TableReader = (*Postgres)(nil)
)
