package warehouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/commercelake/etl-engine/pkg/extract"
)

func TestCreateTableSQLInfersColumnTypes(t *testing.T) {
	table := &extract.Table{
		Columns: []string{"id", "price", "active", "seen_at", "note", "ghost"},
		Rows: []map[string]any{
			{"id": nil, "price": nil, "active": nil, "seen_at": nil, "note": nil, "ghost": nil},
			{"id": int64(1), "price": 9.5, "active": true,
				"seen_at": time.Now(), "note": "hi", "ghost": nil},
		},
	}

	sql := createTableSQL("dim_product", table)
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "dim_product" (`+
			`"id" BIGINT, "price" DOUBLE PRECISION, "active" BOOLEAN, `+
			`"seen_at" TIMESTAMP, "note" TEXT, "ghost" TEXT)`,
		sql,
	)
}

func TestColumnTypeSkipsLeadingNulls(t *testing.T) {
	table := &extract.Table{
		Columns: []string{"v"},
		Rows: []map[string]any{
			{"v": nil},
			{"v": nil},
			{"v": int64(3)},
		},
	}
	assert.Equal(t, "BIGINT", columnType(table, "v"))
}
