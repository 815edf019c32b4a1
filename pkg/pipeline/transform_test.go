package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/commercelake/etl-engine/pkg/config"
	"github.com/commercelake/etl-engine/pkg/extract"
)

func TestTransformSalesDerivesKeysAndMargin(t *testing.T) {
	src := &extract.Table{
		Columns: []string{"order_id", "order_line_id", "customer_id", "product_id", "channel_id", "order_date", "quantity", "unit_price", "discount_amount", "total_amount"},
		Rows: []map[string]any{
			{
				"order_id": "ORD-001", "order_line_id": int64(1),
				"customer_id": "CUST-042", "product_id": "PROD-007",
				"channel_id": "CHN-002", "order_date": "2024-03-15",
				"quantity": int64(2), "unit_price": 25.0,
				"discount_amount": 0.0, "total_amount": 50.0,
			},
			{"order_id": nil, "customer_id": "CUST-001", "product_id": "PROD-001", "order_date": "2024-01-01"},
			{"order_id": "ORD-003", "customer_id": "CUST-001", "product_id": "PROD-001", "order_date": "not a date"},
		},
	}

	out, err := transformSales(src)
	require.NoError(t, err)
	require.Equal(t, 1, out.RowCount())

	row := out.Rows[0]
	assert.Equal(t, int64(42), row["customer_key"])
	assert.Equal(t, int64(7), row["product_key"])
	assert.Equal(t, int64(2), row["channel_key"])
	assert.Equal(t, int64(20240315), row["date_key"])
	assert.Equal(t, int64(1), row["geography_key"])
	assert.InDelta(t, 10.0, row["profit_margin"], 1e-9)
}

func TestTransformCustomersAddsHistoryColumns(t *testing.T) {
	src := &extract.Table{
		Columns: []string{"customer_id", "first_name", "registration_date"},
		Rows: []map[string]any{
			{"customer_id": "CUST-003", "first_name": "Ada", "registration_date": "2023-01-10"},
			{"customer_id": nil, "first_name": "ghost"},
		},
	}

	out := transformCustomers(src)
	require.Equal(t, 1, out.RowCount())

	row := out.Rows[0]
	assert.Equal(t, int64(3), row["customer_key"])
	assert.Equal(t, "Regular", row["customer_segment"])
	assert.Equal(t, true, row["is_current"])
	assert.Equal(t, dimExpiry, row["expiry_date"])
	reg, ok := row["registration_date"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2023, reg.Year())
	assert.Contains(t, out.Columns, "effective_date")
}

func TestTransformProducts(t *testing.T) {
	src := &extract.Table{
		Columns: []string{"product_id", "product_name"},
		Rows: []map[string]any{
			{"product_id": "PROD-015", "product_name": "Widget"},
		},
	}

	out := transformProducts(src)
	require.Equal(t, 1, out.RowCount())
	assert.Equal(t, int64(15), out.Rows[0]["product_key"])
	assert.Equal(t, true, out.Rows[0]["is_active"])
}

func TestGenerateDateDimensionCoversBothYears(t *testing.T) {
	out := generateDateDimension()

	// 2024 is a leap year: 366 + 365 days.
	require.Equal(t, 731, out.RowCount())

	first := out.Rows[0]
	assert.Equal(t, int64(20240101), first["date_key"])
	assert.Equal(t, int64(1), first["day_of_week"]) // 2024-01-01 is a Monday
	assert.Equal(t, "Monday", first["day_name"])
	assert.Equal(t, int64(1), first["quarter"])
	assert.Equal(t, false, first["is_weekend"])
	assert.Equal(t, false, first["is_holiday"])

	last := out.Rows[len(out.Rows)-1]
	assert.Equal(t, int64(20251231), last["date_key"])
	assert.Equal(t, int64(4), last["quarter"])
	assert.Equal(t, int64(2025), last["year"])
}

func TestGeneratedStaticDimensions(t *testing.T) {
	channels := generateChannelDimension()
	require.Equal(t, 3, channels.RowCount())
	assert.Equal(t, "CHN-001", channels.Rows[0]["channel_id"])

	geo := generateGeographyDimension()
	require.Equal(t, 2, geo.RowCount())
	assert.Equal(t, "Northeast", geo.Rows[0]["region"])
}

func TestCalculateCustomerMetrics(t *testing.T) {
	sales := &extract.Table{
		Columns: factColumns,
		Rows: []map[string]any{
			{"customer_key": int64(1), "order_id": "ORD-001", "total_amount": 50.0, "quantity": int64(2)},
			{"customer_key": int64(1), "order_id": "ORD-001", "total_amount": 10.0, "quantity": int64(1)},
			{"customer_key": int64(2), "order_id": "ORD-002", "total_amount": 70.0, "quantity": int64(3)},
		},
	}

	out := calculateCustomerMetrics(sales)
	require.Equal(t, 2, out.RowCount())

	first := out.Rows[0]
	assert.Equal(t, int64(1), first["customer_key"])
	assert.Equal(t, 60.0, first["total_spent"])
	assert.Equal(t, 30.0, first["avg_order_value"])
	assert.Equal(t, int64(2), first["total_orders"])
	assert.Equal(t, int64(3), first["total_items"])
	assert.Equal(t, int64(1), first["unique_orders"])
	assert.Equal(t, 90.0, first["estimated_clv"])

	second := out.Rows[1]
	assert.Equal(t, int64(2), second["customer_key"])
	assert.Equal(t, 105.0, second["estimated_clv"])
}

func TestTransformSkipsAbsentInputs(t *testing.T) {
	orch := New(&config.Config{}, newFakeGateway(), zap.NewNop())
	report := &RunReport{}

	out, err := orch.transform(map[string]*extract.Table{}, report)
	require.NoError(t, err)

	// Only the generated dimensions are present.
	assert.Len(t, out, 3)
	assert.Contains(t, out, "dim_date")
	assert.Contains(t, out, "dim_channel")
	assert.Contains(t, out, "dim_geography")
	assert.NotContains(t, out, "customer_metrics")
	assert.Equal(t, 3, report.TablesTransformed)
}

func TestSurrogateKey(t *testing.T) {
	assert.Equal(t, int64(42), surrogateKey("CUST-0042"))
	assert.Equal(t, int64(7), surrogateKey("P7X99")) // first digit run wins
	assert.Equal(t, int64(0), surrogateKey("NO-DIGITS-HERE"))
	assert.Equal(t, int64(0), surrogateKey(nil))
	assert.Equal(t, int64(12), surrogateKey(int64(12)))
}
