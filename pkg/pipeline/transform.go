package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/commercelake/etl-engine/pkg/extract"
)

// costRatio is the assumed cost share of the unit price used for the
// derived profit margin.
const costRatio = 0.6

// dimExpiry is the open-ended expiry date on current dimension rows.
var dimExpiry = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

var digitsRe = regexp.MustCompile(`\d+`)

// transform reshapes extracted tables into the dimensional model. Each
// transformation runs only when its named input was extracted; the
// generated dimensions always run. Output tables feed the load phase.
func (o *Orchestrator) transform(extracted map[string]*extract.Table, report *RunReport) (map[string]*extract.Table, error) {
	o.logger.Info("=== TRANSFORMATION PHASE ===")
	transformed := make(map[string]*extract.Table)

	if src, ok := extracted["sales_data"]; ok {
		t, err := transformSales(src)
		if err != nil {
			return nil, fmt.Errorf("transform sales_data: %w", err)
		}
		transformed["fact_sales"] = t
	}

	if src, ok := extracted["customer_data"]; ok {
		transformed["dim_customer"] = transformCustomers(src)
	}

	if src, ok := extracted["product_catalog"]; ok {
		transformed["dim_product"] = transformProducts(src)
	}

	transformed["dim_date"] = generateDateDimension()
	transformed["dim_channel"] = generateChannelDimension()
	transformed["dim_geography"] = generateGeographyDimension()

	if sales, ok := transformed["fact_sales"]; ok {
		if _, ok := transformed["dim_customer"]; ok {
			transformed["customer_metrics"] = calculateCustomerMetrics(sales)
		}
	}

	report.TablesTransformed = len(transformed)
	for _, t := range transformed {
		report.RecordsTransformed += t.RowCount()
	}

	o.logger.Info("Transformation completed",
		zap.Int("tables", report.TablesTransformed),
		zap.Int("records", report.RecordsTransformed),
	)
	return transformed, nil
}

// factColumns is the fact_sales output column set.
var factColumns = []string{
	"order_id", "order_line_id", "customer_key", "product_key",
	"date_key", "geography_key", "channel_key", "quantity",
	"unit_price", "discount_amount", "total_amount", "profit_margin",
}

// transformSales shapes raw sales rows into the fact table: rows
// missing a business key are dropped, the order date becomes an
// integer date key and surrogate keys are derived from the business
// IDs.
func transformSales(src *extract.Table) (*extract.Table, error) {
	out := &extract.Table{Columns: factColumns}

	for _, row := range src.Rows {
		if row["order_id"] == nil || row["customer_id"] == nil || row["product_id"] == nil {
			continue
		}

		orderDate, ok := asDate(row["order_date"])
		if !ok {
			continue
		}

		unitPrice, _ := asFloat(row["unit_price"])

		out.Rows = append(out.Rows, map[string]any{
			"order_id":        row["order_id"],
			"order_line_id":   row["order_line_id"],
			"customer_key":    surrogateKey(row["customer_id"]),
			"product_key":     surrogateKey(row["product_id"]),
			"date_key":        dateKey(orderDate),
			"geography_key":   int64(1),
			"channel_key":     surrogateKey(row["channel_id"]),
			"quantity":        row["quantity"],
			"unit_price":      row["unit_price"],
			"discount_amount": row["discount_amount"],
			"total_amount":    row["total_amount"],
			"profit_margin":   unitPrice - unitPrice*costRatio,
		})
	}

	return out, nil
}

// transformCustomers shapes customer rows into an SCD type 2 dimension
// snapshot: every row is current, effective now, expiring never.
func transformCustomers(src *extract.Table) *extract.Table {
	out := &extract.Table{
		Columns: append(append([]string{}, src.Columns...),
			"customer_key", "customer_segment", "is_current", "effective_date", "expiry_date"),
	}
	effective := time.Now().Truncate(24 * time.Hour)

	for _, row := range src.Rows {
		if row["customer_id"] == nil {
			continue
		}

		next := make(map[string]any, len(row)+5)
		for k, v := range row {
			next[k] = v
		}
		if dob, ok := asDate(row["date_of_birth"]); ok {
			next["date_of_birth"] = dob
		}
		if reg, ok := asDate(row["registration_date"]); ok {
			next["registration_date"] = reg
		}

		next["customer_key"] = surrogateKey(row["customer_id"])
		next["customer_segment"] = "Regular"
		next["is_current"] = true
		next["effective_date"] = effective
		next["expiry_date"] = dimExpiry

		out.Rows = append(out.Rows, next)
	}

	return out
}

// transformProducts shapes catalog rows into the product dimension.
func transformProducts(src *extract.Table) *extract.Table {
	out := &extract.Table{
		Columns: append(append([]string{}, src.Columns...), "product_key", "is_active"),
	}

	for _, row := range src.Rows {
		if row["product_id"] == nil {
			continue
		}

		next := make(map[string]any, len(row)+2)
		for k, v := range row {
			next[k] = v
		}
		next["product_key"] = surrogateKey(row["product_id"])
		next["is_active"] = true

		out.Rows = append(out.Rows, next)
	}

	return out
}

// generateDateDimension builds the calendar dimension for 2024-2025.
func generateDateDimension() *extract.Table {
	out := &extract.Table{
		Columns: []string{
			"date_key", "full_date", "day_of_week", "day_name",
			"day_of_month", "day_of_year", "week_of_year",
			"month_number", "month_name", "quarter", "year",
			"is_weekend", "is_holiday",
		},
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		isoDay := int64(d.Weekday())
		if isoDay == 0 {
			isoDay = 7 // Sunday
		}
		_, week := d.ISOWeek()

		out.Rows = append(out.Rows, map[string]any{
			"date_key":     dateKey(d),
			"full_date":    d,
			"day_of_week":  isoDay,
			"day_name":     d.Weekday().String(),
			"day_of_month": int64(d.Day()),
			"day_of_year":  int64(d.YearDay()),
			"week_of_year": int64(week),
			"month_number": int64(d.Month()),
			"month_name":   d.Month().String(),
			"quarter":      int64((int(d.Month())-1)/3 + 1),
			"year":         int64(d.Year()),
			"is_weekend":   isoDay >= 6,
			"is_holiday":   false,
		})
	}

	return out
}

// generateChannelDimension builds the static sales-channel dimension.
func generateChannelDimension() *extract.Table {
	return &extract.Table{
		Columns: []string{"channel_key", "channel_id", "channel_name", "channel_type"},
		Rows: []map[string]any{
			{"channel_key": int64(1), "channel_id": "CHN-001", "channel_name": "Website", "channel_type": "Online"},
			{"channel_key": int64(2), "channel_id": "CHN-002", "channel_name": "Mobile App", "channel_type": "Mobile"},
			{"channel_key": int64(3), "channel_id": "CHN-003", "channel_name": "Retail Store", "channel_type": "Store"},
		},
	}
}

// generateGeographyDimension builds the static geography dimension.
func generateGeographyDimension() *extract.Table {
	return &extract.Table{
		Columns: []string{"geography_key", "city", "state", "country", "region"},
		Rows: []map[string]any{
			{"geography_key": int64(1), "city": "New York", "state": "NY", "country": "USA", "region": "Northeast"},
			{"geography_key": int64(2), "city": "Los Angeles", "state": "CA", "country": "USA", "region": "West"},
		},
	}
}

// calculateCustomerMetrics aggregates the fact table per customer key.
func calculateCustomerMetrics(sales *extract.Table) *extract.Table {
	type agg struct {
		totalSpent   float64
		totalItems   int64
		orders       int
		uniqueOrders map[string]bool
	}

	byCustomer := make(map[int64]*agg)
	var keys []int64

	for _, row := range sales.Rows {
		key, ok := asInt(row["customer_key"])
		if !ok {
			continue
		}

		a := byCustomer[key]
		if a == nil {
			a = &agg{uniqueOrders: make(map[string]bool)}
			byCustomer[key] = a
			keys = append(keys, key)
		}

		if amount, ok := asFloat(row["total_amount"]); ok {
			a.totalSpent += amount
		}
		if qty, ok := asInt(row["quantity"]); ok {
			a.totalItems += qty
		}
		a.orders++
		a.uniqueOrders[fmt.Sprintf("%v", row["order_id"])] = true
	}

	sortInt64s(keys)

	out := &extract.Table{
		Columns: []string{
			"customer_key", "total_spent", "avg_order_value", "total_orders",
			"total_items", "unique_orders", "estimated_clv",
		},
	}
	for _, key := range keys {
		a := byCustomer[key]
		out.Rows = append(out.Rows, map[string]any{
			"customer_key":    key,
			"total_spent":     round2(a.totalSpent),
			"avg_order_value": round2(a.totalSpent / float64(a.orders)),
			"total_orders":    int64(a.orders),
			"total_items":     a.totalItems,
			"unique_orders":   int64(len(a.uniqueOrders)),
			"estimated_clv":   round2(a.totalSpent * 1.5),
		})
	}

	return out
}

// surrogateKey derives an integer key from the first digit run in a
// business identifier ("CUST-0042" -> 42). Missing or digit-free IDs
// map to key 0.
func surrogateKey(id any) int64 {
	s, ok := id.(string)
	if !ok {
		if n, isInt := asInt(id); isInt {
			return n
		}
		return 0
	}

	match := digitsRe.FindString(s)
	if match == "" {
		return 0
	}
	n, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// dateKey renders a date as its YYYYMMDD integer form.
func dateKey(d time.Time) int64 {
	return int64(d.Year())*10000 + int64(d.Month())*100 + int64(d.Day())
}

var transformDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// asDate accepts a cell that is already a time.Time or a parseable
// date string.
func asDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		for _, layout := range transformDateLayouts {
			if d, err := time.Parse(layout, val); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

func asFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	}
	return 0, false
}

func asInt(v any) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case float64:
		return int64(val), true
	}
	return 0, false
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

func sortInt64s(s []int64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
