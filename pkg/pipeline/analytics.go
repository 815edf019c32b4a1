package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/commercelake/etl-engine/pkg/apperrors"
)

const (
	salesMetricsQuery = `
		SELECT
			COUNT(*) AS total_transactions,
			SUM(total_amount) AS total_revenue,
			AVG(total_amount) AS avg_order_value,
			SUM(quantity) AS total_items_sold
		FROM fact_sales`

	customerSegmentsQuery = `
		SELECT customer_segment, COUNT(*) AS customer_count
		FROM dim_customer
		WHERE is_current = true
		GROUP BY customer_segment`

	productPerformanceQuery = `
		SELECT
			p.category,
			COUNT(DISTINCT f.product_key) AS products_sold,
			SUM(f.quantity) AS total_quantity,
			SUM(f.total_amount) AS total_revenue
		FROM fact_sales f
		JOIN dim_product p ON f.product_key = p.product_key
		GROUP BY p.category
		ORDER BY total_revenue DESC`
)

// analyze computes aggregate metrics over the freshly loaded warehouse.
// Each query failure is logged and folded into the result's Error field;
// analytics never fails the run.
func (o *Orchestrator) analyze(ctx context.Context) AnalyticsResult {
	o.logger.Info("=== ANALYTICS PHASE ===")
	var result AnalyticsResult
	var failures []string

	rows, err := o.gateway.ExecuteQuery(ctx, salesMetricsQuery, nil, true)
	switch {
	case err != nil:
		o.logger.Warn("Sales metrics query failed", zap.Error(err))
		failures = append(failures, fmt.Sprintf("sales_metrics: %v", err))
	case len(rows) > 0:
		result.SalesMetrics = rows[0]
	}

	rows, err = o.gateway.ExecuteQuery(ctx, customerSegmentsQuery, nil, true)
	if err != nil {
		o.logger.Warn("Customer segments query failed", zap.Error(err))
		failures = append(failures, fmt.Sprintf("customer_segments: %v", err))
	} else {
		result.CustomerSegments = make(map[string]int64, len(rows))
		for _, row := range rows {
			segment, _ := row["customer_segment"].(string)
			count, _ := asInt(row["customer_count"])
			result.CustomerSegments[segment] = count
		}
	}

	rows, err = o.gateway.ExecuteQuery(ctx, productPerformanceQuery, nil, true)
	if err != nil {
		o.logger.Warn("Product performance query failed", zap.Error(err))
		failures = append(failures, fmt.Sprintf("product_performance: %v", err))
	} else {
		result.ProductPerformance = make(map[string]ProductPerformance, len(rows))
		for _, row := range rows {
			category, _ := row["category"].(string)
			sold, _ := asInt(row["products_sold"])
			qty, _ := asInt(row["total_quantity"])
			revenue, _ := asFloat(row["total_revenue"])
			result.ProductPerformance[category] = ProductPerformance{
				ProductsSold:  sold,
				TotalQuantity: qty,
				TotalRevenue:  revenue,
			}
		}
	}

	if len(failures) > 0 {
		result.Error = fmt.Errorf("%w: %s", apperrors.ErrAnalytics, strings.Join(failures, "; ")).Error()
	}
	o.logger.Info("Analytics phase completed", zap.Int("failed_queries", len(failures)))
	return result
}
