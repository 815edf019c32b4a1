package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/commercelake/etl-engine/pkg/warehouse"
)

// Status is the overall outcome of a pipeline run.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Phase names the orchestrator's state-machine states. A run moves
// Idle → Extracting → Transforming → Loading → Analyzing → Completed,
// with Failed absorbing from any in-progress phase.
type Phase string

const (
	PhaseIdle         Phase = "Idle"
	PhaseExtracting   Phase = "Extracting"
	PhaseTransforming Phase = "Transforming"
	PhaseLoading      Phase = "Loading"
	PhaseAnalyzing    Phase = "Analyzing"
	PhaseCompleted    Phase = "Completed"
	PhaseFailed       Phase = "Failed"
)

// LoadResult records one table's load outcome.
type LoadResult struct {
	RecordsLoaded int                    `json:"records_loaded"`
	Strategy      warehouse.LoadStrategy `json:"load_strategy"`
}

// ProductPerformance is the per-category slice of the analytics phase.
type ProductPerformance struct {
	ProductsSold  int64   `json:"products_sold"`
	TotalQuantity int64   `json:"total_quantity"`
	TotalRevenue  float64 `json:"total_revenue"`
}

// AnalyticsResult carries best-effort aggregate metrics. A failure
// degrades the result via Error instead of failing the run.
type AnalyticsResult struct {
	SalesMetrics       map[string]any                `json:"sales_metrics,omitempty"`
	CustomerSegments   map[string]int64              `json:"customer_segments,omitempty"`
	ProductPerformance map[string]ProductPerformance `json:"product_performance,omitempty"`
	Error              string                        `json:"error,omitempty"`
}

// RunReport is the orchestrator's output: one per pipeline run,
// immutable after the run completes.
type RunReport struct {
	ID                 uuid.UUID             `json:"id"`
	Status             Status                `json:"status"`
	StartTime          time.Time             `json:"start_time"`
	EndTime            time.Time             `json:"end_time"`
	ElapsedSeconds     float64               `json:"execution_time_seconds"`
	SourcesProcessed   int                   `json:"sources_processed"`
	RecordsExtracted   int                   `json:"total_records_extracted"`
	TablesTransformed  int                   `json:"tables_processed"`
	RecordsTransformed int                   `json:"total_records_transformed"`
	LoadResults        map[string]LoadResult `json:"load_results"`
	Analytics          AnalyticsResult       `json:"analytics_results"`
	Error              string                `json:"error,omitempty"`
}
