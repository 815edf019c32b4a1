package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commercelake/etl-engine/pkg/apperrors"
	"github.com/commercelake/etl-engine/pkg/config"
	"github.com/commercelake/etl-engine/pkg/extract"
	"github.com/commercelake/etl-engine/pkg/quality"
	"github.com/commercelake/etl-engine/pkg/warehouse"
)

// Orchestrator owns the run lifecycle: it sequences extraction across
// all configured sources, applies advisory quality checks, transforms
// the extracted tables into the dimensional model, loads them through
// the warehouse gateway and collects best-effort analytics into the
// final run report.
type Orchestrator struct {
	cfg     *config.Config
	gateway warehouse.Gateway
	logger  *zap.Logger
	phase   Phase
}

// New constructs an orchestrator. The gateway handle is built once at
// process start and passed in; the orchestrator never opens raw
// connections.
func New(cfg *config.Config, gateway warehouse.Gateway, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		gateway: gateway,
		logger:  logger,
		phase:   PhaseIdle,
	}
}

// Phase returns the orchestrator's current state-machine phase.
func (o *Orchestrator) Phase() Phase {
	return o.phase
}

// Run executes the complete pipeline. Any phase failure marks the run
// FAILED with the captured error and elapsed time; already-loaded
// tables are not rolled back.
func (o *Orchestrator) Run(ctx context.Context) *RunReport {
	report := &RunReport{
		ID:          uuid.New(),
		StartTime:   time.Now(),
		LoadResults: make(map[string]LoadResult),
	}
	o.logger.Info("Starting pipeline run", zap.String("run_id", report.ID.String()))

	err := o.runPhases(ctx, report)

	report.EndTime = time.Now()
	report.ElapsedSeconds = report.EndTime.Sub(report.StartTime).Seconds()

	if err != nil {
		o.phase = PhaseFailed
		report.Status = StatusFailed
		report.Error = err.Error()
		o.logger.Error("Pipeline run failed",
			zap.String("run_id", report.ID.String()),
			zap.Float64("elapsed_seconds", report.ElapsedSeconds),
			zap.Error(err),
		)
		return report
	}

	o.phase = PhaseCompleted
	report.Status = StatusSuccess
	o.logSummary(report)
	return report
}

func (o *Orchestrator) runPhases(ctx context.Context, report *RunReport) error {
	o.phase = PhaseExtracting
	extracted := o.extractAll(ctx, report)

	o.phase = PhaseTransforming
	transformed, err := o.transform(extracted, report)
	if err != nil {
		return err
	}

	o.phase = PhaseLoading
	if err := o.load(ctx, transformed, report); err != nil {
		return err
	}

	o.phase = PhaseAnalyzing
	report.Analytics = o.analyze(ctx)
	return nil
}

// extractAll pulls every configured source in declaration order. A
// single source's failure - construction, validation or extraction -
// is logged and that source skipped; the phase completes even with
// zero sources extracted.
func (o *Orchestrator) extractAll(ctx context.Context, report *RunReport) map[string]*extract.Table {
	o.logger.Info("=== EXTRACTION PHASE ===")
	extracted := make(map[string]*extract.Table, len(o.cfg.DataSources))

	for _, ns := range o.cfg.DataSources {
		o.logger.Info("Extracting data source", zap.String("source", ns.Name))

		ext, err := extract.New(ns.Source, o.gateway, o.logger)
		if err != nil {
			o.logger.Error("Failed to construct extractor; skipping source",
				zap.String("source", ns.Name), zap.Error(err))
			continue
		}

		if !ext.Validate(ctx) {
			o.logger.Warn("Source validation failed; skipping source",
				zap.String("source", ns.Name))
			continue
		}

		table, err := ext.Extract(ctx)
		if err != nil {
			o.logger.Error("Failed to extract; skipping source",
				zap.String("source", ns.Name), zap.Error(err))
			continue
		}

		extracted[ns.Name] = table
		report.RecordsExtracted += table.RowCount()
		o.checkQuality(ns.Name, table)
	}

	report.SourcesProcessed = len(extracted)
	o.logger.Info("Extraction completed", zap.Int("sources", len(extracted)))
	return extracted
}

// checkQuality runs the advisory data-quality checks over a freshly
// extracted table. Findings above the configured thresholds are logged
// as warnings; nothing blocks the run.
func (o *Orchestrator) checkQuality(source string, table *extract.Table) {
	completeness := quality.Completeness(table, table.Columns)
	duplicates := quality.Duplicates(table, nil)

	o.logger.Info("Data quality",
		zap.String("source", source),
		zap.Int("records", completeness.TotalRecords),
		zap.Int("empty_records", completeness.EmptyRecords),
		zap.Int("duplicates", duplicates.DuplicateCount),
		zap.Float64("duplicate_pct", duplicates.DuplicatePct),
	)

	if table.RowCount() == 0 {
		o.logger.Warn("No data extracted from source", zap.String("source", source))
		return
	}

	if duplicates.DuplicatePct > o.cfg.Quality.MaxDuplicatePct {
		o.logger.Warn("High duplicate rate",
			zap.String("source", source),
			zap.Float64("duplicate_pct", duplicates.DuplicatePct),
		)
	}

	var highNull []string
	for _, col := range table.Columns {
		if completeness.NullPercentages[col] > o.cfg.Quality.MaxNullPct {
			highNull = append(highNull, col)
		}
	}
	if len(highNull) > 0 {
		o.logger.Warn("High null rates",
			zap.String("source", source),
			zap.Strings("columns", highNull),
		)
	}
}

// load writes every transformed table through the gateway. Tables named
// with the dimension prefix are fully replaced; all others are
// appended. The first failure aborts the phase - downstream analytics
// depend on load completeness.
func (o *Orchestrator) load(ctx context.Context, transformed map[string]*extract.Table, report *RunReport) error {
	o.logger.Info("=== LOADING PHASE ===")

	names := make([]string, 0, len(transformed))
	for name := range transformed {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		table := transformed[name]
		strategy := strategyFor(name)

		o.logger.Info("Loading table",
			zap.String("table", name),
			zap.String("strategy", string(strategy)),
			zap.Int("records", table.RowCount()),
		)

		if err := o.gateway.WriteTable(ctx, table, name, strategy, o.cfg.Load.BatchSize); err != nil {
			return fmt.Errorf("%w: table %s: %v", apperrors.ErrLoad, name, err)
		}

		report.LoadResults[name] = LoadResult{
			RecordsLoaded: table.RowCount(),
			Strategy:      strategy,
		}
	}

	o.logger.Info("Loading phase completed", zap.Int("tables", len(names)))
	return nil
}

// strategyFor picks the load strategy by name convention: dimension
// tables carry full snapshots and are replaced, everything else is
// event data and appended.
func strategyFor(table string) warehouse.LoadStrategy {
	if strings.HasPrefix(table, "dim_") {
		return warehouse.Replace
	}
	return warehouse.Append
}

func (o *Orchestrator) logSummary(report *RunReport) {
	o.logger.Info("=== PIPELINE EXECUTION SUMMARY ===",
		zap.String("run_id", report.ID.String()),
		zap.String("status", string(report.Status)),
		zap.Float64("elapsed_seconds", report.ElapsedSeconds),
		zap.Int("sources_processed", report.SourcesProcessed),
		zap.Int("records_extracted", report.RecordsExtracted),
		zap.Int("tables_transformed", report.TablesTransformed),
		zap.Int("records_transformed", report.RecordsTransformed),
	)
	for table, res := range report.LoadResults {
		o.logger.Info("Load result",
			zap.String("table", table),
			zap.Int("records", res.RecordsLoaded),
			zap.String("strategy", string(res.Strategy)),
		)
	}
	if report.Analytics.Error != "" {
		o.logger.Warn("Analytics degraded", zap.String("error", report.Analytics.Error))
	}
}
