package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/commercelake/etl-engine/pkg/apperrors"
)

// QueryExtractor pulls rows by running a parameterized statement
// through the warehouse gateway. It never parses SQL itself.
type QueryExtractor struct {
	sql       string
	args      []any
	reader    TableReader
	logger    *zap.Logger
	validated bool
}

// Validate runs a trivial round-trip query against the gateway.
func (e *QueryExtractor) Validate(ctx context.Context) bool {
	_, err := e.reader.ExecuteQuery(ctx, "SELECT 1 AS test", nil, true)
	if err != nil {
		e.logger.Error("Database validation failed", zap.Error(err))
		e.validated = false
		return false
	}
	e.validated = true
	return true
}

// Extract delegates to the gateway's parameterized read.
func (e *QueryExtractor) Extract(ctx context.Context) (*Table, error) {
	if !e.validated {
		return nil, fmt.Errorf("%w: warehouse not validated", apperrors.ErrSourceUnavailable)
	}

	t, err := e.reader.ReadTable(ctx, e.sql, e.args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExtraction, err)
	}

	e.logger.Info("Database extracted", zap.Int("records", t.RowCount()))
	return t, nil
}
