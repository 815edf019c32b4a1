package extract

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/commercelake/etl-engine/pkg/apperrors"
)

// JSONExtractor reads JSON documents from disk. A top-level sequence
// becomes one row per element; a mapping holding a "data" sequence
// yields that sequence; any other mapping becomes a single row.
type JSONExtractor struct {
	path      string
	logger    *zap.Logger
	validated bool
}

// Validate checks that the file exists and is readable.
func (e *JSONExtractor) Validate(ctx context.Context) bool {
	f, err := os.Open(e.path)
	if err != nil {
		e.logger.Error("JSON validation failed", zap.String("path", e.path), zap.Error(err))
		e.validated = false
		return false
	}
	f.Close()
	e.validated = true
	return true
}

// Extract parses the document into a Table.
func (e *JSONExtractor) Extract(ctx context.Context) (*Table, error) {
	if !e.validated {
		return nil, fmt.Errorf("%w: JSON file not accessible: %s", apperrors.ErrSourceUnavailable, e.path)
	}

	f, err := os.Open(e.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", apperrors.ErrExtraction, e.path, err)
	}
	defer f.Close()

	doc, err := decodeDocument(f)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", apperrors.ErrExtraction, e.path, err)
	}

	t, err := rowsFromDocument(doc, rowKeys[:1])
	if err != nil {
		return nil, err
	}

	e.logger.Info("JSON extracted",
		zap.String("path", e.path),
		zap.Int("records", t.RowCount()),
	)
	return t, nil
}
