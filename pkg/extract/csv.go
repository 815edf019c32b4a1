package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/commercelake/etl-engine/pkg/apperrors"
)

// csvDateLayouts are tried, in order, during best-effort date inference.
var csvDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// CSVExtractor reads delimited text files. The first record names the
// columns; cell types are inferred per column.
type CSVExtractor struct {
	path      string
	delimiter rune
	logger    *zap.Logger
	validated bool
}

// Validate checks that the file exists and is readable.
func (e *CSVExtractor) Validate(ctx context.Context) bool {
	f, err := os.Open(e.path)
	if err != nil {
		e.logger.Error("CSV validation failed", zap.String("path", e.path), zap.Error(err))
		e.validated = false
		return false
	}
	f.Close()
	e.validated = true
	return true
}

// Extract parses the file into a Table.
func (e *CSVExtractor) Extract(ctx context.Context) (*Table, error) {
	if !e.validated {
		return nil, fmt.Errorf("%w: CSV file not accessible: %s", apperrors.ErrSourceUnavailable, e.path)
	}

	f, err := os.Open(e.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", apperrors.ErrExtraction, e.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = e.delimiter

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", apperrors.ErrExtraction, e.path, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	t := tableFromRecords(records[0], records[1:])
	e.logger.Info("CSV extracted",
		zap.String("path", e.path),
		zap.Int("records", t.RowCount()),
	)
	return t, nil
}

// tableFromRecords types each column by the narrowest parse every
// non-empty value in it satisfies: integer, float, boolean, date, then
// string. Empty cells become nil.
func tableFromRecords(header []string, records [][]string) *Table {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	parsers := make([]func(string) (any, bool), len(columns))
	for col := range columns {
		parsers[col] = inferColumnParser(col, records)
	}

	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		row := make(map[string]any, len(columns))
		for col, name := range columns {
			if col >= len(rec) || rec[col] == "" {
				row[name] = nil
				continue
			}
			v, _ := parsers[col](rec[col])
			row[name] = v
		}
		rows = append(rows, row)
	}

	return &Table{Columns: columns, Rows: rows}
}

func inferColumnParser(col int, records [][]string) func(string) (any, bool) {
	candidates := []func(string) (any, bool){
		parseInt,
		parseFloat,
		parseBool,
		parseDate,
	}

next:
	for _, parse := range candidates {
		nonEmpty := 0
		for _, rec := range records {
			if col >= len(rec) || rec[col] == "" {
				continue
			}
			nonEmpty++
			if _, ok := parse(rec[col]); !ok {
				continue next
			}
		}
		if nonEmpty > 0 {
			return parse
		}
	}
	return parseString
}

func parseInt(s string) (any, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v, err == nil
}

func parseFloat(s string) (any, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

func parseBool(s string) (any, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return nil, false
}

func parseDate(s string) (any, bool) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range csvDateLayouts {
		if v, err := time.Parse(layout, trimmed); err == nil {
			return v, true
		}
	}
	return nil, false
}

func parseString(s string) (any, bool) {
	return s, true
}
