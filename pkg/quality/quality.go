// Package quality computes advisory data-quality metrics over extracted
// tables. Checks are stateless and never gate the pipeline; the
// orchestrator only logs their findings.
package quality

import (
	"fmt"
	"strings"
	"time"

	"github.com/commercelake/etl-engine/pkg/extract"
)

// CompletenessReport summarizes missing and null data in a table.
type CompletenessReport struct {
	// MissingColumns lists required columns absent from the table, in
	// the caller's required order.
	MissingColumns []string `json:"missing_columns"`
	// NullPercentages maps each column to its null percentage.
	NullPercentages map[string]float64 `json:"null_percentages"`
	TotalRecords    int                `json:"total_records"`
	// EmptyRecords counts rows where every column is null.
	EmptyRecords int `json:"empty_records"`
}

// DuplicateReport summarizes exact-duplicate rows.
type DuplicateReport struct {
	DuplicateCount int     `json:"duplicate_count"`
	DuplicatePct   float64 `json:"duplicate_percentage"`
	UniqueRecords  int     `json:"unique_records"`
}

// TypeMismatch records an expected-vs-observed column type difference.
type TypeMismatch struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// TypeReport summarizes type-consistency findings.
type TypeReport struct {
	Issues         map[string]TypeMismatch `json:"type_issues"`
	ColumnsChecked int                     `json:"columns_checked"`
}

// Completeness reports required columns missing from the table, the
// per-column null percentage, and the count of fully-null rows. An
// empty table yields zero percentages, never a division error.
func Completeness(t *extract.Table, required []string) CompletenessReport {
	report := CompletenessReport{
		MissingColumns:  []string{},
		NullPercentages: make(map[string]float64, len(t.Columns)),
		TotalRecords:    t.RowCount(),
	}

	for _, col := range required {
		if !t.HasColumn(col) {
			report.MissingColumns = append(report.MissingColumns, col)
		}
	}

	nullCounts := make(map[string]int, len(t.Columns))
	for _, row := range t.Rows {
		empty := true
		for _, col := range t.Columns {
			if row[col] == nil {
				nullCounts[col]++
			} else {
				empty = false
			}
		}
		if empty && len(t.Columns) > 0 {
			report.EmptyRecords++
		}
	}

	for _, col := range t.Columns {
		if report.TotalRecords == 0 {
			report.NullPercentages[col] = 0
			continue
		}
		report.NullPercentages[col] = float64(nullCounts[col]) / float64(report.TotalRecords) * 100
	}

	return report
}

// Duplicates counts rows that exactly repeat an earlier row, optionally
// comparing only a subset of columns. Rows are visited in original
// order; the first occurrence counts as unique.
func Duplicates(t *extract.Table, subset []string) DuplicateReport {
	report := DuplicateReport{}
	total := t.RowCount()
	if total == 0 {
		return report
	}

	columns := subset
	if len(columns) == 0 {
		columns = t.Columns
	}

	seen := make(map[string]bool, total)
	for _, row := range t.Rows {
		key := rowKey(row, columns)
		if seen[key] {
			report.DuplicateCount++
		} else {
			seen[key] = true
		}
	}

	report.DuplicatePct = float64(report.DuplicateCount) / float64(total) * 100
	report.UniqueRecords = total - report.DuplicateCount
	return report
}

// Types compares each expected column type against the observed one,
// recording a mismatch when they differ. Columns absent from the table
// are silently skipped.
func Types(t *extract.Table, expected map[string]string) TypeReport {
	report := TypeReport{
		Issues:         make(map[string]TypeMismatch),
		ColumnsChecked: len(expected),
	}

	for col, want := range expected {
		if !t.HasColumn(col) {
			continue
		}
		got := observedType(t, col)
		if got != want {
			report.Issues[col] = TypeMismatch{Expected: want, Actual: got}
		}
	}

	return report
}

// observedType names the type of a column's values: integer, float,
// string, boolean or date when every non-null value agrees, null for an
// all-null column, mixed otherwise.
func observedType(t *extract.Table, col string) string {
	result := ""
	for _, row := range t.Rows {
		v := row[col]
		if v == nil {
			continue
		}
		name := valueType(v)
		if result == "" {
			result = name
		} else if result != name {
			return "mixed"
		}
	}
	if result == "" {
		return "null"
	}
	return result
}

func valueType(v any) string {
	switch v.(type) {
	case int64, int, int32:
		return "integer"
	case float64, float32:
		return "float"
	case bool:
		return "boolean"
	case time.Time:
		return "date"
	case string:
		return "string"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// rowKey renders a row's projection onto the chosen columns as a
// deterministic comparison key.
func rowKey(row map[string]any, columns []string) string {
	var b strings.Builder
	for _, col := range columns {
		v := row[col]
		if v == nil {
			b.WriteString("\x00|")
			continue
		}
		fmt.Fprintf(&b, "%T:%v|", v, v)
	}
	return b.String()
}
