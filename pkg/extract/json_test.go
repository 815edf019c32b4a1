package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/commercelake/etl-engine/pkg/apperrors"
	"github.com/commercelake/etl-engine/pkg/config"
)

func extractJSON(t *testing.T, body string) (*Table, error) {
	t.Helper()
	path := writeFile(t, "doc.json", body)
	ext, err := New(config.Source{Type: "file-json", Path: path}, nil, zap.NewNop())
	require.NoError(t, err)
	require.True(t, ext.Validate(context.Background()))
	return ext.Extract(context.Background())
}

func TestJSONSequenceBecomesRows(t *testing.T) {
	table, err := extractJSON(t, `[{"a":1},{"a":2}]`)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, table.Columns)
	require.Equal(t, 2, table.RowCount())
	assert.Equal(t, int64(1), table.Rows[0]["a"])
	assert.Equal(t, int64(2), table.Rows[1]["a"])
}

func TestJSONDataKeyBecomesRows(t *testing.T) {
	table, err := extractJSON(t, `{"data":[{"a":1}]}`)
	require.NoError(t, err)
	assert.Equal(t, 1, table.RowCount())
	assert.Equal(t, int64(1), table.Rows[0]["a"])
}

func TestJSONBareMappingBecomesSingleRow(t *testing.T) {
	table, err := extractJSON(t, `{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, table.Columns)
	assert.Equal(t, 1, table.RowCount())
}

func TestJSONScalarDocumentFails(t *testing.T) {
	_, err := extractJSON(t, `"plain string"`)
	require.ErrorIs(t, err, apperrors.ErrUnsupportedStructure)
}

func TestJSONResultsKeyIgnoredForFiles(t *testing.T) {
	// File sources only honor the data key; a results sequence is just
	// a nested value on a single-row mapping.
	table, err := extractJSON(t, `{"results":[{"a":1}]}`)
	require.NoError(t, err)
	assert.Equal(t, 1, table.RowCount())
	assert.Equal(t, `[{"a":1}]`, table.Rows[0]["results"])
}

func TestJSONNestedValuesKeptAsText(t *testing.T) {
	table, err := extractJSON(t, `[{"id":1,"address":{"city":"NYC"}}]`)
	require.NoError(t, err)
	assert.Equal(t, `{"city":"NYC"}`, table.Rows[0]["address"])
}

func TestJSONColumnsInFirstSeenOrder(t *testing.T) {
	table, err := extractJSON(t, `[{"b":1,"a":2},{"c":3}]`)
	require.NoError(t, err)
	// Keys sorted within a row, new columns appended as seen.
	assert.Equal(t, []string{"a", "b", "c"}, table.Columns)
	assert.Nil(t, table.Rows[1]["a"])
}

func TestJSONMalformedDocument(t *testing.T) {
	_, err := extractJSON(t, `{"a":`)
	require.ErrorIs(t, err, apperrors.ErrExtraction)
}

func TestJSONExtractWithoutValidation(t *testing.T) {
	path := writeFile(t, "doc.json", `[]`)
	ext, err := New(config.Source{Type: "file-json", Path: path}, nil, zap.NewNop())
	require.NoError(t, err)

	_, err = ext.Extract(context.Background())
	require.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}
