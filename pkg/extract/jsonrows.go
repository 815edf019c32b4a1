package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/commercelake/etl-engine/pkg/apperrors"
)

// rowKeys is the fixed priority order in which a mapping document is
// searched for its row payload. The first key holding a sequence wins;
// keeping the tie-break rule here keeps it identical for file-json and
// http sources.
var rowKeys = []string{"data", "results", "items", "records"}

// decodeDocument parses a JSON document, preserving integer precision
// via json.Number.
func decodeDocument(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// rowsFromDocument turns a decoded JSON document into a Table:
//
//   - a sequence becomes one row per element
//   - a mapping is searched for the first priority key holding a
//     sequence; that sequence becomes the rows
//   - a mapping with no such key becomes a single row
//   - anything else is an unsupported structure
//
// keys restricts the priority search; file-json sources only honor
// "data" while http responses honor the full list.
func rowsFromDocument(doc any, keys []string) (*Table, error) {
	switch v := doc.(type) {
	case []any:
		return tableFromElements(v)
	case map[string]any:
		for _, key := range keys {
			if seq, ok := v[key].([]any); ok {
				return tableFromElements(seq)
			}
		}
		return tableFromElements([]any{v})
	default:
		return nil, fmt.Errorf("%w: top-level %T", apperrors.ErrUnsupportedStructure, doc)
	}
}

// tableFromElements builds a Table from a sequence of mapping elements.
// Columns appear in first-seen order, keys within a row sorted.
func tableFromElements(elements []any) (*Table, error) {
	t := &Table{Rows: make([]map[string]any, 0, len(elements))}
	seen := make(map[string]bool)

	for i, el := range elements {
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T, not an object", apperrors.ErrUnsupportedStructure, i, el)
		}

		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		row := make(map[string]any, len(obj))
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				t.Columns = append(t.Columns, k)
			}
			row[k] = normalizeValue(obj[k])
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// normalizeValue maps decoded JSON values onto table cell types.
// Nested objects and arrays are kept as their JSON text.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return val
	}
}
