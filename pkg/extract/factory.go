package extract

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/commercelake/etl-engine/pkg/apperrors"
	"github.com/commercelake/etl-engine/pkg/config"
)

// Source type tags recognized by the factory, matched case-insensitively.
const (
	TypeFileCSV  = "file-csv"
	TypeFileJSON = "file-json"
	TypeHTTP     = "http"
	TypeQuery    = "query"
)

// New constructs the extractor variant selected by the descriptor's
// type tag. Pure construction, no I/O: missing required fields fail
// here with apperrors.ErrInvalidConfiguration, unknown tags with
// apperrors.ErrUnsupportedSourceType.
func New(src config.Source, reader TableReader, logger *zap.Logger) (Extractor, error) {
	switch strings.ToLower(src.Type) {
	case TypeFileCSV:
		if src.Path == "" {
			return nil, fmt.Errorf("%w: file-csv source requires a path", apperrors.ErrInvalidConfiguration)
		}
		delim, err := delimiterRune(src.Delimiter)
		if err != nil {
			return nil, err
		}
		if err := checkEncoding(src.Encoding); err != nil {
			return nil, err
		}
		return &CSVExtractor{path: src.Path, delimiter: delim, logger: logger}, nil

	case TypeFileJSON:
		if src.Path == "" {
			return nil, fmt.Errorf("%w: file-json source requires a path", apperrors.ErrInvalidConfiguration)
		}
		if err := checkEncoding(src.Encoding); err != nil {
			return nil, err
		}
		return &JSONExtractor{path: src.Path, logger: logger}, nil

	case TypeHTTP:
		if src.URL == "" {
			return nil, fmt.Errorf("%w: http source requires a url", apperrors.ErrInvalidConfiguration)
		}
		return &HTTPExtractor{
			url:      src.URL,
			headers:  src.Headers,
			query:    src.Query,
			username: src.Username,
			password: src.Password,
			client:   &http.Client{Timeout: httpTimeout},
			logger:   logger,
		}, nil

	case TypeQuery:
		if src.SQL == "" {
			return nil, fmt.Errorf("%w: query source requires sql", apperrors.ErrInvalidConfiguration)
		}
		if reader == nil {
			return nil, fmt.Errorf("%w: query source requires a warehouse gateway", apperrors.ErrInvalidConfiguration)
		}
		return &QueryExtractor{sql: src.SQL, args: src.Args, reader: reader, logger: logger}, nil

	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedSourceType, src.Type)
	}
}

// delimiterRune returns the configured delimiter, defaulting to a
// comma. Multi-rune delimiters are a configuration error.
func delimiterRune(s string) (rune, error) {
	if s == "" {
		return ',', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: delimiter must be a single character, got %q", apperrors.ErrInvalidConfiguration, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// checkEncoding rejects encodings other than UTF-8, the only one the
// file extractors read.
func checkEncoding(s string) error {
	switch strings.ToLower(s) {
	case "", "utf-8", "utf8":
		return nil
	}
	return fmt.Errorf("%w: unsupported encoding %q", apperrors.ErrInvalidConfiguration, s)
}
