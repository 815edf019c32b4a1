// Package apperrors defines the sentinel error kinds shared across the
// pipeline. Callers classify failures with errors.Is; extraction-level
// kinds are recoverable (the orchestrator skips the source), load-level
// kinds fail the run.
package apperrors

import "errors"

var (
	// ErrInvalidConfiguration marks a malformed or incomplete source
	// descriptor. Raised at construction time, never at extraction time.
	ErrInvalidConfiguration = errors.New("invalid source configuration")

	// ErrUnsupportedSourceType marks a descriptor type tag no extractor
	// handles.
	ErrUnsupportedSourceType = errors.New("unsupported source type")

	// ErrSourceUnavailable marks a source that failed (or skipped)
	// reachability validation. Recoverable: the source is skipped.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrExtraction wraps I/O, parse, or request failures during
	// extraction. Recoverable per source.
	ErrExtraction = errors.New("extraction failed")

	// ErrUnsupportedStructure marks a JSON document or response body
	// whose shape cannot be turned into rows.
	ErrUnsupportedStructure = errors.New("unsupported document structure")

	// ErrLoad marks a failed warehouse write. Fatal: aborts the run,
	// already-loaded tables are not rolled back.
	ErrLoad = errors.New("load failed")

	// ErrAnalytics marks a failed analytics query. Non-fatal: captured
	// in the run report instead of failing the run.
	ErrAnalytics = errors.New("analytics failed")
)
