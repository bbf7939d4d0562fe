// Package errors provides explicit, human-readable error types for tabula.
// All errors must include a Reason and Suggestion for actionable feedback.
package errors

import (
	"fmt"
)

// TabulaError is the base error type for all tabula errors.
// Every error must provide a human-readable reason and suggestion.
type TabulaError struct {
	Code       ErrorCode
	Message    string
	Reason     string
	Suggestion string
	Cause      error
}

// ErrorCode represents the category of error for exit code mapping.
type ErrorCode int

const (
	CodeValidation ErrorCode = 1
	CodeAuth       ErrorCode = 2
	CodeEngine     ErrorCode = 3
	CodeModel      ErrorCode = 4
	CodeInternal   ErrorCode = 5
)

func (e *TabulaError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s\nReason: %s", msg, e.Reason)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s\nSuggestion: %s", msg, e.Suggestion)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s\nCaused by: %v", msg, e.Cause)
	}
	return msg
}

func (e *TabulaError) Unwrap() error {
	return e.Cause
}

// ErrNoDataset is returned when a question arrives before any CSV upload.
type ErrNoDataset struct {
	TabulaError
}

// NewNoDataset creates a new ErrNoDataset.
func NewNoDataset() *ErrNoDataset {
	return &ErrNoDataset{
		TabulaError: TabulaError{
			Code:       CodeValidation,
			Message:    "no dataset loaded",
			Reason:     "a question was asked before any CSV file was uploaded",
			Suggestion: "upload a CSV file before asking a question",
		},
	}
}

// ErrInvalidDataset is returned when an uploaded CSV cannot be decoded.
type ErrInvalidDataset struct {
	TabulaError
	Filename string
}

// NewInvalidDataset creates a new ErrInvalidDataset.
func NewInvalidDataset(filename, reason string, cause error) *ErrInvalidDataset {
	return &ErrInvalidDataset{
		TabulaError: TabulaError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("cannot read dataset: %s", filename),
			Reason:     reason,
			Suggestion: "check that the file is a well-formed CSV with a header row",
			Cause:      cause,
		},
		Filename: filename,
	}
}

// ErrQueryRejected is returned when generated SQL is rejected before execution.
type ErrQueryRejected struct {
	TabulaError
	SQL string
}

// NewQueryRejected creates a new ErrQueryRejected.
func NewQueryRejected(sql, reason, suggestion string) *ErrQueryRejected {
	return &ErrQueryRejected{
		TabulaError: TabulaError{
			Code:       CodeValidation,
			Message:    "generated query rejected",
			Reason:     reason,
			Suggestion: suggestion,
		},
		SQL: sql,
	}
}

// NewWriteNotAllowed creates an error for non-SELECT statements.
// Generated SQL is read-only: the model must never mutate the dataset.
func NewWriteNotAllowed(operation string) *ErrQueryRejected {
	return &ErrQueryRejected{
		TabulaError: TabulaError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("%s statement not allowed", operation),
			Reason:     "only SELECT statements may be executed against the dataset",
			Suggestion: "rephrase the question as a read-only analysis",
		},
	}
}

// ErrUnknownTable is returned when generated SQL references a table
// other than the session's dataset table.
type ErrUnknownTable struct {
	TabulaError
	Table string
}

// NewUnknownTable creates a new ErrUnknownTable.
func NewUnknownTable(table, expected string) *ErrUnknownTable {
	return &ErrUnknownTable{
		TabulaError: TabulaError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("unknown table: %s", table),
			Reason:     fmt.Sprintf("generated SQL may only reference the dataset table '%s'", expected),
			Suggestion: "ask the question again; the model referenced a table that does not exist",
		},
		Table: table,
	}
}

// ErrEngineUnavailable is returned when no execution engine is available.
type ErrEngineUnavailable struct {
	TabulaError
}

// NewEngineUnavailable creates a new ErrEngineUnavailable.
func NewEngineUnavailable(reason string) *ErrEngineUnavailable {
	return &ErrEngineUnavailable{
		TabulaError: TabulaError{
			Code:       CodeEngine,
			Message:    "no execution engine available",
			Reason:     reason,
			Suggestion: "check engine status with 'tabula doctor'",
		},
	}
}

// ErrModelUnavailable is returned when the language model is not configured
// or a generation call fails after retries.
type ErrModelUnavailable struct {
	TabulaError
}

// NewModelUnavailable creates a new ErrModelUnavailable.
func NewModelUnavailable(reason string, cause error) *ErrModelUnavailable {
	return &ErrModelUnavailable{
		TabulaError: TabulaError{
			Code:       CodeModel,
			Message:    "language model unavailable",
			Reason:     reason,
			Suggestion: "set gemini.api_key in the config file or the TABULA_GEMINI_API_KEY env var",
			Cause:      cause,
		},
	}
}

// ErrBadModelOutput is returned when a model response cannot be parsed
// into the expected SQL/pandas pair.
type ErrBadModelOutput struct {
	TabulaError
	Output string
}

// NewBadModelOutput creates a new ErrBadModelOutput.
func NewBadModelOutput(output, reason string) *ErrBadModelOutput {
	return &ErrBadModelOutput{
		TabulaError: TabulaError{
			Code:       CodeModel,
			Message:    "could not parse model output",
			Reason:     reason,
			Suggestion: "retry the question; the model returned an unexpected format",
		},
		Output: output,
	}
}

// ErrAuthFailed is returned when authentication fails.
type ErrAuthFailed struct {
	TabulaError
}

// NewAuthFailed creates a new ErrAuthFailed.
func NewAuthFailed(reason string) *ErrAuthFailed {
	return &ErrAuthFailed{
		TabulaError: TabulaError{
			Code:       CodeAuth,
			Message:    "authentication failed",
			Reason:     reason,
			Suggestion: "pass the API token in the Authorization header as 'Bearer <token>'",
		},
	}
}

// ErrNotChartable is returned when a result cannot be rendered as a chart.
type ErrNotChartable struct {
	TabulaError
}

// NewNotChartable creates a new ErrNotChartable.
func NewNotChartable(reason string) *ErrNotChartable {
	return &ErrNotChartable{
		TabulaError: TabulaError{
			Code:       CodeValidation,
			Message:    "result cannot be charted",
			Reason:     reason,
			Suggestion: "ask for an aggregation with one label column and one numeric column",
		},
	}
}

// ErrNothingToExport is returned when a CSV export is requested before any
// successful query produced a result.
type ErrNothingToExport struct {
	TabulaError
}

// NewNothingToExport creates a new ErrNothingToExport.
func NewNothingToExport() *ErrNothingToExport {
	return &ErrNothingToExport{
		TabulaError: TabulaError{
			Code:       CodeValidation,
			Message:    "no data available to download",
			Reason:     "no successful query result is stored for this session",
			Suggestion: "run a query first, then export the result",
		},
	}
}
