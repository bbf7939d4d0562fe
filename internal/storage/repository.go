// Package storage persists query history: every ask produces exactly one
// record, success or failure.
package storage

import (
	"context"
	"time"
)

// QueryRecord is one stored interaction.
type QueryRecord struct {
	// ID is the query ID (uuid), shared with the structured log entry.
	ID string `json:"id"`

	// SessionID identifies the browser session the question came from.
	SessionID string `json:"session_id"`

	// Question is the user's natural-language question.
	Question string `json:"question"`

	// Dataset is the dataset table name the question ran against.
	Dataset string `json:"dataset"`

	// SQL is the generated SQL statement.
	SQL string `json:"sql"`

	// Pandas is the generated pandas snippet.
	Pandas string `json:"pandas"`

	// Generator is the generator that produced the code ("gemini", "baseline").
	Generator string `json:"generator"`

	// Engine is the execution engine ("duckdb", "sqlite"), empty if the
	// question failed before execution.
	Engine string `json:"engine"`

	// Outcome is "success", "error", or "rejected".
	Outcome string `json:"outcome"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`

	// RowCount is the number of result rows on success.
	RowCount int `json:"row_count"`

	// ChartType is the rendered chart type, empty when no chart was built.
	ChartType string `json:"chart_type,omitempty"`

	// Duration is how long the ask pipeline took.
	Duration time.Duration `json:"duration"`

	// CreatedAt is when the record was stored.
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRepository defines query history persistence.
// All implementations must be thread-safe, context-aware, and explicit
// about errors.
type HistoryRepository interface {
	// Save stores one interaction record.
	Save(ctx context.Context, rec *QueryRecord) error

	// Recent returns the most recent records for a session, newest first.
	Recent(ctx context.Context, sessionID string, limit int) ([]*QueryRecord, error)

	// RecentQuestions returns the most recent distinct questions for a
	// session, newest first.
	RecentQuestions(ctx context.Context, sessionID string, limit int) ([]string, error)

	// ListSessions returns the session IDs with stored history, most
	// recently active first.
	ListSessions(ctx context.Context, limit int) ([]string, error)

	// CheckConnectivity verifies the backing store is reachable.
	CheckConnectivity(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}
