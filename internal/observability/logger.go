// Package observability provides structured query logging.
// Every ask must emit: query_id, session, question, dataset, generator,
// engine, execution time, outcome, and error (if any). Silent failures
// are forbidden.
package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// QueryLogEntry contains all required fields for query logging.
type QueryLogEntry struct {
	// QueryID is the unique identifier for this query.
	// Required: every query must have an ID.
	QueryID string

	// Session identifies the browser session.
	// Required: every query must be attributed to a session.
	Session string

	// Question is the natural-language question asked.
	Question string

	// Dataset is the dataset table name, empty if no dataset was loaded.
	Dataset string

	// Generator produced the SQL ("gemini", "baseline").
	Generator string

	// Engine is the execution engine, empty if the query failed before
	// execution.
	Engine string

	// ExecutionTime is how long the ask pipeline took.
	// Must be non-negative.
	ExecutionTime time.Duration

	// Outcome is the result status: "success", "error", "rejected".
	Outcome string

	// Error contains the failure message, empty for successful queries.
	Error string

	// ChartType is the rendered chart type, empty when no chart was built.
	ChartType string
}

// Validate checks that all required fields are present.
func (e *QueryLogEntry) Validate() error {
	if e.QueryID == "" {
		return fmt.Errorf("observability: query_id is required")
	}
	if e.Session == "" {
		return fmt.Errorf("observability: session is required")
	}
	if e.ExecutionTime < 0 {
		return fmt.Errorf("observability: execution_time cannot be negative")
	}
	return nil
}

// QueryLogger is the interface for query logging.
type QueryLogger interface {
	// LogQuery logs a query execution event.
	// Returns an error if logging fails or the entry is invalid.
	LogQuery(ctx context.Context, entry QueryLogEntry) error

	// GetAuditSummary returns aggregated audit statistics.
	GetAuditSummary() *AuditSummary
}

// AuditSummary represents aggregated audit statistics. Raw questions and
// data values are never exposed here, only counts.
type AuditSummary struct {
	SuccessCount    int               `json:"success_count"`
	FailureCount    int               `json:"failure_count"`
	TopFailures     []FailureStat     `json:"top_failures"`
	QueriesByEngine []EngineQueryStat `json:"queries_by_engine"`
}

// FailureStat represents failure reason statistics.
type FailureStat struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// EngineQueryStat represents per-engine query counts.
type EngineQueryStat struct {
	Engine string `json:"engine"`
	Count  int    `json:"count"`
}

// jsonLogOutput is the structured format for JSON logs.
type jsonLogOutput struct {
	Timestamp       string `json:"timestamp"`
	Level           string `json:"level"`
	QueryID         string `json:"query_id"`
	Session         string `json:"session"`
	Question        string `json:"question"`
	Dataset         string `json:"dataset,omitempty"`
	Generator       string `json:"generator,omitempty"`
	Engine          string `json:"engine,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	Outcome         string `json:"outcome,omitempty"`
	Error           string `json:"error,omitempty"`
	ChartType       string `json:"chart_type,omitempty"`
}

func entryToOutput(entry QueryLogEntry) jsonLogOutput {
	level := "info"
	if entry.Error != "" {
		level = "error"
	}
	return jsonLogOutput{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Level:           level,
		QueryID:         entry.QueryID,
		Session:         entry.Session,
		Question:        entry.Question,
		Dataset:         entry.Dataset,
		Generator:       entry.Generator,
		Engine:          entry.Engine,
		ExecutionTimeMs: entry.ExecutionTime.Milliseconds(),
		Outcome:         entry.Outcome,
		Error:           entry.Error,
		ChartType:       entry.ChartType,
	}
}

// JSONLogger implements QueryLogger with JSON output.
type JSONLogger struct {
	writer  io.Writer
	entries []QueryLogEntry
	mu      sync.RWMutex
}

// NewJSONLogger creates a new JSON logger writing to the given writer.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{
		writer:  w,
		entries: make([]QueryLogEntry, 0),
	}
}

// LogQuery logs a query execution event as JSON.
func (l *JSONLogger) LogQuery(ctx context.Context, entry QueryLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(entryToOutput(entry))
	if err != nil {
		return fmt.Errorf("observability: failed to marshal log: %w", err)
	}
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("observability: failed to write log: %w", err)
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return nil
}

// GetAuditSummary returns aggregated audit statistics.
func (l *JSONLogger) GetAuditSummary() *AuditSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := &AuditSummary{
		TopFailures:     []FailureStat{},
		QueriesByEngine: []EngineQueryStat{},
	}

	failures := make(map[string]int)
	engines := make(map[string]int)
	for _, entry := range l.entries {
		if entry.Error == "" {
			summary.SuccessCount++
		} else {
			summary.FailureCount++
			failures[entry.Error]++
		}
		if entry.Engine != "" {
			engines[entry.Engine]++
		}
	}

	for reason, count := range failures {
		summary.TopFailures = append(summary.TopFailures, FailureStat{Reason: reason, Count: count})
	}
	sort.Slice(summary.TopFailures, func(i, j int) bool {
		return summary.TopFailures[i].Count > summary.TopFailures[j].Count
	})
	if len(summary.TopFailures) > 5 {
		summary.TopFailures = summary.TopFailures[:5]
	}

	for engine, count := range engines {
		summary.QueriesByEngine = append(summary.QueriesByEngine, EngineQueryStat{Engine: engine, Count: count})
	}
	sort.Slice(summary.QueriesByEngine, func(i, j int) bool {
		return summary.QueriesByEngine[i].Count > summary.QueriesByEngine[j].Count
	})

	return summary
}

// NoopLogger is a logger that discards all logs.
// Useful for testing or when logging is disabled.
type NoopLogger struct{}

// NewNoopLogger creates a new no-op logger.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

// LogQuery does nothing and always succeeds.
func (l *NoopLogger) LogQuery(ctx context.Context, entry QueryLogEntry) error {
	return nil
}

// GetAuditSummary returns an empty summary for the no-op logger.
func (l *NoopLogger) GetAuditSummary() *AuditSummary {
	return &AuditSummary{
		TopFailures:     []FailureStat{},
		QueriesByEngine: []EngineQueryStat{},
	}
}

// PersistentLogger implements QueryLogger with PostgreSQL persistence.
// Audit entries survive gateway restarts.
type PersistentLogger struct {
	db     *sql.DB
	writer io.Writer // optional: also write to stdout for debugging
}

// NewPersistentLogger creates a logger that persists audit entries.
func NewPersistentLogger(db *sql.DB) (*PersistentLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	return &PersistentLogger{db: db}, nil
}

// NewPersistentLoggerWithWriter creates a logger that persists to both
// the database and a writer.
func NewPersistentLoggerWithWriter(db *sql.DB, w io.Writer) (*PersistentLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	return &PersistentLogger{db: db, writer: w}, nil
}

// LogQuery persists a query log entry to the audit_logs table.
func (l *PersistentLogger) LogQuery(ctx context.Context, entry QueryLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			query_id, session_id, question, dataset, generator, engine,
			outcome, error_message, chart_type, execution_time_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.QueryID,
		entry.Session,
		entry.Question,
		nullableString(entry.Dataset),
		nullableString(entry.Generator),
		nullableString(entry.Engine),
		nullableString(entry.Outcome),
		nullableString(entry.Error),
		nullableString(entry.ChartType),
		entry.ExecutionTime.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("observability: failed to persist audit log: %w", err)
	}

	if l.writer != nil {
		if data, err := json.Marshal(entryToOutput(entry)); err == nil {
			l.writer.Write(append(data, '\n'))
		}
	}
	return nil
}

// GetAuditSummary returns aggregated audit statistics from the database.
func (l *PersistentLogger) GetAuditSummary() *AuditSummary {
	summary := &AuditSummary{
		TopFailures:     []FailureStat{},
		QueriesByEngine: []EngineQueryStat{},
	}

	ctx := context.Background()

	row := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_logs WHERE error_message IS NULL OR error_message = ''
	`)
	row.Scan(&summary.SuccessCount)

	row = l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_logs WHERE error_message IS NOT NULL AND error_message != ''
	`)
	row.Scan(&summary.FailureCount)

	rows, err := l.db.QueryContext(ctx, `
		SELECT error_message, COUNT(*) AS cnt
		FROM audit_logs
		WHERE error_message IS NOT NULL AND error_message != ''
		GROUP BY error_message
		ORDER BY cnt DESC
		LIMIT 5
	`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var reason string
			var count int
			if rows.Scan(&reason, &count) == nil {
				summary.TopFailures = append(summary.TopFailures, FailureStat{Reason: reason, Count: count})
			}
		}
	}

	rows, err = l.db.QueryContext(ctx, `
		SELECT engine, COUNT(*) AS cnt
		FROM audit_logs
		WHERE engine IS NOT NULL AND engine != ''
		GROUP BY engine
		ORDER BY cnt DESC
	`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var engine string
			var count int
			if rows.Scan(&engine, &count) == nil {
				summary.QueriesByEngine = append(summary.QueriesByEngine, EngineQueryStat{Engine: engine, Count: count})
			}
		}
	}

	return summary
}

// nullableString converts empty strings to nil for SQL NULL.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
