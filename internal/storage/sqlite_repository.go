package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteRepository implements HistoryRepository on a local SQLite file.
// Used by `tabula serve` when no PostgreSQL URL is configured: history
// survives restarts without requiring a database server.
type SQLiteRepository struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS query_history (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL,
	question         TEXT NOT NULL,
	dataset          TEXT NOT NULL,
	generated_sql    TEXT NOT NULL,
	generated_pandas TEXT NOT NULL,
	generator        TEXT NOT NULL,
	engine           TEXT NOT NULL DEFAULT '',
	outcome          TEXT NOT NULL,
	error_message    TEXT NOT NULL DEFAULT '',
	row_count        INTEGER NOT NULL DEFAULT 0,
	chart_type       TEXT NOT NULL DEFAULT '',
	duration_ms      INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_history_session
	ON query_history (session_id, created_at);
`

// NewSQLiteRepository opens (or creates) a SQLite history database at the
// given path. Use ":memory:" for a throwaway store.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create history schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Save stores one interaction record.
func (r *SQLiteRepository) Save(ctx context.Context, rec *QueryRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO query_history (
			id, session_id, question, dataset, generated_sql, generated_pandas,
			generator, engine, outcome, error_message, row_count, chart_type,
			duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Question, rec.Dataset, rec.SQL, rec.Pandas,
		rec.Generator, rec.Engine, rec.Outcome, rec.Error,
		rec.RowCount, rec.ChartType, rec.Duration.Milliseconds(),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("storage: failed to save query record: %w", err)
	}
	return nil
}

// Recent returns the most recent records for a session, newest first.
func (r *SQLiteRepository) Recent(ctx context.Context, sessionID string, limit int) ([]*QueryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, question, dataset, generated_sql, generated_pandas,
		       generator, engine, outcome, error_message, row_count, chart_type,
		       duration_ms, created_at
		FROM query_history
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list query records: %w", err)
	}
	defer rows.Close()

	records := []*QueryRecord{}
	for rows.Next() {
		var rec QueryRecord
		var durationMs int64
		var createdAt string
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.Question, &rec.Dataset, &rec.SQL, &rec.Pandas,
			&rec.Generator, &rec.Engine, &rec.Outcome, &rec.Error,
			&rec.RowCount, &rec.ChartType, &durationMs, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage: failed to scan query record: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = ts
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// RecentQuestions returns the most recent distinct questions, newest first.
func (r *SQLiteRepository) RecentQuestions(ctx context.Context, sessionID string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT question FROM (
			SELECT question, MAX(created_at) AS latest
			FROM query_history
			WHERE session_id = ?
			GROUP BY question
		)
		ORDER BY latest DESC
		LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list questions: %w", err)
	}
	defer rows.Close()

	questions := []string{}
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("storage: failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListSessions returns the session IDs with stored history, most
// recently active first.
func (r *SQLiteRepository) ListSessions(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id FROM (
			SELECT session_id, MAX(created_at) AS latest
			FROM query_history
			GROUP BY session_id
		)
		ORDER BY latest DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: failed to scan session id: %w", err)
		}
		sessions = append(sessions, id)
	}
	return sessions, rows.Err()
}

// CheckConnectivity verifies the database is reachable.
func (r *SQLiteRepository) CheckConnectivity(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("storage: sqlite connectivity check failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
