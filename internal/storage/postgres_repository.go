package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresRepository implements HistoryRepository on PostgreSQL.
// This is the production implementation; the gateway runs migrations on
// startup before constructing it.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a PostgreSQL repository over an open
// connection pool. The caller owns connection lifecycle configuration.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save stores one interaction record.
func (r *PostgresRepository) Save(ctx context.Context, rec *QueryRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO query_history (
			id, session_id, question, dataset, generated_sql, generated_pandas,
			generator, engine, outcome, error_message, row_count, chart_type,
			duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.SessionID, rec.Question, rec.Dataset, rec.SQL, rec.Pandas,
		rec.Generator, nullable(rec.Engine), rec.Outcome, nullable(rec.Error),
		rec.RowCount, nullable(rec.ChartType), rec.Duration.Milliseconds(), createdAt,
	)
	if err != nil {
		return fmt.Errorf("storage: failed to save query record: %w", err)
	}
	return nil
}

// Recent returns the most recent records for a session, newest first.
func (r *PostgresRepository) Recent(ctx context.Context, sessionID string, limit int) ([]*QueryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, question, dataset, generated_sql, generated_pandas,
		       generator, COALESCE(engine, ''), outcome, COALESCE(error_message, ''),
		       row_count, COALESCE(chart_type, ''), duration_ms, created_at
		FROM query_history
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list query records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RecentQuestions returns the most recent distinct questions, newest first.
func (r *PostgresRepository) RecentQuestions(ctx context.Context, sessionID string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT question FROM (
			SELECT question, MAX(created_at) AS latest
			FROM query_history
			WHERE session_id = $1
			GROUP BY question
		) q
		ORDER BY latest DESC
		LIMIT $2`,
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
func (r *PostgresRepository) ListSessions(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id FROM (
			SELECT session_id, MAX(created_at) AS latest
			FROM query_history
			GROUP BY session_id
		) s
		ORDER BY latest DESC
		LIMIT $1`,
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
func (r *PostgresRepository) CheckConnectivity(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("storage: postgres connectivity check failed: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// scanRecords reads QueryRecord rows; shared with the SQLite repository.
func scanRecords(rows *sql.Rows) ([]*QueryRecord, error) {
	records := []*QueryRecord{}
	for rows.Next() {
		var rec QueryRecord
		var durationMs int64
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.Question, &rec.Dataset, &rec.SQL, &rec.Pandas,
			&rec.Generator, &rec.Engine, &rec.Outcome, &rec.Error,
			&rec.RowCount, &rec.ChartType, &durationMs, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: failed to scan query record: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// nullable converts empty strings to nil for SQL NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
