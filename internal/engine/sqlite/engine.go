// Package sqlite provides the SQLite execution engine.
// SQLite (modernc.org/sqlite, pure Go) is the fallback engine for builds
// and platforms where the DuckDB driver is not available.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/tabula-labs/tabula/internal/dataset"
	"github.com/tabula-labs/tabula/internal/engine"

	_ "modernc.org/sqlite" // SQLite driver
)

// Engine implements engine.Engine on an in-memory SQLite database.
type Engine struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Open creates a new in-memory SQLite engine.
func Open() (*Engine, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("sqlite engine: open: %w", err)
	}
	// The in-memory database lives in a single connection.
	db.SetMaxOpenConns(1)
	return &Engine{db: db}, nil
}

// Factory adapts Open to the registry factory signature.
func Factory() (engine.Engine, error) {
	return Open()
}

// Name returns the engine name.
func (e *Engine) Name() string { return "sqlite" }

func mapType(t dataset.ColumnType) string {
	switch t {
	case dataset.TypeInteger, dataset.TypeBoolean:
		return "INTEGER"
	case dataset.TypeFloat:
		return "REAL"
	default:
		// SQLite has no timestamp type; ISO-8601 text compares correctly.
		return "TEXT"
	}
}

// Load (re)creates the dataset table.
func (e *Engine) Load(ctx context.Context, ds *dataset.Dataset) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sqlite engine: context error: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.db == nil {
		return fmt.Errorf("sqlite engine: connection is closed")
	}
	return engine.LoadDataset(ctx, e.db, ds, mapType)
}

// Execute runs a validated SELECT statement.
func (e *Engine) Execute(ctx context.Context, query string) (*engine.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sqlite engine: context error: %w", err)
	}
	if query == "" {
		return nil, fmt.Errorf("sqlite engine: query is empty")
	}

	e.mu.RLock()
	if e.closed || e.db == nil {
		e.mu.RUnlock()
		return nil, fmt.Errorf("sqlite engine: connection is closed")
	}
	db := e.db
	e.mu.RUnlock()

	return engine.ScanAll(ctx, db, "sqlite", query)
}

// Ping checks if the engine is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed || e.db == nil {
		return fmt.Errorf("sqlite engine: connection is closed")
	}
	return e.db.PingContext(ctx)
}

// Close releases the database. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}
