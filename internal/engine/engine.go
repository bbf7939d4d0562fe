// Package engine provides the execution engine interface and registry.
// Engines hold one uploaded dataset as a real table and execute validated
// SELECT statements against it. Engines are stateful per session but thin:
// no planning, no rewriting, no retries.
package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/tabula-labs/tabula/internal/dataset"
)

// Engine executes SQL against a single loaded dataset.
// All implementations must be context-aware and explicit about errors.
type Engine interface {
	// Name returns the engine name ("duckdb", "sqlite").
	Name() string

	// Load (re)creates the dataset table. Loading a new dataset replaces
	// the previous one.
	Load(ctx context.Context, ds *dataset.Dataset) error

	// Execute runs a SELECT statement and returns the full result.
	Execute(ctx context.Context, query string) (*QueryResult, error)

	// Ping checks that the underlying database is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying database. Close is idempotent.
	Close() error
}

// Factory opens a fresh engine instance. Each session gets its own
// instance so datasets never leak across sessions.
type Factory func() (Engine, error)

// QueryResult is the materialized result of a query.
type QueryResult struct {
	Columns  []string          `json:"columns"`
	Rows     [][]interface{}   `json:"rows"`
	RowCount int               `json:"row_count"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ColumnIndex returns the index of the named column, or -1.
func (r *QueryResult) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// CellString renders a single cell for display or CSV export.
func CellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// CSV renders the result as a CSV document with a header row.
func (r *QueryResult) CSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(r.Columns)
	for _, row := range r.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = CellString(v)
		}
		w.Write(record)
	}
	w.Flush()
	return buf.Bytes()
}

// Registry holds the available engine factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given engine name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Open creates a fresh engine instance by name.
func (r *Registry) Open(name string) (Engine, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine: no factory registered for %q", name)
	}
	return f()
}

// Names returns the registered engine names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered factories.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}
