package engine

import (
	"context"
	"sync"

	"github.com/tabula-labs/tabula/internal/errors"
)

// Descriptor describes a registered engine for routing purposes.
type Descriptor struct {
	// Name is the unique identifier for this engine.
	Name string

	// Available indicates if the engine is currently usable.
	Available bool

	// Priority is used for selection when multiple engines qualify.
	// Lower numbers = higher priority.
	Priority int
}

// Router selects engines for query execution. Selection is deterministic
// and rule-based: highest-priority available engine wins.
type Router struct {
	mu      sync.RWMutex
	engines map[string]*Descriptor
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{engines: make(map[string]*Descriptor)}
}

// RegisterEngine adds an engine descriptor to the router.
func (r *Router) RegisterEngine(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[d.Name] = d
}

// Select returns the name of the best available engine.
func (r *Router) Select(ctx context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *Descriptor
	for _, d := range r.engines {
		if !d.Available {
			continue
		}
		if best == nil || d.Priority < best.Priority {
			best = d
		}
	}
	if best == nil {
		return "", errors.NewEngineUnavailable("all registered engines are marked unavailable")
	}
	return best.Name, nil
}

// AvailableEngines returns the list of available engine names.
func (r *Router) AvailableEngines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]string, 0, len(r.engines))
	for name, d := range r.engines {
		if d.Available {
			result = append(result, name)
		}
	}
	return result
}

// SetAvailability updates the availability of an engine.
func (r *Router) SetAvailability(name string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.engines[name]; ok {
		d.Available = available
	}
}

// DefaultRouter creates a router with the built-in engines: DuckDB as the
// primary analytical engine, SQLite as the pure-Go fallback.
func DefaultRouter() *Router {
	r := NewRouter()
	r.RegisterEngine(&Descriptor{Name: "duckdb", Available: true, Priority: 1})
	r.RegisterEngine(&Descriptor{Name: "sqlite", Available: true, Priority: 2})
	return r
}
