package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory HistoryRepository for development mode
// and tests. Records do not survive restarts.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []*QueryRecord
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Save stores one interaction record.
func (r *MemoryRepository) Save(ctx context.Context, rec *QueryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *rec
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.records = append(r.records, &stored)
	return nil
}

// Recent returns the most recent records for a session, newest first.
func (r *MemoryRepository) Recent(ctx context.Context, sessionID string, limit int) ([]*QueryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*QueryRecord{}
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].SessionID == sessionID {
			rec := *r.records[i]
			out = append(out, &rec)
		}
	}
	return out, nil
}

// RecentQuestions returns the most recent distinct questions, newest first.
func (r *MemoryRepository) RecentQuestions(ctx context.Context, sessionID string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{}
	out := []string{}
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := r.records[i]
		if rec.SessionID != sessionID || seen[rec.Question] {
			continue
		}
		seen[rec.Question] = true
		out = append(out, rec.Question)
	}
	return out, nil
}

// ListSessions returns the session IDs with stored history, most
// recently active first.
func (r *MemoryRepository) ListSessions(ctx context.Context, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{}
	out := []string{}
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		id := r.records[i].SessionID
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// CheckConnectivity always succeeds for the in-memory repository.
func (r *MemoryRepository) CheckConnectivity(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (r *MemoryRepository) Close() error { return nil }

// Len returns the number of stored records (test helper).
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
