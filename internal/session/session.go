// Package session tracks per-browser state: the uploaded dataset, its
// engine instance, and the last result kept for CSV export. Question
// history lives in the storage repository, not here.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tabula-labs/tabula/internal/dataset"
	"github.com/tabula-labs/tabula/internal/engine"
)

// Session is the state attached to one browser session.
type Session struct {
	mu sync.Mutex

	// ID is the opaque session identifier stored in the cookie.
	ID string

	// CreatedAt is when the session was first seen.
	CreatedAt time.Time

	lastSeen  time.Time
	ds        *dataset.Dataset
	eng       engine.Engine
	engName   string
	exportCSV []byte
}

// Touch updates the last-seen timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
}

// SetDataset attaches a freshly uploaded dataset and its loaded engine,
// replacing and closing any previous engine. Uploading a new file clears
// the stored export, matching the web flow.
func (s *Session) SetDataset(ds *dataset.Dataset, eng engine.Engine, engineName string) {
	s.mu.Lock()
	old := s.eng
	s.ds = ds
	s.eng = eng
	s.engName = engineName
	s.exportCSV = nil
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// Dataset returns the loaded dataset, or nil.
func (s *Session) Dataset() *dataset.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds
}

// Engine returns the engine holding the dataset and its name.
func (s *Session) Engine() (engine.Engine, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng, s.engName
}

// SetExport stores the CSV rendering of the last successful result.
func (s *Session) SetExport(csv []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exportCSV = csv
}

// Export returns the stored CSV export, or nil.
func (s *Session) Export() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportCSV
}

// close releases the session's engine.
func (s *Session) close() {
	s.mu.Lock()
	eng := s.eng
	s.eng = nil
	s.mu.Unlock()
	if eng != nil {
		eng.Close()
	}
}

// Manager owns all live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewManager creates a session manager. Sessions idle longer than ttl are
// removed by Prune.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// New creates a session with a fresh ID.
func (m *Manager) New() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		lastSeen:  time.Now(),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with the given ID, or nil.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// GetOrCreate returns the session with the given ID, creating one when
// the ID is unknown or empty. A well-formed ID the manager has not seen,
// such as a cookie issued before a restart, is adopted rather than
// replaced so the client keeps its stored history.
func (m *Manager) GetOrCreate(id string) *Session {
	if id != "" {
		if s := m.Get(id); s != nil {
			s.Touch()
			return s
		}
		if uuid.Validate(id) == nil {
			return m.adopt(id)
		}
	}
	return m.New()
}

// adopt registers a session under a client-supplied ID.
func (m *Manager) adopt(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		lastSeen:  time.Now(),
	}
	m.sessions[id] = s
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Prune removes sessions idle longer than the TTL and closes their
// engines. Returns the number of sessions removed.
func (m *Manager) Prune() int {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	expired := []*Session{}
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if idle {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	return len(expired)
}

// Close releases every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
