package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSetDataset_ClearsExport(t *testing.T) {
	s := &Session{ID: "s1"}
	s.SetExport([]byte("a,b\n1,2\n"))
	if s.Export() == nil {
		t.Fatal("export should be stored")
	}

	s.SetDataset(nil, nil, "")
	if s.Export() != nil {
		t.Error("uploading a new dataset should clear the export")
	}
}

func TestManager_GetOrCreate(t *testing.T) {
	m := NewManager(time.Hour)

	s1 := m.GetOrCreate("")
	if s1 == nil || s1.ID == "" {
		t.Fatal("expected a fresh session")
	}

	s2 := m.GetOrCreate(s1.ID)
	if s2 != s1 {
		t.Error("existing ID should return the same session")
	}

	s3 := m.GetOrCreate("not-a-session-id")
	if s3 == s1 {
		t.Error("malformed ID should create a new session")
	}
	if s3.ID == "not-a-session-id" {
		t.Error("malformed ID must not be adopted")
	}
	if m.Len() != 2 {
		t.Errorf("got %d sessions, want 2", m.Len())
	}
}

func TestManager_GetOrCreateAdoptsWellFormedID(t *testing.T) {
	m := NewManager(time.Hour)

	// A cookie issued before a restart carries an ID this manager has
	// never seen. Adopting it keeps stored history reachable.
	id := uuid.NewString()
	s := m.GetOrCreate(id)
	if s.ID != id {
		t.Fatalf("got session ID %q, want adopted %q", s.ID, id)
	}
	if m.GetOrCreate(id) != s {
		t.Error("adopted ID should return the same session on repeat")
	}
}

func TestManager_PruneRemovesIdleSessions(t *testing.T) {
	m := NewManager(time.Millisecond)

	s := m.New()
	time.Sleep(5 * time.Millisecond)

	fresh := m.New()
	fresh.Touch()

	removed := m.Prune()
	if removed != 1 {
		t.Fatalf("got %d removed, want 1", removed)
	}
	if m.Get(s.ID) != nil {
		t.Error("idle session should be gone")
	}
	if m.Get(fresh.ID) == nil {
		t.Error("fresh session should survive")
	}
}

func TestManager_Close(t *testing.T) {
	m := NewManager(time.Hour)
	m.New()
	m.New()

	m.Close()
	if m.Len() != 0 {
		t.Errorf("got %d sessions after Close, want 0", m.Len())
	}
}
