package engine

import (
	"context"
	"testing"

	"github.com/tabula-labs/tabula/internal/errors"
)

func TestRouter_SelectPicksLowestPriority(t *testing.T) {
	r := NewRouter()
	r.RegisterEngine(&Descriptor{Name: "duckdb", Available: true, Priority: 1})
	r.RegisterEngine(&Descriptor{Name: "sqlite", Available: true, Priority: 2})

	name, err := r.Select(context.Background())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if name != "duckdb" {
		t.Errorf("got %q, want duckdb", name)
	}
}

func TestRouter_SelectSkipsUnavailable(t *testing.T) {
	r := DefaultRouter()
	r.SetAvailability("duckdb", false)

	name, err := r.Select(context.Background())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if name != "sqlite" {
		t.Errorf("got %q, want sqlite fallback", name)
	}
}

func TestRouter_SelectFailsWhenNothingAvailable(t *testing.T) {
	r := DefaultRouter()
	r.SetAvailability("duckdb", false)
	r.SetAvailability("sqlite", false)

	_, err := r.Select(context.Background())
	if err == nil {
		t.Fatal("expected error when all engines are unavailable")
	}
	if _, ok := err.(*errors.ErrEngineUnavailable); !ok {
		t.Errorf("got %T, want *errors.ErrEngineUnavailable", err)
	}
}

func TestRouter_AvailableEngines(t *testing.T) {
	r := DefaultRouter()
	if got := len(r.AvailableEngines()); got != 2 {
		t.Errorf("got %d available engines, want 2", got)
	}
	r.SetAvailability("duckdb", false)
	available := r.AvailableEngines()
	if len(available) != 1 || available[0] != "sqlite" {
		t.Errorf("got %v, want [sqlite]", available)
	}
}
