package engine

import (
	"strings"
	"testing"
	"time"
)

func TestQueryResult_CSV(t *testing.T) {
	r := &QueryResult{
		Columns: []string{"Region", "total"},
		Rows: [][]interface{}{
			{"North", int64(120)},
			{"South, West", 3.5},
			{nil, time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)},
		},
		RowCount: 3,
	}

	got := string(r.CSV())
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), got)
	}
	if lines[0] != "Region,total" {
		t.Errorf("got header %q", lines[0])
	}
	if lines[1] != "North,120" {
		t.Errorf("got row %q", lines[1])
	}
	if lines[2] != `"South, West",3.5` {
		t.Errorf("comma in cell should be quoted, got %q", lines[2])
	}
	if lines[3] != ",2024-01-02 10:30:00" {
		t.Errorf("nil and time rendering, got %q", lines[3])
	}
}

func TestCellString(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{[]byte("bytes"), "bytes"},
		{int64(7), "7"},
		{3.10, "3.1"},
		{true, "true"},
		{time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "2024-06-01 00:00:00"},
	}
	for _, c := range cases {
		if got := CellString(c.in); got != c.want {
			t.Errorf("CellString(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestQueryResult_ColumnIndex(t *testing.T) {
	r := &QueryResult{Columns: []string{"a", "b"}}
	if got := r.ColumnIndex("b"); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
	if got := r.ColumnIndex("missing"); got != -1 {
		t.Errorf("got %d, want -1", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Len() != 0 {
		t.Fatalf("new registry should be empty")
	}

	r.Register("fake", func() (Engine, error) { return nil, nil })
	r.Register("another", func() (Engine, error) { return nil, nil })

	if r.Len() != 2 {
		t.Errorf("got %d factories, want 2", r.Len())
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "another" || names[1] != "fake" {
		t.Errorf("got %v, want sorted names", names)
	}

	if _, err := r.Open("missing"); err == nil {
		t.Error("opening an unregistered engine should fail")
	}
	if _, err := r.Open("fake"); err != nil {
		t.Errorf("Open: %v", err)
	}
}
