package chart

import (
	"testing"
	"time"

	"github.com/tabula-labs/tabula/internal/engine"
	"github.com/tabula-labs/tabula/internal/errors"
)

func result(columns []string, rows [][]interface{}) *engine.QueryResult {
	return &engine.QueryResult{Columns: columns, Rows: rows, RowCount: len(rows)}
}

func TestWantsChart(t *testing.T) {
	cases := []struct {
		question string
		want     bool
	}{
		{"Show a bar chart of sales by region", true},
		{"Plot revenue per month", true},
		{"What is the breakdown by category?", true},
		{"How many records are there?", false},
		{"Show the first 5 rows", false},
	}
	for _, c := range cases {
		if got := WantsChart(c.question); got != c.want {
			t.Errorf("WantsChart(%q) = %v, want %v", c.question, got, c.want)
		}
	}
}

func TestSelectType(t *testing.T) {
	if got := SelectType("show the share of each category", false); got != TypePie {
		t.Errorf("pie keywords: got %s", got)
	}
	if got := SelectType("plot the monthly trend", false); got != TypeLine {
		t.Errorf("line keywords: got %s", got)
	}
	if got := SelectType("chart sales by region", true); got != TypeLine {
		t.Errorf("temporal label should force line: got %s", got)
	}
	if got := SelectType("chart sales by region", false); got != TypeBar {
		t.Errorf("default should be bar: got %s", got)
	}
}

func TestBuild_BarChart(t *testing.T) {
	r := result([]string{"Region", "total"}, [][]interface{}{
		{"North", int64(120)},
		{"South", int64(80)},
	})

	spec, err := Build("chart total by region", r)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if spec.Type != TypeBar {
		t.Errorf("got type %s, want bar", spec.Type)
	}
	if spec.Label != "Region" || spec.Value != "total" {
		t.Errorf("got label=%s value=%s", spec.Label, spec.Value)
	}
	if len(spec.Labels) != 2 || spec.Values[0] != 120 {
		t.Errorf("got labels=%v values=%v", spec.Labels, spec.Values)
	}
}

func TestBuild_TemporalLabelsBecomeLine(t *testing.T) {
	r := result([]string{"Date", "count"}, [][]interface{}{
		{"2024-01-01", int64(3)},
		{"2024-01-02", int64(5)},
	})

	spec, err := Build("chart records by date", r)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if spec.Type != TypeLine {
		t.Errorf("got type %s, want line", spec.Type)
	}
}

func TestBuild_TimeValuesBecomeLine(t *testing.T) {
	r := result([]string{"Date", "count"}, [][]interface{}{
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), int64(3)},
	})
	spec, err := Build("chart records", r)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if spec.Type != TypeLine {
		t.Errorf("got type %s, want line", spec.Type)
	}
}

func TestBuild_RejectsEmptyResult(t *testing.T) {
	_, err := Build("chart it", result([]string{"a", "b"}, nil))
	if err == nil {
		t.Fatal("expected error for empty result")
	}
	if _, ok := err.(*errors.ErrNotChartable); !ok {
		t.Errorf("got %T, want *errors.ErrNotChartable", err)
	}
}

func TestBuild_RejectsSingleColumn(t *testing.T) {
	r := result([]string{"count"}, [][]interface{}{{int64(5)}})
	if _, err := Build("chart it", r); err == nil {
		t.Fatal("expected error for single-column result")
	}
}

func TestBuild_RejectsAllNumericColumns(t *testing.T) {
	r := result([]string{"a", "b"}, [][]interface{}{
		{int64(1), int64(2)},
	})
	if _, err := Build("chart it", r); err == nil {
		t.Fatal("expected error when no label column exists")
	}
}

func TestBuild_RejectsTooManyRows(t *testing.T) {
	rows := make([][]interface{}, maxChartRows+1)
	for i := range rows {
		rows[i] = []interface{}{"x", int64(i)}
	}
	if _, err := Build("chart it", result([]string{"label", "n"}, rows)); err == nil {
		t.Fatal("expected error for oversized result")
	}
}
