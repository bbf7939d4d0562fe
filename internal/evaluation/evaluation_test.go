package evaluation

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/tabula-labs/tabula/internal/dataset"
	"github.com/tabula-labs/tabula/internal/engine"
	"github.com/tabula-labs/tabula/internal/engine/sqlite"
	"github.com/tabula-labs/tabula/internal/llm"
)

func TestDefaultCasesPassWithBaseline(t *testing.T) {
	ds, err := dataset.SampleSales(200, 42)
	if err != nil {
		t.Fatalf("SampleSales: %v", err)
	}

	ev := NewEvaluator(llm.NewBaselineGenerator(), engine.Factory(sqlite.Factory), 0)
	report, err := ev.Evaluate(context.Background(), ds, DefaultCases())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	for _, r := range report.Results {
		if !r.Passed {
			t.Errorf("case %s failed: sql=%q got=%q rows=%d err=%s",
				r.Case.ID, r.SQL, r.Got, r.RowCount, r.Error)
		}
	}
	if !report.MeetsTarget {
		t.Errorf("accuracy %.2f below target %.2f", report.Accuracy, report.Target)
	}
	if report.Generator != "baseline" {
		t.Errorf("got generator %q", report.Generator)
	}
}

func TestEvaluateRequiresCases(t *testing.T) {
	ds, _ := dataset.SampleSales(10, 1)
	ev := NewEvaluator(llm.NewBaselineGenerator(), engine.Factory(sqlite.Factory), 0)
	if _, err := ev.Evaluate(context.Background(), ds, nil); err == nil {
		t.Fatal("expected error for empty case list")
	}
}

func TestValuesMatch(t *testing.T) {
	cases := []struct {
		expected, got string
		want          bool
	}{
		{"200", "200", true},
		{"200", "200.0", true},
		{"3.14", "3.1400000001", true},
		{"North", "north", true},
		{"North", "South", false},
		{"200", "201", false},
		{" 42 ", "42", true},
	}
	for _, c := range cases {
		if got := ValuesMatch(c.expected, c.got); got != c.want {
			t.Errorf("ValuesMatch(%q, %q) = %v, want %v", c.expected, c.got, got, c.want)
		}
	}
}

func TestLoadCases(t *testing.T) {
	yaml := `
cases:
  - id: count
    category: aggregation
    question: "How many records are there?"
    expected: "10"
`
	loaded, err := LoadCases(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadCases: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "count" {
		t.Errorf("got %+v", loaded)
	}
}

func TestLoadCasesRejectsInvalid(t *testing.T) {
	missing := `
cases:
  - id: broken
    question: "what?"
`
	if _, err := LoadCases(strings.NewReader(missing)); err == nil {
		t.Error("case without expectation should be rejected")
	}

	if _, err := LoadCases(strings.NewReader("cases: []")); err == nil {
		t.Error("empty case list should be rejected")
	}
}

func TestDefaultCasesAreValid(t *testing.T) {
	cases := DefaultCases()
	if len(cases) == 0 {
		t.Fatal("no default cases")
	}
	for _, c := range cases {
		if err := c.Validate(); err != nil {
			t.Errorf("case %s: %v", c.ID, err)
		}
	}
}

func TestReportString(t *testing.T) {
	report := &Report{
		Generator:   "baseline",
		Total:       2,
		Passed:      1,
		Accuracy:    0.5,
		Target:      0.9,
		MeetsTarget: false,
		Categories: []CategoryStat{
			{Category: "aggregation", Total: 2, Passed: 1, Accuracy: 0.5},
		},
		Results: []CaseResult{
			{Case: Case{ID: "ok"}, Passed: true},
			{Case: Case{ID: "bad"}, Error: "boom"},
		},
	}
	out := report.String()
	if !strings.Contains(out, "baseline") || !strings.Contains(out, "50.0%") {
		t.Errorf("report summary missing fields:\n%s", out)
	}
	if !strings.Contains(out, "bad") {
		t.Errorf("failing case should be listed:\n%s", out)
	}
}

func TestReportWriteCSV(t *testing.T) {
	report := &Report{
		Results: []CaseResult{
			{Case: Case{ID: "count", Category: "aggregation", Question: "How many?"}, Passed: true, SQL: "SELECT 1", Got: "1", RowCount: 1},
		},
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header plus one row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,category,question") {
		t.Errorf("got header %q", lines[0])
	}
}

func TestCompare(t *testing.T) {
	ds, err := dataset.SampleSales(50, 7)
	if err != nil {
		t.Fatalf("SampleSales: %v", err)
	}

	baseline := llm.NewBaselineGenerator()
	primary := NewEvaluator(baseline, engine.Factory(sqlite.Factory), 0)
	secondary := NewEvaluator(baseline, engine.Factory(sqlite.Factory), 0)

	cmp, err := Compare(context.Background(), primary, secondary, ds, DefaultCases()[:2])
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp.Primary == nil || cmp.Baseline == nil {
		t.Fatal("comparison should hold both reports")
	}
	if cmp.Primary.Total != 2 {
		t.Errorf("got %d cases, want 2", cmp.Primary.Total)
	}
}
