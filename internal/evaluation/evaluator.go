package evaluation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tabula-labs/tabula/internal/dataset"
	"github.com/tabula-labs/tabula/internal/engine"
	"github.com/tabula-labs/tabula/internal/llm"
	"github.com/tabula-labs/tabula/internal/sqlguard"
)

// DefaultTargetAccuracy is the accuracy bar a generator must clear.
const DefaultTargetAccuracy = 0.9

// CaseResult is the outcome of one evaluated case.
type CaseResult struct {
	Case     Case          `json:"case"`
	Passed   bool          `json:"passed"`
	SQL      string        `json:"sql"`
	Got      string        `json:"got,omitempty"`
	RowCount int           `json:"row_count"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// CategoryStat is accuracy within one case category.
type CategoryStat struct {
	Category string  `json:"category"`
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Accuracy float64 `json:"accuracy"`
}

// Report aggregates an evaluation run.
type Report struct {
	Generator   string         `json:"generator"`
	Total       int            `json:"total"`
	Passed      int            `json:"passed"`
	Accuracy    float64        `json:"accuracy"`
	Target      float64        `json:"target"`
	MeetsTarget bool           `json:"meets_target"`
	Categories  []CategoryStat `json:"categories"`
	Results     []CaseResult   `json:"results"`
}

// Evaluator runs ground-truth cases against one generator, executing the
// generated SQL on a real engine so the comparison covers the full
// pipeline, not just text similarity.
type Evaluator struct {
	generator llm.Generator
	factory   engine.Factory
	validator *sqlguard.Validator
	target    float64
}

// NewEvaluator creates an evaluator. A zero target uses
// DefaultTargetAccuracy.
func NewEvaluator(generator llm.Generator, factory engine.Factory, target float64) *Evaluator {
	if target <= 0 {
		target = DefaultTargetAccuracy
	}
	return &Evaluator{
		generator: generator,
		factory:   factory,
		validator: sqlguard.NewValidator(),
		target:    target,
	}
}

// Evaluate runs every case against the dataset and returns the report.
func (e *Evaluator) Evaluate(ctx context.Context, ds *dataset.Dataset, cases []Case) (*Report, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("evaluation: no cases to run")
	}

	eng, err := e.factory()
	if err != nil {
		return nil, fmt.Errorf("evaluation: opening engine: %w", err)
	}
	defer eng.Close()

	if err := eng.Load(ctx, ds); err != nil {
		return nil, fmt.Errorf("evaluation: loading dataset: %w", err)
	}

	report := &Report{
		Generator: e.generator.Name(),
		Total:     len(cases),
		Target:    e.target,
	}

	for _, c := range cases {
		result := e.runCase(ctx, eng, ds, c)
		if result.Passed {
			report.Passed++
		}
		report.Results = append(report.Results, result)
	}

	report.Accuracy = float64(report.Passed) / float64(report.Total)
	report.MeetsTarget = report.Accuracy >= e.target
	report.Categories = categoryStats(report.Results)
	return report, nil
}

func (e *Evaluator) runCase(ctx context.Context, eng engine.Engine, ds *dataset.Dataset, c Case) CaseResult {
	started := time.Now()
	result := CaseResult{Case: c}
	defer func() { result.Duration = time.Since(started) }()

	analysis, err := e.generator.GenerateAnalysis(ctx, ds.SchemaSummary(), ds.Name, c.Question)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.SQL = analysis.SQL

	checked, err := e.validator.Validate(analysis.SQL, ds.Name)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	qr, err := eng.Execute(ctx, checked.SQL)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.RowCount = qr.RowCount

	if c.Expected != "" {
		got, ok := scalarOf(qr)
		if !ok {
			result.Error = fmt.Sprintf("expected a single value, got %d rows x %d columns", qr.RowCount, len(qr.Columns))
			return result
		}
		result.Got = got
		result.Passed = ValuesMatch(c.Expected, got)
		return result
	}

	result.Passed = qr.RowCount == c.ExpectedRows
	if !result.Passed {
		result.Error = fmt.Sprintf("expected %d rows, got %d", c.ExpectedRows, qr.RowCount)
	}
	return result
}

// scalarOf extracts the single cell of a 1x1 result.
func scalarOf(qr *engine.QueryResult) (string, bool) {
	if qr.RowCount != 1 || len(qr.Columns) != 1 || len(qr.Rows) != 1 || len(qr.Rows[0]) != 1 {
		return "", false
	}
	return engine.CellString(qr.Rows[0][0]), true
}

// ValuesMatch compares an expected value to an engine result cell.
// Numeric values compare with a small tolerance so DOUBLE rendering
// differences between engines do not fail cases.
func ValuesMatch(expected, got string) bool {
	expected = strings.TrimSpace(expected)
	got = strings.TrimSpace(got)
	if expected == got {
		return true
	}

	ef, eerr := strconv.ParseFloat(expected, 64)
	gf, gerr := strconv.ParseFloat(got, 64)
	if eerr != nil || gerr != nil {
		return strings.EqualFold(expected, got)
	}

	diff := ef - gf
	if diff < 0 {
		diff = -diff
	}
	tolerance := 1e-6
	if ef != 0 {
		abs := ef
		if abs < 0 {
			abs = -abs
		}
		tolerance = abs * 1e-6
	}
	return diff <= tolerance
}

func categoryStats(results []CaseResult) []CategoryStat {
	byCategory := map[string]*CategoryStat{}
	for _, r := range results {
		cat := r.Case.Category
		if cat == "" {
			cat = "uncategorized"
		}
		stat, ok := byCategory[cat]
		if !ok {
			stat = &CategoryStat{Category: cat}
			byCategory[cat] = stat
		}
		stat.Total++
		if r.Passed {
			stat.Passed++
		}
	}

	stats := make([]CategoryStat, 0, len(byCategory))
	for _, stat := range byCategory {
		stat.Accuracy = float64(stat.Passed) / float64(stat.Total)
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Category < stats[j].Category })
	return stats
}
