package evaluation

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tabula-labs/tabula/internal/dataset"
)

// Comparison holds reports for two generators run on the same cases.
type Comparison struct {
	Primary  *Report `json:"primary"`
	Baseline *Report `json:"baseline"`
}

// Compare evaluates two generators on identical cases and dataset.
func Compare(ctx context.Context, primary, baseline *Evaluator, ds *dataset.Dataset, cases []Case) (*Comparison, error) {
	p, err := primary.Evaluate(ctx, ds, cases)
	if err != nil {
		return nil, err
	}
	b, err := baseline.Evaluate(ctx, ds, cases)
	if err != nil {
		return nil, err
	}
	return &Comparison{Primary: p, Baseline: b}, nil
}

// String renders a terminal summary of the report.
func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generator: %s\n", r.Generator)
	fmt.Fprintf(&sb, "Accuracy: %.1f%% (%d/%d), target %.0f%%\n",
		r.Accuracy*100, r.Passed, r.Total, r.Target*100)
	if r.MeetsTarget {
		sb.WriteString("Target: met\n")
	} else {
		sb.WriteString("Target: NOT met\n")
	}
	for _, cat := range r.Categories {
		fmt.Fprintf(&sb, "  %-14s %.1f%% (%d/%d)\n", cat.Category, cat.Accuracy*100, cat.Passed, cat.Total)
	}
	for _, res := range r.Results {
		if !res.Passed {
			fmt.Fprintf(&sb, "  FAIL %s: %s\n", res.Case.ID, res.Error)
		}
	}
	return sb.String()
}

// WriteCSV writes per-case results as CSV for offline analysis.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "category", "question", "passed", "sql", "got", "row_count", "error", "duration"}); err != nil {
		return err
	}
	for _, res := range r.Results {
		record := []string{
			res.Case.ID,
			res.Case.Category,
			res.Case.Question,
			strconv.FormatBool(res.Passed),
			res.SQL,
			res.Got,
			strconv.Itoa(res.RowCount),
			res.Error,
			res.Duration.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// String renders the side-by-side comparison.
func (c *Comparison) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-12s %8s %8s\n", "generator", "passed", "accuracy")
	fmt.Fprintf(&sb, "%-12s %5d/%-2d %7.1f%%\n", c.Primary.Generator, c.Primary.Passed, c.Primary.Total, c.Primary.Accuracy*100)
	fmt.Fprintf(&sb, "%-12s %5d/%-2d %7.1f%%\n", c.Baseline.Generator, c.Baseline.Passed, c.Baseline.Total, c.Baseline.Accuracy*100)

	delta := (c.Primary.Accuracy - c.Baseline.Accuracy) * 100
	fmt.Fprintf(&sb, "delta: %+.1f points\n", delta)
	return sb.String()
}
