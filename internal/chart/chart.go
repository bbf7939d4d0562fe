// Package chart decides whether a question wants a visualization and
// builds a renderable spec from a query result. Three chart types are
// supported: bar, line, and pie. The decision is keyword-based, the spec
// is data only; rendering happens client-side.
package chart

import (
	"strconv"
	"strings"
	"time"

	"github.com/tabula-labs/tabula/internal/engine"
	"github.com/tabula-labs/tabula/internal/errors"
)

// Type is a supported chart type.
type Type string

const (
	TypeBar  Type = "bar"
	TypeLine Type = "line"
	TypePie  Type = "pie"
)

// Spec is a renderable chart: one label series and one numeric series.
type Spec struct {
	Type   Type      `json:"type"`
	Title  string    `json:"title"`
	Label  string    `json:"label"`
	Value  string    `json:"value"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// maxChartRows caps chart size; beyond this a chart stops being readable.
const maxChartRows = 50

var chartKeywords = []string{
	"chart", "plot", "graph", "visualize", "visualise", "visualization",
	"trend", "distribution", "breakdown", "compare", "comparison",
}

var pieKeywords = []string{
	"pie", "share", "proportion", "percentage", "composition", "split",
}

var lineKeywords = []string{
	"trend", "over time", "timeline", "time series", "growth",
	"monthly", "weekly", "daily", "yearly", "per month", "per day", "per year",
}

// WantsChart reports whether the question asks for a visualization.
func WantsChart(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range chartKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// SelectType picks the chart type from question keywords and the label
// column: pie beats line beats bar, temporal labels force a line.
func SelectType(question string, temporalLabel bool) Type {
	q := strings.ToLower(question)
	for _, kw := range pieKeywords {
		if strings.Contains(q, kw) {
			return TypePie
		}
	}
	for _, kw := range lineKeywords {
		if strings.Contains(q, kw) {
			return TypeLine
		}
	}
	if temporalLabel {
		return TypeLine
	}
	return TypeBar
}

// Build constructs a chart spec from a query result: the first
// non-numeric column becomes the label series, the first numeric column
// the value series. Returns ErrNotChartable when the shape does not fit.
func Build(question string, result *engine.QueryResult) (*Spec, error) {
	if result == nil || result.RowCount == 0 {
		return nil, errors.NewNotChartable("result has no rows")
	}
	if result.RowCount > maxChartRows {
		return nil, errors.NewNotChartable("result has too many rows to chart")
	}
	if len(result.Columns) < 2 {
		return nil, errors.NewNotChartable("result needs at least a label column and a value column")
	}

	labelIdx, valueIdx := -1, -1
	temporal := false
	for i := range result.Columns {
		numeric := columnIsNumeric(result, i)
		if numeric && valueIdx == -1 {
			valueIdx = i
		}
		if !numeric && labelIdx == -1 {
			labelIdx = i
			temporal = columnIsTemporal(result, i)
		}
	}
	if labelIdx == -1 || valueIdx == -1 {
		return nil, errors.NewNotChartable("result needs one label column and one numeric column")
	}

	labels := make([]string, 0, result.RowCount)
	values := make([]float64, 0, result.RowCount)
	for _, row := range result.Rows {
		v, ok := toFloat(row[valueIdx])
		if !ok {
			return nil, errors.NewNotChartable("value column contains non-numeric cells")
		}
		labels = append(labels, engine.CellString(row[labelIdx]))
		values = append(values, v)
	}

	return &Spec{
		Type:   SelectType(question, temporal),
		Title:  question,
		Label:  result.Columns[labelIdx],
		Value:  result.Columns[valueIdx],
		Labels: labels,
		Values: values,
	}, nil
}

// columnIsNumeric checks the first non-nil cell of a column.
func columnIsNumeric(result *engine.QueryResult, idx int) bool {
	for _, row := range result.Rows {
		if row[idx] == nil {
			continue
		}
		_, ok := toFloat(row[idx])
		return ok
	}
	return false
}

// columnIsTemporal checks whether a label column holds times or
// date-shaped strings.
func columnIsTemporal(result *engine.QueryResult, idx int) bool {
	for _, row := range result.Rows {
		switch v := row[idx].(type) {
		case nil:
			continue
		case time.Time:
			return true
		case string:
			return looksLikeDate(v)
		case []byte:
			return looksLikeDate(string(v))
		default:
			return false
		}
	}
	return false
}

func looksLikeDate(s string) bool {
	if len(s) >= 10 {
		if _, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return true
		}
	}
	if len(s) >= 7 {
		if _, err := time.Parse("2006-01", s[:7]); err == nil {
			return true
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
