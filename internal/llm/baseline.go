package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tabula-labs/tabula/internal/errors"
)

// BaselineGenerator is a keyword/template generator that needs no model.
// It serves two purposes: a degraded mode when no API key is configured,
// and the non-LLM arm of the evaluation harness.
type BaselineGenerator struct{}

// NewBaselineGenerator creates a baseline generator.
func NewBaselineGenerator() *BaselineGenerator {
	return &BaselineGenerator{}
}

// Name returns the generator name.
func (b *BaselineGenerator) Name() string { return "baseline" }

// queryKind is the detected intent of a question.
type queryKind string

const (
	kindTotal   queryKind = "total"
	kindCount   queryKind = "count"
	kindAverage queryKind = "average"
	kindMax     queryKind = "max"
	kindMin     queryKind = "min"
	kindFilter  queryKind = "filter"
	kindGroup   queryKind = "groupby"
)

// kindKeywords are checked in order; the first kind with a matching
// keyword wins.
var kindKeywords = []struct {
	kind     queryKind
	keywords []string
}{
	{kindTotal, []string{"total", "sum", "overall"}},
	{kindCount, []string{"how many", "count", "number of"}},
	{kindAverage, []string{"average", "mean", "avg"}},
	{kindMax, []string{"maximum", "max", "highest", "largest", "most"}},
	{kindMin, []string{"minimum", "min", "lowest", "smallest", "least"}},
	{kindFilter, []string{"show", "list", "display", "get", "find"}},
	{kindGroup, []string{" by ", " per ", " each ", "group"}},
}

var groupMarkers = []string{" by ", " per ", " each ", "group"}

// schemaColumn is a column parsed back out of a schema summary line.
type schemaColumn struct {
	name    string
	numeric bool
}

var schemaLinePattern = regexp.MustCompile(`- '([^']+)' \(type: ([a-z]+)\)`)

// parseSchemaColumns recovers column names and types from the schema
// summary, so the baseline works from the same input as the model.
func parseSchemaColumns(schema string) []schemaColumn {
	cols := []schemaColumn{}
	for _, m := range schemaLinePattern.FindAllStringSubmatch(schema, -1) {
		cols = append(cols, schemaColumn{
			name:    m[1],
			numeric: m[2] == "integer" || m[2] == "float",
		})
	}
	return cols
}

// matchColumns returns the schema columns mentioned in the question.
func matchColumns(question string, cols []schemaColumn) []schemaColumn {
	matched := []schemaColumn{}
	for _, c := range cols {
		lower := strings.ToLower(c.name)
		if strings.Contains(question, lower) || strings.Contains(question, strings.ReplaceAll(lower, "_", " ")) {
			matched = append(matched, c)
		}
	}
	return matched
}

func firstNumeric(matched, all []schemaColumn) (schemaColumn, bool) {
	for _, c := range matched {
		if c.numeric {
			return c, true
		}
	}
	for _, c := range all {
		if c.numeric {
			return c, true
		}
	}
	return schemaColumn{}, false
}

func firstCategorical(matched, all []schemaColumn) (schemaColumn, bool) {
	for _, c := range matched {
		if !c.numeric {
			return c, true
		}
	}
	for _, c := range all {
		if !c.numeric {
			return c, true
		}
	}
	return schemaColumn{}, false
}

func detectKind(question string) (queryKind, bool) {
	for _, entry := range kindKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(question, kw) {
				return entry.kind, true
			}
		}
	}
	return "", false
}

func hasGroupMarker(question string) bool {
	for _, m := range groupMarkers {
		if strings.Contains(question, m) {
			return true
		}
	}
	return false
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// GenerateAnalysis produces a templated SQL/pandas pair from keywords.
// Questions outside the template vocabulary are rejected; the baseline
// never guesses.
func (b *BaselineGenerator) GenerateAnalysis(ctx context.Context, schema, table, question string) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := strings.ToLower(question)
	cols := parseSchemaColumns(schema)
	if len(cols) == 0 {
		return nil, errors.NewBadModelOutput(schema, "schema summary contains no columns")
	}

	kind, ok := detectKind(q)
	if !ok {
		return nil, errors.NewQueryRejected(question,
			"question does not match any baseline template",
			"use keywords like total, count, average, highest, or lowest")
	}

	matched := matchColumns(q, cols)

	// Aggregations combined with a grouping marker become GROUP BY.
	if hasGroupMarker(q) && (kind == kindTotal || kind == kindAverage || kind == kindCount) {
		return b.groupBy(kind, matched, cols, table)
	}

	switch kind {
	case kindTotal:
		num, ok := firstNumeric(matched, cols)
		if !ok {
			return nil, errors.NewQueryRejected(question, "no numeric column to total", "name a numeric column in the question")
		}
		return &Analysis{
			SQL:    fmt.Sprintf(`SELECT SUM(%s) AS total FROM %s`, quote(num.name), quote(table)),
			Pandas: fmt.Sprintf(`result_df = pd.DataFrame([{'total': df['%s'].sum()}])`, num.name),
		}, nil

	case kindCount:
		return &Analysis{
			SQL:    fmt.Sprintf(`SELECT COUNT(*) AS count FROM %s`, quote(table)),
			Pandas: `result_df = pd.DataFrame([{'count': len(df)}])`,
		}, nil

	case kindAverage:
		num, ok := firstNumeric(matched, cols)
		if !ok {
			return nil, errors.NewQueryRejected(question, "no numeric column to average", "name a numeric column in the question")
		}
		return &Analysis{
			SQL:    fmt.Sprintf(`SELECT AVG(%s) AS average FROM %s`, quote(num.name), quote(table)),
			Pandas: fmt.Sprintf(`result_df = pd.DataFrame([{'average': df['%s'].mean()}])`, num.name),
		}, nil

	case kindMax:
		num, ok := firstNumeric(matched, cols)
		if !ok {
			return nil, errors.NewQueryRejected(question, "no numeric column to rank", "name a numeric column in the question")
		}
		return &Analysis{
			SQL:    fmt.Sprintf(`SELECT * FROM %s ORDER BY %s DESC LIMIT 1`, quote(table), quote(num.name)),
			Pandas: fmt.Sprintf(`result_df = df.nlargest(1, '%s')`, num.name),
		}, nil

	case kindMin:
		num, ok := firstNumeric(matched, cols)
		if !ok {
			return nil, errors.NewQueryRejected(question, "no numeric column to rank", "name a numeric column in the question")
		}
		return &Analysis{
			SQL:    fmt.Sprintf(`SELECT * FROM %s ORDER BY %s ASC LIMIT 1`, quote(table), quote(num.name)),
			Pandas: fmt.Sprintf(`result_df = df.nsmallest(1, '%s')`, num.name),
		}, nil

	case kindFilter:
		return b.filter(q, matched, table)

	case kindGroup:
		return b.groupBy(kindCount, matched, cols, table)
	}

	return nil, errors.NewQueryRejected(question, "question does not match any baseline template", "")
}

var numberPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// filter handles "show/list/find" questions, with simple numeric
// comparisons when the question names a threshold.
func (b *BaselineGenerator) filter(q string, matched []schemaColumn, table string) (*Analysis, error) {
	if len(matched) > 0 {
		col := matched[0]
		if num := numberPattern.FindString(q); num != "" && col.numeric {
			op := ">"
			pandasOp := ">"
			if strings.Contains(q, "less than") || strings.Contains(q, "below") || strings.Contains(q, "under") {
				op, pandasOp = "<", "<"
			}
			return &Analysis{
				SQL:    fmt.Sprintf(`SELECT * FROM %s WHERE %s %s %s`, quote(table), quote(col.name), op, num),
				Pandas: fmt.Sprintf(`result_df = df[df['%s'] %s %s]`, col.name, pandasOp, num),
			}, nil
		}
	}
	return &Analysis{
		SQL:    fmt.Sprintf(`SELECT * FROM %s LIMIT 10`, quote(table)),
		Pandas: `result_df = df.head(10)`,
	}, nil
}

// groupBy builds a grouped aggregate over the first matched categorical
// column.
func (b *BaselineGenerator) groupBy(kind queryKind, matched, all []schemaColumn, table string) (*Analysis, error) {
	group, ok := firstCategorical(matched, all)
	if !ok {
		return nil, errors.NewQueryRejected("", "no categorical column to group by", "name a category column in the question")
	}

	switch kind {
	case kindTotal:
		num, ok := firstNumeric(matched, all)
		if !ok {
			break
		}
		return &Analysis{
			SQL: fmt.Sprintf(`SELECT %s, SUM(%s) AS total FROM %s GROUP BY %s ORDER BY total DESC`,
				quote(group.name), quote(num.name), quote(table), quote(group.name)),
			Pandas: fmt.Sprintf(`result_df = df.groupby('%s')['%s'].sum().reset_index()`, group.name, num.name),
		}, nil
	case kindAverage:
		num, ok := firstNumeric(matched, all)
		if !ok {
			break
		}
		return &Analysis{
			SQL: fmt.Sprintf(`SELECT %s, AVG(%s) AS average FROM %s GROUP BY %s ORDER BY average DESC`,
				quote(group.name), quote(num.name), quote(table), quote(group.name)),
			Pandas: fmt.Sprintf(`result_df = df.groupby('%s')['%s'].mean().reset_index()`, group.name, num.name),
		}, nil
	}

	return &Analysis{
		SQL: fmt.Sprintf(`SELECT %s, COUNT(*) AS count FROM %s GROUP BY %s ORDER BY count DESC`,
			quote(group.name), quote(table), quote(group.name)),
		Pandas: fmt.Sprintf(`result_df = df.groupby('%s').size().reset_index(name='count')`, group.name),
	}, nil
}

// SuggestQuestions returns schema-aware starter questions without a model.
func (b *BaselineGenerator) SuggestQuestions(ctx context.Context, schema string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cols := parseSchemaColumns(schema)
	suggestions := FallbackSuggestions()

	var numeric, categorical *schemaColumn
	for i := range cols {
		if cols[i].numeric && numeric == nil {
			numeric = &cols[i]
		}
		if !cols[i].numeric && categorical == nil {
			categorical = &cols[i]
		}
	}
	if numeric != nil {
		suggestions = append(suggestions, fmt.Sprintf("What is the total %s?", strings.ToLower(numeric.name)))
	}
	if numeric != nil && categorical != nil {
		suggestions = append(suggestions, fmt.Sprintf("What is the total %s by %s?",
			strings.ToLower(numeric.name), strings.ToLower(categorical.name)))
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[len(suggestions)-3:]
	}
	return suggestions, nil
}
