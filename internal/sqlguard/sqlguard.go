// Package sqlguard validates model-generated SQL before execution.
// The model output is untrusted: every statement is parsed, restricted to
// a single SELECT, and its table references are checked against the
// session's dataset table.
package sqlguard

import (
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/tabula-labs/tabula/internal/errors"
)

// CheckedQuery is a validated, normalized query ready for execution.
type CheckedQuery struct {
	// SQL is the normalized statement (trimmed, no trailing semicolon).
	SQL string

	// Tables are the table names referenced by the statement.
	Tables []string
}

// Validator checks generated SQL against a dataset table.
type Validator struct{}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate parses the statement and enforces the execution rules:
// non-empty, single statement, SELECT-only, and every referenced table
// must be the dataset table.
//
// The parser speaks MySQL dialect while the engines speak ANSI, so
// identifier quoting is normalized both ways: the returned SQL uses
// double quotes, and a backtick-quoted copy is what gets parsed.
func (v *Validator) Validate(query, table string) (*CheckedQuery, error) {
	query = normalize(query)
	if query == "" {
		return nil, errors.NewQueryRejected(query, "empty query", "the model returned no SQL")
	}
	query = requoteIdents(query, '`', '"')
	parseCopy := requoteIdents(query, '"', '`')

	pieces, err := sqlparser.SplitStatementToPieces(parseCopy)
	if err != nil {
		return nil, errors.NewQueryRejected(query, "statement could not be parsed: "+err.Error(), "retry the question")
	}
	if len(pieces) > 1 {
		return nil, errors.NewQueryRejected(query, "multiple statements are not allowed", "only a single SELECT may be executed")
	}

	stmt, err := sqlparser.Parse(parseCopy)
	if err != nil {
		return nil, errors.NewQueryRejected(query, "invalid SQL: "+err.Error(), "retry the question")
	}

	switch stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union:
		// read-only, allowed
	case *sqlparser.Insert:
		return nil, errors.NewWriteNotAllowed("INSERT")
	case *sqlparser.Update:
		return nil, errors.NewWriteNotAllowed("UPDATE")
	case *sqlparser.Delete:
		return nil, errors.NewWriteNotAllowed("DELETE")
	case *sqlparser.DDL:
		return nil, errors.NewWriteNotAllowed("DDL")
	default:
		return nil, errors.NewQueryRejected(query, "unsupported statement type", "only SELECT statements are supported")
	}

	tables := referencedTables(stmt)
	for _, t := range tables {
		if !strings.EqualFold(t, table) {
			return nil, errors.NewUnknownTable(t, table)
		}
	}

	return &CheckedQuery{SQL: query, Tables: tables}, nil
}

// normalize trims whitespace and a trailing semicolon.
func normalize(query string) string {
	query = strings.TrimSpace(query)
	query = strings.TrimSuffix(query, ";")
	return strings.TrimSpace(query)
}

// requoteIdents rewrites identifier quotes from one style to the other,
// leaving single-quoted string literals untouched.
func requoteIdents(query string, from, to byte) string {
	var sb strings.Builder
	sb.Grow(len(query))

	inString := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inString = !inString
			sb.WriteByte(ch)
		case ch == from && !inString:
			sb.WriteByte(to)
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// referencedTables walks the AST and collects table names from FROM and
// JOIN clauses, including subqueries. Column qualifiers are ignored.
func referencedTables(stmt sqlparser.Statement) []string {
	seen := map[string]bool{}
	tables := []string{}

	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if aliased, ok := node.(*sqlparser.AliasedTableExpr); ok {
			if tn, ok := aliased.Expr.(sqlparser.TableName); ok {
				name := tn.Name.String()
				if name != "" && !seen[strings.ToLower(name)] {
					seen[strings.ToLower(name)] = true
					tables = append(tables, name)
				}
			}
		}
		return true, nil
	}, stmt)

	return tables
}
