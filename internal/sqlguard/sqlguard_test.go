package sqlguard

import (
	"strings"
	"testing"

	"github.com/tabula-labs/tabula/internal/errors"
)

func TestValidate_AcceptsSelect(t *testing.T) {
	v := NewValidator()

	checked, err := v.Validate(`SELECT * FROM sales LIMIT 10`, "sales")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(checked.Tables) != 1 || checked.Tables[0] != "sales" {
		t.Errorf("got tables %v, want [sales]", checked.Tables)
	}
}

func TestValidate_AcceptsQuotedIdentifiers(t *testing.T) {
	v := NewValidator()

	cases := []string{
		`SELECT COUNT(*) AS count FROM "sales"`,
		"SELECT COUNT(*) AS count FROM `sales`",
		`SELECT "Region", SUM("Price") AS total FROM "sales" GROUP BY "Region"`,
	}
	for _, q := range cases {
		checked, err := v.Validate(q, "sales")
		if err != nil {
			t.Errorf("Validate(%s): %v", q, err)
			continue
		}
		if strings.Contains(checked.SQL, "`") {
			t.Errorf("normalized SQL should not contain backticks: %s", checked.SQL)
		}
	}
}

func TestValidate_TrimsTrailingSemicolon(t *testing.T) {
	v := NewValidator()

	checked, err := v.Validate("SELECT * FROM sales;  ", "sales")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if strings.HasSuffix(checked.SQL, ";") {
		t.Errorf("trailing semicolon should be stripped: %q", checked.SQL)
	}
}

func TestValidate_RejectsWrites(t *testing.T) {
	v := NewValidator()

	writes := []string{
		"INSERT INTO sales (a) VALUES (1)",
		"UPDATE sales SET a = 1",
		"DELETE FROM sales",
		"DROP TABLE sales",
	}
	for _, q := range writes {
		_, err := v.Validate(q, "sales")
		if err == nil {
			t.Errorf("Validate(%s): expected rejection", q)
			continue
		}
		if _, ok := err.(*errors.ErrQueryRejected); !ok {
			t.Errorf("Validate(%s): got %T, want *errors.ErrQueryRejected", q, err)
		}
	}
}

func TestValidate_RejectsMultipleStatements(t *testing.T) {
	v := NewValidator()

	if _, err := v.Validate("SELECT 1 FROM sales; DELETE FROM sales", "sales"); err == nil {
		t.Fatal("expected rejection for multiple statements")
	}
}

func TestValidate_RejectsUnknownTable(t *testing.T) {
	v := NewValidator()

	_, err := v.Validate("SELECT * FROM other_table", "sales")
	if err == nil {
		t.Fatal("expected rejection for unknown table")
	}
	if _, ok := err.(*errors.ErrUnknownTable); !ok {
		t.Errorf("got %T, want *errors.ErrUnknownTable", err)
	}
}

func TestValidate_TableMatchIsCaseInsensitive(t *testing.T) {
	v := NewValidator()

	if _, err := v.Validate("SELECT * FROM Sales", "sales"); err != nil {
		t.Errorf("case-insensitive table match should pass: %v", err)
	}
}

func TestValidate_ChecksSubqueryTables(t *testing.T) {
	v := NewValidator()

	_, err := v.Validate("SELECT * FROM (SELECT * FROM secrets) AS s", "sales")
	if err == nil {
		t.Fatal("expected rejection for subquery referencing another table")
	}
}

func TestValidate_EmptyQuery(t *testing.T) {
	v := NewValidator()

	if _, err := v.Validate("   ;  ", "sales"); err == nil {
		t.Fatal("expected rejection for empty query")
	}
}

func TestValidate_KeepsStringLiteralsIntact(t *testing.T) {
	v := NewValidator()

	checked, err := v.Validate(`SELECT * FROM sales WHERE "Region" = 'No"rth'`, "sales")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.Contains(checked.SQL, `'No"rth'`) {
		t.Errorf("string literal altered: %s", checked.SQL)
	}
}
