package dataset

import (
	"strings"
	"testing"
)

func TestParse_InfersColumnTypes(t *testing.T) {
	csv := strings.Join([]string{
		"Name,Age,Score,Active,Joined",
		"Alice,30,91.5,true,2024-01-15",
		"Ben,41,78.0,false,2024-03-02",
		"Chen,28,88.25,true,2024-06-30",
	}, "\n")

	ds, err := Parse("people.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := map[string]ColumnType{
		"Name":   TypeText,
		"Age":    TypeInteger,
		"Score":  TypeFloat,
		"Active": TypeBoolean,
		"Joined": TypeTimestamp,
	}
	for name, wantType := range want {
		col := ds.Column(name)
		if col == nil {
			t.Fatalf("column %s missing", name)
		}
		if col.Type != wantType {
			t.Errorf("column %s: got type %s, want %s", name, col.Type, wantType)
		}
	}
	if ds.RowCount() != 3 {
		t.Errorf("got %d rows, want 3", ds.RowCount())
	}
	if ds.Name != "people" {
		t.Errorf("got table name %q, want people", ds.Name)
	}
}

func TestParse_NormalizesHeader(t *testing.T) {
	csv := "a,,a,b\n1,2,3,4\n"
	ds, err := Parse("x.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		got[i] = c.Name
	}
	want := []string{"a", "column_2", "a_2", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParse_PadsRaggedRows(t *testing.T) {
	csv := "a,b,c\n1,2\n1,2,3,4\n"
	ds, err := Parse("ragged.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i, row := range ds.Rows {
		if len(row) != 3 {
			t.Errorf("row %d: got %d fields, want 3", i, len(row))
		}
	}
	if ds.Rows[0][2] != "" {
		t.Errorf("short row should be padded with empty string, got %q", ds.Rows[0][2])
	}
}

func TestParse_EmptyFile(t *testing.T) {
	if _, err := Parse("empty.csv", strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestParse_EmptyColumnStaysText(t *testing.T) {
	csv := "a,b\n1,\n2,\n"
	ds, err := Parse("x.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := ds.Column("b").Type; got != TypeText {
		t.Errorf("empty column: got type %s, want text", got)
	}
}

func TestSchemaSummary_Format(t *testing.T) {
	csv := "Product,Price\nLaptop,1199.99\nDesk,420.00\n"
	ds, err := Parse("sales.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	summary := ds.SchemaSummary()
	if !strings.Contains(summary, "- 'Product' (type: text)") {
		t.Errorf("summary missing Product line:\n%s", summary)
	}
	if !strings.Contains(summary, "- 'Price' (type: float)") {
		t.Errorf("summary missing Price line:\n%s", summary)
	}
	if !strings.Contains(summary, "Here are some sample rows:") {
		t.Errorf("summary missing sample rows section:\n%s", summary)
	}
	if !strings.Contains(summary, "Laptop | 1199.99") {
		t.Errorf("summary missing sample row:\n%s", summary)
	}
}

func TestSchemaSummary_LimitsSampleRows(t *testing.T) {
	csv := "n\n1\n2\n3\n4\n5\n"
	ds, err := Parse("n.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	summary := ds.SchemaSummary()
	if strings.Contains(summary, "\n4") {
		t.Errorf("summary should only include three sample rows:\n%s", summary)
	}
}

func TestTableName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Sales Data 2024.csv", "sales_data_2024"},
		{"sales.csv", "sales"},
		{"/tmp/upload/Orders (final).CSV", "orders_final"},
		{"2024.csv", "t_2024"},
		{"???.csv", "dataset"},
	}
	for _, c := range cases {
		if got := TableName(c.in); got != c.want {
			t.Errorf("TableName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSampleSales_Deterministic(t *testing.T) {
	a := SampleSalesCSV(50, 7)
	b := SampleSalesCSV(50, 7)
	if string(a) != string(b) {
		t.Error("same seed should produce identical CSV")
	}

	ds, err := SampleSales(50, 7)
	if err != nil {
		t.Fatalf("SampleSales: %v", err)
	}
	if ds.RowCount() != 50 {
		t.Errorf("got %d rows, want 50", ds.RowCount())
	}
	if ds.Name != "sales_data" {
		t.Errorf("got table name %q, want sales_data", ds.Name)
	}
	if got := ds.Column("Price").Type; got != TypeFloat {
		t.Errorf("Price: got type %s, want float", got)
	}
	if got := ds.Column("Date").Type; got != TypeTimestamp {
		t.Errorf("Date: got type %s, want timestamp", got)
	}
}
