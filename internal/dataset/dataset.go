// Package dataset provides CSV decoding into an in-memory tabular dataset,
// column type inference, and the schema summary sent to the language model.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tabula-labs/tabula/internal/errors"
)

// ColumnType is the inferred type of a CSV column.
type ColumnType string

const (
	TypeInteger   ColumnType = "integer"
	TypeFloat     ColumnType = "float"
	TypeBoolean   ColumnType = "boolean"
	TypeTimestamp ColumnType = "timestamp"
	TypeText      ColumnType = "text"
)

// IsNumeric reports whether values of this type can be aggregated.
func (t ColumnType) IsNumeric() bool {
	return t == TypeInteger || t == TypeFloat
}

// Column describes a single dataset column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Dataset is an uploaded CSV held in memory. Rows keep the raw string
// values; engines convert them when loading the table.
type Dataset struct {
	// Name is the sanitized table name derived from the file name.
	Name string `json:"name"`

	// Filename is the original uploaded file name.
	Filename string `json:"filename"`

	// Columns are the header columns with inferred types.
	Columns []Column `json:"columns"`

	// Rows are the data rows, one string per column.
	Rows [][]string `json:"-"`
}

// RowCount returns the number of data rows.
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}

// Column returns the column with the given name, or nil.
func (d *Dataset) Column(name string) *Column {
	for i := range d.Columns {
		if strings.EqualFold(d.Columns[i].Name, name) {
			return &d.Columns[i]
		}
	}
	return nil
}

// NumericColumns returns the names of all numeric columns in order.
func (d *Dataset) NumericColumns() []string {
	names := []string{}
	for _, c := range d.Columns {
		if c.Type.IsNumeric() {
			names = append(names, c.Name)
		}
	}
	return names
}

// sampleRowLimit is the number of rows included in the schema summary.
const sampleRowLimit = 3

// SchemaSummary renders the dataset schema for the model prompt:
// one line per column plus up to three sample rows.
func (d *Dataset) SchemaSummary() string {
	var b strings.Builder
	for _, c := range d.Columns {
		fmt.Fprintf(&b, "- '%s' (type: %s)\n", c.Name, c.Type)
	}
	b.WriteString("\nHere are some sample rows:\n")
	b.WriteString(strings.Join(columnNames(d.Columns), " | "))
	b.WriteString("\n")
	limit := sampleRowLimit
	if len(d.Rows) < limit {
		limit = len(d.Rows)
	}
	for _, row := range d.Rows[:limit] {
		b.WriteString(strings.Join(row, " | "))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func columnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// timestampLayouts are the layouts tried during type inference, most
// specific first.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
	"02-Jan-2006",
}

// ParseTimestamp parses a value using the known timestamp layouts.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Parse decodes a CSV stream into a Dataset. The first record is the
// header; duplicate or blank header names are disambiguated, and column
// types are inferred from the data rows.
func Parse(filename string, r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	// Tolerate ragged rows; short rows are padded, long rows truncated.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewInvalidDataset(filename, "file is empty", nil)
	}
	if err != nil {
		return nil, errors.NewInvalidDataset(filename, "header row could not be read", err)
	}

	columns := normalizeHeader(header)

	rows := [][]string{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewInvalidDataset(filename, fmt.Sprintf("row %d could not be read", len(rows)+2), err)
		}
		row := make([]string, len(columns))
		for i := range row {
			if i < len(record) {
				row[i] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}

	ds := &Dataset{
		Name:     TableName(filename),
		Filename: filename,
		Columns:  columns,
		Rows:     rows,
	}
	inferTypes(ds)
	return ds, nil
}

// normalizeHeader cleans header names and resolves blanks and duplicates.
func normalizeHeader(header []string) []Column {
	seen := map[string]int{}
	columns := make([]Column, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n, dup := seen[strings.ToLower(name)]; dup {
			seen[strings.ToLower(name)] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[strings.ToLower(name)] = 1
		}
		columns[i] = Column{Name: name, Type: TypeText}
	}
	return columns
}

// inferTypes assigns each column the narrowest type that fits every
// non-empty value. Columns with no values stay text.
func inferTypes(ds *Dataset) {
	for i := range ds.Columns {
		couldBeInt := true
		couldBeFloat := true
		couldBeBool := true
		couldBeTime := true
		sawValue := false

		for _, row := range ds.Rows {
			v := row[i]
			if v == "" {
				continue
			}
			sawValue = true
			if couldBeInt {
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					couldBeInt = false
				}
			}
			if couldBeFloat {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					couldBeFloat = false
				}
			}
			if couldBeBool {
				if !isBool(v) {
					couldBeBool = false
				}
			}
			if couldBeTime {
				if _, ok := ParseTimestamp(v); !ok {
					couldBeTime = false
				}
			}
			if !couldBeInt && !couldBeFloat && !couldBeBool && !couldBeTime {
				break
			}
		}

		switch {
		case !sawValue:
			ds.Columns[i].Type = TypeText
		case couldBeBool:
			ds.Columns[i].Type = TypeBoolean
		case couldBeInt:
			ds.Columns[i].Type = TypeInteger
		case couldBeFloat:
			ds.Columns[i].Type = TypeFloat
		case couldBeTime:
			ds.Columns[i].Type = TypeTimestamp
		default:
			ds.Columns[i].Type = TypeText
		}
	}
}

func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	}
	return false
}

var tableNamePattern = regexp.MustCompile(`[^a-z0-9_]+`)

// TableName derives a SQL-safe table name from a file name.
// "Sales Data 2024.csv" becomes "sales_data_2024".
func TableName(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name := tableNamePattern.ReplaceAllString(strings.ToLower(base), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "dataset"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "t_" + name
	}
	return name
}
