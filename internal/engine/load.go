package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/tabula-labs/tabula/internal/dataset"
)

// TypeMapper maps an inferred column type to an engine-specific SQL type.
type TypeMapper func(dataset.ColumnType) string

// QuoteIdent quotes an identifier with double quotes, the dialect shared
// by DuckDB and SQLite.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// CreateTableSQL builds the DDL for a dataset table.
func CreateTableSQL(ds *dataset.Dataset, mapType TypeMapper) string {
	cols := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		cols[i] = fmt.Sprintf("%s %s", QuoteIdent(c.Name), mapType(c.Type))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(ds.Name), strings.Join(cols, ", "))
}

// InsertSQL builds the parameterized insert statement for a dataset table.
func InsertSQL(ds *dataset.Dataset) string {
	placeholders := make([]string, len(ds.Columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteIdent(ds.Name), strings.Join(placeholders, ", "))
}

// ConvertValue converts a raw CSV cell into a driver value for the given
// column type. Empty cells become NULL. Type inference guarantees that
// non-empty cells parse; a failure here indicates a bug upstream.
func ConvertValue(t dataset.ColumnType, raw string) (interface{}, error) {
	if raw == "" {
		return nil, nil
	}
	switch t {
	case dataset.TypeInteger:
		return strconv.ParseInt(raw, 10, 64)
	case dataset.TypeFloat:
		return strconv.ParseFloat(raw, 64)
	case dataset.TypeBoolean:
		return strings.EqualFold(raw, "true"), nil
	case dataset.TypeTimestamp:
		ts, ok := dataset.ParseTimestamp(raw)
		if !ok {
			return nil, fmt.Errorf("engine: value %q is not a timestamp", raw)
		}
		return ts, nil
	default:
		return raw, nil
	}
}

// LoadDataset drops and recreates the dataset table and bulk-inserts all
// rows inside a single transaction. Shared by the DuckDB and SQLite
// engines, which differ only in type mapping.
func LoadDataset(ctx context.Context, db *sql.DB, ds *dataset.Dataset, mapType TypeMapper) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("engine: begin load transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(ds.Name)); err != nil {
		return fmt.Errorf("engine: drop previous table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, CreateTableSQL(ds, mapType)); err != nil {
		return fmt.Errorf("engine: create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, InsertSQL(ds))
	if err != nil {
		return fmt.Errorf("engine: prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(ds.Columns))
	for rowIdx, row := range ds.Rows {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("engine: context error during load: %w", err)
		}
		for i, c := range ds.Columns {
			v, err := ConvertValue(c.Type, row[i])
			if err != nil {
				return fmt.Errorf("engine: row %d column %s: %w", rowIdx+1, c.Name, err)
			}
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("engine: insert row %d: %w", rowIdx+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("engine: commit load transaction: %w", err)
	}
	return nil
}

// ScanAll reads all rows from a query into a QueryResult.
func ScanAll(ctx context.Context, db *sql.DB, engineName, query string) (*QueryResult, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s engine: query execution failed: %w", engineName, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s engine: failed to get columns: %w", engineName, err)
	}

	resultRows := make([][]interface{}, 0)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s engine: context error during row iteration: %w", engineName, err)
		}
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("%s engine: failed to scan row: %w", engineName, err)
		}
		resultRows = append(resultRows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s engine: error during row iteration: %w", engineName, err)
	}

	return &QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
		Metadata: map[string]string{"engine": engineName},
	}, nil
}
