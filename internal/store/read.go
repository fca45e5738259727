package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// Find returns the rows of table restricted by a JOIN fragment, in primary
// key order. An empty fragment returns every row.
func (s *Store) Find(ctx context.Context, table, pk, fragment string) ([]Row, error) {
	return s.Query(ctx, FindSQL(table, pk, fragment))
}

// Count returns the number of rows of table restricted by a JOIN fragment.
func (s *Store) Count(ctx context.Context, table, fragment string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, CountSQL(table, fragment)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// FindSQL renders the statement Find executes.
func FindSQL(table, pk, fragment string) string {
	var b strings.Builder
	b.WriteString("SELECT " + table + ".* FROM " + table)
	if fragment = strings.TrimSpace(fragment); fragment != "" {
		b.WriteString(" " + fragment)
	}
	b.WriteString(" ORDER BY " + table + "." + pk + " ASC")
	return b.String()
}

// CountSQL renders the statement Count executes.
func CountSQL(table, fragment string) string {
	stmt := "SELECT COUNT(*) FROM " + table
	if fragment = strings.TrimSpace(fragment); fragment != "" {
		stmt += " " + fragment
	}
	return stmt
}

// Query runs a statement and scans every row into a Row.
// TEXT values arriving as []byte are returned as string.
//
// Returns an empty slice (not nil) when there are no rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	result, err := ScanRows(rows)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ScanRows drains rows into a slice of Row.
func ScanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = normalize(values[i])
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return result, nil
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
