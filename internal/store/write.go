package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Insert adds a row to table and returns its rowid.
// Columns are written in sorted order so the generated SQL is deterministic.
func (s *Store) Insert(ctx context.Context, table string, row Row) (int64, error) {
	if len(row) == 0 {
		res, err := s.db.ExecContext(ctx, "INSERT INTO "+table+" DEFAULT VALUES")
		if err != nil {
			return 0, fmt.Errorf("insert into %s: %w", table, err)
		}
		return res.LastInsertId()
	}

	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	args := make([]any, len(columns))
	for i, col := range columns {
		args[i] = row[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert into %s: last insert id: %w", table, err)
	}
	return id, nil
}
