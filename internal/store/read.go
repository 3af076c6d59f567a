package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CountRows returns the number of rows in a table. Reads borrow the
// store's single pooled connection, so they must not be issued while a
// transaction is open: they block until it ends, and deadlock if the
// caller is the goroutine holding the transaction.
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	if err := validateIdentifier(table); err != nil {
		return 0, err
	}
	var count int64
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// GetRow returns one row by ID as a column->value map, or
// sql.ErrNoRows if absent. Results are driver-native values (TEXT as
// string, INTEGER as int64, NULL as nil).
func (s *Store) GetRow(ctx context.Context, table, id string) (map[string]any, error) {
	if err := validateIdentifier(table); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s WHERE id = ?", table), id)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", table, id, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: columns: %w", table, id, err)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get %s/%s: %w", table, id, err)
		}
		return nil, sql.ErrNoRows
	}

	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("get %s/%s: scan: %w", table, id, err)
	}

	row := make(map[string]any, len(cols))
	for i, col := range cols {
		// The sqlite3 driver returns TEXT as []byte through ANY columns.
		if b, ok := raw[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = raw[i]
	}
	return row, nil
}

// Tables lists user table names in lexical order.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: scan: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}
