package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/syncstore/internal/resource"
	"github.com/roach88/syncstore/internal/selection"
)

// Insert writes one row inside the open transaction and returns its
// row ID. If the payload carries an "id" column that value is used;
// otherwise the store's ID generator assigns one.
//
// CRITICAL: column values are always bound as parameters, never
// interpolated. Column names are interpolated and therefore validated
// against the identifier grammar first.
func (s *Store) Insert(ctx context.Context, table string, vals resource.Values) (string, error) {
	a, err := s.requireTx()
	if err != nil {
		return "", err
	}
	if err := validateIdentifier(table); err != nil {
		return "", err
	}

	id := s.idgen.NewID()
	if v, ok := vals["id"]; ok {
		str, isStr := v.(resource.String)
		if !isStr {
			return "", fmt.Errorf("insert into %s: id must be a string", table)
		}
		id = string(str)
	}

	cols := []string{"id"}
	placeholders := []string{"?"}
	args := []any{id}
	for _, col := range vals.SortedKeys() {
		if col == "id" {
			continue
		}
		if err := validateIdentifier(col); err != nil {
			return "", fmt.Errorf("insert into %s: %w", table, err)
		}
		cols = append(cols, col)
		placeholders = append(placeholders, "?")
		args = append(args, resource.SQL(vals[col]))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "))

	if _, err := a.tx.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert into %s: %w", table, err)
	}
	return id, nil
}

// Update modifies rows matching the predicate inside the open
// transaction and returns the number of affected rows. A nil predicate
// updates every row.
func (s *Store) Update(ctx context.Context, table string, vals resource.Values, pred selection.Predicate) (int64, error) {
	a, err := s.requireTx()
	if err != nil {
		return 0, err
	}
	if err := validateIdentifier(table); err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("update %s: empty payload", table)
	}

	var sets []string
	var args []any
	for _, col := range vals.SortedKeys() {
		if col == "id" {
			return 0, fmt.Errorf("update %s: row IDs are immutable", table)
		}
		if err := validateIdentifier(col); err != nil {
			return 0, fmt.Errorf("update %s: %w", table, err)
		}
		sets = append(sets, col+" = ?")
		args = append(args, resource.SQL(vals[col]))
	}

	where, whereArgs, err := selection.Compile(pred)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		table, strings.Join(sets, ", "), where)

	res, err := a.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s: rows affected: %w", table, err)
	}
	return count, nil
}

// Delete removes rows matching the predicate inside the open
// transaction and returns the number of affected rows. A nil predicate
// deletes every row.
func (s *Store) Delete(ctx context.Context, table string, pred selection.Predicate) (int64, error) {
	a, err := s.requireTx()
	if err != nil {
		return 0, err
	}
	if err := validateIdentifier(table); err != nil {
		return 0, err
	}

	where, whereArgs, err := selection.Compile(pred)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, where)

	res, err := a.tx.ExecContext(ctx, query, whereArgs...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete from %s: rows affected: %w", table, err)
	}
	return count, nil
}

// validateIdentifier enforces the table/column identifier grammar.
// Same rules as the selection compiler: leading letter or underscore,
// then letters, digits, underscores.
func validateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("empty identifier")
	}
	for i, r := range name {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return fmt.Errorf("invalid identifier %q: leading digit", name)
			}
		default:
			return fmt.Errorf("invalid identifier %q: character %q", name, r)
		}
	}
	return nil
}
