package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Dialect names the relational store behind a *sql.DB.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NullIfEmpty helps store optional strings without wiping existing data.
func NullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// HasTable reports whether table exists in the current schema.
func HasTable(ctx context.Context, q Querier, d Dialect, table string) bool {
	var name sql.NullString
	var err error
	switch d {
	case SQLite:
		err = q.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ? LIMIT 1`, table).Scan(&name)
	default:
		err = q.QueryRowContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		LIMIT 1
	`, table).Scan(&name)
	}
	if err != nil {
		return false
	}
	return name.Valid && name.String != ""
}

// Columns returns the lower-cased column set of table. An empty set with a nil
// error means the table does not exist.
func Columns(ctx context.Context, q Querier, d Dialect, table string) (map[string]bool, error) {
	var (
		rows *sql.Rows
		err  error
	)
	switch d {
	case SQLite:
		if !isIdent(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
		rows, err = q.QueryContext(ctx, `SELECT name FROM pragma_table_info('`+table+`')`)
	default:
		rows, err = q.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name = ?
	`, table)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[strings.ToLower(name)] = true
	}
	return out, rows.Err()
}

// HasColumn reports whether column exists on table.
func HasColumn(ctx context.Context, q Querier, d Dialect, table, column string) bool {
	cols, err := Columns(ctx, q, d, table)
	if err != nil {
		return false
	}
	return cols[strings.ToLower(column)]
}

// Placeholders returns "?, ?, ?" for n arguments.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// IsIdent reports whether s is a bare SQL identifier safe to splice into a
// statement (table or column name from a declaration, never user input).
func IsIdent(s string) bool { return isIdent(s) }
