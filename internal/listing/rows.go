package listing

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"backoffice/internal/db"
	"backoffice/internal/domain"
)

// Row is one listing row keyed by column name.
type Row map[string]any

// ID returns the row's id column.
func (r Row) ID() domain.ID {
	switch v := r["id"].(type) {
	case int64:
		return domain.ID(v)
	case int:
		return domain.ID(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return domain.ID(n)
	}
	return 0
}

// String renders a column value as text.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(c, vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalizeValue turns driver byte slices into text and integral ids into int64.
func normalizeValue(col string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	s := string(b)
	if col == "id" || strings.HasSuffix(col, "_id") {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return s
}

// fetchChildren loads every child row for the page in one query per child
// spec and attaches them under ChildSpec.Key.
func fetchChildren(ctx context.Context, q db.Querier, d *Definition, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]any, len(rows))
	for i, r := range rows {
		ids[i] = int64(r.ID())
	}
	for _, ch := range d.Children {
		cols := append([]string{ch.ForeignKey}, ch.Columns...)
		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s) ORDER BY %s, id",
			strings.Join(cols, ", "), ch.Table, ch.ForeignKey, db.Placeholders(len(ids)), ch.ForeignKey)
		res, err := q.QueryContext(ctx, query, ids...)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", ch.Table, err)
		}
		children, err := scanRows(res)
		res.Close()
		if err != nil {
			return fmt.Errorf("scan %s: %w", ch.Table, err)
		}

		grouped := map[string][]Row{}
		for _, c := range children {
			key := c.String(ch.ForeignKey)
			grouped[key] = append(grouped[key], c)
		}
		for _, r := range rows {
			items := grouped[strconv.FormatInt(int64(r.ID()), 10)]
			if items == nil {
				items = []Row{}
			}
			r[ch.Key] = items
		}
	}
	return nil
}

func applyLabels(d *Definition, rows []Row) {
	if len(d.Labels) == 0 {
		return
	}
	for _, r := range rows {
		for col := range d.Labels {
			if _, ok := r[col]; ok {
				r[col+"_label"] = d.Label(col, r.String(col))
			}
		}
	}
}
