package listing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"backoffice/internal/attachments"
	"backoffice/internal/db"
	"backoffice/internal/domain"
	"backoffice/internal/paging"
)

// Registry holds validated definitions keyed by entity name.
type Registry struct {
	defs    map[string]*Definition
	mgrs    map[string]*attachments.Manager
	dialect db.Dialect
}

// NewRegistry validates every definition and binds it against the live
// schema. Any mismatch is a ConfigurationError; nothing is checked again at
// request time.
func NewRegistry(ctx context.Context, q db.Querier, dialect db.Dialect, store attachments.BlobStore, defs ...*Definition) (*Registry, error) {
	r := &Registry{
		defs:    map[string]*Definition{},
		mgrs:    map[string]*attachments.Manager{},
		dialect: dialect,
	}
	for _, d := range defs {
		if err := r.add(ctx, q, store, d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(ctx context.Context, q db.Querier, store attachments.BlobStore, d *Definition) error {
	cfgErr := func(format string, args ...any) error {
		return domain.ConfigurationError{Component: "entity " + d.Name, Msg: fmt.Sprintf(format, args...)}
	}
	if d.Name == "" || r.defs[d.Name] != nil {
		return cfgErr("empty or duplicate entity name")
	}
	if d.Filters == nil {
		return cfgErr("no filter spec")
	}
	if d.Filters.Table != d.Table {
		return cfgErr("filter spec targets %q, entity table is %q", d.Filters.Table, d.Table)
	}
	if d.PageSize <= 0 {
		d.PageSize = paging.DefaultPageSize
	}
	if !containsString(d.Columns, "id") {
		d.Columns = append([]string{"id"}, d.Columns...)
	}

	cols, err := db.Columns(ctx, q, r.dialect, d.Table)
	if err != nil {
		return cfgErr("read columns of %s: %v", d.Table, err)
	}
	if err := d.Filters.Bind(cols); err != nil {
		return err
	}

	need := map[string]string{}
	for _, c := range d.Columns {
		need[c] = "select list"
	}
	for _, f := range d.Fields {
		if f.Key == "" {
			return cfgErr("field with empty key")
		}
		need[f.Column] = "field " + f.Key
	}
	for _, key := range d.Facets {
		f, ok := d.Filters.Field(key)
		if !ok {
			return cfgErr("facet %q is not a declared filter", key)
		}
		if len(f.Values()) == 0 {
			return cfgErr("facet %q declares no known values", key)
		}
	}
	m := d.machine()
	if err := m.Validate(); err != nil {
		return err
	}
	for _, c := range m.Columns() {
		if why, ok := need[c]; ok && strings.HasPrefix(why, "field ") {
			return cfgErr("%s writes lifecycle column %s; use transitions or flags", why, c)
		}
		need[c] = "lifecycle"
	}
	if d.CreatedColumn != "" {
		need[d.CreatedColumn] = "created column"
	}

	mgr := &attachments.Manager{Entity: d.title(), Table: d.Table, Slots: d.Slots, Store: store}
	if err := mgr.Validate(); err != nil {
		return err
	}
	for _, c := range mgr.Columns() {
		need[c] = "attachment slot"
	}

	missing := []string{}
	for c, why := range need {
		if !db.IsIdent(c) || !cols[strings.ToLower(c)] {
			missing = append(missing, fmt.Sprintf("%s (%s)", c, why))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return cfgErr("unknown columns on %s: %s", d.Table, strings.Join(missing, ", "))
	}

	for _, ch := range d.Children {
		childCols, err := db.Columns(ctx, q, r.dialect, ch.Table)
		if err != nil {
			return cfgErr("read columns of %s: %v", ch.Table, err)
		}
		for _, c := range append([]string{ch.ForeignKey}, ch.Columns...) {
			if !db.IsIdent(c) || !childCols[strings.ToLower(c)] {
				return cfgErr("child %s references unknown column %s.%s", ch.Key, ch.Table, c)
			}
		}
	}

	r.defs[d.Name] = d
	r.mgrs[d.Name] = mgr
	return nil
}

// Definition looks up an entity type.
func (r *Registry) Definition(name string) (*Definition, error) {
	d, ok := r.defs[name]
	if !ok {
		return nil, domain.NotFoundError{Resource: "entity type " + name}
	}
	return d, nil
}

// Names lists registered entity types.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for k := range r.defs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) manager(name, requestID string) *attachments.Manager {
	m := *r.mgrs[name]
	m.RequestID = requestID
	return &m
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
