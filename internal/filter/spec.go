// Package filter turns declared, per-entity filter fields plus raw request
// values into parameterized SQL predicates.
package filter

import (
	"fmt"
	"strings"

	"backoffice/internal/db"
	"backoffice/internal/domain"
)

// Kind is the matching strategy of a FilterField.
type Kind int

const (
	Exact Kind = iota
	Substring
	Range
	SetMembership
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Substring:
		return "substring"
	case Range:
		return "range"
	case SetMembership:
		return "set-membership"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ValueType controls how raw request strings are coerced before binding.
type ValueType int

const (
	String ValueType = iota
	Int
	Float
	Bool
	Date
)

// FilterField declares one filterable dimension of an entity.
type FilterField struct {
	Key  string
	Kind Kind
	// Columns is the column binding. Only Substring fields may bind more than
	// one column; the branches are OR-combined.
	Columns       []string
	Type          ValueType
	AllowedValues []string
}

// Column returns the first bound column.
func (f FilterField) Column() string {
	if len(f.Columns) == 0 {
		return ""
	}
	return f.Columns[0]
}

// Values returns the known values of the field for facet enumeration.
func (f FilterField) Values() []string {
	if len(f.AllowedValues) > 0 {
		return f.AllowedValues
	}
	if f.Type == Bool {
		return []string{"1", "0"}
	}
	return nil
}

// SortField maps a sort key accepted from requests onto a column.
type SortField struct {
	Key    string
	Column string
}

// Spec is the immutable filter declaration of one entity type.
type Spec struct {
	Entity      string
	Table       string
	fields      []FilterField
	sorts       []SortField
	defaultSort string
	byKey       map[string]int
	bound       map[string]bool
}

// Option customizes a Spec.
type Option func(*Spec)

// WithSorts declares the sortable keys and the default order ("-created_at"
// sorts descending).
func WithSorts(defaultSort string, sorts ...SortField) Option {
	return func(s *Spec) {
		s.sorts = append(s.sorts, sorts...)
		s.defaultSort = defaultSort
	}
}

// NewSpec validates the declaration and returns a Spec. Duplicate keys,
// missing column bindings and non-identifier column names are configuration
// errors.
func NewSpec(entity, table string, fields []FilterField, opts ...Option) (*Spec, error) {
	s := &Spec{
		Entity: entity,
		Table:  table,
		fields: append([]FilterField(nil), fields...),
		byKey:  make(map[string]int, len(fields)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !db.IsIdent(table) {
		return nil, s.configErr("table %q is not a valid identifier", table)
	}
	for i, f := range s.fields {
		if strings.TrimSpace(f.Key) == "" || f.Key == SortKey || f.Key == PageKey {
			return nil, s.configErr("field %d has reserved or empty key %q", i, f.Key)
		}
		if _, dup := s.byKey[f.Key]; dup {
			return nil, s.configErr("duplicate filter key %q", f.Key)
		}
		if len(f.Columns) == 0 {
			return nil, s.configErr("filter %q has no column binding", f.Key)
		}
		if len(f.Columns) > 1 && f.Kind != Substring {
			return nil, s.configErr("filter %q: only substring filters may span columns", f.Key)
		}
		for _, c := range f.Columns {
			if !db.IsIdent(c) {
				return nil, s.configErr("filter %q: column %q is not a valid identifier", f.Key, c)
			}
		}
		s.byKey[f.Key] = i
	}
	for _, so := range s.sorts {
		if !db.IsIdent(so.Column) {
			return nil, s.configErr("sort %q: column %q is not a valid identifier", so.Key, so.Column)
		}
	}
	if s.defaultSort != "" {
		if _, ok := s.sortColumn(strings.TrimPrefix(s.defaultSort, "-")); !ok {
			return nil, s.configErr("default sort %q is not a declared sort key", s.defaultSort)
		}
	}
	return s, nil
}

// MustSpec is NewSpec for static declarations; it panics on error.
func MustSpec(entity, table string, fields []FilterField, opts ...Option) *Spec {
	s, err := NewSpec(entity, table, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Bind checks every column binding against the backing table's column set.
// It is meant to run once at startup.
func (s *Spec) Bind(columns map[string]bool) error {
	if len(columns) == 0 {
		return s.configErr("table %q not found", s.Table)
	}
	check := func(what, col string) error {
		if !columns[strings.ToLower(col)] {
			return s.configErr("%s references unknown column %s.%s", what, s.Table, col)
		}
		return nil
	}
	for _, f := range s.fields {
		for _, c := range f.Columns {
			if err := check("filter "+f.Key, c); err != nil {
				return err
			}
		}
	}
	for _, so := range s.sorts {
		if err := check("sort "+so.Key, so.Column); err != nil {
			return err
		}
	}
	s.bound = columns
	return nil
}

// Fields returns the declared fields in declaration order.
func (s *Spec) Fields() []FilterField {
	return append([]FilterField(nil), s.fields...)
}

// Field looks up a declared field by key.
func (s *Spec) Field(key string) (FilterField, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return FilterField{}, false
	}
	return s.fields[i], true
}

func (s *Spec) resolve(f FilterField) error {
	if len(f.Columns) == 0 {
		return s.configErr("filter %q has no column binding", f.Key)
	}
	for _, c := range f.Columns {
		if !db.IsIdent(c) {
			return s.configErr("filter %q: column %q is not a valid identifier", f.Key, c)
		}
		if s.bound != nil && !s.bound[strings.ToLower(c)] {
			return s.configErr("filter %q references unknown column %s.%s", f.Key, s.Table, c)
		}
	}
	return nil
}

func (s *Spec) configErr(format string, args ...any) error {
	return domain.ConfigurationError{Component: "filter spec " + s.Entity, Msg: fmt.Sprintf(format, args...)}
}
