package filter

import (
	"fmt"
	"strings"

	"backoffice/internal/db"
)

// Clause is one parameterized predicate fragment. Every "?" in Template has
// exactly one entry in Args.
type Clause struct {
	Template string
	Args     []any
}

// Predicate is a compiled, parameter-bound restriction. The zero value
// restricts nothing.
type Predicate struct {
	Clauses []Clause
}

// Conjunction joins the clauses with AND. It is empty when there are none.
func (p Predicate) Conjunction() string {
	if len(p.Clauses) == 0 {
		return ""
	}
	parts := make([]string, len(p.Clauses))
	for i, c := range p.Clauses {
		parts[i] = c.Template
	}
	return strings.Join(parts, " AND ")
}

// Where renders " WHERE ..." or "" when the predicate is empty.
func (p Predicate) Where() string {
	if c := p.Conjunction(); c != "" {
		return " WHERE " + c
	}
	return ""
}

// Args flattens the bound parameters in clause order.
func (p Predicate) Args() []any {
	var out []any
	for _, c := range p.Clauses {
		out = append(out, c.Args...)
	}
	return out
}

// IsEmpty reports whether the predicate restricts nothing.
func (p Predicate) IsEmpty() bool { return len(p.Clauses) == 0 }

// And returns a new predicate with c appended.
func (p Predicate) And(c Clause) Predicate {
	clauses := make([]Clause, 0, len(p.Clauses)+1)
	clauses = append(clauses, p.Clauses...)
	return Predicate{Clauses: append(clauses, c)}
}

// Compile validates req against spec and builds the predicate. Invalid
// values are dropped; only a broken column binding is an error.
func Compile(spec *Spec, req Request) (Predicate, error) {
	var p Predicate
	for _, f := range spec.fields {
		v, ok := coerce(f, req)
		if !ok {
			continue
		}
		if err := spec.resolve(f); err != nil {
			return Predicate{}, err
		}
		p.Clauses = append(p.Clauses, clauseFor(f, v)...)
	}
	return p, nil
}

func clauseFor(f FilterField, v value) []Clause {
	col := f.Column()
	switch f.Kind {
	case Substring:
		branches := make([]string, len(f.Columns))
		args := make([]any, len(f.Columns))
		for i, c := range f.Columns {
			branches[i] = c + " LIKE ? ESCAPE '!'"
			args[i] = v.scalar
		}
		if len(branches) == 1 {
			return []Clause{{Template: branches[0], Args: args}}
		}
		return []Clause{{Template: "(" + strings.Join(branches, " OR ") + ")", Args: args}}
	case Range:
		var out []Clause
		if v.from != nil {
			out = append(out, Clause{Template: col + " >= ?", Args: []any{v.from}})
		}
		if v.to != nil {
			out = append(out, Clause{Template: col + " <= ?", Args: []any{v.to}})
		}
		return out
	case SetMembership:
		return []Clause{{
			Template: fmt.Sprintf("%s IN (%s)", col, db.Placeholders(len(v.list))),
			Args:     append([]any(nil), v.list...),
		}}
	default:
		return []Clause{{Template: col + " = ?", Args: []any{v.scalar}}}
	}
}
