// Package lifecycle declares entity status rules as data and applies them
// with statements whose read-modify-write is guarded by the store.
package lifecycle

import (
	"fmt"

	"backoffice/internal/db"
	"backoffice/internal/domain"
)

// Workflow is an ordered status field: a set of states, the forward edges
// between them and an optional cancel state reachable from every
// non-terminal state.
type Workflow struct {
	Column  string
	Initial string
	States  []string
	Edges   map[string][]string
	Cancel  string
}

// Validate checks the declaration once at startup.
func (w *Workflow) Validate() error {
	cfgErr := func(format string, args ...any) error {
		return domain.ConfigurationError{Component: "workflow " + w.Column, Msg: fmt.Sprintf(format, args...)}
	}
	if !db.IsIdent(w.Column) {
		return cfgErr("column %q is not a valid identifier", w.Column)
	}
	known := map[string]bool{}
	for _, s := range w.States {
		if known[s] {
			return cfgErr("duplicate state %q", s)
		}
		known[s] = true
	}
	if !known[w.Initial] {
		return cfgErr("initial state %q is not declared", w.Initial)
	}
	if w.Cancel != "" && !known[w.Cancel] {
		return cfgErr("cancel state %q is not declared", w.Cancel)
	}
	if len(w.Edges[w.Cancel]) > 0 {
		return cfgErr("cancel state %q must be terminal", w.Cancel)
	}
	for from, tos := range w.Edges {
		if !known[from] {
			return cfgErr("edge from undeclared state %q", from)
		}
		for _, to := range tos {
			if !known[to] {
				return cfgErr("edge %s -> %s targets undeclared state", from, to)
			}
			if to == from {
				return cfgErr("state %q has an edge to itself", from)
			}
		}
	}
	return nil
}

// Has reports whether s is a declared state.
func (w *Workflow) Has(s string) bool {
	for _, st := range w.States {
		if st == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.
func (w *Workflow) IsTerminal(s string) bool {
	return len(w.Next(s)) == 0
}

// Next lists the states reachable from s in one step.
func (w *Workflow) Next(s string) []string {
	edges := w.Edges[s]
	out := append([]string(nil), edges...)
	if w.Cancel == "" || s == w.Cancel || len(edges) == 0 {
		return out
	}
	for _, e := range edges {
		if e == w.Cancel {
			return out
		}
	}
	return append(out, w.Cancel)
}

// CanTransition reports whether from -> to is a declared edge.
func (w *Workflow) CanTransition(from, to string) bool {
	for _, n := range w.Next(from) {
		if n == to {
			return true
		}
	}
	return false
}
