package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"backoffice/internal/db"
	"backoffice/internal/domain"
)

// Machine applies a Workflow and/or FlagSet to rows of one table.
type Machine struct {
	Entity   string
	Table    string
	Workflow *Workflow
	Flags    *FlagSet
	// TouchColumn, when set, is bumped to CURRENT_TIMESTAMP on every write.
	TouchColumn string
}

// Validate checks the declarations once at startup.
func (m Machine) Validate() error {
	if !db.IsIdent(m.Table) {
		return domain.ConfigurationError{Component: "lifecycle " + m.Entity, Msg: "invalid table " + m.Table}
	}
	if m.TouchColumn != "" && !db.IsIdent(m.TouchColumn) {
		return domain.ConfigurationError{Component: "lifecycle " + m.Entity, Msg: "invalid touch column " + m.TouchColumn}
	}
	if m.Workflow != nil {
		if err := m.Workflow.Validate(); err != nil {
			return err
		}
	}
	if m.Flags != nil {
		if err := m.Flags.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Columns lists every column the machine writes, for schema binding.
func (m Machine) Columns() []string {
	var out []string
	if m.Workflow != nil {
		out = append(out, m.Workflow.Column)
	}
	if m.Flags != nil {
		out = append(out, m.Flags.Flags...)
	}
	if m.TouchColumn != "" {
		out = append(out, m.TouchColumn)
	}
	return out
}

// CurrentState reads the workflow column of id.
func (m Machine) CurrentState(ctx context.Context, q db.Querier, id domain.ID) (string, error) {
	if m.Workflow == nil {
		return "", m.noWorkflow()
	}
	var state sql.NullString
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", m.Workflow.Column, m.Table)
	if err := q.QueryRowContext(ctx, query, int64(id)).Scan(&state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.NotFoundError{Resource: m.Entity, Err: err}
		}
		return "", fmt.Errorf("read %s state: %w", m.Entity, err)
	}
	return state.String, nil
}

// Transition moves id to target along a declared edge. The write is a
// compare-and-set on the state that was read, so a concurrent change makes
// it fail instead of overwriting. Returns the previous state.
func (m Machine) Transition(ctx context.Context, q db.Querier, id domain.ID, target string) (string, error) {
	if m.Workflow == nil {
		return "", m.noWorkflow()
	}
	target = strings.TrimSpace(target)
	if !m.Workflow.Has(target) {
		return "", domain.ValidationError{Field: m.Workflow.Column, Msg: fmt.Sprintf("unknown state %q", target)}
	}
	current, err := m.CurrentState(ctx, q, id)
	if err != nil {
		return "", err
	}
	if !m.Workflow.CanTransition(current, target) {
		return current, domain.IllegalTransitionError{Entity: m.Entity, From: current, To: target}
	}

	sets := []string{m.Workflow.Column + " = ?"}
	if m.TouchColumn != "" {
		sets = append(sets, m.TouchColumn+" = CURRENT_TIMESTAMP")
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND %s = ?",
		m.Table, strings.Join(sets, ", "), m.Workflow.Column)
	res, err := q.ExecContext(ctx, query, target, int64(id), current)
	if err != nil {
		return current, fmt.Errorf("update %s state: %w", m.Entity, err)
	}
	// target never equals current (no self edges), so a matched row is
	// always a changed row, even where the driver counts changed rows only
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return current, domain.ConflictError{Resource: m.Entity, Msg: "state changed by another request, reload and retry"}
	}
	return current, nil
}

// ToggleFlag negates flag on id in a single UPDATE together with its
// implied side effects, then reads back the resulting flag values.
func (m Machine) ToggleFlag(ctx context.Context, q db.Querier, id domain.ID, flag string) (map[string]bool, error) {
	if m.Flags == nil || !m.Flags.Has(flag) {
		return nil, domain.ValidationError{Field: "flag", Msg: fmt.Sprintf("%s has no flag %q", m.Entity, flag)}
	}
	sets := m.Flags.toggleAssignments(flag)
	if m.TouchColumn != "" {
		sets = append(sets, m.TouchColumn+" = CURRENT_TIMESTAMP")
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", m.Table, strings.Join(sets, ", "))
	if _, err := q.ExecContext(ctx, query, int64(id)); err != nil {
		return nil, fmt.Errorf("toggle %s.%s: %w", m.Entity, flag, err)
	}
	// a missing row surfaces as NotFound from the read-back
	return m.ReadFlags(ctx, q, id)
}

// SetFlags writes explicit flag values after normalizing them against the
// row's current values so the implications hold.
func (m Machine) SetFlags(ctx context.Context, q db.Querier, id domain.ID, input map[string]bool) (map[string]bool, error) {
	if m.Flags == nil {
		return nil, domain.ValidationError{Field: "flag", Msg: m.Entity + " has no flags"}
	}
	for k := range input {
		if !m.Flags.Has(k) {
			return nil, domain.ValidationError{Field: k, Msg: "unknown flag"}
		}
	}
	current, err := m.ReadFlags(ctx, q, id)
	if err != nil {
		return nil, err
	}
	values := m.Flags.Normalize(input, current)
	if len(values) == 0 {
		return current, nil
	}

	var (
		sets []string
		args []any
	)
	for _, flag := range m.Flags.Flags {
		v, ok := values[flag]
		if !ok {
			continue
		}
		sets = append(sets, flag+" = ?")
		args = append(args, boolInt(v))
	}
	if m.TouchColumn != "" {
		sets = append(sets, m.TouchColumn+" = CURRENT_TIMESTAMP")
	}
	args = append(args, int64(id))
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", m.Table, strings.Join(sets, ", "))
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("set %s flags: %w", m.Entity, err)
	}
	for k, v := range values {
		current[k] = v
	}
	return current, nil
}

// ReadFlags returns the current flag values of id.
func (m Machine) ReadFlags(ctx context.Context, q db.Querier, id domain.ID) (map[string]bool, error) {
	if m.Flags == nil || len(m.Flags.Flags) == 0 {
		return map[string]bool{}, nil
	}
	cols := make([]string, len(m.Flags.Flags))
	for i, f := range m.Flags.Flags {
		cols[i] = "COALESCE(" + f + ", 0)"
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", strings.Join(cols, ", "), m.Table)
	raw := make([]int64, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := q.QueryRowContext(ctx, query, int64(id)).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: m.Entity, Err: err}
		}
		return nil, fmt.Errorf("read %s flags: %w", m.Entity, err)
	}
	out := make(map[string]bool, len(cols))
	for i, f := range m.Flags.Flags {
		out[f] = raw[i] != 0
	}
	return out, nil
}

func (m Machine) noWorkflow() error {
	return domain.ValidationError{Field: "status", Msg: m.Entity + " has no workflow"}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
