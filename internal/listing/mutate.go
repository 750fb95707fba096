package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"backoffice/internal/attachments"
	"backoffice/internal/audit"
	"backoffice/internal/domain"
	"backoffice/internal/utils"
)

const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionTransition = "transition"
	ActionToggle     = "toggle"
)

// ApplyTransition runs a lifecycle action. action is ActionTransition with
// payload["target"], ActionToggle with payload["flag"], or the name of a
// workflow state ("approved") as shorthand for a transition to it.
func (s Service) ApplyTransition(ctx context.Context, entity string, id domain.ID, action string, payload map[string]string) (domain.Result, error) {
	d, err := s.Registry.Definition(entity)
	if err != nil {
		return s.fail(nil, action, id, err)
	}
	switch {
	case action == ActionTransition:
		return s.Transition(ctx, entity, id, payload["target"])
	case action == ActionToggle:
		return s.ToggleFlag(ctx, entity, id, payload["flag"])
	case d.Workflow != nil && d.Workflow.Has(action):
		return s.Transition(ctx, entity, id, action)
	default:
		return s.fail(d, action, id, domain.ValidationError{Field: "action", Msg: fmt.Sprintf("unknown action %q", action)})
	}
}

// Transition moves an entity along its workflow.
func (s Service) Transition(ctx context.Context, entity string, id domain.ID, target string) (domain.Result, error) {
	d, err := s.Registry.Definition(entity)
	if err != nil {
		return s.fail(nil, ActionTransition, id, err)
	}
	m := d.machine()
	old, err := m.Transition(ctx, s.DB, id, target)
	if err != nil {
		return s.fail(d, ActionTransition, id, err)
	}
	target = strings.TrimSpace(target)
	res := s.result(d, ActionTransition, id, fmt.Sprintf("%s #%d moved from %s to %s",
		utils.UpperFirst(d.title()), id, d.Label(d.Workflow.Column, old), d.Label(d.Workflow.Column, target)))
	res.OldState = old
	res.NewState = target
	return s.emit(ctx, d, res), nil
}

// ToggleFlag negates one flag of an entity together with its implied flags.
func (s Service) ToggleFlag(ctx context.Context, entity string, id domain.ID, flag string) (domain.Result, error) {
	d, err := s.Registry.Definition(entity)
	if err != nil {
		return s.fail(nil, ActionToggle, id, err)
	}
	m := d.machine()
	values, err := m.ToggleFlag(ctx, s.DB, id, flag)
	if err != nil {
		return s.fail(d, ActionToggle, id, err)
	}
	state := "off"
	if values[flag] {
		state = "on"
	}
	res := s.result(d, ActionToggle, id, fmt.Sprintf("%s #%d %s switched %s", utils.UpperFirst(d.title()), id, flag, state))
	res.NewState = flag + "=" + state
	res.Changes = flagChanges(values)
	return s.emit(ctx, d, res), nil
}

// Add inserts a new entity with its attachments. The workflow starts in its
// initial state and flags are normalized before the insert.
func (s Service) Add(ctx context.Context, entity string, in Input) (domain.Result, error) {
	d, err := s.Registry.Definition(entity)
	if err != nil {
		return s.fail(nil, ActionCreate, 0, err)
	}
	if d.ReadOnly {
		return s.fail(d, ActionCreate, 0, readOnly(d))
	}
	assigns, changes, err := d.validate(in, true)
	if err != nil {
		return s.fail(d, ActionCreate, 0, err)
	}
	if d.Flags != nil {
		if err := checkFlags(d, in.Flags); err != nil {
			return s.fail(d, ActionCreate, 0, err)
		}
		values := d.Flags.Normalize(in.Flags, map[string]bool{})
		for _, flag := range d.Flags.Flags {
			on := values[flag]
			assigns = append(assigns, assignment{column: flag, value: boolInt(on)})
			changes[flag] = on
		}
	} else if len(in.Flags) > 0 {
		return s.fail(d, ActionCreate, 0, domain.ValidationError{Field: "flags", Msg: d.title() + " has no flags"})
	}
	if d.Workflow != nil {
		assigns = append(assigns, assignment{column: d.Workflow.Column, value: d.Workflow.Initial})
	}

	cols := make([]string, 0, len(assigns)+2)
	marks := make([]string, 0, len(assigns)+2)
	args := make([]any, 0, len(assigns))
	for _, a := range assigns {
		cols = append(cols, a.column)
		marks = append(marks, "?")
		args = append(args, a.value)
	}
	for _, c := range []string{d.CreatedColumn, d.UpdatedColumn} {
		if c != "" {
			cols = append(cols, c)
			marks = append(marks, "CURRENT_TIMESTAMP")
		}
	}
	if len(cols) == 0 {
		return s.fail(d, ActionCreate, 0, domain.ValidationError{Msg: "nothing to save"})
	}

	u := s.Registry.manager(d.Name, s.RequestID).Unit()
	var id domain.ID
	err = s.inTx(ctx, u, func(tx *sql.Tx) error {
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.Table, strings.Join(cols, ", "), strings.Join(marks, ", "))
		r, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("insert %s: %w", d.Table, err)
		}
		newID, err := r.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert %s: %w", d.Table, err)
		}
		id = domain.ID(newID)
		return s.applyFiles(ctx, tx, d, u, id, in, changes)
	})
	if err != nil {
		return s.fail(d, ActionCreate, 0, err)
	}
	u.Finish(ctx, s.DB)

	res := s.result(d, ActionCreate, id, fmt.Sprintf("%s #%d created", utils.UpperFirst(d.title()), id))
	if d.Workflow != nil {
		res.NewState = d.Workflow.Initial
	}
	res.Changes = changes
	return s.emit(ctx, d, res), nil
}

// Edit updates the fields, flags and attachments present in in. Absent
// fields and slots are left unchanged.
func (s Service) Edit(ctx context.Context, entity string, id domain.ID, in Input) (domain.Result, error) {
	d, err := s.Registry.Definition(entity)
	if err != nil {
		return s.fail(nil, ActionUpdate, id, err)
	}
	if d.ReadOnly {
		return s.fail(d, ActionUpdate, id, readOnly(d))
	}
	assigns, changes, err := d.validate(in, false)
	if err != nil {
		return s.fail(d, ActionUpdate, id, err)
	}
	if len(in.Flags) > 0 {
		if err := checkFlags(d, in.Flags); err != nil {
			return s.fail(d, ActionUpdate, id, err)
		}
	}

	u := s.Registry.manager(d.Name, s.RequestID).Unit()
	err = s.inTx(ctx, u, func(tx *sql.Tx) error {
		if err := s.exists(ctx, tx, d, id); err != nil {
			return err
		}
		if len(assigns) > 0 {
			sets := make([]string, 0, len(assigns)+1)
			args := make([]any, 0, len(assigns)+1)
			for _, a := range assigns {
				sets = append(sets, a.column+" = ?")
				args = append(args, a.value)
			}
			if d.UpdatedColumn != "" {
				sets = append(sets, d.UpdatedColumn+" = CURRENT_TIMESTAMP")
			}
			args = append(args, int64(id))
			query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", d.Table, strings.Join(sets, ", "))
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("update %s: %w", d.Table, err)
			}
		}
		if len(in.Flags) > 0 {
			values, err := d.machine().SetFlags(ctx, tx, id, in.Flags)
			if err != nil {
				return err
			}
			for k, v := range values {
				changes[k] = v
			}
		}
		return s.applyFiles(ctx, tx, d, u, id, in, changes)
	})
	if err != nil {
		return s.fail(d, ActionUpdate, id, err)
	}
	removed := u.Finish(ctx, s.DB)
	if len(removed) > 0 {
		changes["removed_files"] = removed
	}

	res := s.result(d, ActionUpdate, id, fmt.Sprintf("%s #%d updated", utils.UpperFirst(d.title()), id))
	res.Changes = changes
	return s.emit(ctx, d, res), nil
}

// Delete removes the entity and its child rows, then removes every stored
// file whose last reference was this row.
func (s Service) Delete(ctx context.Context, entity string, id domain.ID) (domain.Result, error) {
	d, err := s.Registry.Definition(entity)
	if err != nil {
		return s.fail(nil, ActionDelete, id, err)
	}
	if d.ReadOnly {
		return s.fail(d, ActionDelete, id, readOnly(d))
	}

	u := s.Registry.manager(d.Name, s.RequestID).Unit()
	var oldState string
	err = s.inTx(ctx, u, func(tx *sql.Tx) error {
		if err := s.exists(ctx, tx, d, id); err != nil {
			return err
		}
		if d.Workflow != nil {
			state, err := d.machine().CurrentState(ctx, tx, id)
			if err != nil {
				return err
			}
			oldState = state
		}
		names, err := u.Collect(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, ch := range d.Children {
			query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", ch.Table, ch.ForeignKey)
			if _, err := tx.ExecContext(ctx, query, int64(id)); err != nil {
				return fmt.Errorf("delete %s: %w", ch.Table, err)
			}
		}
		query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", d.Table)
		if _, err := tx.ExecContext(ctx, query, int64(id)); err != nil {
			return fmt.Errorf("delete %s: %w", d.Table, err)
		}
		u.Release(names...)
		return nil
	})
	if err != nil {
		return s.fail(d, ActionDelete, id, err)
	}
	removed := u.Finish(ctx, s.DB)

	res := s.result(d, ActionDelete, id, fmt.Sprintf("%s #%d deleted", utils.UpperFirst(d.title()), id))
	res.OldState = oldState
	if len(removed) > 0 {
		res.Changes = map[string]any{"removed_files": removed}
	}
	return s.emit(ctx, d, res), nil
}

// applyFiles stores uploads and rewrites slot references inside tx, in the
// declared slot order.
func (s Service) applyFiles(ctx context.Context, tx *sql.Tx, d *Definition, u *attachments.Unit, id domain.ID, in Input, changes map[string]any) error {
	for key := range in.Files {
		if slot, ok := findSlot(d, key); !ok || slot.Multi {
			return domain.ValidationError{Field: key, Msg: "unknown attachment slot"}
		}
	}
	for _, key := range galleryKeys(in) {
		if slot, ok := findSlot(d, key); !ok || !slot.Multi {
			return domain.ValidationError{Field: key, Msg: "unknown gallery slot"}
		}
	}
	for _, key := range in.Remove {
		if _, ok := findSlot(d, key); !ok {
			return domain.ValidationError{Field: key, Msg: "unknown attachment slot"}
		}
	}
	removing := map[string]bool{}
	for _, key := range in.Remove {
		removing[key] = true
	}

	for _, slot := range d.Slots {
		switch {
		case slot.Multi:
			uploads, hasNew := in.Gallery[slot.Name]
			keep, hasKeep := in.Keep[slot.Name]
			if !hasNew && !hasKeep && !removing[slot.Name] {
				continue
			}
			names, err := u.ReplaceGallery(ctx, tx, id, slot.Name, keep, uploads)
			if err != nil {
				return err
			}
			changes[slot.Name] = names
		case in.Files[slot.Name] != nil:
			name, err := u.Replace(ctx, tx, id, slot.Name, in.Files[slot.Name])
			if err != nil {
				return err
			}
			changes[slot.Name] = name
		case removing[slot.Name]:
			if err := u.Detach(ctx, tx, id, slot.Name); err != nil {
				return err
			}
			changes[slot.Name] = nil
		}
	}
	return nil
}

// inTx runs fn in a transaction. On any failure the transaction is rolled
// back and files stored by u are removed again.
func (s Service) inTx(ctx context.Context, u *attachments.Unit, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		u.Abort(ctx)
		return err
	}
	if err := tx.Commit(); err != nil {
		u.Abort(ctx)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s Service) exists(ctx context.Context, tx *sql.Tx, d *Definition, id domain.ID) error {
	var one int
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = ? LIMIT 1", d.Table)
	if err := tx.QueryRowContext(ctx, query, int64(id)).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundError{Resource: d.title(), Err: err}
		}
		return fmt.Errorf("read %s: %w", d.Table, err)
	}
	return nil
}

func (s Service) result(d *Definition, action string, id domain.ID, msg string) domain.Result {
	return domain.Result{OK: true, Message: msg, Entity: d.Name, EntityID: id, Action: action}
}

// emit records exactly one audit event for a successful action and stamps
// the result with the event time.
func (s Service) emit(ctx context.Context, d *Definition, res domain.Result) domain.Result {
	ev := audit.Emit(ctx, s.Audit, audit.Event{
		ActorID:    s.Actor,
		EntityType: d.Name,
		EntityID:   res.EntityID,
		Action:     res.Action,
		Message:    res.Message,
		OldState:   res.OldState,
		NewState:   res.NewState,
		RequestID:  s.RequestID,
	})
	res.At = ev.Timestamp
	return res
}

// fail turns err into the caller-facing Result. Validation-type errors keep
// their message; store errors are logged and replaced by a retry hint.
func (s Service) fail(d *Definition, action string, id domain.ID, err error) (domain.Result, error) {
	err = s.internal(action, err)
	res := domain.Result{OK: false, Message: err.Error(), EntityID: id, Action: action}
	if d != nil {
		res.Entity = d.Name
	}
	if domain.IsStorageWrite(err) {
		utils.LogEvent(s.RequestID, "listing", action, err.Error())
		res.Message = "could not store the uploaded file, please retry"
	}
	return res, err
}

func readOnly(d *Definition) error {
	return domain.ValidationError{Msg: d.title() + " records are read-only"}
}

func checkFlags(d *Definition, flags map[string]bool) error {
	for k := range flags {
		if d.Flags == nil || !d.Flags.Has(k) {
			return domain.ValidationError{Field: k, Msg: "unknown flag"}
		}
	}
	return nil
}

func findSlot(d *Definition, name string) (attachments.Slot, bool) {
	for _, s := range d.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return attachments.Slot{}, false
}

func galleryKeys(in Input) []string {
	keys := make([]string, 0, len(in.Gallery)+len(in.Keep))
	for k := range in.Gallery {
		keys = append(keys, k)
	}
	for k := range in.Keep {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func flagChanges(values map[string]bool) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
