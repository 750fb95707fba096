package attachments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"backoffice/internal/db"
	"backoffice/internal/domain"
	"backoffice/internal/filter"
	"backoffice/internal/utils"
)

// Slot declares one attachment column of an entity.
type Slot struct {
	Name   string
	Column string
	// Multi slots keep a JSON array of stored names ("gallery").
	Multi    bool
	Prefix   string
	Exts     []string
	MaxBytes int64
}

// Upload is a file offered by the client.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// Manager binds a BlobStore to the attachment slots of one table.
type Manager struct {
	Entity    string
	Table     string
	Slots     []Slot
	Store     BlobStore
	RequestID string
}

// Validate checks the slot declarations once at startup.
func (m *Manager) Validate() error {
	seen := map[string]bool{}
	for _, s := range m.Slots {
		if s.Name == "" || seen[s.Name] {
			return domain.ConfigurationError{Component: "attachments " + m.Entity, Msg: fmt.Sprintf("duplicate or empty slot %q", s.Name)}
		}
		if !db.IsIdent(s.Column) {
			return domain.ConfigurationError{Component: "attachments " + m.Entity, Msg: fmt.Sprintf("slot %q: invalid column %q", s.Name, s.Column)}
		}
		seen[s.Name] = true
	}
	if len(m.Slots) > 0 && m.Store == nil {
		return domain.ConfigurationError{Component: "attachments " + m.Entity, Msg: "no blob store"}
	}
	return nil
}

// Slot looks up a slot by name.
func (m *Manager) Slot(name string) (Slot, error) {
	for _, s := range m.Slots {
		if s.Name == name {
			return s, nil
		}
	}
	return Slot{}, domain.ValidationError{Field: name, Msg: "unknown attachment slot"}
}

// Columns lists the attachment columns, for schema binding.
func (m *Manager) Columns() []string {
	out := make([]string, len(m.Slots))
	for i, s := range m.Slots {
		out[i] = s.Column
	}
	return out
}

// Unit collects the files one logical operation stored and released. Files
// stored are removed again if the operation aborts; files released are
// removed after commit, and only when no row still references them.
type Unit struct {
	m        *Manager
	stored   []string
	released []string
}

// Unit starts a unit of work.
func (m *Manager) Unit() *Unit {
	return &Unit{m: m}
}

// Store validates and writes upload under a fresh name. Nothing references
// the file yet.
func (u *Unit) Store(ctx context.Context, slotName string, up Upload) (string, error) {
	slot, err := u.m.Slot(slotName)
	if err != nil {
		return "", err
	}
	if err := checkUpload(slot, up); err != nil {
		return "", err
	}
	name, err := NewStoredName(slot.Prefix, up.Filename)
	if err != nil {
		return "", domain.StorageWriteError{Err: err}
	}
	if err := u.m.Store.Put(ctx, name, up.Body); err != nil {
		return "", domain.StorageWriteError{Name: name, Err: err}
	}
	u.stored = append(u.stored, name)
	return name, nil
}

// Release marks names as no longer referenced by the row being changed.
func (u *Unit) Release(names ...string) {
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			u.released = append(u.released, n)
		}
	}
}

// Replace stores up, points the row's slot at it and releases the previous
// file. A nil upload leaves the slot unchanged and writes nothing.
func (u *Unit) Replace(ctx context.Context, q db.Querier, id domain.ID, slotName string, up *Upload) (string, error) {
	slot, err := u.m.Slot(slotName)
	if err != nil {
		return "", err
	}
	if slot.Multi {
		return "", domain.ValidationError{Field: slotName, Msg: "use the gallery operation for multi slots"}
	}
	current, err := u.m.currentSingle(ctx, q, id, slot)
	if err != nil {
		return "", err
	}
	if up == nil {
		return current, nil
	}
	name, err := u.Store(ctx, slotName, *up)
	if err != nil {
		return "", err
	}
	if err := u.m.setColumn(ctx, q, id, slot, name); err != nil {
		return "", err
	}
	u.Release(current)
	return name, nil
}

// Detach clears the slot and releases its file(s).
func (u *Unit) Detach(ctx context.Context, q db.Querier, id domain.ID, slotName string) error {
	slot, err := u.m.Slot(slotName)
	if err != nil {
		return err
	}
	names, err := u.m.slotNames(ctx, q, id, slot)
	if err != nil {
		return err
	}
	if err := u.m.setColumn(ctx, q, id, slot, nil); err != nil {
		return err
	}
	u.Release(names...)
	return nil
}

// ReplaceGallery rewrites a multi slot. keep is the authoritative set of
// previously stored names that remain; every other previous name is
// released. New uploads are appended after the kept names.
func (u *Unit) ReplaceGallery(ctx context.Context, q db.Querier, id domain.ID, slotName string, keep []string, uploads []Upload) ([]string, error) {
	slot, err := u.m.Slot(slotName)
	if err != nil {
		return nil, err
	}
	if !slot.Multi {
		return nil, domain.ValidationError{Field: slotName, Msg: "not a multi-file slot"}
	}
	previous, err := u.m.slotNames(ctx, q, id, slot)
	if err != nil {
		return nil, err
	}
	keepSet := map[string]bool{}
	for _, k := range keep {
		keepSet[strings.TrimSpace(k)] = true
	}

	var next []string
	for _, p := range previous {
		if keepSet[p] {
			next = append(next, p)
		} else {
			u.Release(p)
		}
	}
	for _, up := range uploads {
		name, err := u.Store(ctx, slotName, up)
		if err != nil {
			return nil, err
		}
		next = append(next, name)
	}
	encoded, err := encodeList(next)
	if err != nil {
		return nil, err
	}
	if err := u.m.setColumn(ctx, q, id, slot, encoded); err != nil {
		return nil, err
	}
	return next, nil
}

// Collect returns every stored name the row references, for release before
// the row is deleted.
func (u *Unit) Collect(ctx context.Context, q db.Querier, id domain.ID) ([]string, error) {
	var out []string
	for _, slot := range u.m.Slots {
		names, err := u.m.slotNames(ctx, q, id, slot)
		if err != nil {
			return nil, err
		}
		out = append(out, names...)
	}
	return out, nil
}

// Abort removes files stored by the unit. Call it when the row change is
// not committed.
func (u *Unit) Abort(ctx context.Context) {
	for _, name := range u.stored {
		if err := u.m.Store.Delete(ctx, name); err != nil {
			u.m.logOrphan(domain.OrphanCleanupError{Name: name, Err: err})
		}
	}
	u.stored = nil
	u.released = nil
}

// Finish deletes released files that no row references any more. Failures
// are logged as OrphanCleanupFailed and never returned; the returned slice
// lists the files actually removed.
func (u *Unit) Finish(ctx context.Context, q db.Querier) []string {
	var removed []string
	seen := map[string]bool{}
	for _, name := range u.released {
		if seen[name] {
			continue
		}
		seen[name] = true
		refs, err := u.m.References(ctx, q, name)
		if err != nil {
			u.m.logOrphan(domain.OrphanCleanupError{Name: name, Err: err})
			continue
		}
		if refs > 0 {
			continue
		}
		if err := u.m.Store.Delete(ctx, name); err != nil {
			u.m.logOrphan(domain.OrphanCleanupError{Name: name, Err: err})
			continue
		}
		removed = append(removed, name)
	}
	u.stored = nil
	u.released = nil
	return removed
}

// Stored lists the names written during the unit.
func (u *Unit) Stored() []string { return append([]string(nil), u.stored...) }

// References counts rows whose slots mention name.
func (m *Manager) References(ctx context.Context, q db.Querier, name string) (int, error) {
	if len(m.Slots) == 0 {
		return 0, nil
	}
	var (
		conds []string
		args  []any
	)
	for _, s := range m.Slots {
		if s.Multi {
			conds = append(conds, s.Column+" LIKE ? ESCAPE '!'")
			args = append(args, `%"`+filter.EscapeLike(name)+`"%`)
		} else {
			conds = append(conds, s.Column+" = ?")
			args = append(args, name)
		}
	}
	var n int
	query := "SELECT COUNT(*) FROM " + m.Table + " WHERE " + strings.Join(conds, " OR ")
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count references to %s: %w", name, err)
	}
	return n, nil
}

// Attach stores up in an empty or occupied single slot and commits the
// reference on q. The previous file, if any, is removed afterwards.
func (m *Manager) Attach(ctx context.Context, q db.Querier, id domain.ID, slot string, up Upload) (string, error) {
	return m.Replace(ctx, q, id, slot, &up)
}

// Replace is Unit.Replace run as its own unit against an autocommit q.
func (m *Manager) Replace(ctx context.Context, q db.Querier, id domain.ID, slot string, up *Upload) (string, error) {
	u := m.Unit()
	name, err := u.Replace(ctx, q, id, slot, up)
	if err != nil {
		u.Abort(ctx)
		return "", err
	}
	u.Finish(ctx, q)
	return name, nil
}

// Detach is Unit.Detach run as its own unit against an autocommit q.
func (m *Manager) Detach(ctx context.Context, q db.Querier, id domain.ID, slot string) error {
	u := m.Unit()
	if err := u.Detach(ctx, q, id, slot); err != nil {
		u.Abort(ctx)
		return err
	}
	u.Finish(ctx, q)
	return nil
}

// ReconcileOnDelete collects the row's files, runs remove (which deletes the
// row) and then removes the files whose last reference was that row.
func (m *Manager) ReconcileOnDelete(ctx context.Context, q db.Querier, id domain.ID, remove func(context.Context) error) ([]string, error) {
	u := m.Unit()
	names, err := u.Collect(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if err := remove(ctx); err != nil {
		return nil, err
	}
	u.Release(names...)
	return u.Finish(ctx, q), nil
}

func (m *Manager) currentSingle(ctx context.Context, q db.Querier, id domain.ID, slot Slot) (string, error) {
	var cur sql.NullString
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", slot.Column, m.Table)
	if err := q.QueryRowContext(ctx, query, int64(id)).Scan(&cur); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.NotFoundError{Resource: m.Entity, Err: err}
		}
		return "", fmt.Errorf("read %s.%s: %w", m.Table, slot.Column, err)
	}
	return strings.TrimSpace(cur.String), nil
}

func (m *Manager) slotNames(ctx context.Context, q db.Querier, id domain.ID, slot Slot) ([]string, error) {
	raw, err := m.currentSingle(ctx, q, id, slot)
	if err != nil {
		return nil, err
	}
	if !slot.Multi {
		if raw == "" {
			return nil, nil
		}
		return []string{raw}, nil
	}
	return DecodeList(raw), nil
}

func (m *Manager) setColumn(ctx context.Context, q db.Querier, id domain.ID, slot Slot, value any) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", m.Table, slot.Column)
	// callers read the row first; MySQL reports 0 affected rows for an
	// unchanged value, so the count says nothing about existence
	if _, err := q.ExecContext(ctx, query, value, int64(id)); err != nil {
		return fmt.Errorf("update %s.%s: %w", m.Table, slot.Column, err)
	}
	return nil
}

func (m *Manager) logOrphan(err error) {
	utils.LogEvent(m.RequestID, "attachments", string(domain.KindOf(err)), err.Error())
}

func checkUpload(slot Slot, up Upload) error {
	if up.Body == nil {
		return domain.ValidationError{Field: slot.Name, Msg: "empty upload"}
	}
	if slot.MaxBytes > 0 && up.Size > slot.MaxBytes {
		return domain.ValidationError{Field: slot.Name, Msg: fmt.Sprintf("file exceeds %d bytes", slot.MaxBytes)}
	}
	if len(slot.Exts) == 0 {
		return nil
	}
	ext := Ext(up.Filename)
	for _, allowed := range slot.Exts {
		if ext == allowed {
			return nil
		}
	}
	return domain.ValidationError{Field: slot.Name, Msg: fmt.Sprintf("file type %q not allowed", ext)}
}

// DecodeList parses a multi-slot column. Malformed content yields nil.
func DecodeList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil
	}
	out := names[:0]
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func encodeList(names []string) (any, error) {
	if len(names) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(names)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
