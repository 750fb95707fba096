package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"backoffice/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// journal records storage and row operations in causal order.
type journal struct {
	steps []string
}

type recordingStore struct {
	*MemoryStore
	j          *journal
	failPut    bool
	failDelete bool
}

func (s *recordingStore) Put(ctx context.Context, name string, r io.Reader) error {
	if s.failPut {
		return errors.New("disk full")
	}
	s.j.steps = append(s.j.steps, "put "+name)
	return s.MemoryStore.Put(ctx, name, r)
}

func (s *recordingStore) Delete(ctx context.Context, name string) error {
	if s.failDelete {
		return errors.New("crash before delete")
	}
	s.j.steps = append(s.j.steps, "delete "+name)
	return s.MemoryStore.Delete(ctx, name)
}

// recordingDB logs UPDATE statements and can fail them.
type recordingDB struct {
	*sql.DB
	j          *journal
	failUpdate bool
}

func (d *recordingDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if strings.HasPrefix(query, "UPDATE") {
		if d.failUpdate {
			return nil, errors.New("lost connection")
		}
		d.j.steps = append(d.j.steps, "update")
	}
	return d.DB.ExecContext(ctx, query, args...)
}

type fixture struct {
	db    *recordingDB
	store *recordingStore
	mgr   *Manager
	j     *journal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec(`CREATE TABLE menu_items (id INTEGER PRIMARY KEY, name TEXT, image TEXT, gallery TEXT)`)
	require.NoError(t, err)

	j := &journal{}
	store := &recordingStore{MemoryStore: NewMemoryStore(), j: j}
	mgr := &Manager{
		Entity: "menu item",
		Table:  "menu_items",
		Store:  store,
		Slots: []Slot{
			{Name: "image", Column: "image", Prefix: "menu", Exts: []string{".jpg", ".png"}, MaxBytes: 1 << 20},
			{Name: "gallery", Column: "gallery", Multi: true, Prefix: "menu_gallery"},
		},
	}
	require.NoError(t, mgr.Validate())
	return &fixture{db: &recordingDB{DB: conn, j: j}, store: store, mgr: mgr, j: j}
}

func (f *fixture) seed(t *testing.T, id int, image, gallery string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.db.DB.Exec(`INSERT INTO menu_items (id, name, image, gallery) VALUES (?, ?, ?, ?)`,
		id, fmt.Sprintf("item %d", id), image, gallery)
	require.NoError(t, err)
	if image != "" {
		require.NoError(t, f.store.MemoryStore.Put(ctx, image, strings.NewReader("old")))
	}
	for _, n := range DecodeList(gallery) {
		require.NoError(t, f.store.MemoryStore.Put(ctx, n, strings.NewReader("g")))
	}
}

func (f *fixture) column(t *testing.T, id int, col string) string {
	t.Helper()
	var v sql.NullString
	require.NoError(t, f.db.DB.QueryRow(`SELECT `+col+` FROM menu_items WHERE id = ?`, id).Scan(&v))
	return v.String
}

func (f *fixture) exists(t *testing.T, name string) bool {
	t.Helper()
	ok, err := f.store.Exists(context.Background(), name)
	require.NoError(t, err)
	return ok
}

func upload(name string) *Upload {
	return &Upload{Filename: name, Size: 3, Body: strings.NewReader("new")}
}

func TestReplaceWithoutFileIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, "menu_old.jpg", "")

	name, err := f.mgr.Replace(context.Background(), f.db, 1, "image", nil)
	require.NoError(t, err)
	assert.Equal(t, "menu_old.jpg", name)
	assert.Empty(t, f.j.steps, "no storage or row writes expected")
	assert.Equal(t, "menu_old.jpg", f.column(t, 1, "image"))
}

func TestReplaceOrdersStoreUpdateDelete(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, "menu_old.jpg", "")

	name, err := f.mgr.Replace(context.Background(), f.db, 1, "image", upload("Photo.JPG"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "menu_"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))

	assert.Equal(t, []string{"put " + name, "update", "delete menu_old.jpg"}, f.j.steps)
	assert.Equal(t, name, f.column(t, 1, "image"))
	assert.True(t, f.exists(t, name))
	assert.False(t, f.exists(t, "menu_old.jpg"))
}

func TestReplaceCrashBeforeDeleteKeepsValidReference(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, "menu_old.jpg", "")
	f.store.failDelete = true

	name, err := f.mgr.Replace(context.Background(), f.db, 1, "image", upload("a.png"))
	require.NoError(t, err, "orphan cleanup failure is not fatal")
	assert.Equal(t, name, f.column(t, 1, "image"))
	assert.True(t, f.exists(t, name))
	assert.True(t, f.exists(t, "menu_old.jpg"), "old file leaks instead of breaking the reference")
}

func TestReplaceRowUpdateFailureRemovesNewFile(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, "menu_old.jpg", "")
	f.db.failUpdate = true

	_, err := f.mgr.Replace(context.Background(), f.db, 1, "image", upload("a.png"))
	require.Error(t, err)
	assert.Equal(t, "menu_old.jpg", f.column(t, 1, "image"))
	assert.True(t, f.exists(t, "menu_old.jpg"))
	assert.ElementsMatch(t, []string{"menu_old.jpg"}, f.store.Names())
}

func TestReplaceStorageFailureLeavesRowUntouched(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, "menu_old.jpg", "")
	f.store.failPut = true

	_, err := f.mgr.Replace(context.Background(), f.db, 1, "image", upload("a.png"))
	require.Error(t, err)
	assert.Equal(t, domain.KindStorageWriteFailed, domain.KindOf(err))
	assert.Equal(t, "menu_old.jpg", f.column(t, 1, "image"))
	assert.NotContains(t, f.j.steps, "update")
}

func TestReplaceRejectsDisallowedUpload(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, "", "")

	_, err := f.mgr.Replace(context.Background(), f.db, 1, "image", upload("payload.exe"))
	assert.True(t, domain.IsValidation(err))

	big := upload("big.png")
	big.Size = 2 << 20
	_, err = f.mgr.Replace(context.Background(), f.db, 1, "image", big)
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, f.store.Names())
}

func TestSharedFileIsNotDeletedWhileReferenced(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, "menu_shared.jpg", "")
	_, err := f.db.DB.Exec(`INSERT INTO menu_items (id, name, image) VALUES (2, 'copy', 'menu_shared.jpg')`)
	require.NoError(t, err)

	require.NoError(t, f.mgr.Detach(context.Background(), f.db, 1, "image"))
	assert.Equal(t, "", f.column(t, 1, "image"))
	assert.True(t, f.exists(t, "menu_shared.jpg"))
}

func TestReplaceGallery(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, "", `["g_a.jpg","g_b.jpg","g_c.jpg"]`)
	ctx := context.Background()

	u := f.mgr.Unit()
	next, err := u.ReplaceGallery(ctx, f.db, 1, "gallery",
		[]string{"g_c.jpg", "g_a.jpg", "g_forged.jpg"},
		[]Upload{*upload("d.webp")})
	require.NoError(t, err)
	removed := u.Finish(ctx, f.db)

	require.Len(t, next, 3)
	assert.Equal(t, []string{"g_a.jpg", "g_c.jpg"}, next[:2])
	assert.Equal(t, []string{"g_b.jpg"}, removed)
	assert.False(t, f.exists(t, "g_b.jpg"))
	assert.True(t, f.exists(t, next[2]))
	assert.Equal(t, next, DecodeList(f.column(t, 1, "gallery")))
}

func TestReconcileOnDelete(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, "menu_only.jpg", `["g_x.jpg"]`)
	ctx := context.Background()

	removed, err := f.mgr.ReconcileOnDelete(ctx, f.db, 1, func(ctx context.Context) error {
		_, err := f.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = ?`, 1)
		return err
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"menu_only.jpg", "g_x.jpg"}, removed)
	assert.Empty(t, f.store.Names())
}

func TestStoredNameIgnoresClientPath(t *testing.T) {
	name, err := NewStoredName("resume", `..\..\etc/passwd.PDF`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "resume_"))
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, "passwd")

	assert.Equal(t, "", Ext("noext"))
	assert.Equal(t, "", Ext("weird.p$f"))
}

// MySQL counts changed rows, so rewriting a slot with its current value
// reports zero rows affected.
func mysqlManager(t *testing.T) (*Manager, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	mgr := &Manager{
		Entity: "menu item",
		Table:  "menu_items",
		Store:  NewMemoryStore(),
		Slots: []Slot{
			{Name: "image", Column: "image", Prefix: "menu"},
			{Name: "gallery", Column: "gallery", Multi: true, Prefix: "menu_gallery"},
		},
	}
	require.NoError(t, mgr.Validate())
	return mgr, conn, mock
}

func TestDetachEmptySlotWithUnchangedRow(t *testing.T) {
	mgr, conn, mock := mysqlManager(t)
	mock.ExpectQuery(`SELECT image FROM menu_items WHERE id = \?`).WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"image"}).AddRow(nil))
	mock.ExpectExec(`UPDATE menu_items SET image = \? WHERE id = \?`).WithArgs(nil, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, mgr.Detach(context.Background(), conn, 4, "image"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceGalleryKeepingEverythingWithUnchangedRow(t *testing.T) {
	mgr, conn, mock := mysqlManager(t)
	current := `["g_a.jpg","g_b.jpg"]`
	mock.ExpectQuery(`SELECT gallery FROM menu_items WHERE id = \?`).WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"gallery"}).AddRow(current))
	mock.ExpectExec(`UPDATE menu_items SET gallery = \? WHERE id = \?`).WithArgs(current, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	u := mgr.Unit()
	next, err := u.ReplaceGallery(ctx, conn, 4, "gallery", []string{"g_a.jpg", "g_b.jpg"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"g_a.jpg", "g_b.jpg"}, next)
	assert.Empty(t, u.Finish(ctx, conn))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDetachMissingRowIsNotFound(t *testing.T) {
	mgr, conn, mock := mysqlManager(t)
	mock.ExpectQuery(`SELECT image FROM menu_items WHERE id = \?`).WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"image"}))

	err := mgr.Detach(context.Background(), conn, 99, "image")
	assert.True(t, domain.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
