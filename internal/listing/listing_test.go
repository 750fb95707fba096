package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"backoffice/internal/attachments"
	"backoffice/internal/audit"
	"backoffice/internal/db"
	"backoffice/internal/domain"
	"backoffice/internal/filter"
	"backoffice/internal/lifecycle"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var orderStates = []string{"pending", "processing", "confirmed", "shipped", "delivered", "cancelled"}

const schema = `
CREATE TABLE orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	total REAL,
	created_at TEXT,
	updated_at TEXT
);
CREATE TABLE order_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	product_name TEXT,
	quantity INTEGER
);
CREATE TABLE menu_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	category TEXT,
	is_active INTEGER NOT NULL DEFAULT 0,
	is_featured INTEGER NOT NULL DEFAULT 0,
	image TEXT,
	gallery TEXT,
	created_at TEXT,
	updated_at TEXT
);`

func ordersDef() *Definition {
	return &Definition{
		Name:     "orders",
		Title:    "order",
		Table:    "orders",
		PageSize: 10,
		Columns:  []string{"customer_name", "status", "total", "created_at"},
		Filters: filter.MustSpec("orders", "orders", []filter.FilterField{
			{Key: "q", Kind: filter.Substring, Columns: []string{"customer_name"}},
			{Key: "status", Kind: filter.Exact, Columns: []string{"status"}, AllowedValues: orderStates},
		}, filter.WithSorts("-created_at", filter.SortField{Key: "created_at", Column: "created_at"})),
		Facets: []string{"status"},
		Fields: []FieldDef{
			{Key: "customer_name", Column: "customer_name", Required: true, MaxLen: 40},
			{Key: "total", Column: "total", Type: filter.Float},
		},
		Workflow: &lifecycle.Workflow{
			Column:  "status",
			Initial: "pending",
			States:  orderStates,
			Edges: map[string][]string{
				"pending":    {"processing", "confirmed"},
				"processing": {"shipped"},
				"confirmed":  {"delivered"},
				"shipped":    {"delivered"},
			},
			Cancel: "cancelled",
		},
		Children: []ChildSpec{
			{Key: "items", Table: "order_items", ForeignKey: "order_id", Columns: []string{"product_name", "quantity"}},
		},
		Labels:        map[string]map[string]string{"status": {"pending": "Awaiting payment"}},
		CreatedColumn: "created_at",
		UpdatedColumn: "updated_at",
	}
}

func menuDef() *Definition {
	return &Definition{
		Name:     "menu_items",
		Title:    "menu item",
		Table:    "menu_items",
		PageSize: 8,
		Columns:  []string{"name", "category", "is_active", "is_featured", "image", "gallery"},
		Filters: filter.MustSpec("menu_items", "menu_items", []filter.FilterField{
			{Key: "q", Kind: filter.Substring, Columns: []string{"name"}},
			{Key: "is_active", Kind: filter.Exact, Columns: []string{"is_active"}, Type: filter.Bool},
		}),
		Facets: []string{"is_active"},
		Fields: []FieldDef{
			{Key: "name", Column: "name", Required: true},
			{Key: "category", Column: "category", AllowedValues: []string{"mains", "drinks"}},
		},
		Flags: &lifecycle.FlagSet{
			Flags:   []string{"is_active", "is_featured"},
			Implies: map[string]string{"is_featured": "is_active"},
		},
		Slots: []attachments.Slot{
			{Name: "image", Column: "image", Prefix: "menu", Exts: []string{".png", ".jpg"}, MaxBytes: 1 << 20},
			{Name: "gallery", Column: "gallery", Multi: true, Prefix: "gallery", Exts: []string{".png", ".jpg"}},
		},
		CreatedColumn: "created_at",
		UpdatedColumn: "updated_at",
	}
}

type fixture struct {
	db    *sql.DB
	store *attachments.MemoryStore
	sink  *audit.MemorySink
	svc   Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, nil)
}

func newFixtureWithStore(t *testing.T, store attachments.BlobStore) *fixture {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec(schema)
	require.NoError(t, err)

	mem := attachments.NewMemoryStore()
	if store == nil {
		store = mem
	}
	ctx := context.Background()
	reg, err := NewRegistry(ctx, conn, db.SQLite, store, ordersDef(), menuDef())
	require.NoError(t, err)

	sink := &audit.MemorySink{}
	svc := Service{DB: conn, Registry: reg, Audit: sink}.WithRequest(7, "req-1")
	return &fixture{db: conn, store: mem, sink: sink, svc: svc}
}

func (f *fixture) seedOrders(t *testing.T, n int, status string) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.db.Exec(`INSERT INTO orders (customer_name, status, total, created_at) VALUES (?, ?, ?, ?)`,
			fmt.Sprintf("Customer %02d", i), status, 10.5, fmt.Sprintf("2024-01-%02d 10:00:00", i%28+1))
		require.NoError(t, err)
	}
}

func (f *fixture) state(t *testing.T, id domain.ID) string {
	t.Helper()
	var s string
	require.NoError(t, f.db.QueryRow(`SELECT status FROM orders WHERE id = ?`, int64(id)).Scan(&s))
	return s
}

func upload(name, body string) *attachments.Upload {
	return &attachments.Upload{Filename: name, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestListPageThirdPageOfTwentyThree(t *testing.T) {
	f := newFixture(t)
	f.seedOrders(t, 23, "pending")

	page, err := f.svc.ListPage(context.Background(), "orders", filter.Request{}, 3)
	require.NoError(t, err)

	assert.Len(t, page.Rows, 3)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.Equal(t, 20, page.Pagination.Offset)
	assert.Equal(t, 23, page.Pagination.Total)
	assert.Equal(t, 23, page.Facets["status"].All)
	assert.Equal(t, 23, page.Facets["status"].Counts["pending"])
}

func TestListPageClampsPastLastPage(t *testing.T) {
	f := newFixture(t)
	f.seedOrders(t, 12, "pending")

	page, err := f.svc.ListPage(context.Background(), "orders", filter.Request{}, 9)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.Page)
	assert.Len(t, page.Rows, 2)
}

func TestListPageNoMatchesStillEnumeratesFacets(t *testing.T) {
	f := newFixture(t)
	f.seedOrders(t, 5, "pending")

	page, err := f.svc.ListPage(context.Background(), "orders", filter.Request{"q": "chicken"}, 1)
	require.NoError(t, err)

	assert.Empty(t, page.Rows)
	facet := page.Facets["status"]
	require.Len(t, facet.Counts, len(orderStates))
	for _, s := range orderStates {
		assert.Equal(t, 0, facet.Counts[s], s)
	}
	assert.Equal(t, 0, facet.All)
}

func TestListPageFacetsIgnoreOwnDimension(t *testing.T) {
	f := newFixture(t)
	f.seedOrders(t, 4, "pending")
	f.seedOrders(t, 3, "shipped")

	page, err := f.svc.ListPage(context.Background(), "orders", filter.Request{"status": "shipped"}, 1)
	require.NoError(t, err)

	assert.Len(t, page.Rows, 3)
	assert.Equal(t, 7, page.Facets["status"].All)
	assert.Equal(t, 4, page.Facets["status"].Counts["pending"])
	assert.Equal(t, 3, page.Facets["status"].Counts["shipped"])
}

func TestListPageAttachesChildrenAndLabels(t *testing.T) {
	f := newFixture(t)
	f.seedOrders(t, 2, "pending")
	_, err := f.db.Exec(`INSERT INTO order_items (order_id, product_name, quantity) VALUES (1, 'Jollof', 2), (1, 'Zobo', 1)`)
	require.NoError(t, err)

	page, err := f.svc.ListPage(context.Background(), "orders", filter.Request{"sort": "created_at"}, 1)
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)

	byID := map[domain.ID]Row{}
	for _, r := range page.Rows {
		byID[r.ID()] = r
	}
	assert.Len(t, byID[1]["items"], 2)
	assert.Len(t, byID[2]["items"], 0)
	assert.Equal(t, "Awaiting payment", byID[1]["status_label"])
}

func TestGetUnknownIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), "orders", 404)
	assert.True(t, domain.IsNotFound(err))

	_, err = f.svc.Get(context.Background(), "nope", 1)
	assert.True(t, domain.IsNotFound(err))
}

func TestTransitionFromShippedToProcessingIsIllegal(t *testing.T) {
	f := newFixture(t)
	f.seedOrders(t, 1, "shipped")

	res, err := f.svc.Transition(context.Background(), "orders", 1, "processing")
	require.Error(t, err)
	assert.True(t, domain.IsIllegalTransition(err))
	assert.False(t, res.OK)
	assert.Equal(t, "shipped", f.state(t, 1))
	assert.Empty(t, f.sink.Events())
}

func TestTransitionEmitsOneAuditEvent(t *testing.T) {
	f := newFixture(t)
	f.seedOrders(t, 1, "shipped")

	res, err := f.svc.Transition(context.Background(), "orders", 1, "delivered")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "shipped", res.OldState)
	assert.Equal(t, "delivered", res.NewState)
	assert.Equal(t, "delivered", f.state(t, 1))

	events := f.sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.ID(7), events[0].ActorID)
	assert.Equal(t, "orders", events[0].EntityType)
	assert.Equal(t, "shipped", events[0].OldState)
	assert.Equal(t, "delivered", events[0].NewState)
	assert.Equal(t, "req-1", events[0].RequestID)

	_, err = f.svc.Transition(context.Background(), "orders", 1, "cancelled")
	assert.True(t, domain.IsIllegalTransition(err), "delivered is terminal")
}

func TestApplyTransitionDispatch(t *testing.T) {
	f := newFixture(t)
	f.seedOrders(t, 2, "pending")
	ctx := context.Background()

	res, err := f.svc.ApplyTransition(ctx, "orders", 1, "cancelled", nil)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", res.NewState)

	res, err = f.svc.ApplyTransition(ctx, "orders", 2, ActionTransition, map[string]string{"target": "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", res.NewState)

	_, err = f.svc.ApplyTransition(ctx, "orders", 2, "archive", nil)
	assert.True(t, domain.IsValidation(err))
	assert.Len(t, f.sink.Events(), 2)
}

func TestAddStartsInInitialState(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Add(context.Background(), "orders", Input{Values: map[string]string{"customer_name": "Ada", "total": "12.50"}})
	require.NoError(t, err)
	assert.Equal(t, "pending", res.NewState)
	assert.Equal(t, "pending", f.state(t, res.EntityID))
	assert.Len(t, f.sink.Events(), 1)
}

func TestAddValidationLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, "menu_items", Input{
		Values: map[string]string{"category": "mains"},
		Files:  map[string]*attachments.Upload{"image": upload("dish.png", "png")},
	})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.Add(ctx, "menu_items", Input{
		Values: map[string]string{"name": "Suya", "category": "desserts"},
	})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.Add(ctx, "menu_items", Input{
		Values: map[string]string{"name": "Suya"},
		Files:  map[string]*attachments.Upload{"image": upload("dish.exe", "mz")},
	})
	assert.True(t, domain.IsValidation(err))

	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM menu_items`).Scan(&n))
	assert.Zero(t, n)
	assert.Empty(t, f.store.Names())
	assert.Empty(t, f.sink.Events())
}

func TestToggleFeaturedForcesActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	added, err := f.svc.Add(ctx, "menu_items", Input{Values: map[string]string{"name": "Suya"}})
	require.NoError(t, err)

	res, err := f.svc.ToggleFlag(ctx, "menu_items", added.EntityID, "is_featured")
	require.NoError(t, err)
	assert.Equal(t, true, res.Changes["is_featured"])
	assert.Equal(t, true, res.Changes["is_active"])

	res, err = f.svc.ToggleFlag(ctx, "menu_items", added.EntityID, "is_active")
	require.NoError(t, err)
	assert.Equal(t, false, res.Changes["is_active"])
	assert.Equal(t, false, res.Changes["is_featured"])
	assert.Len(t, f.sink.Events(), 3)
}

func TestAddFeaturedInactiveIsNormalized(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Add(context.Background(), "menu_items", Input{
		Values: map[string]string{"name": "Suya"},
		Flags:  map[string]bool{"is_featured": true},
	})
	require.NoError(t, err)

	var active, featured int
	require.NoError(t, f.db.QueryRow(`SELECT is_active, is_featured FROM menu_items WHERE id = ?`, int64(res.EntityID)).Scan(&active, &featured))
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, featured)
}

func TestAttachmentLifecycleThroughService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	added, err := f.svc.Add(ctx, "menu_items", Input{
		Values:  map[string]string{"name": "Suya", "category": "mains"},
		Files:   map[string]*attachments.Upload{"image": upload("Dish.PNG", "first")},
		Gallery: map[string][]attachments.Upload{"gallery": {*upload("a.jpg", "a"), *upload("b.jpg", "b")}},
	})
	require.NoError(t, err)
	id := added.EntityID
	first := added.Changes["image"].(string)
	assert.True(t, strings.HasPrefix(first, "menu_"))
	assert.True(t, strings.HasSuffix(first, ".png"))
	gallery := added.Changes["gallery"].([]string)
	require.Len(t, gallery, 2)
	assert.Len(t, f.store.Names(), 3)

	// no new file: name unchanged, nothing written
	_, err = f.svc.Edit(ctx, "menu_items", id, Input{Values: map[string]string{"name": "Suya Special"}})
	require.NoError(t, err)
	row, err := f.svc.Get(ctx, "menu_items", id)
	require.NoError(t, err)
	assert.Equal(t, first, row.String("image"))
	assert.Equal(t, "Suya Special", row.String("name"))
	assert.Len(t, f.store.Names(), 3)

	// replace image and drop one gallery entry
	edited, err := f.svc.Edit(ctx, "menu_items", id, Input{
		Files: map[string]*attachments.Upload{"image": upload("new.jpg", "second")},
		Keep:  map[string][]string{"gallery": {gallery[1]}},
	})
	require.NoError(t, err)
	second := edited.Changes["image"].(string)
	assert.NotEqual(t, first, second)
	assert.ElementsMatch(t, []string{first, gallery[0]}, edited.Changes["removed_files"])
	ok, _ := f.store.Exists(ctx, first)
	assert.False(t, ok)
	ok, _ = f.store.Exists(ctx, second)
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{second, gallery[1]}, f.store.Names())

	deleted, err := f.svc.Delete(ctx, "menu_items", id)
	require.NoError(t, err)
	assert.True(t, deleted.OK)
	assert.Empty(t, f.store.Names())

	_, err = f.svc.Get(ctx, "menu_items", id)
	assert.True(t, domain.IsNotFound(err))
	assert.Len(t, f.sink.Events(), 4, "one event per action")
}

func TestDeleteKeepsFileSharedWithAnotherRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	added, err := f.svc.Add(ctx, "menu_items", Input{
		Values: map[string]string{"name": "Suya"},
		Files:  map[string]*attachments.Upload{"image": upload("dish.png", "x")},
	})
	require.NoError(t, err)
	name := added.Changes["image"].(string)
	_, err = f.db.Exec(`INSERT INTO menu_items (name, image) VALUES ('Copy', ?)`, name)
	require.NoError(t, err)

	_, err = f.svc.Delete(ctx, "menu_items", added.EntityID)
	require.NoError(t, err)
	ok, _ := f.store.Exists(ctx, name)
	assert.True(t, ok)
}

func TestDeleteRemovesChildRows(t *testing.T) {
	f := newFixture(t)
	f.seedOrders(t, 1, "delivered")
	_, err := f.db.Exec(`INSERT INTO order_items (order_id, product_name, quantity) VALUES (1, 'Jollof', 2)`)
	require.NoError(t, err)

	res, err := f.svc.Delete(context.Background(), "orders", 1)
	require.NoError(t, err)
	assert.Equal(t, "delivered", res.OldState)

	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM order_items`).Scan(&n))
	assert.Zero(t, n)
	assert.Len(t, f.sink.Events(), 1)

	_, err = f.svc.Delete(context.Background(), "orders", 1)
	assert.True(t, domain.IsNotFound(err))
	assert.Len(t, f.sink.Events(), 1)
}

type brokenStore struct{ attachments.BlobStore }

func (brokenStore) Put(context.Context, string, io.Reader) error {
	return errors.New("disk full")
}

func TestStorageFailureAbortsAdd(t *testing.T) {
	f := newFixtureWithStore(t, brokenStore{attachments.NewMemoryStore()})

	res, err := f.svc.Add(context.Background(), "menu_items", Input{
		Values: map[string]string{"name": "Suya"},
		Files:  map[string]*attachments.Upload{"image": upload("dish.png", "x")},
	})
	require.Error(t, err)
	assert.True(t, domain.IsStorageWrite(err))
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "retry")

	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM menu_items`).Scan(&n))
	assert.Zero(t, n)
	assert.Empty(t, f.sink.Events())
}

func TestNewRegistryRejectsUnknownColumns(t *testing.T) {
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	defer conn.Close()
	_, err = conn.Exec(schema)
	require.NoError(t, err)

	d := ordersDef()
	d.Columns = append(d.Columns, "missing_col")
	_, err = NewRegistry(context.Background(), conn, db.SQLite, attachments.NewMemoryStore(), d)
	assert.True(t, domain.IsConfiguration(err))

	d = ordersDef()
	d.Fields = append(d.Fields, FieldDef{Key: "status", Column: "status"})
	_, err = NewRegistry(context.Background(), conn, db.SQLite, attachments.NewMemoryStore(), d)
	assert.True(t, domain.IsConfiguration(err), "fields may not write the workflow column")
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.Registry.Definition("orders")
	require.NoError(t, err)
	d.ReadOnly = true
	defer func() { d.ReadOnly = false }()

	_, err = f.svc.Add(context.Background(), "orders", Input{Values: map[string]string{"customer_name": "Ada"}})
	assert.True(t, domain.IsValidation(err))
}

func TestEditFieldsAndFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	added, err := f.svc.Add(ctx, "menu_items", Input{
		Values: map[string]string{"name": "Suya"},
		Flags:  map[string]bool{"is_featured": true},
	})
	require.NoError(t, err)

	res, err := f.svc.Edit(ctx, "menu_items", added.EntityID, Input{
		Values: map[string]string{"category": "MAINS"},
		Flags:  map[string]bool{"is_active": false},
	})
	require.NoError(t, err)
	assert.Equal(t, "mains", res.Changes["category"])
	assert.Equal(t, false, res.Changes["is_featured"])

	var (
		category         sql.NullString
		active, featured int
	)
	row := f.db.QueryRow(`SELECT category, is_active, is_featured FROM menu_items WHERE id = ?`, int64(added.EntityID))
	require.NoError(t, row.Scan(&category, &active, &featured))
	assert.Equal(t, "mains", category.String)
	assert.Zero(t, active)
	assert.Zero(t, featured)

	_, err = f.svc.Edit(ctx, "menu_items", added.EntityID, Input{Values: map[string]string{"category": ""}})
	require.NoError(t, err)
	require.NoError(t, f.db.QueryRow(`SELECT category FROM menu_items WHERE id = ?`, int64(added.EntityID)).Scan(&category))
	assert.False(t, category.Valid)

	_, err = f.svc.Edit(ctx, "menu_items", added.EntityID, Input{Values: map[string]string{"name": " "}})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.Edit(ctx, "menu_items", 404, Input{Values: map[string]string{"name": "Ghost"}})
	assert.True(t, domain.IsNotFound(err))
	assert.Len(t, f.sink.Events(), 3)
}

func TestCoerceField(t *testing.T) {
	cases := []struct {
		field FieldDef
		raw   string
		want  any
	}{
		{FieldDef{Key: "qty", Type: filter.Int}, "3", int64(3)},
		{FieldDef{Key: "price", Type: filter.Float}, "4.25", 4.25},
		{FieldDef{Key: "vegan", Type: filter.Bool}, "yes", 1},
		{FieldDef{Key: "vegan", Type: filter.Bool}, "off", 0},
		{FieldDef{Key: "published", Type: filter.Date}, "2024-05-06", "2024-05-06 00:00:00"},
		{FieldDef{Key: "published", Type: filter.Date}, "2024-05-06T08:15", "2024-05-06 08:15:00"},
		{FieldDef{Key: "rating", AllowedValues: []string{"1", "2", "3"}}, "2", "2"},
	}
	for _, c := range cases {
		got, err := coerceField(c.field, c.raw)
		require.NoError(t, err, c.raw)
		assert.Equal(t, c.want, got, c.raw)
	}

	bad := []struct {
		field FieldDef
		raw   string
	}{
		{FieldDef{Key: "qty", Type: filter.Int}, "three"},
		{FieldDef{Key: "vegan", Type: filter.Bool}, "maybe"},
		{FieldDef{Key: "published", Type: filter.Date}, "06/05/2024"},
		{FieldDef{Key: "rating", AllowedValues: []string{"1", "2", "3"}}, "6"},
		{FieldDef{Key: "name", MaxLen: 3}, "Jollof"},
	}
	for _, c := range bad {
		_, err := coerceField(c.field, c.raw)
		assert.True(t, domain.IsValidation(err), c.raw)
	}
}

func TestEditKeepingGalleryOnMySQLCommitsFields(t *testing.T) {
	f := newFixture(t)
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	svc := f.svc
	svc.DB = conn

	gallery := `["gallery_a.jpg","gallery_b.jpg"]`
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM menu_items WHERE id = \?`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(`UPDATE menu_items SET name = \?, updated_at = CURRENT_TIMESTAMP WHERE id = \?`).
		WithArgs("Suya Special", int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT gallery FROM menu_items WHERE id = \?`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"gallery"}).AddRow(gallery))
	mock.ExpectExec(`UPDATE menu_items SET gallery = \? WHERE id = \?`).WithArgs(gallery, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	res, err := svc.Edit(context.Background(), "menu_items", 5, Input{
		Values: map[string]string{"name": "Suya Special"},
		Keep:   map[string][]string{"gallery": {"gallery_a.jpg", "gallery_b.jpg"}},
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, []string{"gallery_a.jpg", "gallery_b.jpg"}, res.Changes["gallery"])
	assert.Len(t, f.sink.Events(), 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEditRemovingEmptyImageOnMySQL(t *testing.T) {
	f := newFixture(t)
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	svc := f.svc
	svc.DB = conn

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM menu_items WHERE id = \?`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(`SELECT image FROM menu_items WHERE id = \?`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"image"}).AddRow(nil))
	mock.ExpectExec(`UPDATE menu_items SET image = \? WHERE id = \?`).WithArgs(nil, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	res, err := svc.Edit(context.Background(), "menu_items", 5, Input{Remove: []string{"image"}})
	require.NoError(t, err)
	assert.True(t, res.OK)
	require.NoError(t, mock.ExpectationsWereMet())
}
