package catalog

import (
	"context"
	"fmt"
	"strings"

	"backoffice/internal/db"
)

// tables is written for MySQL; {{id}} and {{engine}} are filled per dialect.
var tables = []struct {
	name string
	ddl  string
}{
	{"orders", `
CREATE TABLE IF NOT EXISTS orders (
	id {{id}},
	order_number VARCHAR(40) NOT NULL,
	customer_name VARCHAR(255) NOT NULL,
	customer_email VARCHAR(255) NULL,
	customer_phone VARCHAR(50) NULL,
	delivery_address TEXT NULL,
	payment_method VARCHAR(30) NULL,
	status VARCHAR(30) NOT NULL DEFAULT 'pending',
	total_amount DECIMAL(12,2) NULL,
	notes TEXT NULL,
	created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NULL
){{engine}}`},
	{"order_items", `
CREATE TABLE IF NOT EXISTS order_items (
	id {{id}},
	order_id BIGINT NOT NULL,
	product_name VARCHAR(255) NOT NULL,
	quantity INT NOT NULL DEFAULT 1,
	price DECIMAL(12,2) NULL
){{engine}}`},
	{"menu_items", `
CREATE TABLE IF NOT EXISTS menu_items (
	id {{id}},
	name VARCHAR(255) NOT NULL,
	description TEXT NULL,
	category VARCHAR(50) NULL,
	price DECIMAL(10,2) NULL,
	is_active TINYINT(1) NOT NULL DEFAULT 1,
	is_featured TINYINT(1) NOT NULL DEFAULT 0,
	image VARCHAR(255) NULL,
	gallery TEXT NULL,
	created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NULL
){{engine}}`},
	{"ambassador_applications", `
CREATE TABLE IF NOT EXISTS ambassador_applications (
	id {{id}},
	full_name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(50) NULL,
	city VARCHAR(100) NULL,
	experience_level VARCHAR(30) NULL,
	motivation TEXT NULL,
	resume VARCHAR(255) NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NULL
){{engine}}`},
	{"blog_comments", `
CREATE TABLE IF NOT EXISTS blog_comments (
	id {{id}},
	post_id BIGINT NOT NULL,
	author_name VARCHAR(255) NOT NULL,
	author_email VARCHAR(255) NULL,
	content TEXT NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NULL
){{engine}}`},
	{"testimonials", `
CREATE TABLE IF NOT EXISTS testimonials (
	id {{id}},
	customer_name VARCHAR(255) NOT NULL,
	content TEXT NOT NULL,
	rating INT NULL,
	is_active TINYINT(1) NOT NULL DEFAULT 1,
	is_featured TINYINT(1) NOT NULL DEFAULT 0,
	photo VARCHAR(255) NULL,
	created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NULL
){{engine}}`},
	{"admin_audit_log", `
CREATE TABLE IF NOT EXISTS admin_audit_log (
	id {{id}},
	event_id VARCHAR(64) NOT NULL,
	actor_id BIGINT NOT NULL DEFAULT 0,
	entity_type VARCHAR(64) NOT NULL,
	entity_id BIGINT NOT NULL DEFAULT 0,
	action VARCHAR(32) NOT NULL,
	message TEXT NULL,
	old_state VARCHAR(64) NULL,
	new_state VARCHAR(64) NULL,
	request_id VARCHAR(64) NULL,
	created_at VARCHAR(32) NOT NULL
){{engine}}`},
}

func renderDDL(ddl string, d db.Dialect) string {
	id, engine := "BIGINT AUTO_INCREMENT PRIMARY KEY", " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci"
	if d == db.SQLite {
		id, engine = "INTEGER PRIMARY KEY AUTOINCREMENT", ""
	}
	return strings.NewReplacer("{{id}}", id, "{{engine}}", engine).Replace(ddl)
}

// EnsureSchema creates missing catalog tables. Existing tables are left as
// they are; the registry reports any column they lack.
func EnsureSchema(ctx context.Context, q db.Querier, d db.Dialect) ([]string, error) {
	var created []string
	for _, t := range tables {
		if db.HasTable(ctx, q, d, t.name) {
			continue
		}
		if _, err := q.ExecContext(ctx, renderDDL(t.ddl, d)); err != nil {
			return created, fmt.Errorf("create %s: %w", t.name, err)
		}
		created = append(created, t.name)
	}
	return created, nil
}
