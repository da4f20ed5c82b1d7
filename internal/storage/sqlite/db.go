// Package sqlite is the durable store behind every resource service.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa: the checkout workflow writes while admin listing endpoints read.
package sqlite

import (
	"database/sql"
	"fmt"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// which keeps the Docker build on Alpine trivial.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
    id          TEXT PRIMARY KEY,
    created_at  TEXT    NOT NULL,
    name        TEXT    NOT NULL,
    description TEXT    NOT NULL DEFAULT '',
    price       REAL    NOT NULL,
    image       TEXT    NOT NULL DEFAULT '',
    quantity    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS delivery_options (
    id          TEXT PRIMARY KEY,
    product_id  TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
    type        TEXT NOT NULL,
    price       REAL NOT NULL DEFAULT 0,
    period      TEXT NOT NULL DEFAULT 'immediate'
);

CREATE INDEX IF NOT EXISTS idx_delivery_options_product
    ON delivery_options(product_id);

CREATE TABLE IF NOT EXISTS customers (
    id             TEXT PRIMARY KEY,
    created_at     TEXT NOT NULL,
    name           TEXT NOT NULL,
    contact_person TEXT NOT NULL DEFAULT '',
    street         TEXT NOT NULL DEFAULT '',
    city           TEXT NOT NULL DEFAULT '',
    state          TEXT NOT NULL DEFAULT '',
    zip            TEXT NOT NULL DEFAULT '',
    phone          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS agreements (
    id           TEXT PRIMARY KEY,
    created_at   TEXT    NOT NULL,
    ends_at      TEXT    NOT NULL,
    customer_id  TEXT    NOT NULL REFERENCES customers(id),
    -- Optional business identity, stored as a JSON document.
    legal_entity TEXT,
    client_token TEXT    NOT NULL UNIQUE,
    is_active    INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_agreements_customer ON agreements(customer_id);
CREATE INDEX IF NOT EXISTS idx_agreements_token    ON agreements(client_token);

CREATE TABLE IF NOT EXISTS orders (
    id                TEXT PRIMARY KEY,
    created_at        TEXT    NOT NULL,
    quantity          INTEGER NOT NULL,
    price             REAL    NOT NULL,
    delivery_way      TEXT    NOT NULL,
    status            TEXT    NOT NULL DEFAULT 'pending',
    payment_status    TEXT    NOT NULL DEFAULT 'pending',
    payment_intent_id TEXT    NOT NULL DEFAULT '',
    paid_at           TEXT,
    completed_at      TEXT,
    product_id        TEXT    NOT NULL REFERENCES products(id),
    customer_id       TEXT    NOT NULL REFERENCES customers(id),
    agreement_id      TEXT
);

CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);

CREATE TABLE IF NOT EXISTS users (
    id              TEXT PRIMARY KEY,
    created_at      TEXT    NOT NULL,
    email           TEXT    NOT NULL UNIQUE,
    password_hash   TEXT    NOT NULL,
    is_activated    INTEGER NOT NULL DEFAULT 0,
    activation_link TEXT    NOT NULL DEFAULT ''
);

-- Append-only log of checkout workflow transitions. Each row is an
-- immutable event; MAX(updated_at) per flow_id gives the current state.
CREATE TABLE IF NOT EXISTS checkout_logs (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    flow_id        TEXT NOT NULL,
    status         TEXT NOT NULL,
    current_step   TEXT NOT NULL DEFAULT '',
    payload        TEXT,
    error_messages TEXT NOT NULL DEFAULT '[]',
    trace_id       TEXT NOT NULL DEFAULT '',
    span_id        TEXT NOT NULL DEFAULT '',
    updated_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_checkout_logs_flow
    ON checkout_logs(flow_id, updated_at);
`

// Store bundles the repositories over one SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
//
//	store, err := sqlite.Open("./data/ordify.db")
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// Use "sqlite", not "sqlite3", for the modernc driver.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
