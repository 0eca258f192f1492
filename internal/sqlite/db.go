package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection. Transactions are opened in
// immediate mode so writers take the write lock up front and lock contention
// surfaces as a retryable busy error instead of a mid-transaction upgrade
// failure.
func New(dataSourceName string) (*DB, error) {
	if !strings.Contains(dataSourceName, "_txlock") {
		sep := "?"
		if strings.Contains(dataSourceName, "?") {
			sep = "&"
		}
		dataSourceName += sep + "_txlock=immediate"
	}

	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; one pooled connection avoids busy
	// churn between our own connections and keeps :memory: databases
	// coherent in tests.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema.
func (db *DB) RunMigrations() error {
	migration := `
-- Users table
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    handle TEXT UNIQUE NOT NULL,
    credits INTEGER NOT NULL DEFAULT 0,
    lifetime_paid_placements INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Cells table, one row per placed coordinate
CREATE TABLE IF NOT EXISTS cells (
    x INTEGER NOT NULL,
    y INTEGER NOT NULL,
    color TEXT NOT NULL,
    price_level INTEGER NOT NULL DEFAULT 0,
    owner_id INTEGER,
    is_ad INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (x, y),
    FOREIGN KEY (owner_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_cells_price_level ON cells(price_level);

-- Append-only placement log; the AUTOINCREMENT id is the tie-break for
-- entries sharing a timestamp
CREATE TABLE IF NOT EXISTS placements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    x INTEGER NOT NULL,
    y INTEGER NOT NULL,
    color TEXT NOT NULL,
    cost INTEGER NOT NULL,
    was_free INTEGER NOT NULL DEFAULT 0,
    is_ad INTEGER NOT NULL DEFAULT 0,
    placed_at TIMESTAMP NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_placements_placed_at ON placements(placed_at);
CREATE INDEX IF NOT EXISTS idx_placements_user ON placements(user_id);

-- Singleton epoch state row with an optimistic version counter
CREATE TABLE IF NOT EXISTS epoch_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    epoch_start TIMESTAMP NOT NULL,
    last_placement TIMESTAMP NOT NULL,
    current_cap INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 0
);
`

	if _, err := db.Exec(migration); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// EnsureEpochState seeds the singleton epoch row if it doesn't exist yet.
func (db *DB) EnsureEpochState(ctx context.Context, now time.Time, initialCap int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO epoch_state (id, epoch_start, last_placement, current_cap, version)
		VALUES (1, ?, ?, ?, 0)
	`, now, now, initialCap)
	if err != nil {
		return fmt.Errorf("failed to seed epoch state: %w", err)
	}
	return nil
}
