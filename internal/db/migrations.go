package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id  TEXT    NOT NULL UNIQUE,
		title        TEXT    NOT NULL,
		address      TEXT    NOT NULL DEFAULT '',
		city         TEXT    NOT NULL DEFAULT '',
		neighborhood TEXT    NOT NULL DEFAULT '',
		monthly_rent INTEGER,
		square_feet  INTEGER,
		category     TEXT    NOT NULL,
		availability TEXT    NOT NULL DEFAULT 'available'
			CHECK (availability IN ('available', 'pending', 'leased')),
		deal_score   TEXT    NOT NULL DEFAULT 'fair'
			CHECK (deal_score IN ('great', 'good', 'fair', 'high', 'over-market')),
		tags         TEXT    NOT NULL DEFAULT '[]',
		description  TEXT    NOT NULL DEFAULT '',
		latitude     REAL,
		longitude    REAL,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_category_city ON listings(category, city)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		ref           TEXT    NOT NULL UNIQUE,
		source        TEXT    NOT NULL,
		name          TEXT    NOT NULL,
		email         TEXT    NOT NULL,
		phone         TEXT    NOT NULL DEFAULT '',
		property_type TEXT    NOT NULL DEFAULT '',
		city          TEXT    NOT NULL DEFAULT '',
		answers_json  TEXT    NOT NULL DEFAULT '{}',
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email)`,
	`CREATE TABLE IF NOT EXISTS wizard_sessions (
		id         TEXT     PRIMARY KEY,
		state_json TEXT     NOT NULL,
		status     TEXT     NOT NULL DEFAULT 'idle',
		expires_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Columns added after the first release. Each is skipped if already present.
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"listings", "source_url", "TEXT NOT NULL DEFAULT ''"},
		{"leads", "notified_at", "DATETIME"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("checking table info: %w", err)
	}

	found := false
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterating columns: %w", err)
	}
	// Close before ALTER: an open cursor keeps the schema locked.
	if err := rows.Close(); err != nil {
		return fmt.Errorf("closing rows: %w", err)
	}
	if found {
		return nil
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}
