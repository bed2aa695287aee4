package lead

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresMirror copies leads into a PostgreSQL table for reporting.
type PostgresMirror struct {
	db *sql.DB
}

// NewPostgresMirror opens a connection to PostgreSQL, creates the table if
// needed and returns a ready-to-use mirror.
func NewPostgresMirror(dsn string) (*PostgresMirror, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: DSN is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	m := &PostgresMirror{db: db}
	if err := m.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return m, nil
}

func (m *PostgresMirror) migrate() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS leads (
			id            SERIAL PRIMARY KEY,
			ref           VARCHAR(26) UNIQUE NOT NULL,
			source        VARCHAR(20) NOT NULL,
			name          TEXT        NOT NULL,
			email         TEXT        NOT NULL,
			phone         TEXT        NOT NULL DEFAULT '',
			property_type TEXT        NOT NULL DEFAULT '',
			city          TEXT        NOT NULL DEFAULT '',
			answers       JSONB       NOT NULL DEFAULT '{}',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_leads_city          ON leads(city);
		CREATE INDEX IF NOT EXISTS idx_leads_property_type ON leads(property_type);
	`)
	return err
}

// Mirror inserts l, ignoring a lead that is already present.
func (m *PostgresMirror) Mirror(ctx context.Context, l *Lead) error {
	answers, err := json.Marshal(l.Answers)
	if err != nil {
		return fmt.Errorf("postgres: encoding answers: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO leads (ref, source, name, email, phone, property_type, city, answers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ref) DO NOTHING
	`, l.Ref, string(l.Source), l.Name, l.Email, l.Phone, l.PropertyType, l.City, string(answers), l.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert lead %s: %w", l.Ref, err)
	}
	return nil
}

// Close closes the connection pool.
func (m *PostgresMirror) Close() error {
	return m.db.Close()
}
