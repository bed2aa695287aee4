package lead

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a lead does not exist.
var ErrNotFound = errors.New("lead not found")

// Repository provides data access for leads.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a lead repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `id, ref, source, name, email, phone, property_type, city, answers_json, notified_at, created_at`

// Insert stores l and returns the saved record.
func (r *Repository) Insert(ctx context.Context, l *Lead) (*Lead, error) {
	answers, err := json.Marshal(l.Answers)
	if err != nil {
		return nil, fmt.Errorf("encoding answers: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO leads (ref, source, name, email, phone, property_type, city, answers_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Ref, string(l.Source), l.Name, l.Email, l.Phone, l.PropertyType, l.City, string(answers),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting lead: %w", err)
	}

	return r.GetByRef(ctx, l.Ref)
}

// GetByRef returns a lead by its reference.
func (r *Repository) GetByRef(ctx context.Context, ref string) (*Lead, error) {
	query := fmt.Sprintf("SELECT %s FROM leads WHERE ref = ?", selectColumns)
	l, err := scanLead(r.db.QueryRowContext(ctx, query, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lead %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying lead %s: %w", ref, err)
	}
	return l, nil
}

// ListOptions controls filtering for List.
type ListOptions struct {
	Source Source // empty = all
	Email  string // empty = all
	Limit  int    // 0 = no limit
}

// List returns leads, newest first.
func (r *Repository) List(ctx context.Context, opts ListOptions) (leads []*Lead, err error) {
	query := fmt.Sprintf("SELECT %s FROM leads", selectColumns)
	var args []interface{}
	var conditions []string

	if opts.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, string(opts.Source))
	}
	if opts.Email != "" {
		conditions = append(conditions, "email = ? COLLATE NOCASE")
		args = append(args, opts.Email)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing leads: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lead: %w", err)
		}
		leads = append(leads, l)
	}

	return leads, rows.Err()
}

// MarkNotified records that the lead's confirmation email went out.
func (r *Repository) MarkNotified(ctx context.Context, ref string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE leads SET notified_at = CURRENT_TIMESTAMP WHERE ref = ?", ref)
	if err != nil {
		return fmt.Errorf("marking lead %s notified: %w", ref, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("lead %s: %w", ref, ErrNotFound)
	}
	return nil
}
