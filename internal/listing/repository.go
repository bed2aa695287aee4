package listing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a listing does not exist.
var ErrNotFound = errors.New("listing not found")

// Repository provides data access for listings.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a listing repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `id, external_id, title, address, city, neighborhood, monthly_rent, square_feet, category, availability, deal_score, tags, description, latitude, longitude, source_url, created_at, updated_at`

const upsertSQL = `INSERT INTO listings
	(external_id, title, address, city, neighborhood, monthly_rent, square_feet, category, availability, deal_score, tags, description, latitude, longitude, source_url)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(external_id) DO UPDATE SET
		title = excluded.title,
		address = excluded.address,
		city = excluded.city,
		neighborhood = excluded.neighborhood,
		monthly_rent = excluded.monthly_rent,
		square_feet = excluded.square_feet,
		category = excluded.category,
		availability = excluded.availability,
		deal_score = excluded.deal_score,
		tags = excluded.tags,
		description = excluded.description,
		latitude = excluded.latitude,
		longitude = excluded.longitude,
		source_url = excluded.source_url,
		updated_at = CURRENT_TIMESTAMP`

// Upsert inserts l or updates the listing with the same external ID.
func (r *Repository) Upsert(ctx context.Context, l *Listing) (*Listing, error) {
	if err := l.Normalize(); err != nil {
		return nil, err
	}
	tags, err := json.Marshal(l.Tags)
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx, upsertSQL,
		l.ExternalID, l.Title, l.Address, l.City, l.Neighborhood,
		l.MonthlyRent, l.SquareFeet, l.Category,
		string(l.Availability), string(l.DealScore), string(tags),
		l.Description, l.Latitude, l.Longitude, l.SourceURL,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting listing %s: %w", l.ExternalID, err)
	}

	return r.GetByExternalID(ctx, l.ExternalID)
}

// UpsertAll upserts every listing in one transaction and returns how many were written.
func (r *Repository) UpsertAll(ctx context.Context, listings []*Listing) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, l := range listings {
		if err := l.Normalize(); err != nil {
			return 0, err
		}
		tags, err := json.Marshal(l.Tags)
		if err != nil {
			return 0, fmt.Errorf("encoding tags: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			l.ExternalID, l.Title, l.Address, l.City, l.Neighborhood,
			l.MonthlyRent, l.SquareFeet, l.Category,
			string(l.Availability), string(l.DealScore), string(tags),
			l.Description, l.Latitude, l.Longitude, l.SourceURL,
		); err != nil {
			return 0, fmt.Errorf("upserting listing %s: %w", l.ExternalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return len(listings), nil
}

// GetByID returns a listing by its ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Listing, error) {
	query := fmt.Sprintf("SELECT %s FROM listings WHERE id = ?", selectColumns)
	l, err := scanListing(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying listing %d: %w", id, err)
	}
	return l, nil
}

// GetByExternalID returns a listing by its feed identifier.
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*Listing, error) {
	query := fmt.Sprintf("SELECT %s FROM listings WHERE external_id = ?", selectColumns)
	l, err := scanListing(r.db.QueryRowContext(ctx, query, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("listing %s: %w", externalID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying listing %s: %w", externalID, err)
	}
	return l, nil
}

// ListOptions controls filtering for List.
type ListOptions struct {
	Category     string       // empty = all
	City         string       // case-insensitive; empty = all
	Availability Availability // empty = all
	Limit        int          // 0 = no limit
}

// List returns listings, best deals first.
func (r *Repository) List(ctx context.Context, opts ListOptions) (listings []*Listing, err error) {
	query := fmt.Sprintf("SELECT %s FROM listings", selectColumns)
	var args []interface{}
	var conditions []string

	if opts.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, opts.Category)
	}
	if opts.City != "" {
		conditions = append(conditions, "city = ? COLLATE NOCASE")
		args = append(args, opts.City)
	}
	if opts.Availability != "" {
		conditions = append(conditions, "availability = ?")
		args = append(args, string(opts.Availability))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += ` ORDER BY CASE deal_score
		WHEN 'great' THEN 0 WHEN 'good' THEN 1 WHEN 'fair' THEN 2 WHEN 'high' THEN 3 ELSE 4 END,
		COALESCE(monthly_rent, 0), id`

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing listings: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}

// Delete removes a listing by ID.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM listings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting listing %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}

	return nil
}
