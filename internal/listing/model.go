// Package listing provides the commercial listing model and data access.
package listing

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Availability is whether a space can currently be leased.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityPending   Availability = "pending"
	AvailabilityLeased    Availability = "leased"
)

// ValidAvailability returns true if s is a known availability.
func ValidAvailability(s string) bool {
	switch Availability(s) {
	case AvailabilityAvailable, AvailabilityPending, AvailabilityLeased:
		return true
	}
	return false
}

// DealScore rates the asking rent against comparable spaces.
type DealScore string

const (
	DealGreat      DealScore = "great"
	DealGood       DealScore = "good"
	DealFair       DealScore = "fair"
	DealHigh       DealScore = "high"
	DealOverMarket DealScore = "over-market"
)

// ValidDealScore returns true if s is a known deal score.
func ValidDealScore(s string) bool {
	switch DealScore(s) {
	case DealGreat, DealGood, DealFair, DealHigh, DealOverMarket:
		return true
	}
	return false
}

// Label is the badge text shown next to a listing.
func (d DealScore) Label() string {
	switch d {
	case DealGreat:
		return "Great deal"
	case DealGood:
		return "Good deal"
	case DealFair:
		return "Fair price"
	case DealHigh:
		return "Priced high"
	case DealOverMarket:
		return "Over market"
	}
	return string(d)
}

// Listing is one leasable space.
type Listing struct {
	ID           int64        `json:"id" yaml:"-"`
	ExternalID   string       `json:"external_id" yaml:"external_id"`
	Title        string       `json:"title" yaml:"title"`
	Address      string       `json:"address" yaml:"address"`
	City         string       `json:"city" yaml:"city"`
	Neighborhood string       `json:"neighborhood,omitempty" yaml:"neighborhood"`
	MonthlyRent  *int64       `json:"monthly_rent,omitempty" yaml:"monthly_rent"`
	SquareFeet   *int64       `json:"square_feet,omitempty" yaml:"square_feet"`
	Category     string       `json:"category" yaml:"category"`
	Availability Availability `json:"availability" yaml:"availability"`
	DealScore    DealScore    `json:"deal_score" yaml:"deal_score"`
	Tags         []string     `json:"tags" yaml:"tags"`
	Description  string       `json:"description,omitempty" yaml:"description"`
	Latitude     *float64     `json:"latitude,omitempty" yaml:"latitude"`
	Longitude    *float64     `json:"longitude,omitempty" yaml:"longitude"`
	SourceURL    string       `json:"source_url,omitempty" yaml:"source_url"`
	CreatedAt    time.Time    `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time    `json:"updated_at" yaml:"-"`
}

// Normalize fills defaults and checks required fields.
func (l *Listing) Normalize() error {
	if l.ExternalID == "" {
		return fmt.Errorf("external_id is required")
	}
	if l.Title == "" {
		return fmt.Errorf("listing %s: title is required", l.ExternalID)
	}
	if l.Category == "" {
		return fmt.Errorf("listing %s: category is required", l.ExternalID)
	}
	if l.Availability == "" {
		l.Availability = AvailabilityAvailable
	}
	if !ValidAvailability(string(l.Availability)) {
		return fmt.Errorf("listing %s: invalid availability %q", l.ExternalID, l.Availability)
	}
	if l.DealScore == "" {
		l.DealScore = DealFair
	}
	if !ValidDealScore(string(l.DealScore)) {
		return fmt.Errorf("listing %s: invalid deal score %q", l.ExternalID, l.DealScore)
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	return nil
}

// RentPerSqFtYear is the annual rent per square foot, the way commercial
// space is usually quoted. Zero if either figure is missing.
func (l *Listing) RentPerSqFtYear() float64 {
	if l.MonthlyRent == nil || l.SquareFeet == nil || *l.SquareFeet == 0 {
		return 0
	}
	return float64(*l.MonthlyRent*12) / float64(*l.SquareFeet)
}

// scanListing scans a listing from a database row.
func scanListing(row interface{ Scan(...interface{}) error }) (*Listing, error) {
	var l Listing
	var rent, sqft sql.NullInt64
	var lat, lng sql.NullFloat64
	var availability, dealScore, tags string

	err := row.Scan(
		&l.ID, &l.ExternalID, &l.Title, &l.Address, &l.City, &l.Neighborhood,
		&rent, &sqft, &l.Category, &availability, &dealScore, &tags,
		&l.Description, &lat, &lng, &l.SourceURL, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rent.Valid {
		l.MonthlyRent = &rent.Int64
	}
	if sqft.Valid {
		l.SquareFeet = &sqft.Int64
	}
	if lat.Valid {
		l.Latitude = &lat.Float64
	}
	if lng.Valid {
		l.Longitude = &lng.Float64
	}
	l.Availability = Availability(availability)
	l.DealScore = DealScore(dealScore)
	if err := json.Unmarshal([]byte(tags), &l.Tags); err != nil || l.Tags == nil {
		l.Tags = []string{}
	}

	return &l, nil
}
