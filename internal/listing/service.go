package listing

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"
)

// Fetcher returns the current inventory. *FeedClient implements it.
type Fetcher interface {
	Fetch(ctx context.Context) ([]*Listing, error)
}

// Service provides listing business logic.
type Service struct {
	repo   *Repository
	feed   Fetcher
	policy *bluemonday.Policy
}

// NewService creates a listing service. feed may be nil when no inventory
// feed is configured.
func NewService(repo *Repository, feed Fetcher) *Service {
	return &Service{repo: repo, feed: feed, policy: bluemonday.StrictPolicy()}
}

// Sync pulls the inventory feed and upserts every entry.
// This is the only operation that hits external APIs.
func (s *Service) Sync(ctx context.Context) (int, error) {
	if s.feed == nil {
		return 0, fmt.Errorf("no inventory feed configured")
	}
	listings, err := s.feed.Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching inventory: %w", err)
	}
	return s.save(ctx, listings)
}

// importFile is the YAML document accepted by Import.
type importFile struct {
	Listings []*Listing `yaml:"listings"`
}

// Import reads listings from a YAML document and upserts them.
func (s *Service) Import(ctx context.Context, r io.Reader) (int, error) {
	var doc importFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("parsing listings: %w", err)
	}
	return s.save(ctx, doc.Listings)
}

func (s *Service) save(ctx context.Context, listings []*Listing) (int, error) {
	for _, l := range listings {
		l.Description = strings.TrimSpace(s.policy.Sanitize(l.Description))
		l.Category = strings.ToLower(strings.TrimSpace(l.Category))
	}
	n, err := s.repo.UpsertAll(ctx, listings)
	if err != nil {
		return 0, fmt.Errorf("saving listings: %w", err)
	}
	return n, nil
}

// Matching returns available listings in category and city, best deals first.
// If nothing matches in the city, it falls back to the category alone.
func (s *Service) Matching(ctx context.Context, category, city string, limit int) ([]*Listing, error) {
	opts := ListOptions{
		Category:     category,
		City:         strings.TrimSpace(city),
		Availability: AvailabilityAvailable,
		Limit:        limit,
	}
	listings, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(listings) > 0 || opts.City == "" {
		return listings, nil
	}
	opts.City = ""
	return s.repo.List(ctx, opts)
}

// List returns listings filtered by opts.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*Listing, error) {
	return s.repo.List(ctx, opts)
}
