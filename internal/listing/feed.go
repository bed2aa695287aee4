package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// FeedClient fetches listings from an external inventory feed.
type FeedClient struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

// NewFeedClient creates a feed client for the given URL.
func NewFeedClient(url, apiKey string) (*FeedClient, error) {
	if url == "" {
		return nil, fmt.Errorf("SF_INVENTORY_URL is required")
	}
	return &FeedClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		url:        url,
		apiKey:     apiKey,
	}, nil
}

// feedResponse is the inventory feed document.
type feedResponse struct {
	Listings []feedListing `json:"listings"`
}

type feedListing struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	Neighborhood string   `json:"neighborhood"`
	Rent         *int64   `json:"monthly_rent"`
	Sqft         *int64   `json:"sqft"`
	Type         string   `json:"type"`
	Status       string   `json:"status"`
	Deal         string   `json:"deal"`
	Tags         []string `json:"tags"`
	Description  string   `json:"description"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	URL          string   `json:"url"`
}

// Fetch downloads the feed and converts it to listings.
// Entries with an unknown status or deal rating fall back to defaults.
func (c *FeedClient) Fetch(ctx context.Context) (listings []*Listing, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	for _, f := range feed.Listings {
		if f.ID == "" {
			continue
		}
		l := &Listing{
			ExternalID:   f.ID,
			Title:        f.Name,
			Address:      f.Address,
			City:         f.City,
			Neighborhood: f.Neighborhood,
			MonthlyRent:  f.Rent,
			SquareFeet:   f.Sqft,
			Category:     strings.ToLower(f.Type),
			Tags:         f.Tags,
			Description:  f.Description,
			Latitude:     f.Lat,
			Longitude:    f.Lng,
			SourceURL:    f.URL,
		}
		if s := strings.ToLower(f.Status); ValidAvailability(s) {
			l.Availability = Availability(s)
		}
		if d := strings.ToLower(f.Deal); ValidDealScore(d) {
			l.DealScore = DealScore(d)
		}
		listings = append(listings, l)
	}

	return listings, nil
}
