// Package client provides an HTTP client for the space-finder REST API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/evcraddock/space-finder/internal/lead"
	"github.com/evcraddock/space-finder/internal/listing"
)

// Client is an HTTP client for the space-finder API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// StatusError is returned for any 4xx or 5xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string { return e.Message }

// newStatusError pulls the message out of an error body: the "error" field
// of API errors, else the "message" field of test-email responses.
func newStatusError(code int, body []byte) *StatusError {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := "server error: " + http.StatusText(code)
	if json.Unmarshal(body, &errResp) == nil {
		switch {
		case errResp.Error != "":
			msg = errResp.Error
		case errResp.Message != "":
			msg = errResp.Message
		}
	}
	return &StatusError{Code: code, Message: msg}
}

// Health checks that the server is up.
func (c *Client) Health() error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.get("/health", &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("server reported status %q", resp.Status)
	}
	return nil
}

// ListingOptions controls filtering for ListListings.
type ListingOptions struct {
	Category     string
	City         string
	Availability string
}

// ListListings returns listings, optionally filtered.
func (c *Client) ListListings(opts ListingOptions) ([]*listing.Listing, error) {
	params := url.Values{}
	if opts.Category != "" {
		params.Set("category", opts.Category)
	}
	if opts.City != "" {
		params.Set("city", opts.City)
	}
	if opts.Availability != "" {
		params.Set("availability", opts.Availability)
	}

	var listings []*listing.Listing
	if err := c.get(withQuery("/api/listings", params), &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// LeadOptions controls filtering for ListLeads.
type LeadOptions struct {
	Source string // questionnaire, popup, api (empty = all)
	Limit  int
}

// ListLeads returns the newest leads. Requires the admin API key.
func (c *Client) ListLeads(opts LeadOptions) ([]*lead.Lead, error) {
	params := url.Values{}
	if opts.Source != "" {
		params.Set("source", opts.Source)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var leads []*lead.Lead
	if err := c.get(withQuery("/api/leads", params), &leads); err != nil {
		return nil, err
	}
	return leads, nil
}

// CreateLeadResponse is the response from POST /api/leads.
type CreateLeadResponse struct {
	ID  int64  `json:"id"`
	Ref string `json:"ref"`
}

// CreateLead submits a lead directly.
func (c *Client) CreateLead(source string, answers map[string]string) (*CreateLeadResponse, error) {
	body := map[string]interface{}{"source": source, "answers": answers}
	var resp CreateLeadResponse
	if err := c.post("/api/leads", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestEmailRequest is the body of POST /api/test-email.
type TestEmailRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	EmailType string `json:"emailType"`
}

// TestEmailResponse is the response from POST /api/test-email.
type TestEmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TestEmail asks the server to send one templated email.
func (c *Client) TestEmail(req TestEmailRequest) (*TestEmailResponse, error) {
	var resp TestEmailResponse
	if err := c.post("/api/test-email", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

// get performs a GET request and decodes the response.
func (c *Client) get(path string, result interface{}) error {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

// post performs a POST request with a JSON body and decodes the response.
func (c *Client) post(path string, body interface{}, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

// do executes an HTTP request with auth header and handles errors.
func (c *Client) do(req *http.Request, result interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Printf("warning: closing response body: %v\n", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return newStatusError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
