package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evcraddock/space-finder/internal/lead"
	"github.com/evcraddock/space-finder/internal/listing"
)

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q, want /health", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	if err := New(srv.URL, "").Health(); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestListListings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/listings" {
			t.Errorf("path = %q, want /api/listings", r.URL.Path)
		}
		if got := r.URL.Query().Get("category"); got != "office" {
			t.Errorf("category = %q, want office", got)
		}
		if got := r.URL.Query().Get("city"); got != "San Antonio" {
			t.Errorf("city = %q, want San Antonio", got)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode([]*listing.Listing{{ID: 1, Title: "Loft"}}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	listings, err := New(srv.URL, "").ListListings(ListingOptions{Category: "office", City: "San Antonio"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listings) != 1 || listings[0].Title != "Loft" {
		t.Errorf("unexpected listings: %+v", listings)
	}
}

func TestListLeads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer testkey" {
			t.Error("expected Bearer testkey")
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want 5", got)
		}
		if got := r.URL.Query().Get("source"); got != "popup" {
			t.Errorf("source = %q, want popup", got)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode([]*lead.Lead{{Ref: "01ABC", Email: "a@example.com"}}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	leads, err := New(srv.URL, "testkey").ListLeads(LeadOptions{Source: "popup", Limit: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(leads) != 1 || leads[0].Ref != "01ABC" {
		t.Errorf("unexpected leads: %+v", leads)
	}
}

func TestCreateLead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/leads" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Source  string            `json:"source"`
			Answers map[string]string `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Source != "api" || body.Answers["email"] != "a@example.com" {
			t.Errorf("unexpected body: %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7,"ref":"01XYZ"}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, "").CreateLead("api", map[string]string{"name": "A", "email": "a@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.ID != 7 || resp.Ref != "01XYZ" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestTestEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req TestEmailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.EmailType != "welcome" {
			t.Errorf("emailType = %q", req.EmailType)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Test welcome email sent to a@example.com"}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, "").TestEmail(TestEmailRequest{Email: "a@example.com", Name: "A", EmailType: "welcome"})
	if err != nil {
		t.Fatalf("test email: %v", err)
	}
	if !resp.Success {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		want string
	}{
		{"error field", http.StatusUnauthorized, `{"error":"invalid API key"}`, "invalid API key"},
		{"message field", http.StatusBadRequest, `{"success":false,"message":"Missing required fields: email, name, emailType"}`, "Missing required fields: email, name, emailType"},
		{"no body", http.StatusBadGateway, ``, "server error: Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "").TestEmail(TestEmailRequest{})
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.want {
				t.Errorf("error = %q, want %q", err.Error(), tt.want)
			}
			var serr *StatusError
			if !errors.As(err, &serr) || serr.Code != tt.code {
				t.Errorf("expected *StatusError with code %d, got %#v", tt.code, err)
			}
		})
	}
}
