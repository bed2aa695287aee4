package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evcraddock/space-finder/internal/lead"
	"github.com/evcraddock/space-finder/internal/listing"
	"github.com/evcraddock/space-finder/internal/notify"
)

func decodeTestEmail(t *testing.T, w *httptest.ResponseRecorder) testEmailResponse {
	t.Helper()
	var resp testEmailResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestTestEmailSends(t *testing.T) {
	env := newTestEnv(t)

	w := env.postJSON(t, "/api/test-email", "", map[string]string{
		"email":     "ann@example.com",
		"name":      "Ann",
		"emailType": "welcome",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeTestEmail(t, w)
	if !resp.Success || !strings.Contains(resp.Message, "ann@example.com") {
		t.Errorf("unexpected response: %+v", resp)
	}
	if env.mail.count() != 1 {
		t.Fatalf("sent = %d, want 1", env.mail.count())
	}
	if got := env.mail.sent[0].To; got != "ann@example.com" {
		t.Errorf("to = %q", got)
	}
}

func TestTestEmailMissingFields(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []map[string]string{
		{"name": "Ann", "emailType": "welcome"},
		{"email": "ann@example.com", "emailType": "welcome"},
		{"email": "ann@example.com", "name": "Ann"},
	} {
		w := env.postJSON(t, "/api/test-email", "", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%v: status = %d, want %d", body, w.Code, http.StatusBadRequest)
			continue
		}
		resp := decodeTestEmail(t, w)
		if resp.Success || !strings.Contains(strings.ToLower(resp.Message), "missing required fields") {
			t.Errorf("%v: unexpected response %+v", body, resp)
		}
	}
	if env.mail.count() != 0 {
		t.Errorf("sent = %d, want 0", env.mail.count())
	}
}

func TestTestEmailUnknownType(t *testing.T) {
	env := newTestEnv(t)

	w := env.postJSON(t, "/api/test-email", "", map[string]string{"email": "ann@example.com", "name": "Ann", "emailType": "birthday"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp := decodeTestEmail(t, w); resp.Success {
		t.Error("expected success=false")
	}
	if env.mail.count() != 0 {
		t.Error("nothing should be sent")
	}
}

func TestTestEmailProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mail.err = errBoom

	w := env.postJSON(t, "/api/test-email", "", map[string]string{"email": "ann@example.com", "name": "Ann", "emailType": "welcome"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	resp := decodeTestEmail(t, w)
	if resp.Success || !strings.Contains(resp.Message, "boom") {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestTestEmailBadJSON(t *testing.T) {
	env := newTestEnv(t)
	w := env.postJSON(t, "/api/test-email", "", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestTestEmailDisabled(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.EmailEnabled = false })

	w := env.postJSON(t, "/api/test-email", "", map[string]string{"email": "ann@example.com", "name": "Ann", "emailType": "welcome"})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	resp := decodeTestEmail(t, w)
	if resp.Success || !strings.Contains(resp.Message, "not configured") {
		t.Errorf("unexpected response: %+v", resp)
	}
	if env.mail.count() != 0 {
		t.Error("nothing should be sent")
	}
}

func TestTestEmailDisabledStillValidates(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.EmailEnabled = false })

	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty email", map[string]string{"email": "", "name": "Ann", "emailType": "welcome"}},
		{"unknown type", map[string]string{"email": "ann@example.com", "name": "Ann", "emailType": "birthday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.postJSON(t, "/api/test-email", "", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if resp := decodeTestEmail(t, w); resp.Success {
				t.Error("expected success=false")
			}
		})
	}
}

func TestTestEmailLoggedOnly(t *testing.T) {
	env := newTestEnv(t)
	env.mail.err = notify.ErrNotDelivered

	w := env.postJSON(t, "/api/test-email", "", map[string]string{"email": "ann@example.com", "name": "Ann", "emailType": "welcome"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeTestEmail(t, w)
	if !resp.Success || !strings.Contains(resp.Message, "log") {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestTestEmailRequiresKeyWhenConfigured(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.AdminAPIKey = "secret" })
	body := map[string]string{"email": "ann@example.com", "name": "Ann", "emailType": "welcome"}

	if w := env.postJSON(t, "/api/test-email", "", body); w.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if w := env.postJSON(t, "/api/test-email", "wrong", body); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if w := env.postJSON(t, "/api/test-email", "secret", body); w.Code != http.StatusOK {
		t.Errorf("valid key: status = %d, want %d", w.Code, http.StatusOK)
	}
	if env.mail.count() != 1 {
		t.Errorf("sent = %d, want 1", env.mail.count())
	}
}

func TestAPICreateLead(t *testing.T) {
	env := newTestEnv(t)

	w := env.postJSON(t, "/api/leads", "", map[string]interface{}{
		"answers": map[string]string{"name": "Lee", "email": "lee@example.com", "city": "Austin"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	var resp createLeadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Ref == "" || resp.ID == 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	l, err := env.leads.GetByRef(context.Background(), resp.Ref)
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	if l.Source != lead.SourceAPI || l.City != "Austin" {
		t.Errorf("unexpected lead: %+v", l)
	}
}

func TestAPICreateLeadErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"unknown key", map[string]interface{}{"answers": map[string]string{"name": "Lee", "email": "lee@example.com", "favorite_color": "red"}}, http.StatusUnprocessableEntity},
		{"missing email", map[string]interface{}{"answers": map[string]string{"name": "Lee"}}, http.StatusUnprocessableEntity},
		{"bad source", map[string]interface{}{"source": "fax", "answers": map[string]string{"name": "Lee", "email": "lee@example.com"}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.postJSON(t, "/api/leads", "", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestAPIListLeads(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.AdminAPIKey = "secret" })
	for _, email := range []string{"a@example.com", "b@example.com"} {
		w := env.postJSON(t, "/api/leads", "", map[string]interface{}{"answers": map[string]string{"name": "X", "email": email}})
		if w.Code != http.StatusCreated {
			t.Fatalf("create: status = %d", w.Code)
		}
	}

	r := httptest.NewRequest(http.MethodGet, "/api/leads?limit=1", nil)
	r.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var leads []lead.Lead
	if err := json.NewDecoder(w.Body).Decode(&leads); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(leads) != 1 || leads[0].Email != "b@example.com" {
		t.Errorf("unexpected leads: %+v", leads)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/leads?source=fax", nil)
	r.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	env.srv.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad source: status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAPIListLeadsAuth(t *testing.T) {
	t.Run("no key configured", func(t *testing.T) {
		env := newTestEnv(t)
		if w := env.get(t, "/api/leads"); w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
		}
	})
	t.Run("missing header", func(t *testing.T) {
		env := newTestEnv(t, func(o *Options) { o.AdminAPIKey = "secret" })
		if w := env.get(t, "/api/leads"); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

func TestAPIListListings(t *testing.T) {
	env := newTestEnv(t)
	env.addListing(t, &listing.Listing{ExternalID: "O-1", Title: "Office", Address: "1 A St", City: "Austin", Category: "office"})
	env.addListing(t, &listing.Listing{ExternalID: "R-1", Title: "Shop", Address: "2 B St", City: "Austin", Category: "retail", Availability: listing.AvailabilityLeased})

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"O-1", "R-1"}},
		{"?category=retail", []string{"R-1"}},
		{"?availability=available", []string{"O-1"}},
		{"?city=dallas", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := env.get(t, "/api/listings"+tt.query)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			var got []listing.Listing
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			var ids []string
			for _, l := range got {
				ids = append(ids, l.ExternalID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.want)
			}
		})
	}

	if w := env.get(t, "/api/listings?availability=gone"); w.Code != http.StatusBadRequest {
		t.Errorf("bad availability: status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
