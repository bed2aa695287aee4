package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/evcraddock/space-finder/internal/lead"
	"github.com/evcraddock/space-finder/internal/listing"
	"github.com/evcraddock/space-finder/internal/notify"
)

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"error": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleMapsScript is the stub left behind by the disabled Maps integration.
func (s *Server) handleMapsScript(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{
		"error":   "Google Maps integration is disabled",
		"message": "Map embeds are not available on this site.",
	}, http.StatusOK)
}

type testEmailRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	EmailType string `json:"emailType"`
}

type testEmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleTestEmail handles POST /api/test-email. It sends synchronously so the
// caller sees the provider's answer. Field errors are reported before
// configuration errors so a bad request is always a 400.
func (s *Server) handleTestEmail(w http.ResponseWriter, r *http.Request) {
	var req testEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiJSON(w, testEmailResponse{Message: "Invalid JSON body"}, http.StatusBadRequest)
		return
	}

	nreq := notify.Request{Recipient: req.Email, Name: req.Name, Kind: notify.Kind(req.EmailType)}
	if _, err := s.notifier.Render(nreq); err != nil {
		s.testEmailFailed(w, req, err)
		return
	}
	if !s.emailEnabled {
		apiJSON(w, testEmailResponse{Message: "Email is not configured"}, http.StatusInternalServerError)
		return
	}

	err := s.notifier.Send(r.Context(), req.Email, req.Name, notify.Kind(req.EmailType))
	switch {
	case err == nil:
		apiJSON(w, testEmailResponse{
			Success: true,
			Message: fmt.Sprintf("Test %s email sent to %s", req.EmailType, req.Email),
		}, http.StatusOK)
	case errors.Is(err, notify.ErrNotDelivered):
		apiJSON(w, testEmailResponse{
			Success: true,
			Message: fmt.Sprintf("Test %s email for %s written to the log (no mail transport configured)", req.EmailType, req.Email),
		}, http.StatusOK)
	default:
		s.testEmailFailed(w, req, err)
	}
}

func (s *Server) testEmailFailed(w http.ResponseWriter, req testEmailRequest, err error) {
	switch {
	case errors.Is(err, notify.ErrMissingFields):
		apiJSON(w, testEmailResponse{Message: "Missing required fields: email, name, emailType"}, http.StatusBadRequest)
	case errors.Is(err, notify.ErrUnknownTemplate):
		apiJSON(w, testEmailResponse{Message: fmt.Sprintf("Unknown email type %q", req.EmailType)}, http.StatusBadRequest)
	default:
		s.logger.Error("test email failed", zap.String("kind", req.EmailType), zap.Error(err))
		apiJSON(w, testEmailResponse{Message: fmt.Sprintf("Failed to send email: %v", err)}, http.StatusInternalServerError)
	}
}

type createLeadRequest struct {
	Source  string            `json:"source"`
	Answers map[string]string `json:"answers"`
}

type createLeadResponse struct {
	ID  int64  `json:"id"`
	Ref string `json:"ref"`
}

// apiCreateLead handles POST /api/leads, the persistence endpoint the
// questionnaire submits to.
func (s *Server) apiCreateLead(w http.ResponseWriter, r *http.Request) {
	var req createLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	source := lead.SourceAPI
	if req.Source != "" {
		source = lead.Source(req.Source)
	}

	l, err := s.leads.Create(r.Context(), source, req.Answers)
	switch {
	case err == nil:
		apiJSON(w, createLeadResponse{ID: l.ID, Ref: l.Ref}, http.StatusCreated)
	case errors.Is(err, lead.ErrSchemaMismatch), errors.Is(err, lead.ErrInvalid):
		apiError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		s.logger.Error("creating lead", zap.Error(err))
		apiError(w, "could not save lead", http.StatusInternalServerError)
	}
}

// apiListLeads handles GET /api/leads?source=&limit=.
func (s *Server) apiListLeads(w http.ResponseWriter, r *http.Request) {
	opts := lead.ListOptions{Limit: 50}
	q := r.URL.Query()

	if v := q.Get("source"); v != "" {
		if !lead.ValidSource(v) {
			apiError(w, "source must be questionnaire, popup or api", http.StatusBadRequest)
			return
		}
		opts.Source = lead.Source(v)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			apiError(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		opts.Limit = n
	}

	leads, err := s.leads.List(r.Context(), opts)
	if err != nil {
		apiError(w, fmt.Sprintf("listing leads: %v", err), http.StatusInternalServerError)
		return
	}
	if leads == nil {
		leads = []*lead.Lead{}
	}
	apiJSON(w, leads, http.StatusOK)
}

// apiListListings handles GET /api/listings?category=&city=&availability=.
func (s *Server) apiListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := listing.ListOptions{
		Category: q.Get("category"),
		City:     q.Get("city"),
	}
	if v := q.Get("availability"); v != "" {
		if !listing.ValidAvailability(v) {
			apiError(w, "availability must be available, pending or leased", http.StatusBadRequest)
			return
		}
		opts.Availability = listing.Availability(v)
	}

	listings, err := s.listings.List(r.Context(), opts)
	if err != nil {
		apiError(w, fmt.Sprintf("listing listings: %v", err), http.StatusInternalServerError)
		return
	}
	if listings == nil {
		listings = []*listing.Listing{}
	}
	apiJSON(w, listings, http.StatusOK)
}
