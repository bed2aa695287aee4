package web

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/evcraddock/space-finder/internal/lead"
	"github.com/evcraddock/space-finder/internal/popup"
)

type popupData struct {
	Path         string
	DelaySeconds int
	Name         string
	Email        string
	Error        string
	Done         bool
}

// handlePopup is the client pass of the popup gate. The page script calls it
// after first paint with ?path=<current path>; it returns the overlay
// fragment when the path is allow-listed and 204 otherwise.
func (s *Server) handlePopup(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if !s.gate.Visible(popup.PhaseClient, path) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	s.renderPartial(w, http.StatusOK, "page.html", "popup", popupData{
		Path:         path,
		DelaySeconds: tmplSeconds(s.gate.Delay()),
	})
}

// handlePopupLead records a lead from the overlay form and answers with the
// updated fragment.
func (s *Server) handlePopupLead(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	data := popupData{
		Path:  r.PostFormValue("path"),
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		Email: strings.TrimSpace(r.PostFormValue("email")),
	}

	status := http.StatusOK
	_, err := s.leads.Create(r.Context(), lead.SourcePopup, map[string]string{
		lead.KeyName:  data.Name,
		lead.KeyEmail: data.Email,
	})
	switch {
	case err == nil:
		data.Done = true
	case errors.Is(err, lead.ErrInvalid):
		data.Error = "Please enter your name and a valid email address."
		status = http.StatusUnprocessableEntity
	default:
		s.logger.Error("popup lead", zap.Error(err))
		data.Error = "We couldn't save that just now. Please try again."
		status = http.StatusInternalServerError
	}

	s.renderPartial(w, status, "page.html", "popup", data)
}
