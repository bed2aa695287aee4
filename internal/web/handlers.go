package web

import (
	"bytes"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/evcraddock/space-finder/internal/content"
	"github.com/evcraddock/space-finder/internal/lead"
	"github.com/evcraddock/space-finder/internal/listing"
	"github.com/evcraddock/space-finder/internal/wizard"
)

// pageData is passed to layout.html; Body carries the page-specific data.
type pageData struct {
	SiteName    string
	Title       string
	Description string
	Path        string
	Body        interface{}
}

type homeData struct {
	Guides   []*content.Page
	Featured []*listing.Listing
}

type listingsData struct {
	Listings   []*listing.Listing
	Categories []wizard.Option
	Category   string
	City       string
}

type thankYouData struct {
	Lead     *lead.Lead
	Matches  []*listing.Listing
	Category string
}

// render executes the named page inside the layout. Output is buffered so a
// template error never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	tmpl, ok := s.templates[name]
	if !ok {
		s.logger.Error("unknown template", zap.String("template", name))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	data.SiteName = s.siteName
	data.Path = r.URL.Path

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("rendering template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderPartial executes a named template block (no layout). Partials are
// parsed into every set, so any page set can serve them.
func (s *Server) renderPartial(w http.ResponseWriter, status int, set, name string, data interface{}) {
	tmpl, ok := s.templates[set]
	if !ok {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("rendering partial", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "not_found.html", pageData{Title: "Page not found"})
}

// handleHome renders the landing page.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	featured, err := s.listings.List(r.Context(), listing.ListOptions{
		Availability: listing.AvailabilityAvailable,
		Limit:        3,
	})
	if err != nil {
		s.logger.Warn("loading featured listings", zap.Error(err))
	}

	s.render(w, r, http.StatusOK, "home.html", pageData{
		Title:       "Small commercial space, without the guesswork",
		Description: "Tenant-side leasing help for offices, storefronts and flex space under 10,000 square feet.",
		Body:        homeData{Guides: s.pages.All(), Featured: featured},
	})
}

// handleContentPage renders one of the markdown pages.
func (s *Server) handleContentPage(slug string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := s.pages.Get(slug)
		if errors.Is(err, content.ErrNotFound) {
			s.handleNotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		s.render(w, r, http.StatusOK, "page.html", pageData{
			Title:       page.Title,
			Description: page.Description,
			Body:        page,
		})
	}
}

// handleListings renders the listings page, filtered by ?category= and ?city=.
func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := listingsData{
		Categories: s.categories(),
		Category:   q.Get("category"),
		City:       q.Get("city"),
	}

	listings, err := s.listings.List(r.Context(), listing.ListOptions{
		Category: data.Category,
		City:     data.City,
	})
	if err != nil {
		s.logger.Error("listing listings", zap.Error(err))
		http.Error(w, "Error loading listings", http.StatusInternalServerError)
		return
	}
	data.Listings = listings

	s.render(w, r, http.StatusOK, "listings.html", pageData{
		Title:       "Available spaces",
		Description: "Small commercial spaces with an honest read on the asking rent.",
		Body:        data,
	})
}

// handleThankYou renders the confirmation page. With ?ref= it shows the
// lead's reference and listings that match what they asked for.
func (s *Server) handleThankYou(w http.ResponseWriter, r *http.Request) {
	var data thankYouData

	if ref := r.URL.Query().Get("ref"); ref != "" {
		l, err := s.leads.Get(r.Context(), ref)
		switch {
		case err == nil:
			data.Lead = l
			data.Category = l.PropertyType
			if l.PropertyType != "" {
				matches, err := s.listings.Matching(r.Context(), l.PropertyType, l.City, 3)
				if err != nil {
					s.logger.Warn("matching listings", zap.String("ref", ref), zap.Error(err))
				}
				data.Matches = matches
			}
		case errors.Is(err, lead.ErrNotFound):
		default:
			s.logger.Warn("loading lead", zap.String("ref", ref), zap.Error(err))
		}
	}

	s.render(w, r, http.StatusOK, "thank_you.html", pageData{
		Title: "Thank you",
		Body:  data,
	})
}

// categories returns the property type choices offered by the questionnaire.
func (s *Server) categories() []wizard.Option {
	for _, st := range s.steps {
		for _, f := range st.Fields {
			if f.Key == wizard.KeyPropertyType {
				return f.Options
			}
		}
	}
	return nil
}
