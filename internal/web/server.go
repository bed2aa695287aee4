// Package web provides the HTTP server and handlers for the space-finder site.
package web

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/evcraddock/space-finder/internal/content"
	"github.com/evcraddock/space-finder/internal/lead"
	"github.com/evcraddock/space-finder/internal/listing"
	"github.com/evcraddock/space-finder/internal/logging"
	"github.com/evcraddock/space-finder/internal/notify"
	"github.com/evcraddock/space-finder/internal/popup"
	"github.com/evcraddock/space-finder/internal/wizard"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options wires a Server to its collaborators.
type Options struct {
	DB       *sql.DB
	Logger   *zap.Logger
	Notifier *notify.Notifier
	Leads    *lead.Service
	Listings *listing.Service
	Pages    *content.Library
	Popup    popup.Config
	Steps    []wizard.Step

	AdminAPIKey string
	// EmailEnabled is false when no mail transport is configured;
	// /api/test-email then answers 500 for otherwise valid requests.
	EmailEnabled bool
	SiteName     string
}

// Server is the web site HTTP server.
type Server struct {
	logger    *zap.Logger
	notifier  *notify.Notifier
	leads     *lead.Service
	listings  *listing.Service
	pages     *content.Library
	gate      *popup.Gate
	sessions  *wizard.SessionStore
	steps     []wizard.Step
	templates map[string]*template.Template
	router    chi.Router

	adminAPIKey  string
	keyLimiter   *rateLimiter
	emailEnabled bool
	siteName     string
}

// NewServer creates a web server.
func NewServer(opts Options) (*Server, error) {
	if opts.DB == nil || opts.Notifier == nil || opts.Leads == nil || opts.Listings == nil || opts.Pages == nil {
		return nil, errors.New("web: DB, Notifier, Leads, Listings and Pages are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Steps == nil {
		opts.Steps = wizard.DefaultSteps()
	}
	if opts.SiteName == "" {
		opts.SiteName = "Space Finder"
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		logger:       opts.Logger.Named("web"),
		notifier:     opts.Notifier,
		leads:        opts.Leads,
		listings:     opts.Listings,
		pages:        opts.Pages,
		gate:         popup.NewGate(opts.Popup),
		sessions:     wizard.NewSessionStore(opts.DB),
		steps:        opts.Steps,
		templates:    tmpl,
		adminAPIKey:  opts.AdminAPIKey,
		keyLimiter:   newRateLimiter(),
		emailEnabled: opts.EmailEnabled,
		siteName:     opts.SiteName,
	}

	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("creating static sub-fs: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Compress(5))

	r.NotFound(s.handleNotFound)

	r.Get("/health", s.handleHealth)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))

	r.Get("/", s.handleHome)
	r.Get("/faq", s.handleContentPage("faq"))
	r.Get("/nnn-lease-guide", s.handleContentPage("nnn-lease-guide"))
	r.Get("/why-rent-small-space", s.handleContentPage("why-rent-small-space"))
	r.Get("/listings", s.handleListings)
	r.Get("/thank-you", s.handleThankYou)

	r.Route("/questionnaire", func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Get("/", s.handleQuestionnaire)
		r.Post("/next", s.handleQuestionnaireNext)
		r.Post("/back", s.handleQuestionnaireBack)
		r.Post("/submit", s.handleQuestionnaireSubmit)
		r.Post("/restart", s.handleQuestionnaireRestart)
	})

	r.Get("/popup", s.handlePopup)
	r.Post("/popup/lead", s.handlePopupLead)

	r.Route("/api", func(r chi.Router) {
		r.Get("/google-maps-script", s.handleMapsScript)
		r.Get("/listings", s.apiListListings)
		r.Post("/leads", s.apiCreateLead)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAPIKey(false))
			r.Post("/test-email", s.handleTestEmail)
		})
		r.Group(func(r chi.Router) {
			r.Use(s.requireAPIKey(true))
			r.Get("/leads", s.apiListLeads)
		})
	})

	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", zap.String("addr", "http://localhost"+srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("shutting down web server")
	return srv.Shutdown(shutdownCtx)
}

// parseTemplates builds one template set per page, each sharing the layout
// and partials. Fragments (files starting with "_") are parsed into every set.
func parseTemplates() (map[string]*template.Template, error) {
	funcMap := template.FuncMap{
		"formatRent":  tmplFormatRent,
		"formatInt":   tmplFormatInt,
		"formatRate":  tmplFormatRate,
		"dealLabel":   tmplDealLabel,
		"fieldError":  tmplFieldError,
		"isSelected":  tmplIsSelected,
		"seconds":     tmplSeconds,
		"currentYear": func() int { return time.Now().Year() },
	}

	base, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/_*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	sets := make(map[string]*template.Template)
	for _, name := range names {
		file := path.Base(name)
		if file == "layout.html" || strings.HasPrefix(file, "_") {
			continue
		}
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning layout: %w", err)
		}
		if _, err := clone.ParseFS(templateFS, name); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
		sets[file] = clone
	}
	return sets, nil
}

// Template helper functions

func tmplFormatRent(p *int64) string {
	if p == nil {
		return "Call for pricing"
	}
	return "$" + formatWithCommas(*p) + "/mo"
}

func tmplFormatInt(i *int64) string {
	if i == nil {
		return "—"
	}
	return formatWithCommas(*i)
}

func tmplFormatRate(l *listing.Listing) string {
	rate := l.RentPerSqFtYear()
	if rate == 0 {
		return ""
	}
	return fmt.Sprintf("$%.2f/sf/yr", rate)
}

func tmplDealLabel(d listing.DealScore) string {
	return d.Label()
}

func tmplFieldError(errs map[string]string, key string) string {
	if errs == nil {
		return ""
	}
	return errs[key]
}

func tmplIsSelected(answers wizard.Answers, key, value string) bool {
	return answers[key] == value
}

func tmplSeconds(d time.Duration) int {
	return int(d / time.Second)
}

func formatWithCommas(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, ",")
}
