// Package notify renders and sends transactional emails.
package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

// Kind names an email template.
type Kind string

const (
	KindLeadConfirmation Kind = "lead-confirmation"
	KindBrokerAlert      Kind = "broker-alert"
	KindWelcome          Kind = "welcome"
)

// Kinds lists every known template kind.
var Kinds = []Kind{KindLeadConfirmation, KindBrokerAlert, KindWelcome}

// ValidKind reports whether s names a known template.
func ValidKind(s string) bool {
	for _, k := range Kinds {
		if string(k) == s {
			return true
		}
	}
	return false
}

var (
	// ErrMissingFields is returned when recipient, name or kind is empty.
	ErrMissingFields = errors.New("missing required fields")
	// ErrUnknownTemplate is returned for a kind with no template.
	ErrUnknownTemplate = errors.New("unknown email template")
	// ErrNotDelivered is returned by providers that record a message
	// without handing it to a mail transport.
	ErrNotDelivered = errors.New("message logged, not delivered")
)

// Message is a rendered email ready for a Provider.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Provider delivers a single message.
type Provider interface {
	Deliver(ctx context.Context, msg Message) error
}

// Detail is one labelled line rendered into an email body.
type Detail struct {
	Label string
	Value string
}

// Request describes one email to send.
type Request struct {
	Recipient string
	Name      string
	Kind      Kind
	// Ref is the lead reference, if any.
	Ref     string
	Details []Detail
}

// Config holds sender identity and links used in templates.
type Config struct {
	From     string
	SiteName string
	BaseURL  string
}

type templateSet struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// Notifier renders templates and hands messages to a Provider.
// It never retries; callers decide.
type Notifier struct {
	cfg       Config
	provider  Provider
	templates map[Kind]templateSet
}

// New creates a notifier, parsing the embedded templates.
func New(cfg Config, provider Provider) (*Notifier, error) {
	if cfg.SiteName == "" {
		cfg.SiteName = "Space Finder"
	}
	n := &Notifier{
		cfg:       cfg,
		provider:  provider,
		templates: make(map[Kind]templateSet, len(Kinds)),
	}

	for _, k := range Kinds {
		text, err := texttemplate.ParseFS(templateFS, fmt.Sprintf("templates/%s.txt", k))
		if err != nil {
			return nil, fmt.Errorf("parsing %s text template: %w", k, err)
		}
		html, err := htmltemplate.ParseFS(templateFS, "templates/layout.html", fmt.Sprintf("templates/%s.html", k))
		if err != nil {
			return nil, fmt.Errorf("parsing %s html template: %w", k, err)
		}
		n.templates[k] = templateSet{text: text, html: html}
	}

	return n, nil
}

// Send dispatches one email of the given kind to recipient.
func (n *Notifier) Send(ctx context.Context, recipient, displayName string, kind Kind) error {
	return n.Dispatch(ctx, Request{Recipient: recipient, Name: displayName, Kind: kind})
}

// Dispatch renders req and delivers it through the provider.
func (n *Notifier) Dispatch(ctx context.Context, req Request) error {
	msg, err := n.Render(req)
	if err != nil {
		return err
	}
	if err := n.provider.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("sending %s email: %w", req.Kind, err)
	}
	return nil
}

type templateData struct {
	Name      string
	Recipient string
	SiteName  string
	BaseURL   string
	Ref       string
	Details   []Detail
}

// Render validates req and builds the message without sending it.
func (n *Notifier) Render(req Request) (Message, error) {
	req.Recipient = strings.TrimSpace(req.Recipient)
	req.Name = strings.TrimSpace(req.Name)
	if req.Recipient == "" || req.Name == "" || req.Kind == "" {
		return Message{}, ErrMissingFields
	}

	set, ok := n.templates[req.Kind]
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, req.Kind)
	}

	data := templateData{
		Name:      req.Name,
		Recipient: req.Recipient,
		SiteName:  n.cfg.SiteName,
		BaseURL:   strings.TrimRight(n.cfg.BaseURL, "/"),
		Ref:       req.Ref,
		Details:   req.Details,
	}

	var subject, text, html bytes.Buffer
	if err := set.text.ExecuteTemplate(&subject, "subject", data); err != nil {
		return Message{}, fmt.Errorf("rendering %s subject: %w", req.Kind, err)
	}
	if err := set.text.ExecuteTemplate(&text, "body", data); err != nil {
		return Message{}, fmt.Errorf("rendering %s text body: %w", req.Kind, err)
	}
	if err := set.html.ExecuteTemplate(&html, "layout", data); err != nil {
		return Message{}, fmt.Errorf("rendering %s html body: %w", req.Kind, err)
	}

	return Message{
		From:    n.cfg.From,
		To:      req.Recipient,
		Subject: strings.TrimSpace(subject.String()),
		Text:    strings.TrimSpace(text.String()) + "\n",
		HTML:    html.String(),
	}, nil
}
