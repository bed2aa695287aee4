package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/evcraddock/space-finder/internal/lead"
	"github.com/evcraddock/space-finder/internal/listing"
	"github.com/evcraddock/space-finder/internal/wizard"
)

// browser carries the wizard cookie between requests.
type browser struct {
	t       *testing.T
	env     *testEnv
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, env *testEnv) *browser {
	return &browser{t: t, env: env, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var r *http.Request
	if form != nil {
		r = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	for _, c := range b.cookies {
		r.AddCookie(c)
	}

	w := httptest.NewRecorder()
	b.env.srv.ServeHTTP(w, r)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

// requestWithCookies builds a bare request carrying the browser's cookies.
func (b *browser) requestWithCookies() *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/questionnaire", nil)
	for _, c := range b.cookies {
		r.AddCookie(c)
	}
	return r
}

func (b *browser) next(form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	w := b.do(http.MethodPost, "/questionnaire/next", form)
	if w.Code != http.StatusSeeOther {
		b.t.Fatalf("next %v: status = %d, want %d; body: %s", form, w.Code, http.StatusSeeOther, w.Body.String())
	}
	return w
}

func (b *browser) currentStep() string {
	b.t.Helper()
	w := b.do(http.MethodGet, "/questionnaire", nil)
	if w.Code != http.StatusOK {
		b.t.Fatalf("questionnaire status = %d, want %d", w.Code, http.StatusOK)
	}
	return doc(b.t, w).Find("form.step").AttrOr("data-step", "")
}

// walkToContact answers every step before contact for an office search.
func (b *browser) walkToContact() {
	b.t.Helper()
	b.do(http.MethodGet, "/questionnaire", nil)
	b.next(url.Values{wizard.KeyPropertyType: {"office"}})
	b.next(url.Values{wizard.KeySquareFeet: {"under-1000"}})
	b.next(url.Values{wizard.KeyMonthlyBudget: {"under-2500"}})
	b.next(url.Values{wizard.KeyCity: {"Austin"}})
	b.next(url.Values{wizard.KeyMoveIn: {"asap"}})
	if got := b.currentStep(); got != "contact" {
		b.t.Fatalf("step = %q, want contact", got)
	}
}

func TestQuestionnaireStartsOnFirstStep(t *testing.T) {
	env := newTestEnv(t)
	b := newBrowser(t, env)

	w := b.do(http.MethodGet, "/questionnaire", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if _, ok := b.cookies[wizard.CookieName]; !ok {
		t.Fatal("expected wizard session cookie")
	}
	d := doc(t, w)
	if got := d.Find("form.step").AttrOr("data-step", ""); got != "property-type" {
		t.Errorf("step = %q, want property-type", got)
	}
	if got := d.Find(".progress").Text(); got != "Step 1 of 6" {
		t.Errorf("progress = %q, want Step 1 of 6", got)
	}
	if n := d.Find(`input[name="property_type"]`).Length(); n != 6 {
		t.Errorf("options = %d, want 6", n)
	}
	if d.Find(`button[formaction="/questionnaire/back"]`).Length() != 0 {
		t.Error("first step should not offer Back")
	}
	if w.Header().Get("Cache-Control") == "" {
		t.Error("expected no-cache headers")
	}
}

func TestQuestionnaireShowsBusyStateOnSubmit(t *testing.T) {
	env := newTestEnv(t)
	b := newBrowser(t, env)
	b.walkToContact()

	d := doc(t, b.do(http.MethodGet, "/questionnaire", nil))
	if d.Find(`script[src="/static/questionnaire.js"]`).Length() != 1 {
		t.Error("expected questionnaire script")
	}
	if got := d.Find("form.step button.button").AttrOr("data-busy-label", ""); got != "Sending…" {
		t.Errorf("busy label = %q, want Sending…", got)
	}
}

func TestQuestionnaireValidationRerendersStep(t *testing.T) {
	env := newTestEnv(t)
	b := newBrowser(t, env)
	b.do(http.MethodGet, "/questionnaire", nil)

	w := b.do(http.MethodPost, "/questionnaire/next", url.Values{})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	d := doc(t, w)
	if got := d.Find("form.step").AttrOr("data-step", ""); got != "property-type" {
		t.Errorf("step = %q, want property-type", got)
	}
	if got := d.Find(".field-error").Text(); got != "required" {
		t.Errorf("field error = %q, want required", got)
	}
}

func TestQuestionnaireBranchesOnPropertyType(t *testing.T) {
	env := newTestEnv(t)
	b := newBrowser(t, env)
	b.do(http.MethodGet, "/questionnaire", nil)

	b.next(url.Values{wizard.KeyPropertyType: {"coworking"}})
	if got := b.currentStep(); got != "seats" {
		t.Errorf("step after coworking = %q, want seats", got)
	}
}

func TestQuestionnaireBackKeepsAnswers(t *testing.T) {
	env := newTestEnv(t)
	b := newBrowser(t, env)
	b.do(http.MethodGet, "/questionnaire", nil)
	b.next(url.Values{wizard.KeyPropertyType: {"retail"}})

	w := b.do(http.MethodPost, "/questionnaire/back", url.Values{wizard.KeySquareFeet: {"1000-2500"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("back status = %d, want %d", w.Code, http.StatusSeeOther)
	}

	d := doc(t, b.do(http.MethodGet, "/questionnaire", nil))
	if _, ok := d.Find(`input[name="property_type"][value="retail"]`).Attr("checked"); !ok {
		t.Error("expected retail to stay checked")
	}

	b.next(url.Values{wizard.KeyPropertyType: {"retail"}})
	d = doc(t, b.do(http.MethodGet, "/questionnaire", nil))
	if _, ok := d.Find(`input[name="square_feet"][value="1000-2500"]`).Attr("checked"); !ok {
		t.Error("expected size typed before going back to be kept")
	}
}

func TestQuestionnaireEditEarlierStep(t *testing.T) {
	env := newTestEnv(t)
	b := newBrowser(t, env)
	b.walkToContact()

	w := b.do(http.MethodPost, "/questionnaire/back", url.Values{"step": {"location"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if got := b.currentStep(); got != "location" {
		t.Errorf("step = %q, want location", got)
	}
}

func TestQuestionnaireLastStepShowsSummary(t *testing.T) {
	env := newTestEnv(t)
	b := newBrowser(t, env)
	b.walkToContact()

	d := doc(t, b.do(http.MethodGet, "/questionnaire", nil))
	if got := d.Find("form.step").AttrOr("action", ""); got != "/questionnaire/submit" {
		t.Errorf("form action = %q, want /questionnaire/submit", got)
	}
	summary := d.Find(".summary dl").Text()
	for _, want := range []string{"Office", "Under 1,000 sq ft", "Austin", "As soon as possible"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary %q missing %q", summary, want)
		}
	}
	if n := d.Find(".edit-steps button").Length(); n != 5 {
		t.Errorf("edit links = %d, want 5", n)
	}
}

func TestQuestionnaireSubmitCreatesLead(t *testing.T) {
	env := newTestEnv(t)
	env.addListing(t, &listing.Listing{ExternalID: "A-1", Title: "Austin office", Address: "1 Main St", City: "Austin", Category: "office"})
	b := newBrowser(t, env)
	b.walkToContact()

	w := b.do(http.MethodPost, "/questionnaire/submit", url.Values{
		wizard.KeyName:  {"Jane Doe"},
		wizard.KeyEmail: {"jane@example.com"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusSeeOther, w.Body.String())
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "/thank-you?ref=") {
		t.Fatalf("location = %q, want thank-you with ref", loc)
	}
	ref := strings.TrimPrefix(loc, "/thank-you?ref=")

	l, err := env.leads.GetByRef(context.Background(), ref)
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	if l.Source != lead.SourceQuestionnaire || l.PropertyType != "office" || l.City != "Austin" {
		t.Errorf("unexpected lead: %+v", l)
	}
	if _, ok := l.Answers[wizard.KeyBuildOut]; ok {
		t.Error("hidden step answer should not be stored")
	}
	if kinds := env.queue.kinds(); len(kinds) != 1 || kinds[0] != "lead-confirmation" {
		t.Errorf("queued = %v, want [lead-confirmation]", kinds)
	}

	d := doc(t, b.do(http.MethodGet, loc, nil))
	if got := d.Find(".thank-you h1").Text(); got != "Thanks, Jane Doe!" {
		t.Errorf("heading = %q", got)
	}
	if got := d.Find(".thank-you .listing-card h3").Text(); got != "Austin office" {
		t.Errorf("matches = %q, want Austin office", got)
	}

	// A confirmed questionnaire goes straight to the thank-you page.
	w = b.do(http.MethodGet, "/questionnaire", nil)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != loc {
		t.Errorf("revisit: status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
	w = b.do(http.MethodPost, "/questionnaire/submit", url.Values{wizard.KeyName: {"Jane Doe"}, wizard.KeyEmail: {"jane@example.com"}})
	if w.Code != http.StatusSeeOther {
		t.Errorf("resubmit status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	leads, err := env.leads.List(context.Background(), lead.ListOptions{})
	if err != nil {
		t.Fatalf("list leads: %v", err)
	}
	if len(leads) != 1 {
		t.Errorf("leads = %d, want 1", len(leads))
	}
}

func TestQuestionnaireSubmitNamesMissingFields(t *testing.T) {
	env := newTestEnv(t)
	b := newBrowser(t, env)
	b.walkToContact()

	w := b.do(http.MethodPost, "/questionnaire/submit", url.Values{wizard.KeyName: {"Jane"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	d := doc(t, w)
	if got := d.Find(`p.error[role="alert"]`).Text(); got != "Please check: Email" {
		t.Errorf("message = %q, want Please check: Email", got)
	}
	if len(env.queue.kinds()) != 0 {
		t.Error("nothing should be queued")
	}
}

func TestQuestionnaireSubmitInFlight(t *testing.T) {
	env := newTestEnv(t)
	b := newBrowser(t, env)
	b.walkToContact()

	if _, err := env.srv.sessions.BeginSubmit(b.cookies[wizard.CookieName].Value); err != nil {
		t.Fatalf("begin submit: %v", err)
	}

	w := b.do(http.MethodPost, "/questionnaire/submit", url.Values{
		wizard.KeyName:  {"Jane"},
		wizard.KeyEmail: {"jane@example.com"},
	})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	leads, err := env.leads.List(context.Background(), lead.ListOptions{})
	if err != nil {
		t.Fatalf("list leads: %v", err)
	}
	if len(leads) != 0 {
		t.Errorf("leads = %d, want 0", len(leads))
	}
}

func TestQuestionnaireConcurrentSubmitsCreateOneLead(t *testing.T) {
	env := newTestEnv(t)
	b := newBrowser(t, env)
	b.walkToContact()
	cookie := b.cookies[wizard.CookieName]

	form := url.Values{
		wizard.KeyName:  {"Jane"},
		wizard.KeyEmail: {"jane@example.com"},
	}.Encode()

	const tabs = 5
	codes := make([]int, tabs)
	var wg sync.WaitGroup
	for i := 0; i < tabs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := httptest.NewRequest(http.MethodPost, "/questionnaire/submit", strings.NewReader(form))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			r.AddCookie(cookie)
			w := httptest.NewRecorder()
			env.srv.ServeHTTP(w, r)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusSeeOther && code != http.StatusConflict {
			t.Errorf("tab %d: status = %d, want %d or %d", i, code, http.StatusSeeOther, http.StatusConflict)
		}
	}
	leads, err := env.leads.List(context.Background(), lead.ListOptions{})
	if err != nil {
		t.Fatalf("list leads: %v", err)
	}
	if len(leads) != 1 {
		t.Errorf("leads = %d, want 1", len(leads))
	}
}

func TestQuestionnaireSubmitAfterConfirmedElsewhere(t *testing.T) {
	env := newTestEnv(t)
	b := newBrowser(t, env)
	b.walkToContact()
	id := b.cookies[wizard.CookieName].Value

	// Simulate a second tab that confirmed the session first.
	_, st, err := env.srv.sessions.Load(b.requestWithCookies())
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	st.Status = wizard.StatusConfirmed
	st.Ref = "SF-OTHER"
	if err := env.srv.sessions.Save(id, st); err != nil {
		t.Fatalf("save session: %v", err)
	}

	w := b.do(http.MethodPost, "/questionnaire/submit", url.Values{
		wizard.KeyName:  {"Jane"},
		wizard.KeyEmail: {"jane@example.com"},
	})
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/thank-you?ref=SF-OTHER" {
		t.Errorf("status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
	leads, err := env.leads.List(context.Background(), lead.ListOptions{})
	if err != nil {
		t.Fatalf("list leads: %v", err)
	}
	if len(leads) != 0 {
		t.Errorf("leads = %d, want 0", len(leads))
	}
}

func TestQuestionnaireSubmitSchemaMismatch(t *testing.T) {
	steps := []wizard.Step{
		{
			ID:    "contact",
			Title: "Contact",
			Fields: []wizard.Field{
				{Key: wizard.KeyName, Label: "Name", Kind: wizard.FieldText, Required: true},
				{Key: wizard.KeyEmail, Label: "Email", Kind: wizard.FieldEmail, Required: true},
				{Key: "favorite_color", Label: "Favorite color", Kind: wizard.FieldText},
			},
		},
	}
	env := newTestEnv(t, func(o *Options) { o.Steps = steps })
	b := newBrowser(t, env)
	b.do(http.MethodGet, "/questionnaire", nil)

	w := b.do(http.MethodPost, "/questionnaire/submit", url.Values{
		wizard.KeyName:   {"Jane"},
		wizard.KeyEmail:  {"jane@example.com"},
		"favorite_color": {"green"},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if strings.Contains(doc(t, w).Find(`p.error[role="alert"]`).Text(), "try again") {
		t.Error("schema mismatch should not invite a retry")
	}
}

func TestQuestionnaireRestart(t *testing.T) {
	env := newTestEnv(t)
	b := newBrowser(t, env)
	b.do(http.MethodGet, "/questionnaire", nil)
	b.next(url.Values{wizard.KeyPropertyType: {"office"}})
	old := b.cookies[wizard.CookieName].Value

	w := b.do(http.MethodPost, "/questionnaire/restart", url.Values{})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if got := b.currentStep(); got != "property-type" {
		t.Errorf("step = %q, want property-type", got)
	}
	if b.cookies[wizard.CookieName].Value == old {
		t.Error("expected a new session")
	}
}

func TestThankYouWithoutRef(t *testing.T) {
	env := newTestEnv(t)
	w := env.get(t, "/thank-you")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := doc(t, w).Find(".thank-you h1").Text(); got != "Thank you!" {
		t.Errorf("heading = %q", got)
	}
}
