package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/evcraddock/space-finder/internal/lead"
	"github.com/evcraddock/space-finder/internal/wizard"
)

type questionnaireData struct {
	Step     wizard.Step
	Position int
	Total    int
	IsFirst  bool
	IsLast   bool
	Answers  wizard.Answers
	Errors   map[string]string
	// Earlier visible steps, for "edit" links.
	Previous []wizard.Step
	Summary  []wizard.SummaryLine
	// Submit failure shown above the form.
	Message   string
	Retryable bool
}

// loadWizard restores the visitor's wizard, starting a new session if there is none.
func (s *Server) loadWizard(w http.ResponseWriter, r *http.Request) (*wizard.Wizard, string, error) {
	id, st, err := s.sessions.Load(r)
	if errors.Is(err, wizard.ErrNoSession) {
		wz := wizard.New(s.steps)
		id, err := s.sessions.Create(w, wz.State())
		if err != nil {
			return nil, "", err
		}
		return wz, id, nil
	}
	if err != nil {
		return nil, "", err
	}
	return wizard.Restore(s.steps, st), id, nil
}

// stepInput collects the posted values for step's fields. A field that was
// posted empty is included so that clearing an optional answer sticks.
func stepInput(r *http.Request, step wizard.Step) map[string]string {
	input := make(map[string]string, len(step.Fields))
	for _, f := range step.Fields {
		if vals, ok := r.PostForm[f.Key]; ok && len(vals) > 0 {
			input[f.Key] = vals[0]
		}
	}
	return input
}

func (s *Server) renderQuestionnaire(w http.ResponseWriter, r *http.Request, status int, wz *wizard.Wizard, data questionnaireData) {
	vis := wz.Visible()
	data.Step = wz.Current()
	data.Position, data.Total = wz.Progress()
	data.IsFirst = wz.IsFirst()
	data.IsLast = wz.IsLast()
	data.Answers = wz.Answers()
	data.Previous = vis[:data.Position-1]
	if data.IsLast {
		data.Summary = wizard.Summary(vis[:len(vis)-1], wz.Submission())
	}

	s.render(w, r, status, "questionnaire.html", pageData{
		Title:       "Find your space",
		Description: "Answer a few questions and we'll send you spaces that fit.",
		Body:        data,
	})
}

func (s *Server) wizardFailed(w http.ResponseWriter, err error) {
	s.logger.Error("questionnaire session", zap.Error(err))
	http.Error(w, "Something went wrong. Please reload the page.", http.StatusInternalServerError)
}

func redirectThankYou(w http.ResponseWriter, r *http.Request, ref string) {
	target := "/thank-you"
	if ref != "" {
		target += "?ref=" + url.QueryEscape(ref)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleQuestionnaire renders the current step.
func (s *Server) handleQuestionnaire(w http.ResponseWriter, r *http.Request) {
	wz, _, err := s.loadWizard(w, r)
	if err != nil {
		s.wizardFailed(w, err)
		return
	}
	if wz.Status() == wizard.StatusConfirmed {
		redirectThankYou(w, r, wz.Ref())
		return
	}
	s.renderQuestionnaire(w, r, http.StatusOK, wz, questionnaireData{})
}

// handleQuestionnaireNext validates the current step and advances.
func (s *Server) handleQuestionnaireNext(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	wz, id, err := s.loadWizard(w, r)
	if err != nil {
		s.wizardFailed(w, err)
		return
	}

	nextErr := wz.Next(stepInput(r, wz.Current()))

	var verr *wizard.ValidationError
	switch {
	case errors.Is(nextErr, wizard.ErrCompleted):
		redirectThankYou(w, r, wz.Ref())
		return
	case errors.Is(nextErr, wizard.ErrSubmitInFlight):
		s.renderQuestionnaire(w, r, http.StatusConflict, wz, questionnaireData{Message: "Your answers are already being sent."})
		return
	}

	if err := s.sessions.Save(id, wz.State()); err != nil {
		s.wizardFailed(w, err)
		return
	}

	if errors.As(nextErr, &verr) {
		s.renderQuestionnaire(w, r, http.StatusOK, wz, questionnaireData{Errors: verr.Fields})
		return
	}
	http.Redirect(w, r, "/questionnaire", http.StatusSeeOther)
}

// handleQuestionnaireBack moves to the previous step, or to ?step= when given.
func (s *Server) handleQuestionnaireBack(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	wz, id, err := s.loadWizard(w, r)
	if err != nil {
		s.wizardFailed(w, err)
		return
	}

	// Keep whatever was typed on the current step before leaving it.
	wz.Record(stepInput(r, wz.Current()))

	if target := r.PostFormValue("step"); target != "" {
		wz.GoTo(target)
	} else {
		wz.Back()
	}

	if err := s.sessions.Save(id, wz.State()); err != nil {
		s.wizardFailed(w, err)
		return
	}
	http.Redirect(w, r, "/questionnaire", http.StatusSeeOther)
}

// handleQuestionnaireSubmit submits the answers from the last step.
func (s *Server) handleQuestionnaireSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	wz, id, err := s.loadWizard(w, r)
	if err != nil {
		s.wizardFailed(w, err)
		return
	}
	if wz.Status() == wizard.StatusConfirmed {
		redirectThankYou(w, r, wz.Ref())
		return
	}

	// A double click or a second tab lands here while the first submit is running.
	claimed, err := s.sessions.BeginSubmit(id)
	if err != nil {
		if errors.Is(err, wizard.ErrSubmitInFlight) {
			s.renderQuestionnaire(w, r, http.StatusConflict, wz, questionnaireData{Message: "Your answers are already being sent."})
			return
		}
		s.wizardFailed(w, err)
		return
	}
	// Another request may have finished between loading and claiming.
	wz = wizard.Restore(s.steps, claimed)
	if wz.Status() == wizard.StatusConfirmed {
		if err := s.sessions.Save(id, claimed); err != nil {
			s.wizardFailed(w, err)
			return
		}
		redirectThankYou(w, r, wz.Ref())
		return
	}

	ref, submitErr := wz.Submit(r.Context(), s.leadSubmitter(), stepInput(r, wz.Current()))

	if err := s.sessions.Save(id, wz.State()); err != nil {
		s.wizardFailed(w, err)
		return
	}

	var verr *wizard.ValidationError
	var serr *wizard.SubmitError
	switch {
	case submitErr == nil:
		redirectThankYou(w, r, ref)
	case errors.Is(submitErr, wizard.ErrNotLastStep):
		http.Redirect(w, r, "/questionnaire", http.StatusSeeOther)
	case errors.As(submitErr, &verr):
		s.renderQuestionnaire(w, r, http.StatusOK, wz, questionnaireData{
			Errors:  verr.Fields,
			Message: s.missingMessage(verr),
		})
	case errors.As(submitErr, &serr):
		status := http.StatusBadGateway
		if !serr.Retryable {
			status = http.StatusUnprocessableEntity
		}
		s.logger.Warn("questionnaire submit failed", zap.Bool("retryable", serr.Retryable), zap.Error(serr.Err))
		s.renderQuestionnaire(w, r, status, wz, questionnaireData{Message: serr.Message(), Retryable: serr.Retryable})
	default:
		s.wizardFailed(w, submitErr)
	}
}

// missingMessage names the questions that still need answers, by label.
func (s *Server) missingMessage(verr *wizard.ValidationError) string {
	labels := make(map[string]string)
	for _, st := range s.steps {
		for _, f := range st.Fields {
			labels[f.Key] = f.Label
		}
	}
	msg := "Please check: "
	for i, k := range verr.Keys() {
		if i > 0 {
			msg += ", "
		}
		msg += labels[k]
	}
	return msg
}

// handleQuestionnaireRestart discards the session and starts over.
func (s *Server) handleQuestionnaireRestart(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(w, r); err != nil {
		s.wizardFailed(w, err)
		return
	}
	http.Redirect(w, r, "/questionnaire", http.StatusSeeOther)
}

// leadSubmitter stores the questionnaire answers as a lead. Records the lead
// service rejects outright are reported as a schema mismatch so the visitor
// is not invited to retry.
func (s *Server) leadSubmitter() wizard.Submitter {
	return wizard.SubmitterFunc(func(ctx context.Context, answers wizard.Answers) (string, error) {
		l, err := s.leads.Create(ctx, lead.SourceQuestionnaire, answers)
		if errors.Is(err, lead.ErrSchemaMismatch) || errors.Is(err, lead.ErrInvalid) {
			return "", fmt.Errorf("%w: %v", wizard.ErrSchemaMismatch, err)
		}
		if err != nil {
			return "", err
		}
		return l.Ref, nil
	})
}
