package wizard

import (
	"context"
	"errors"
	"strings"
)

// Status is the lifecycle state of a wizard.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitting Status = "submitting"
	StatusConfirmed  Status = "confirmed"
)

// Submitter persists a finished answer record and returns its reference.
type Submitter interface {
	Submit(ctx context.Context, answers Answers) (string, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, answers Answers) (string, error)

// Submit calls f.
func (f SubmitterFunc) Submit(ctx context.Context, answers Answers) (string, error) {
	return f(ctx, answers)
}

// State is the persistable snapshot of a Wizard.
type State struct {
	Step    string  `json:"step"`
	Answers Answers `json:"answers"`
	Status  Status  `json:"status"`
	Ref     string  `json:"ref,omitempty"`
}

// Wizard is the questionnaire state machine. It is not safe for concurrent use.
type Wizard struct {
	steps   []Step
	current string
	answers Answers
	status  Status
	ref     string
}

// New starts a wizard on the first visible step.
func New(steps []Step) *Wizard {
	w := &Wizard{
		steps:   steps,
		answers: Answers{},
		status:  StatusInProgress,
	}
	if vis := w.Visible(); len(vis) > 0 {
		w.current = vis[0].ID
	}
	return w
}

// Restore rebuilds a wizard from a saved State.
// An interrupted submission comes back as in progress.
func Restore(steps []Step, st State) *Wizard {
	w := New(steps)
	if st.Answers != nil {
		w.answers = st.Answers.Clone()
	}
	if st.Status == StatusConfirmed {
		w.status = StatusConfirmed
		w.ref = st.Ref
	}
	if st.Step != "" {
		w.current = st.Step
	}
	return w
}

// State snapshots the wizard.
func (w *Wizard) State() State {
	return State{
		Step:    w.Current().ID,
		Answers: w.answers.Clone(),
		Status:  w.status,
		Ref:     w.ref,
	}
}

// Steps returns every configured step.
func (w *Wizard) Steps() []Step { return w.steps }

// Answers returns a copy of the full answer record, including stale answers.
func (w *Wizard) Answers() Answers { return w.answers.Clone() }

// Status returns the lifecycle status.
func (w *Wizard) Status() Status { return w.status }

// Ref returns the lead reference after a successful submission.
func (w *Wizard) Ref() string { return w.ref }

// Visible returns the steps shown for the current answers.
func (w *Wizard) Visible() []Step {
	return VisibleSteps(w.steps, w.answers)
}

// position returns the index of the current step within vis.
// If the current step is no longer visible, the closest earlier visible step is used.
func (w *Wizard) position(vis []Step) int {
	for i, s := range vis {
		if s.ID == w.current {
			return i
		}
	}
	last := 0
	for _, s := range w.steps {
		if s.ID == w.current {
			return last
		}
		for i, v := range vis {
			if v.ID == s.ID {
				last = i
			}
		}
	}
	return 0
}

// Current returns the step being shown.
func (w *Wizard) Current() Step {
	vis := w.Visible()
	if len(vis) == 0 {
		return Step{}
	}
	return vis[w.position(vis)]
}

// Progress returns the 1-based position of the current step and the number of visible steps.
func (w *Wizard) Progress() (int, int) {
	vis := w.Visible()
	if len(vis) == 0 {
		return 0, 0
	}
	return w.position(vis) + 1, len(vis)
}

// IsFirst reports whether the current step is the first visible one.
func (w *Wizard) IsFirst() bool {
	pos, _ := w.Progress()
	return pos <= 1
}

// IsLast reports whether the current step is the last visible one.
func (w *Wizard) IsLast() bool {
	pos, total := w.Progress()
	return pos == total
}

// Record stores input for the current step without validating or moving.
// Used when the visitor leaves a step backwards.
func (w *Wizard) Record(input map[string]string) {
	if w.status != StatusInProgress {
		return
	}
	w.record(w.Current(), input)
}

// record merges input for the step's own fields into the answer record.
// Keys absent from input are left alone; blank values clear the answer.
func (w *Wizard) record(step Step, input map[string]string) {
	for _, f := range step.Fields {
		v, ok := input[f.Key]
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			delete(w.answers, f.Key)
			continue
		}
		w.answers[f.Key] = v
	}
}

func validate(steps []Step, a Answers) error {
	problems := make(map[string]string)
	for _, s := range steps {
		for _, f := range s.Fields {
			if msg := f.check(a[f.Key]); msg != "" {
				problems[f.Key] = msg
			}
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Fields: problems}
	}
	return nil
}

// Next records input for the current step, validates it, and advances to the
// next visible step. On a validation error the wizard stays where it is.
func (w *Wizard) Next(input map[string]string) error {
	if w.status == StatusConfirmed {
		return ErrCompleted
	}
	if w.status == StatusSubmitting {
		return ErrSubmitInFlight
	}

	step := w.Current()
	w.record(step, input)
	if err := validate([]Step{step}, w.answers); err != nil {
		return err
	}

	// Visibility is recomputed after recording: the answer just given may
	// hide or reveal later steps.
	vis := w.Visible()
	pos := w.position(vis)
	if pos+1 >= len(vis) {
		return ErrLastStep
	}
	w.current = vis[pos+1].ID
	return nil
}

// Back moves to the previous visible step without discarding answers.
// It reports whether the wizard moved.
func (w *Wizard) Back() bool {
	if w.status != StatusInProgress {
		return false
	}
	vis := w.Visible()
	pos := w.position(vis)
	if pos == 0 {
		w.current = vis[0].ID
		return false
	}
	w.current = vis[pos-1].ID
	return true
}

// GoTo jumps back to an earlier visible step. Forward jumps are refused so
// that every step is validated on the way through.
func (w *Wizard) GoTo(id string) bool {
	if w.status != StatusInProgress {
		return false
	}
	vis := w.Visible()
	pos := w.position(vis)
	for i := 0; i < pos; i++ {
		if vis[i].ID == id {
			w.current = id
			return true
		}
	}
	return false
}

// Submission returns the answers that belong to currently visible steps.
// Answers left behind by hidden steps are stale and dropped.
func (w *Wizard) Submission() Answers {
	out := Answers{}
	for _, s := range w.Visible() {
		for _, f := range s.Fields {
			if v, ok := w.answers[f.Key]; ok {
				out[f.Key] = v
			}
		}
	}
	return out
}

// Submit records input for the last step, validates every visible step and
// hands the pruned record to sub. On success the wizard is confirmed; on
// failure it stays on the last step and returns a *ValidationError or *SubmitError.
func (w *Wizard) Submit(ctx context.Context, sub Submitter, input map[string]string) (string, error) {
	switch w.status {
	case StatusConfirmed:
		return w.ref, ErrCompleted
	case StatusSubmitting:
		return "", ErrSubmitInFlight
	}
	if !w.IsLast() {
		return "", ErrNotLastStep
	}

	w.record(w.Current(), input)
	if err := validate(w.Visible(), w.answers); err != nil {
		return "", err
	}

	w.status = StatusSubmitting
	ref, err := sub.Submit(ctx, w.Submission())
	if err != nil {
		w.status = StatusInProgress
		return "", &SubmitError{Retryable: !errors.Is(err, ErrSchemaMismatch), Err: err}
	}

	w.status = StatusConfirmed
	w.ref = ref
	return ref, nil
}
