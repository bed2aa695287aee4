// Package wizard implements the lead questionnaire as a step state machine.
//
// A Wizard walks an ordered list of Steps. Each step may carry a predicate over
// the accumulated Answers; steps whose predicate is false are skipped when
// navigating and their answers are left out of the submitted record.
package wizard

import (
	"net/mail"
	"sort"
	"strings"
)

// Answers is the accumulated answer record, keyed by question key.
type Answers map[string]string

// Clone returns a copy of a.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// FieldKind controls how a field is rendered and validated.
type FieldKind string

const (
	FieldChoice FieldKind = "choice"
	FieldText   FieldKind = "text"
	FieldEmail  FieldKind = "email"
	FieldPhone  FieldKind = "phone"
)

// Option is one allowed value for a choice field.
type Option struct {
	Value string
	Label string
}

// Field is a single input on a step.
type Field struct {
	Key         string
	Label       string
	Kind        FieldKind
	Required    bool
	Options     []Option
	Placeholder string
}

// check returns a short problem description for value, or "" if it is acceptable.
func (f Field) check(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		if f.Required {
			return "required"
		}
		return ""
	}

	switch f.Kind {
	case FieldChoice:
		for _, o := range f.Options {
			if o.Value == value {
				return ""
			}
		}
		return "invalid choice"
	case FieldEmail:
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value {
			return "invalid email address"
		}
	case FieldPhone:
		digits := 0
		for _, r := range value {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits < 7 {
			return "invalid phone number"
		}
	}
	return ""
}

// Step is one screen of the questionnaire.
type Step struct {
	ID     string
	Title  string
	Prompt string
	Fields []Field

	// When decides whether the step is shown. Nil means always.
	When func(Answers) bool
}

// Visible reports whether the step is shown for the given answers.
func (s Step) Visible(a Answers) bool {
	return s.When == nil || s.When(a)
}

// VisibleSteps filters steps by their predicates, preserving order.
func VisibleSteps(steps []Step, a Answers) []Step {
	var out []Step
	for _, s := range steps {
		if s.Visible(a) {
			out = append(out, s)
		}
	}
	return out
}

// Keys returns every question key used by steps, sorted.
func Keys(steps []Step) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, s := range steps {
		for _, f := range s.Fields {
			if !seen[f.Key] {
				seen[f.Key] = true
				keys = append(keys, f.Key)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// OptionLabel returns the display label for a choice value, or the value itself.
func OptionLabel(steps []Step, key, value string) string {
	for _, s := range steps {
		for _, f := range s.Fields {
			if f.Key != key {
				continue
			}
			for _, o := range f.Options {
				if o.Value == value {
					return o.Label
				}
			}
		}
	}
	return value
}

// SummaryLine is one answered question, ready for display.
type SummaryLine struct {
	Key   string
	Label string
	Value string
}

// Summary lists the answered fields of steps in step order, with choice
// values replaced by their labels. Unanswered fields are left out.
func Summary(steps []Step, a Answers) []SummaryLine {
	var lines []SummaryLine
	for _, s := range steps {
		for _, f := range s.Fields {
			v := strings.TrimSpace(a[f.Key])
			if v == "" {
				continue
			}
			lines = append(lines, SummaryLine{Key: f.Key, Label: f.Label, Value: OptionLabel(steps, f.Key, v)})
		}
	}
	return lines
}
