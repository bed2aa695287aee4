package web

import (
	"github.com/evcraddock/space-finder/internal/lead"
	"github.com/evcraddock/space-finder/internal/notify"
	"github.com/evcraddock/space-finder/internal/wizard"
)

// LeadSchema derives the lead record schema from the questionnaire steps.
// Every question key is accepted; name and email are always required so
// popup and API leads can be contacted.
func LeadSchema(steps []wizard.Step) lead.Schema {
	return lead.Schema{
		Keys:     wizard.Keys(steps),
		Required: []string{lead.KeyName, lead.KeyEmail},
		Describe: func(answers map[string]string) []notify.Detail {
			a := wizard.Answers(answers)
			var details []notify.Detail
			for _, line := range wizard.Summary(wizard.VisibleSteps(steps, a), a) {
				details = append(details, notify.Detail{Label: line.Label, Value: line.Value})
			}
			return details
		},
	}
}
