// Package lead stores prospective tenant leads and fans out their notifications.
package lead

import (
	"encoding/json"
	"time"
)

// Source records where a lead was captured.
type Source string

const (
	SourceQuestionnaire Source = "questionnaire"
	SourcePopup         Source = "popup"
	SourceAPI           Source = "api"
)

// ValidSource returns true if s is a known source.
func ValidSource(s string) bool {
	switch Source(s) {
	case SourceQuestionnaire, SourcePopup, SourceAPI:
		return true
	}
	return false
}

// Answer keys the lead record promotes to columns.
const (
	KeyName         = "name"
	KeyEmail        = "email"
	KeyPhone        = "phone"
	KeyPropertyType = "property_type"
	KeyCity         = "city"
)

// Lead is one submitted enquiry.
type Lead struct {
	ID           int64             `json:"id"`
	Ref          string            `json:"ref"`
	Source       Source            `json:"source"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone,omitempty"`
	PropertyType string            `json:"property_type,omitempty"`
	City         string            `json:"city,omitempty"`
	Answers      map[string]string `json:"answers"`
	NotifiedAt   *time.Time        `json:"notified_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// scanLead scans a lead from a database row.
func scanLead(row interface{ Scan(...interface{}) error }) (*Lead, error) {
	var l Lead
	var source, answers string
	err := row.Scan(
		&l.ID, &l.Ref, &source, &l.Name, &l.Email, &l.Phone,
		&l.PropertyType, &l.City, &answers, &l.NotifiedAt, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Source = Source(source)
	if err := json.Unmarshal([]byte(answers), &l.Answers); err != nil || l.Answers == nil {
		l.Answers = map[string]string{}
	}
	return &l, nil
}
