package models

import (
	"strings"
	"time"
)

// Opportunity type enumeration. Anything a source reports outside this set
// is normalized to TypeOther.
const (
	TypeGrant       = "grant"
	TypeCompetition = "competition"
	TypeAccelerator = "accelerator"
	TypeHackathon   = "hackathon"
	TypeFellowship  = "fellowship"
	TypeFunding     = "funding"
	TypeOther       = "other"
)

// Types lists the valid opportunity types in display order.
var Types = []string{
	TypeGrant,
	TypeCompetition,
	TypeAccelerator,
	TypeHackathon,
	TypeFellowship,
	TypeFunding,
	TypeOther,
}

// ValidType reports whether t is a member of the type enumeration.
func ValidType(t string) bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

const deadlineLayout = "2006-01-02"

// Opportunity is one normalized listing in the dataset.
type Opportunity struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Organization string    `json:"organization"`
	Category     string    `json:"category"`
	Type         string    `json:"type"`
	Country      string    `json:"country"`
	Deadline     string    `json:"deadline,omitempty"` // ISO date, empty = rolling
	Prize        string    `json:"prize"`
	Link         string    `json:"link"`
	Source       string    `json:"source"`
	DateAdded    time.Time `json:"date_added"` // first ingestion, never updated
	Status       string    `json:"status"`
	Description  string    `json:"description"`
	Tags         []string  `json:"tags"`
}

// DeadlineTime parses the deadline date. The second return value is false
// when no deadline is set or the stored value is unparseable.
func (o Opportunity) DeadlineTime() (time.Time, bool) {
	raw := strings.TrimSpace(o.Deadline)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(deadlineLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// Dataset is the persisted artifact: the opportunity collection wrapped with
// summary metadata. It is rewritten wholesale on every successful run and is
// read-only to consumers.
type Dataset struct {
	Total         int           `json:"total"`
	LastUpdated   time.Time     `json:"last_updated"`
	Opportunities []Opportunity `json:"opportunities"`
}
