// Package status derives the display status of an opportunity at read time.
// The derivation is a pure function of the record's dates, its persisted
// status, and the current time — it is recomputed on every read and never
// persisted.
package status

import (
	"time"

	"github.com/launchpad/opportunity-radar/internal/models"
)

const (
	Open        = "open"
	ClosingSoon = "closing_soon"
	Closed      = "closed"
	New         = "new"
)

const (
	closingSoonWindow = 7 * 24 * time.Hour
	newWindow         = 2 * 24 * time.Hour
)

// Derive computes the display status for opp at the given instant.
//
// Rules, in priority order:
//  1. deadline passed            -> closed
//  2. deadline within 7 days     -> closing_soon
//  3. added within last 2 days   -> new
//  4. otherwise the persisted status (default open)
//
// A deadline is a calendar date; the listing stays open through the whole
// deadline day, so a deadline equal to "today" is not yet closed.
func Derive(opp models.Opportunity, now time.Time) string {
	now = now.UTC()

	if deadline, ok := opp.DeadlineTime(); ok {
		closesAt := deadline.Add(24 * time.Hour)
		if now.After(closesAt) {
			return Closed
		}
		if closesAt.Sub(now) <= closingSoonWindow {
			return ClosingSoon
		}
	}

	if !opp.DateAdded.IsZero() && now.Sub(opp.DateAdded) <= newWindow {
		return New
	}

	if opp.Status == "" {
		return Open
	}
	return opp.Status
}
