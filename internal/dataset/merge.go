package dataset

import (
	"sort"
	"strings"
	"time"

	"github.com/launchpad/opportunity-radar/internal/models"
)

// MergeOptions tunes the merge step.
type MergeOptions struct {
	// RetentionDays drops records whose deadline passed more than this many
	// days ago. Zero keeps every record forever.
	RetentionDays int
}

// Merge combines a freshly scraped batch with the previously persisted
// collection into a single collection with no two records sharing an id.
//
// First-seen semantics: when a new record collides with an existing one, the
// existing record keeps its date_added and status while the descriptive
// fields (name, deadline, link, description, tags, ...) refresh from the new
// observation. Records present only in the old collection are retained —
// a source going quiet does not delete its listings.
func Merge(existing, incoming []models.Opportunity, now time.Time, opts MergeOptions) []models.Opportunity {
	merged := make([]models.Opportunity, 0, len(existing)+len(incoming))
	byID := make(map[string]int, len(existing))
	seenNames := make(map[string]struct{}, len(existing))

	for _, opp := range existing {
		byID[opp.ID] = len(merged)
		if key := nameKey(opp.Name); key != "" {
			seenNames[key] = struct{}{}
		}
		merged = append(merged, opp)
	}

	for _, opp := range incoming {
		if idx, ok := byID[opp.ID]; ok {
			merged[idx] = refresh(merged[idx], opp)
			continue
		}

		// A different id with the same normalized name is the same listing
		// observed through another source or a drifting id input; keep the
		// first observation.
		key := nameKey(opp.Name)
		if key != "" {
			if _, dup := seenNames[key]; dup {
				continue
			}
			seenNames[key] = struct{}{}
		}

		byID[opp.ID] = len(merged)
		merged = append(merged, opp)
	}

	merged = filterStale(merged, now, opts.RetentionDays)

	// Newest first; id tie-break keeps output deterministic.
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].DateAdded.Equal(merged[j].DateAdded) {
			return merged[i].ID < merged[j].ID
		}
		return merged[i].DateAdded.After(merged[j].DateAdded)
	})

	return merged
}

// refresh applies a new observation on top of a persisted record, preserving
// first-seen metadata.
func refresh(old, observed models.Opportunity) models.Opportunity {
	observed.DateAdded = old.DateAdded
	observed.Status = old.Status
	return observed
}

// filterStale applies the optional retention horizon and drops records whose
// name is too short to be a real listing.
func filterStale(opps []models.Opportunity, now time.Time, retentionDays int) []models.Opportunity {
	out := opps[:0]
	for _, opp := range opps {
		if len(strings.TrimSpace(opp.Name)) <= 3 {
			continue
		}
		if retentionDays > 0 {
			if deadline, ok := opp.DeadlineTime(); ok {
				horizon := deadline.Add(24 * time.Hour).Add(time.Duration(retentionDays) * 24 * time.Hour)
				if now.After(horizon) {
					continue
				}
			}
		}
		out = append(out, opp)
	}
	return out
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
