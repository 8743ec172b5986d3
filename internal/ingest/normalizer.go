package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/launchpad/opportunity-radar/internal/models"
)

const (
	defaultCountry = "Global"
	defaultStatus  = "open"
	defaultPrize   = "Varies"

	maxNameLen        = 100
	maxDescriptionLen = 250
)

// descriptionPolicy strips scripts and unsafe markup before the HTML is
// flattened to text.
var descriptionPolicy = bluemonday.UGCPolicy()

// typeAliases maps source-specific vocabulary onto the type enumeration.
var typeAliases = map[string]string{
	"grant":        models.TypeGrant,
	"grants":       models.TypeGrant,
	"prize":        models.TypeCompetition,
	"challenge":    models.TypeCompetition,
	"contest":      models.TypeCompetition,
	"competition":  models.TypeCompetition,
	"accelerator":  models.TypeAccelerator,
	"incubator":    models.TypeAccelerator,
	"hackathon":    models.TypeHackathon,
	"fellowship":   models.TypeFellowship,
	"funding":      models.TypeFunding,
	"funding call": models.TypeFunding,
	"investment":   models.TypeFunding,
}

// NormalizeType maps a raw type label into the fixed enumeration; anything
// unrecognized falls back to "other".
func NormalizeType(raw string) string {
	t := strings.ToLower(cleanText(raw))
	if models.ValidType(t) {
		return t
	}
	if mapped, ok := typeAliases[t]; ok {
		return mapped
	}
	return models.TypeOther
}

// deadlineFormats are tried in order against raw deadline text. Sources emit
// anything from full RFC 3339 timestamps to bare US-style dates.
var deadlineFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// normalizeDeadline parses raw deadline text into an ISO date, returning ""
// when nothing parseable is found (treated as rolling).
func normalizeDeadline(raw string) string {
	raw = cleanText(raw)
	if raw == "" {
		return ""
	}

	for _, format := range deadlineFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}

	// Timestamps with unusual suffixes still tend to start with the date.
	if len(raw) >= 10 {
		if t, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}

	return ""
}

// FromRaw coerces one source-shaped record into a canonical Opportunity.
// Defaults fill the gaps the source left, the deterministic id is computed
// from source + normalized name, and date_added is stamped with the run
// time (the merge step preserves the original on re-fetch). An error means
// the record is unusable and should be skipped, not that the batch failed.
func FromRaw(raw RawOpportunity, defaults RecordDefaults, now time.Time) (models.Opportunity, error) {
	name := cleanText(HTMLToText(raw.Name))
	if len(name) <= 3 {
		return models.Opportunity{}, fmt.Errorf("unusable name %q", name)
	}
	name = TruncateText(name, maxNameLen)

	link := strings.TrimSpace(raw.Link)
	if link == "" {
		return models.Opportunity{}, fmt.Errorf("missing link for %q", name)
	}

	source := cleanText(raw.Source)
	if source == "" {
		source = extractDomain(link)
	}

	description := cleanText(HTMLToText(descriptionPolicy.Sanitize(raw.Description)))
	description = TruncateText(description, maxDescriptionLen)

	opp := models.Opportunity{
		Name:         name,
		Organization: firstNonEmpty(cleanText(raw.Organization), defaults.Organization),
		Category:     firstNonEmpty(cleanText(raw.Category), defaults.Category),
		Type:         NormalizeType(firstNonEmpty(raw.Type, defaults.Type)),
		Country:      firstNonEmpty(cleanText(raw.Country), defaults.Country, defaultCountry),
		Deadline:     normalizeDeadline(raw.Deadline),
		Prize:        firstNonEmpty(cleanText(raw.Prize), defaults.Prize, defaultPrize),
		Link:         link,
		Source:       source,
		DateAdded:    now.UTC(),
		Status:       defaultStatus,
		Description:  description,
	}

	opp.ID = MakeID(opp.Source, opp.Name)

	tags := mergeUniqueFold(nil, defaults.Tags)
	tags = mergeUniqueFold(tags, raw.Tags)
	if tags == nil {
		tags = []string{}
	}
	opp.Tags = tags

	return opp, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
