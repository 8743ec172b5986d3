package ingest

import (
	"testing"
	"time"

	"github.com/launchpad/opportunity-radar/internal/models"
)

func TestFromRawDefaults(t *testing.T) {
	now := time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC)

	raw := RawOpportunity{
		Name:   "AI for Good Hackathon",
		Link:   "https://devpost.com/ai-for-good",
		Source: "devpost.com",
	}
	defaults := RecordDefaults{
		Organization: "Devpost",
		Category:     "Hackathon",
		Type:         "hackathon",
		Tags:         []string{"virtual", "online"},
	}

	opp, err := FromRaw(raw, defaults, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opp.Organization != "Devpost" {
		t.Errorf("organization default not applied: %q", opp.Organization)
	}
	if opp.Country != "Global" {
		t.Errorf("expected country default Global, got %q", opp.Country)
	}
	if opp.Status != "open" {
		t.Errorf("expected status default open, got %q", opp.Status)
	}
	if opp.Prize != "Varies" {
		t.Errorf("expected prize default Varies, got %q", opp.Prize)
	}
	if opp.Type != models.TypeHackathon {
		t.Errorf("expected type hackathon, got %q", opp.Type)
	}
	if !opp.DateAdded.Equal(now) {
		t.Errorf("expected date_added %s, got %s", now, opp.DateAdded)
	}
	if len(opp.Tags) != 2 {
		t.Errorf("expected 2 tags, got %v", opp.Tags)
	}
}

func TestFromRawSourceFieldsWinOverDefaults(t *testing.T) {
	now := time.Now()

	raw := RawOpportunity{
		Name:         "National Robotics Prize",
		Organization: "NASA",
		Country:      "United States",
		Prize:        "$1,000,000",
		Link:         "https://www.challenge.gov/challenge/123",
		Source:       "challenge.gov",
	}
	defaults := RecordDefaults{Organization: "US Government", Country: "Global", Prize: "Varies"}

	opp, err := FromRaw(raw, defaults, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opp.Organization != "NASA" || opp.Country != "United States" || opp.Prize != "$1,000,000" {
		t.Errorf("source fields overridden by defaults: %+v", opp)
	}
}

func TestFromRawRejectsUnusableRecords(t *testing.T) {
	now := time.Now()

	if _, err := FromRaw(RawOpportunity{Name: "ad", Link: "https://x.com"}, RecordDefaults{}, now); err == nil {
		t.Error("expected error for too-short name")
	}
	if _, err := FromRaw(RawOpportunity{Name: "Valid Opportunity Name"}, RecordDefaults{}, now); err == nil {
		t.Error("expected error for missing link")
	}
}

func TestFromRawStripsHTML(t *testing.T) {
	now := time.Now()

	raw := RawOpportunity{
		Name:        "<b>Startup</b> Grant Program",
		Link:        "https://example.org/grant",
		Source:      "example.org",
		Description: `<p>Apply now!</p><script>alert("x")</script> Funding for early teams.`,
	}

	opp, err := FromRaw(raw, RecordDefaults{}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opp.Name != "Startup Grant Program" {
		t.Errorf("HTML not stripped from name: %q", opp.Name)
	}
	if opp.Description != "Apply now! Funding for early teams." {
		t.Errorf("description not sanitized: %q", opp.Description)
	}
}

func TestFromRawTruncatesDescription(t *testing.T) {
	now := time.Now()

	long := ""
	for i := 0; i < 40; i++ {
		long += "very long description "
	}

	opp, err := FromRaw(RawOpportunity{Name: "Long Description Listing", Link: "https://x.com", Description: long}, RecordDefaults{}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opp.Description) > maxDescriptionLen {
		t.Errorf("description not truncated: %d chars", len(opp.Description))
	}
}

func TestMakeIDDeterminism(t *testing.T) {
	a := MakeID("devpost.com", "AI for Good Hackathon")
	b := MakeID("devpost.com", "  AI  for Good   HACKATHON ")
	if a != b {
		t.Errorf("id not stable under whitespace/case noise: %s vs %s", a, b)
	}

	c := MakeID("f6s.com", "AI for Good Hackathon")
	if a == c {
		t.Error("different sources should yield different ids")
	}

	if len(a) != 16 {
		t.Errorf("expected 16 hex chars, got %q", a)
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"grant", models.TypeGrant},
		{"Grants", models.TypeGrant},
		{"HACKATHON", models.TypeHackathon},
		{"incubator", models.TypeAccelerator},
		{"prize", models.TypeCompetition},
		{"investment", models.TypeFunding},
		{"", models.TypeOther},
		{"webinar", models.TypeOther},
	}

	for _, tt := range tests {
		if got := NormalizeType(tt.raw); got != tt.expected {
			t.Errorf("NormalizeType(%q) = %q, want %q", tt.raw, got, tt.expected)
		}
	}
}

func TestNormalizeDeadline(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"2026-06-01", "2026-06-01"},
		{"2026-06-01T23:59:59Z", "2026-06-01"},
		{"06/01/2026", "2026-06-01"},
		{"June 1, 2026", "2026-06-01"},
		{"rolling", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeDeadline(tt.raw); got != tt.expected {
			t.Errorf("normalizeDeadline(%q) = %q, want %q", tt.raw, got, tt.expected)
		}
	}
}
