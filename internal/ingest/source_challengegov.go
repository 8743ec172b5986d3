package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
)

// ChallengeGovStrategy ingests the Challenge.gov public challenges API.
type ChallengeGovStrategy struct {
	// Fetcher is swappable for tests; nil means a fresh HTTPFetcher built
	// from the source's fetch config.
	Fetcher Fetcher
}

// challengeGovResponse wraps the challenge list in a "results" array.
type challengeGovResponse struct {
	Results []challengeGovRecord `json:"results"`
}

type challengeGovRecord struct {
	ID               json.Number `json:"id"`
	Title            string      `json:"title"`
	AgencyName       string      `json:"agency_name"`
	TotalPrizeAmount float64     `json:"total_prize_offered_amount"`
	EndDate          string      `json:"end_date"`
	URL              string      `json:"url"`
	BriefDescription string      `json:"brief_description"`
}

func (s *ChallengeGovStrategy) Run(ctx context.Context, config SourceConfig) ([]RawOpportunity, error) {
	fetcher := s.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher(config.Fetch)
	}

	doc, err := fetcher.Fetch(ctx, config.URL)
	if err != nil {
		return nil, fmt.Errorf("challenge.gov fetch: %w", err)
	}
	defer doc.Body.Close()

	var resp challengeGovResponse
	if err := json.NewDecoder(doc.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("challenge.gov decode: %w", err)
	}

	log.Printf("[%s] API returned %d challenges", config.ID, len(resp.Results))

	raws := make([]RawOpportunity, 0, config.ItemCap())
	for _, rec := range resp.Results {
		if len(raws) >= config.ItemCap() {
			break
		}
		if strings.TrimSpace(rec.Title) == "" {
			continue
		}

		link := rec.URL
		if link == "" {
			link = fmt.Sprintf("https://www.challenge.gov/challenge/%s", rec.ID.String())
		}

		raw := RawOpportunity{
			Name:         rec.Title,
			Organization: rec.AgencyName,
			Link:         link,
			Source:       config.Tag(),
			Description:  rec.BriefDescription,
		}
		if rec.TotalPrizeAmount > 0 {
			raw.Prize = formatUSD(rec.TotalPrizeAmount)
		}
		if len(rec.EndDate) >= 10 {
			raw.Deadline = rec.EndDate[:10]
		}

		raws = append(raws, raw)
	}

	return raws, nil
}

// formatUSD renders a dollar amount with thousands separators, e.g.
// "$250,000".
func formatUSD(amount float64) string {
	whole := strconv.FormatInt(int64(amount), 10)

	var b strings.Builder
	b.WriteByte('$')
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
		if len(whole) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(whole); i += 3 {
		b.WriteString(whole[i : i+3])
		if i+3 < len(whole) {
			b.WriteByte(',')
		}
	}
	return b.String()
}
