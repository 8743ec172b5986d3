package ingest

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/launchpad/opportunity-radar/internal/models"
)

// RSSStrategy ingests RSS and Atom feeds (Devpost, Google News searches,
// Reddit community search feeds) via gofeed.
type RSSStrategy struct{}

// trailingPublisher matches the " - Publisher" suffix news aggregators
// append to item titles.
var trailingPublisher = regexp.MustCompile(`\s*-\s*[^-]+$`)

func (s *RSSStrategy) Run(ctx context.Context, config SourceConfig) ([]RawOpportunity, error) {
	feeds := feedList(config)
	if len(feeds) == 0 {
		return nil, fmt.Errorf("source %q has no feed URL", config.ID)
	}

	timeout := time.Duration(config.Fetch.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	parser := gofeed.NewParser()
	parser.UserAgent = browserUserAgent

	var raws []RawOpportunity
	failures := 0

	for _, feed := range feeds {
		fctx, cancel := context.WithTimeout(ctx, timeout)
		parsed, err := parser.ParseURLWithContext(feed.url, fctx)
		cancel()
		if err != nil {
			failures++
			log.Printf("[%s] feed fetch failed for %s: %v", config.ID, feed.url, err)
			continue
		}

		count := 0
		for _, item := range parsed.Items {
			if count >= config.ItemCap() {
				break
			}

			title := cleanText(item.Title)
			link := strings.TrimSpace(item.Link)
			if title == "" || link == "" {
				continue
			}
			if !matchesKeywords(title, config.KeywordFilter) {
				continue
			}
			if config.StripTitleSuffix {
				title = cleanText(trailingPublisher.ReplaceAllString(title, ""))
			}

			raw := RawOpportunity{
				Name:        title,
				Link:        link,
				Source:      config.Tag(),
				Description: item.Description,
				Tags:        item.Categories,
			}
			if config.InferType && feed.query != "" {
				inferred := inferTypeFromQuery(feed.query)
				raw.Type = inferred
				raw.Category = strings.ToUpper(inferred[:1]) + inferred[1:]
				raw.Tags = append(raw.Tags, inferred)
			}

			raws = append(raws, raw)
			count++
		}
	}

	if failures == len(feeds) {
		return raws, fmt.Errorf("all %d feeds failed for source %q", len(feeds), config.ID)
	}
	return raws, nil
}

type feedRef struct {
	url   string
	query string
}

// feedList expands the source config into concrete feed URLs: explicit
// feed_urls, a URL template expanded per query, or the single url.
func feedList(config SourceConfig) []feedRef {
	if len(config.FeedURLs) > 0 {
		feeds := make([]feedRef, 0, len(config.FeedURLs))
		for _, u := range config.FeedURLs {
			feeds = append(feeds, feedRef{url: u})
		}
		return feeds
	}

	if len(config.Queries) > 0 && strings.Contains(config.URL, "%s") {
		feeds := make([]feedRef, 0, len(config.Queries))
		for _, q := range config.Queries {
			feeds = append(feeds, feedRef{url: fmt.Sprintf(config.URL, q), query: q})
		}
		return feeds
	}

	if config.URL != "" {
		return []feedRef{{url: config.URL}}
	}
	return nil
}

// matchesKeywords reports whether the title mentions at least one of the
// filter words. An empty filter matches everything.
func matchesKeywords(title string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	lower := strings.ToLower(title)
	for _, word := range filter {
		if strings.Contains(lower, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// inferTypeFromQuery guesses the opportunity type from the search query that
// produced the feed. Search-driven sources have no per-item type field, so
// the query itself is the best signal.
func inferTypeFromQuery(query string) string {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "grant"):
		return models.TypeGrant
	case strings.Contains(q, "accelerator"):
		return models.TypeAccelerator
	case strings.Contains(q, "hackathon"):
		return models.TypeHackathon
	case strings.Contains(q, "fellowship"):
		return models.TypeFellowship
	case strings.Contains(q, "funding"):
		return models.TypeFunding
	default:
		return models.TypeCompetition
	}
}
