package ingest

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// HTMLGenericStrategy scrapes listing pages that expose no feed or API,
// driven entirely by the CSS selectors in the source config.
type HTMLGenericStrategy struct{}

func (s *HTMLGenericStrategy) Run(ctx context.Context, config SourceConfig) ([]RawOpportunity, error) {
	sel := config.Selectors
	if sel.Container == "" {
		return nil, fmt.Errorf("selector 'container' is required for html_generic source %q", config.ID)
	}

	parsedURL, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url for source %q: %w", config.ID, err)
	}

	timeout := time.Duration(config.Fetch.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	delay := 1 * time.Second
	if config.Fetch.RateLimitRPS > 0 {
		delay = time.Duration(float64(time.Second) / config.Fetch.RateLimitRPS)
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsedURL.Host),
		colly.UserAgent(browserUserAgent),
		colly.DetectCharset(),
	)
	collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       delay,
		RandomDelay: delay / 2,
	})
	collector.SetRequestTimeout(timeout)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raws []RawOpportunity
	var scrapeErr error

	collector.OnHTML(sel.Container, func(e *colly.HTMLElement) {
		if len(raws) >= config.ItemCap() {
			return
		}

		title := cleanText(e.ChildText(sel.Title))
		if title == "" {
			return
		}

		linkAttr := sel.LinkAttr
		if linkAttr == "" {
			linkAttr = "href"
		}
		var link string
		if sel.Link == "" || sel.Link == "." {
			link = strings.TrimSpace(e.Attr(linkAttr))
		} else {
			link = strings.TrimSpace(e.ChildAttr(sel.Link, linkAttr))
		}
		if link == "" {
			link = config.URL
		} else {
			link = e.Request.AbsoluteURL(link)
		}

		raw := RawOpportunity{
			Name:   title,
			Link:   link,
			Source: config.Tag(),
		}
		if sel.Organization != "" {
			raw.Organization = cleanText(e.ChildText(sel.Organization))
		}
		if sel.Description != "" {
			raw.Description = e.ChildText(sel.Description)
		}

		raws = append(raws, raw)
	})

	collector.OnError(func(r *colly.Response, err error) {
		scrapeErr = err
		log.Printf("[%s] scrape error for %s: %v", config.ID, r.Request.URL, err)
	})

	if err := collector.Visit(config.URL); err != nil {
		return nil, fmt.Errorf("visiting %s: %w", config.URL, err)
	}
	collector.Wait()

	if len(raws) == 0 && scrapeErr != nil {
		return nil, fmt.Errorf("scraping %s: %w", config.URL, scrapeErr)
	}
	return raws, nil
}
