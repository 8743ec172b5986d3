package ingest

import (
	"context"
	"io"
	"time"
)

// RawOpportunity is the untrusted, source-shaped record a strategy emits
// before normalization. Fields a source cannot provide stay empty and are
// filled from the source defaults and the global defaults.
type RawOpportunity struct {
	Name         string
	Organization string
	Category     string
	Type         string
	Country      string
	Deadline     string // raw date text, parsed by the normalizer
	Prize        string
	Link         string
	Source       string
	Description  string
	Tags         []string
}

// FetchedDocument is the raw result of one HTTP fetch.
type FetchedDocument struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
}

// Fetcher retrieves raw content from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
}
