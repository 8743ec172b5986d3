package ingest

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// Registry holds the configuration for all data sources.
type Registry struct {
	Sources []SourceConfig `yaml:"sources"`
}

// FetchConfig defines HTTP fetching configuration for a source.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"` // Default: 15
	MaxRetries     int     `yaml:"max_retries,omitempty"`     // Default: 2
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`  // Requests per second, default: 1.0
	AcceptLanguage string  `yaml:"accept_language,omitempty"`
}

// RecordDefaults are applied to every record a source yields when the
// scraped data does not carry the field itself.
type RecordDefaults struct {
	Organization string   `yaml:"organization,omitempty"`
	Category     string   `yaml:"category,omitempty"`
	Type         string   `yaml:"type,omitempty"`
	Country      string   `yaml:"country,omitempty"`
	Prize        string   `yaml:"prize,omitempty"`
	Tags         []string `yaml:"tags,omitempty"`
}

// SelectorConfig drives the generic HTML strategy.
type SelectorConfig struct {
	Container    string `yaml:"container,omitempty"` // CSS selector for the list item wrapper
	Title        string `yaml:"title,omitempty"`
	Link         string `yaml:"link,omitempty"`
	LinkAttr     string `yaml:"link_attr,omitempty"` // Attribute to extract link from (default: href)
	Organization string `yaml:"organization,omitempty"`
	Description  string `yaml:"description,omitempty"`
}

// SourceConfig defines a single data source for ingestion.
type SourceConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Strategy string `yaml:"strategy"` // "rss", "api_challenge_gov", "html_generic"
	Disabled bool   `yaml:"disabled,omitempty"`

	// Source tag recorded on every opportunity; defaults to the URL host.
	SourceTag string `yaml:"source_tag,omitempty"`

	URL      string   `yaml:"url,omitempty"`
	FeedURLs []string `yaml:"feed_urls,omitempty"`

	// Queries expand a URL template (one %s placeholder) into one feed per
	// query. The RSS strategy also infers the opportunity type from query
	// keywords when infer_type is set.
	Queries   []string `yaml:"queries,omitempty"`
	InferType bool     `yaml:"infer_type,omitempty"`

	// KeywordFilter drops items whose title mentions none of these words.
	KeywordFilter []string `yaml:"keyword_filter,omitempty"`

	// StripTitleSuffix removes a trailing " - Publisher" segment from titles
	// (news feeds append the outlet name).
	StripTitleSuffix bool `yaml:"strip_title_suffix,omitempty"`

	MaxItems  int            `yaml:"max_items,omitempty"` // per feed/page, default 10
	Defaults  RecordDefaults `yaml:"defaults,omitempty"`
	Selectors SelectorConfig `yaml:"selectors,omitempty"`
	Fetch     FetchConfig    `yaml:"fetch,omitempty"`
}

// Tag returns the source tag, falling back to the URL host.
func (c SourceConfig) Tag() string {
	if c.SourceTag != "" {
		return c.SourceTag
	}
	return extractDomain(c.URL)
}

// ItemCap returns the per-feed item bound.
func (c SourceConfig) ItemCap() int {
	if c.MaxItems > 0 {
		return c.MaxItems
	}
	return 10
}

// LoadRegistry reads the embedded sources.yaml. A non-empty path overrides
// the embedded copy with a file on disk (local development / ops overrides).
func LoadRegistry(path string) (*Registry, error) {
	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = sourcesYAML.ReadFile("config/sources.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("reading sources registry: %w", err)
	}

	// Expand environment variables within the YAML content (e.g. ${API_KEY})
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, fmt.Errorf("parsing sources registry: %w", err)
	}

	return &reg, nil
}

// Get returns the source with the given id.
func (r *Registry) Get(id string) (*SourceConfig, bool) {
	for i := range r.Sources {
		if r.Sources[i].ID == id {
			return &r.Sources[i], true
		}
	}
	return nil, false
}

// Active returns the sources that are not disabled.
func (r *Registry) Active() []SourceConfig {
	out := make([]SourceConfig, 0, len(r.Sources))
	for _, src := range r.Sources {
		if !src.Disabled {
			out = append(out, src)
		}
	}
	return out
}
