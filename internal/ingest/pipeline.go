package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/launchpad/opportunity-radar/internal/dataset"
	"github.com/launchpad/opportunity-radar/internal/models"
)

// Pipeline runs one scrape-normalize-merge-write cycle over every active
// source in the registry.
type Pipeline struct {
	Registry *Registry
	Store    *dataset.Store
	Factory  *StrategyFactory

	// RetentionDays is passed through to the merge step; zero disables
	// pruning.
	RetentionDays int

	// Now is the pipeline clock, replaceable in tests.
	Now func() time.Time
}

func NewPipeline(registry *Registry, store *dataset.Store) *Pipeline {
	return &Pipeline{
		Registry: registry,
		Store:    store,
		Factory:  DefaultFactory(),
		Now:      time.Now,
	}
}

// RunReport summarizes one pipeline run.
type RunReport struct {
	RunID      string                 `json:"run_id"`
	Sources    map[string]SourceStats `json:"sources"`
	TotalFound int                    `json:"total_found"`
	TotalKept  int                    `json:"total_kept"`
	Total      int                    `json:"total"`
	Duration   time.Duration          `json:"duration"`
}

type sourceResult struct {
	sourceID string
	defaults RecordDefaults
	raws     []RawOpportunity
	err      error
}

// Run executes one full cycle. Individual source failures are logged and
// contribute nothing; only a registry with no sources or a failure to write
// the artifact fails the run — a killed or failed run leaves the previous
// artifact untouched.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	start := p.Now()
	report := &RunReport{
		RunID:   uuid.NewString(),
		Sources: make(map[string]SourceStats),
	}

	existing, err := p.Store.Load()
	if err != nil {
		// A corrupt previous artifact should not wedge the scraper forever;
		// it is rebuilt from this run's observations.
		log.Printf("[pipeline] could not load existing dataset: %v", err)
		existing = &models.Dataset{Opportunities: []models.Opportunity{}}
	}
	log.Printf("[pipeline] run %s: loaded %d existing opportunities", report.RunID, len(existing.Opportunities))

	sources := p.Registry.Active()
	if len(sources) == 0 {
		return nil, fmt.Errorf("no active sources in registry")
	}

	// Sources are independent read-only fetches against distinct endpoints,
	// so they fan out concurrently and merge deterministically afterwards.
	results := make(chan sourceResult, len(sources))
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src SourceConfig) {
			defer wg.Done()
			raws, err := p.runSource(ctx, src)
			results <- sourceResult{sourceID: src.ID, defaults: src.Defaults, raws: raws, err: err}
		}(src)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	now := p.Now().UTC()
	var batch []models.Opportunity
	for res := range results {
		stats := SourceStats{Found: len(res.raws)}
		if res.err != nil {
			log.Printf("[pipeline] source %s failed: %v", res.sourceID, res.err)
			stats.Errors++
		}
		for _, raw := range res.raws {
			opp, err := FromRaw(raw, res.defaults, now)
			if err != nil {
				log.Printf("[pipeline] source %s: skipping record: %v", res.sourceID, err)
				stats.Errors++
				continue
			}
			batch = append(batch, opp)
			stats.Kept++
		}
		report.Sources[res.sourceID] = stats
		report.TotalFound += stats.Found
		report.TotalKept += stats.Kept
		log.Printf("[pipeline] source %s: %d found, %d kept, %d errors", res.sourceID, stats.Found, stats.Kept, stats.Errors)
	}

	merged := dataset.Merge(existing.Opportunities, batch, now, dataset.MergeOptions{RetentionDays: p.RetentionDays})

	if err := p.Store.Write(merged, now); err != nil {
		return nil, fmt.Errorf("publishing dataset: %w", err)
	}

	report.Total = len(merged)
	report.Duration = p.Now().Sub(start)
	log.Printf("[pipeline] run %s complete: %d unique opportunities (%d scraped) in %s",
		report.RunID, report.Total, report.TotalKept, report.Duration.Round(time.Millisecond))
	return report, nil
}

// runSource resolves and executes one source strategy, recovering from any
// panic so a misbehaving scraper cannot abort the whole run.
func (p *Pipeline) runSource(ctx context.Context, config SourceConfig) (raws []RawOpportunity, err error) {
	defer func() {
		if r := recover(); r != nil {
			raws, err = nil, fmt.Errorf("source %s panicked: %v", config.ID, r)
		}
	}()

	strategy, err := p.Factory.Get(config.Strategy)
	if err != nil {
		return nil, err
	}

	log.Printf("[%s] fetching %s", config.ID, config.Name)
	return strategy.Run(ctx, config)
}
