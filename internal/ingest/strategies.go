package ingest

import (
	"context"
	"fmt"
)

// SourceStats holds per-source metrics for a run.
type SourceStats struct {
	Found  int `json:"found"`
	Kept   int `json:"kept"`
	Errors int `json:"errors"`
}

// SourceStrategy fetches one external source and yields its raw records.
// A strategy must bound its own network waits and item counts; it reports
// failure through its error return and never panics the run.
type SourceStrategy interface {
	Run(ctx context.Context, config SourceConfig) ([]RawOpportunity, error)
}

// StrategyFactory maps strategy ids (from sources.yaml) to implementations.
type StrategyFactory struct {
	strategies map[string]SourceStrategy
}

func NewStrategyFactory() *StrategyFactory {
	return &StrategyFactory{
		strategies: make(map[string]SourceStrategy),
	}
}

func (f *StrategyFactory) Register(id string, strategy SourceStrategy) {
	f.strategies[id] = strategy
}

func (f *StrategyFactory) Get(id string) (SourceStrategy, error) {
	strategy, ok := f.strategies[id]
	if !ok {
		return nil, fmt.Errorf("strategy not found: %s", id)
	}
	return strategy, nil
}

// DefaultFactory returns a factory with every built-in strategy registered.
func DefaultFactory() *StrategyFactory {
	f := NewStrategyFactory()
	f.Register("rss", &RSSStrategy{})
	f.Register("api_challenge_gov", &ChallengeGovStrategy{})
	f.Register("html_generic", &HTMLGenericStrategy{})
	return f
}
