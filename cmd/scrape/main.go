package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/launchpad/opportunity-radar/internal/dataset"
	"github.com/launchpad/opportunity-radar/internal/ingest"
)

type options struct {
	Output        string `short:"o" long:"output" env:"RADAR_OUTPUT" default:"opportunities.json" description:"Path of the JSON dataset to produce"`
	SourcesFile   string `long:"sources" env:"RADAR_SOURCES" description:"Override the built-in sources.yaml with a file on disk"`
	Only          string `long:"only" description:"Comma-separated source ids to run (default: all active)"`
	Timeout       int    `long:"timeout" env:"RADAR_TIMEOUT" default:"600" description:"Overall run timeout in seconds"`
	RetentionDays int    `long:"retention-days" env:"RADAR_RETENTION_DAYS" default:"0" description:"Drop listings this many days past their deadline (0 keeps everything)"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	registry, err := ingest.LoadRegistry(opts.SourcesFile)
	if err != nil {
		log.Fatalf("Failed to load sources registry: %v", err)
	}

	if opts.Only != "" {
		registry = filterRegistry(registry, opts.Only)
	}

	pipeline := ingest.NewPipeline(registry, dataset.NewStore(opts.Output))
	pipeline.RetentionDays = opts.RetentionDays

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(opts.Timeout)*time.Second)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := pipeline.Run(ctx)
	if err != nil {
		log.Fatalf("Scrape run failed: %v", err)
	}

	log.Printf("Wrote %d opportunities to %s", report.Total, opts.Output)
}

// filterRegistry narrows the registry to the requested source ids, warning
// about ids it does not know.
func filterRegistry(registry *ingest.Registry, only string) *ingest.Registry {
	wanted := make(map[string]bool)
	for _, id := range strings.Split(only, ",") {
		if id = strings.TrimSpace(id); id != "" {
			wanted[id] = true
		}
	}

	filtered := &ingest.Registry{}
	for _, src := range registry.Sources {
		if wanted[src.ID] {
			filtered.Sources = append(filtered.Sources, src)
			delete(wanted, src.ID)
		}
	}
	for id := range wanted {
		log.Printf("Unknown source id %q ignored", id)
	}
	return filtered
}
