package main

import (
	"log"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/launchpad/opportunity-radar/internal/api"
	"github.com/launchpad/opportunity-radar/internal/auth"
	"github.com/launchpad/opportunity-radar/internal/dataset"
	"github.com/launchpad/opportunity-radar/internal/ingest"
)

type options struct {
	Port          string `short:"p" long:"port" env:"PORT" default:"8081" description:"HTTP listen port"`
	Data          string `short:"d" long:"data" env:"RADAR_OUTPUT" default:"opportunities.json" description:"Path of the JSON dataset to serve"`
	SourcesFile   string `long:"sources" env:"RADAR_SOURCES" description:"Override the built-in sources.yaml with a file on disk"`
	RetentionDays int    `long:"retention-days" env:"RADAR_RETENTION_DAYS" default:"0" description:"Drop listings this many days past their deadline on refresh (0 keeps everything)"`
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

	store := dataset.NewStore(opts.Data)
	pipeline := ingest.NewPipeline(registry, store)
	pipeline.RetentionDays = opts.RetentionDays

	authService := auth.NewService()
	if !authService.Enabled() {
		log.Print("No admin secret configured; the refresh endpoint will reject all logins")
	}

	srv := api.NewServer(store, pipeline, authService)
	log.Printf("Server starting on port %s, serving %s...", opts.Port, opts.Data)
	if err := srv.Start(opts.Port); err != nil {
		log.Fatal(err)
	}
}
