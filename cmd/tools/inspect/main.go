package main

import (
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jessevdk/go-flags"

	"github.com/launchpad/opportunity-radar/internal/dataset"
	"github.com/launchpad/opportunity-radar/internal/status"
)

type options struct {
	Data   string `short:"d" long:"data" env:"RADAR_OUTPUT" default:"opportunities.json" description:"Path of the JSON dataset to inspect"`
	Status string `long:"status" description:"Only show listings with this derived status"`
	Limit  int    `short:"n" long:"limit" default:"0" description:"Show at most this many rows (0 shows all)"`
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

	ds, err := dataset.NewStore(opts.Data).Load()
	if err != nil {
		log.Fatal(err)
	}

	now := time.Now()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Name", "Type", "Deadline", "Status", "Source", "Added"})

	shown := 0
	counts := map[string]int{}
	for _, opp := range ds.Opportunities {
		st := status.Derive(opp, now)
		counts[st]++

		if opts.Status != "" && st != opts.Status {
			continue
		}
		if opts.Limit > 0 && shown >= opts.Limit {
			continue
		}

		deadline := opp.Deadline
		if deadline == "" {
			deadline = "rolling"
		}

		name := opp.Name
		if len(name) > 48 {
			name = name[:45] + "..."
		}

		t.AppendRow(table.Row{opp.ID, name, opp.Type, deadline, st, opp.Source, opp.DateAdded.Format("2006-01-02")})
		shown++
	}
	t.Render()

	log.Printf("%d total (updated %s)", ds.Total, ds.LastUpdated.Format(time.RFC3339))
	for st, n := range counts {
		log.Printf("  %-12s %d", st, n)
	}
}
