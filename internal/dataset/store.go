// Package dataset owns the persisted artifact: loading the previous
// collection, merging new observations into it, and writing the result back
// atomically.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/launchpad/opportunity-radar/internal/models"
)

// Store reads and writes the dataset artifact at a fixed path.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the artifact location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted dataset. A missing file is not an error — it
// yields an empty dataset, which is the state before the first run.
func (s *Store) Load() (*models.Dataset, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.Dataset{Opportunities: []models.Opportunity{}}, nil
		}
		return nil, fmt.Errorf("reading dataset %s: %w", s.path, err)
	}

	var ds models.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", s.path, err)
	}
	if ds.Opportunities == nil {
		ds.Opportunities = []models.Opportunity{}
	}
	return &ds, nil
}

// Write persists the collection wrapped in its envelope. The file is written
// to a temp file in the target directory and renamed into place, so a killed
// or failed run never leaves a truncated artifact behind — readers see
// either the previous dataset or the complete new one.
func (s *Store) Write(opps []models.Opportunity, now time.Time) error {
	if opps == nil {
		opps = []models.Opportunity{}
	}
	ds := models.Dataset{
		Total:         len(opps),
		LastUpdated:   now.UTC(),
		Opportunities: opps,
	}

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".opportunities-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp dataset: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing dataset %s: %w", s.path, err)
	}
	return nil
}
