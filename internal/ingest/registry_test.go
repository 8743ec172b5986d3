package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEmbedded(t *testing.T) {
	reg, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("loading embedded registry: %v", err)
	}
	if len(reg.Sources) == 0 {
		t.Fatal("embedded registry has no sources")
	}

	factory := DefaultFactory()
	for _, src := range reg.Sources {
		if src.ID == "" {
			t.Errorf("source %q has no id", src.Name)
		}
		if _, err := factory.Get(src.Strategy); err != nil {
			t.Errorf("source %s uses unknown strategy %q", src.ID, src.Strategy)
		}
		if src.Tag() == "" {
			t.Errorf("source %s resolves to an empty source tag", src.ID)
		}
	}

	devpost, ok := reg.Get("devpost")
	if !ok {
		t.Fatal("devpost source missing from registry")
	}
	if devpost.Strategy != "rss" {
		t.Errorf("devpost strategy = %q, want rss", devpost.Strategy)
	}
}

func TestLoadRegistryPathOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")

	yaml := `sources:
  - id: custom
    name: Custom Feed
    strategy: rss
    url: https://example.org/feed.xml
    max_items: 5
  - id: dark
    name: Disabled Feed
    strategy: rss
    url: https://example.org/other.xml
    disabled: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("loading registry override: %v", err)
	}
	if len(reg.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(reg.Sources))
	}

	active := reg.Active()
	if len(active) != 1 || active[0].ID != "custom" {
		t.Errorf("expected only the custom source active, got %+v", active)
	}
	if cap := active[0].ItemCap(); cap != 5 {
		t.Errorf("ItemCap() = %d, want 5", cap)
	}
	if tag := active[0].Tag(); tag != "example.org" {
		t.Errorf("Tag() = %q, want example.org", tag)
	}
}

func TestLoadRegistryExpandsEnv(t *testing.T) {
	t.Setenv("RADAR_TEST_FEED", "https://env.example.org/feed.xml")

	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	yaml := `sources:
  - id: env
    name: Env Feed
    strategy: rss
    url: ${RADAR_TEST_FEED}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("loading registry: %v", err)
	}
	if reg.Sources[0].URL != "https://env.example.org/feed.xml" {
		t.Errorf("env var not expanded: %q", reg.Sources[0].URL)
	}
}
