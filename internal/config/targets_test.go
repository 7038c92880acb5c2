package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jobharbor/harvest/pkg/models"
)

func TestLoadTargets(t *testing.T) {
	doc := `targets:
  - name: acme-careers
    url: https://acme.example/careers
    company: Acme
    render: true
    locators:
      - type: css
        expr: ".job-card"
      - type: xpath
        expr: "//div[@class='posting']"
  - url: https://globex.example/jobs
    company: Globex
`
	path := filepath.Join(t.TempDir(), "targets.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	targets, err := LoadTargets(path)
	if err != nil {
		t.Fatalf("LoadTargets: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(targets))
	}

	first := targets[0]
	if first.Name != "acme-careers" || !first.Render {
		t.Fatalf("first target = %+v", first)
	}
	if len(first.Locators) != 2 {
		t.Fatalf("got %d locators, want 2", len(first.Locators))
	}
	if first.Locators[1].Type != models.SelectorXPath {
		t.Fatalf("second locator type = %q", first.Locators[1].Type)
	}

	// A nameless target falls back to its URL.
	if targets[1].Name != "https://globex.example/jobs" {
		t.Fatalf("second target name = %q", targets[1].Name)
	}
}

func TestLoadTargetsMissingURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	if err := os.WriteFile(path, []byte("targets:\n  - name: broken\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTargets(path); err == nil {
		t.Fatal("expected error for target without url")
	}
}

func TestLoadTargetsEmptyPath(t *testing.T) {
	targets, err := LoadTargets("")
	if err != nil || targets != nil {
		t.Fatalf("LoadTargets(\"\") = (%v, %v), want (nil, nil)", targets, err)
	}
}

func TestLoadRespectsEnvironment(t *testing.T) {
	t.Setenv("HARVEST_DATABASE_URL", "postgres://harvest@localhost/harvest")
	t.Setenv("HARVEST_CONCURRENCY", "9")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://harvest@localhost/harvest" {
		t.Fatalf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Concurrency != 9 {
		t.Fatalf("Concurrency = %d, want 9", cfg.Concurrency)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Fatalf("UserAgent = %q, want default", cfg.UserAgent)
	}
}

func TestLoadRejectsBadConcurrency(t *testing.T) {
	t.Setenv("HARVEST_CONCURRENCY", "0")
	if _, err := Load(nil); err == nil {
		t.Fatal("expected validation error for concurrency 0")
	}
}
