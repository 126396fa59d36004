package config

import (
	"os"
	"strings"
	"testing"
)

// writeTempConfig creates a small configuration file overriding a few
// defaults and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `wallaflow:
  name: "TestApp"
  version: "1.0"
search:
  page_size: 25
  page_delay_ms: 10
  queries:
    - keywords: "vespa"
      category_id: "14000"
dataset:
  dir: "/tmp/data"
  tag: "vespas"
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Wallaflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Wallaflow.Name)
	}
	if cfg.Search.PageSize != 25 {
		t.Errorf("unexpected page size: %d", cfg.Search.PageSize)
	}
	if cfg.Dataset.Tag != "vespas" {
		t.Errorf("unexpected dataset tag: %s", cfg.Dataset.Tag)
	}
	if len(cfg.Search.Queries) != 1 || cfg.Search.Queries[0].Keywords != "vespa" {
		t.Errorf("unexpected queries: %+v", cfg.Search.Queries)
	}
	// Defaults survive a partial file.
	if cfg.Search.URL == "" {
		t.Errorf("default search URL lost")
	}
	if len(cfg.Risk.Categories) != 5 {
		t.Errorf("expected 5 default risk categories, got %d", len(cfg.Risk.Categories))
	}
	if cfg.Risk.Scoring.MaxScore != 100 {
		t.Errorf("unexpected max score: %d", cfg.Risk.Scoring.MaxScore)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("does/not/exist.yml")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Search.PageSize != 50 {
		t.Errorf("unexpected default page size: %d", cfg.Search.PageSize)
	}
	if cfg.Reader.Headers["X-DeviceOS"] != "0" {
		t.Errorf("default headers lost: %v", cfg.Reader.Headers)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	content := `search:
  page_size: 0
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()
	defer os.Remove(f.Name())

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatalf("expected validation error for zero page size")
	} else if !strings.Contains(err.Error(), "page_size") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDatasetDirEnvOverride(t *testing.T) {
	t.Setenv("WALLAFLOW_DATASET_DIR", "/srv/wallaflow")
	cfg, err := LoadConfig("does/not/exist.yml")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Dataset.Dir != "/srv/wallaflow" {
		t.Errorf("env override not applied: %s", cfg.Dataset.Dir)
	}
}

func TestResolveConfigPathExplicitWins(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	if got := ResolveConfigPath("custom.yml"); got != "custom.yml" {
		t.Errorf("explicit path overridden: %s", got)
	}
}

func TestIsProductionLike(t *testing.T) {
	cases := map[string]bool{
		EnvironmentProduction:  true,
		EnvironmentStaging:     true,
		EnvironmentDevelopment: false,
		"anything":             false,
	}
	for env, want := range cases {
		if got := IsProductionLike(env); got != want {
			t.Errorf("IsProductionLike(%q) = %v, want %v", env, got, want)
		}
	}
}
