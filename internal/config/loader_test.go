package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfigFile tests YAML parsing and the not-found sentinel.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("full file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `
targets:
  - name: State University
    base_url: https://www.x.edu
    domain: x.edu
  - name: Tech Institute
    base_url: https://www.tech.edu
    domain: tech.edu
admission_seeds:
  x.edu:
    - https://admissions.x.edu
user_agents:
  - TestAgent/1.0
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if len(cf.Targets) != 2 {
			t.Fatalf("expected 2 targets, got %d", len(cf.Targets))
		}
		if cf.Targets[0].Domain != "x.edu" {
			t.Errorf("unexpected first target %+v", cf.Targets[0])
		}
		if seeds := cf.AdmissionSeeds["x.edu"]; len(seeds) != 1 || seeds[0] != "https://admissions.x.edu" {
			t.Errorf("unexpected admission seeds %v", cf.AdmissionSeeds)
		}
		if len(cf.UserAgents) != 1 || cf.UserAgents[0] != "TestAgent/1.0" {
			t.Errorf("unexpected user agents %v", cf.UserAgents)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("targets: [unterminated"), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("failed to load empty config: %v", err)
		}
		if cf.AdmissionSeeds == nil {
			t.Error("expected initialized admission seeds map")
		}
	})
}

// TestFileApply tests section-by-section merging.
func TestFileApply(t *testing.T) {
	t.Parallel()

	t.Run("empty file leaves config untouched", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		before := cfg.Targets[0]
		(&File{}).Apply(cfg)
		if len(cfg.Targets) != 1 || cfg.Targets[0] != before {
			t.Errorf("expected targets untouched, got %v", cfg.Targets)
		}
		if cfg.Patterns == nil {
			t.Error("expected default patterns kept")
		}
	})

	t.Run("file sections override", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		custom := DefaultPatterns()
		custom.ApplicationKeywords = []string{"bewerbung"}
		cf := &File{
			UserAgents: []string{"Custom/2.0"},
			Patterns:   custom,
		}
		cf.Apply(cfg)
		if len(cfg.UserAgents) != 1 || cfg.UserAgents[0] != "Custom/2.0" {
			t.Errorf("expected user agents replaced, got %v", cfg.UserAgents)
		}
		if len(cfg.Patterns.ApplicationKeywords) != 1 {
			t.Errorf("expected patterns replaced, got %d keywords", len(cfg.Patterns.ApplicationKeywords))
		}
	})
}

// TestFindConfigFile tests explicit-path resolution.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected explicit path returned, got %q", got)
		}
	})

	t.Run("explicit missing path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope")); got != "" {
			t.Errorf("expected empty result for missing explicit path, got %q", got)
		}
	})
}
