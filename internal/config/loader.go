package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/ghoulbites/applycrawl/internal/model"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name, searched
// for in the current directory and then the XDG config directory.
const DefaultConfigFile = ".applycrawl"

// ErrConfigNotFound is returned when the configuration file does not
// exist. Callers decide whether that is fatal based on whether the
// path was explicitly requested.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .applycrawl configuration file.
// Every section is optional; missing sections keep their defaults.
type File struct {
	// Targets are the university sites to crawl.
	Targets []model.TargetSite `yaml:"targets,omitempty"`

	// AdmissionSeeds maps a target domain to known admission subdomains
	// seeded alongside the base URL (e.g., mit.edu -> apply.mit.edu).
	AdmissionSeeds map[string][]string `yaml:"admission_seeds,omitempty"`

	// Patterns replaces the built-in classification tables when set.
	Patterns *Patterns `yaml:"patterns,omitempty"`

	// UserAgents replaces the rotation list when set.
	UserAgents []string `yaml:"user_agents,omitempty"`
}

// LoadConfigFile loads targets and pattern tables from a YAML file.
// It returns ErrConfigNotFound if the file does not exist.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	if cf.AdmissionSeeds == nil {
		cf.AdmissionSeeds = make(map[string][]string)
	}
	return &cf, nil
}

// FindConfigFile resolves the configuration file path:
//  1. an explicitly specified path is used directly
//  2. .applycrawl in the current directory
//  3. .applycrawl in the XDG config directory
//
// Returns the empty string when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(XDGConfigDir(), DefaultConfigFile)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// Apply merges the file contents into cfg. Sections absent from the
// file leave the corresponding Config fields untouched.
func (cf *File) Apply(cfg *Config) {
	if len(cf.Targets) > 0 {
		cfg.Targets = cf.Targets
	}
	if len(cf.AdmissionSeeds) > 0 {
		cfg.AdmissionSeeds = cf.AdmissionSeeds
	}
	if cf.Patterns != nil {
		cfg.Patterns = cf.Patterns
	}
	if len(cf.UserAgents) > 0 {
		cfg.UserAgents = cf.UserAgents
	}
}
