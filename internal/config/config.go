// Package config loads the tracked repositories and report options from a
// YAML file and the API token from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither --config nor REPORT_CONFIG is set.
const DefaultPath = "reports.yml"

// Defaults applied to keys the file leaves out.
const (
	DefaultDurationCeilingMinutes = 28655
	DefaultBugLabel               = "bug"
	DefaultOutputDir              = "reports"
)

// Error reports an unusable configuration.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Reason, e.Err)
	}
	return "config: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Config holds everything a report run needs besides the date window.
type Config struct {
	Repositories           []string `yaml:"repositories"`
	LabelsToSkip           []string `yaml:"labels_to_skip"`
	DurationCeilingMinutes int      `yaml:"duration_ceiling_minutes"`
	BugLabel               string   `yaml:"bug_label"`
	OutputDir              string   `yaml:"output_dir"`
	// CacheDir holds cached API responses; empty disables caching.
	CacheDir string `yaml:"cache_dir"`
	// RequireAssigneeForDuration leaves unassigned issues out of the duration sums.
	RequireAssigneeForDuration bool `yaml:"require_assignee_for_duration"`

	Token string `yaml:"-"`
}

// Load reads the YAML file at path, applies defaults, and picks up the token
// from GITHUB_TOKEN or GITHUB_PERSONAL_TOKEN after loading an optional .env.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &Error{Reason: "reading .env", Err: err}
	}

	if path == "" {
		path = os.Getenv("REPORT_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Reason: "reading " + path, Err: err}
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}

	cfg.Token = os.Getenv("GITHUB_TOKEN")
	if cfg.Token == "" {
		cfg.Token = os.Getenv("GITHUB_PERSONAL_TOKEN")
	}
	if cfg.Token == "" {
		return nil, &Error{Reason: "GITHUB_TOKEN environment variable is not set"}
	}
	return cfg, nil
}

// DefaultCacheDir is the per-user cache location, or "" when the platform has none.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "activity-report")
}

// Parse decodes and validates a YAML document without touching the environment.
func Parse(b []byte) (*Config, error) {
	cfg := &Config{
		LabelsToSkip:           []string{"dependencies"},
		DurationCeilingMinutes: DefaultDurationCeilingMinutes,
		BugLabel:               DefaultBugLabel,
		OutputDir:              DefaultOutputDir,
		CacheDir:               DefaultCacheDir(),
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, &Error{Reason: "decoding yaml", Err: err}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Repositories) == 0 {
		return &Error{Reason: "no repositories configured"}
	}
	var errs []error
	for _, repo := range c.Repositories {
		if _, _, err := ParseRepository(repo); err != nil {
			errs = append(errs, err)
		}
	}
	if c.DurationCeilingMinutes <= 0 {
		errs = append(errs, fmt.Errorf("duration_ceiling_minutes must be positive, got %d", c.DurationCeilingMinutes))
	}
	if err := errors.Join(errs...); err != nil {
		return &Error{Reason: "invalid settings", Err: err}
	}
	return nil
}

// ParseRepository splits an "owner/name" identifier.
func ParseRepository(repo string) (owner, name string, err error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository %q should be in format owner/name", repo)
	}
	return parts[0], parts[1], nil
}
