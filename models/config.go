// Package models defines data structures for configuration and verification results.
package models

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultTimeoutSec  = 10
	DefaultLinkWorkers = 10
	DefaultReportsDir  = "reports"
)

// DefaultIgnoredDomains are social platforms that answer automated probes with
// unrepresentative 4xx codes.
var DefaultIgnoredDomains = []string{"facebook.com", "twitter.com", "linkedin.com", "instagram.com", "youtube.com"}

// Settings holds runtime knobs shared by every run.
type Settings struct {
	UserAgent            string   `yaml:"user_agent"`
	TimeoutSec           int      `yaml:"timeout"`
	LinkWorkers          int      `yaml:"link_workers"`
	TitleThreshold       float64  `yaml:"title_threshold"`
	DescriptionThreshold float64  `yaml:"description_threshold"`
	H1Threshold          float64  `yaml:"h1_threshold"`
	MetricThreshold      float64  `yaml:"metric_threshold"`
	IgnoredDomains       []string `yaml:"ignored_domains"`
	ReportsDir           string   `yaml:"reports_dir"`
	CachePath            string   `yaml:"cache_path"`
	CacheMaxAge          string   `yaml:"cache_max_age"`
}

// Timeout returns the per-request timeout as a duration.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// CacheTTL parses CacheMaxAge. An empty or invalid value disables the cache.
func (s Settings) CacheTTL() time.Duration {
	if s.CacheMaxAge == "" {
		return 0
	}
	d, err := time.ParseDuration(s.CacheMaxAge)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Rules are per-project copy rules.
type Rules struct {
	BadPhrases []string `yaml:"bad_phrases"`
}

// LivePage is one named page of a project.
type LivePage struct {
	Name string
	URL  string
}

// LivePages keeps the order in which pages were declared in the config file.
type LivePages []LivePage

// UnmarshalYAML decodes a mapping of page name to URL without losing order.
func (lp *LivePages) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("live_pages: expected a mapping, got line %d", value.Line)
	}
	pages := make(LivePages, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var name, url string
		if err := value.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("live_pages: page name: %w", err)
		}
		if err := value.Content[i+1].Decode(&url); err != nil {
			return fmt.Errorf("live_pages %q: %w", name, err)
		}
		pages = append(pages, LivePage{Name: name, URL: url})
	}
	*lp = pages
	return nil
}

// Project is a configured site with its source-of-truth document.
type Project struct {
	ID               string    `yaml:"id"`
	Name             string    `yaml:"name"`
	GoogleDocURL     string    `yaml:"google_doc_url"`
	BugherdProjectID string    `yaml:"bugherd_project_id"`
	LivePages        LivePages `yaml:"live_pages"`
	Rules            Rules     `yaml:"rules"`
}

// Config is the top-level config file.
type Config struct {
	Settings Settings  `yaml:"settings"`
	Projects []Project `yaml:"projects"`
}

// DefaultConfig returns a config with every setting populated.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	s := &c.Settings
	if s.UserAgent == "" {
		s.UserAgent = DefaultUserAgent
	}
	if s.TimeoutSec <= 0 {
		s.TimeoutSec = DefaultTimeoutSec
	}
	if s.LinkWorkers <= 0 {
		s.LinkWorkers = DefaultLinkWorkers
	}
	if s.TitleThreshold <= 0 {
		s.TitleThreshold = 0.8
	}
	if s.DescriptionThreshold <= 0 {
		s.DescriptionThreshold = 0.6
	}
	if s.H1Threshold <= 0 {
		s.H1Threshold = 0.8
	}
	if s.MetricThreshold <= 0 {
		s.MetricThreshold = 0.8
	}
	if s.IgnoredDomains == nil {
		s.IgnoredDomains = append([]string(nil), DefaultIgnoredDomains...)
	}
	if s.ReportsDir == "" {
		s.ReportsDir = DefaultReportsDir
	}
	if s.CacheMaxAge == "" {
		s.CacheMaxAge = "15m"
	}
}

// ErrConfigNotFound is returned when the config file does not exist.
// The returned config is still usable and carries defaults.
var ErrConfigNotFound = errors.New("config file not found")

// LoadConfig reads a YAML (or JSON) config file and fills in defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// FindProject looks up a project by id.
func (c *Config) FindProject(id string) (*Project, bool) {
	id = strings.TrimSpace(id)
	for i := range c.Projects {
		if c.Projects[i].ID == id {
			return &c.Projects[i], true
		}
	}
	return nil, false
}
