package common

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Database is the path of the sqlite store shared by all binaries.
	Database string        `yaml:"database"`
	Output   string        `yaml:"output"`
	Request  RequestConfig `yaml:"request"`
	Collect  CollectConfig `yaml:"collect"`
	Build    BuildConfig   `yaml:"build"`
}

type CollectConfig struct {
	Searches []YamlSearch `yaml:"searches"`
	// StartTime and EndTime apply to searches that set no window of their own.
	StartTime           time.Time     `yaml:"start_time"`
	EndTime             time.Time     `yaml:"end_time"`
	MaxResults          int           `yaml:"max_results"`
	FollowingMaxResults int           `yaml:"following_max_results"`
	PageDelay           time.Duration `yaml:"page_delay"`
}

type BuildConfig struct {
	Workers        int    `yaml:"workers"`
	BatchSize      int    `yaml:"batch_size"`
	Policy         string `yaml:"policy"`
	StrictOrdering bool   `yaml:"strict_ordering"`
}

type Search struct {
	Query     string    `yaml:"query"`
	StartTime time.Time `yaml:"start_time,omitempty"`
	EndTime   time.Time `yaml:"end_time,omitempty"`
}

// Key identifies the search for resumable pagination.
func (s Search) Key() string {
	return fmt.Sprintf("%s|%s|%s", s.Query, formatTime(s.StartTime), formatTime(s.EndTime))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// YamlSearch is either a bare query string or a full Search mapping.
type YamlSearch struct {
	Search `yaml:",inline"`
}

func (s *YamlSearch) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&s.Query)
	}
	return value.Decode(&s.Search)
}

const (
	DefaultDatabase            = "cascades.db"
	DefaultOutput              = "edges.csv"
	DefaultMaxResults          = 500
	DefaultFollowingMaxResults = 1000
	DefaultPageDelay           = 60 * time.Second
)

// DefaultRequestConfig selects the tweet and user fields the store needs.
var DefaultRequestConfig = RequestConfig{
	Expansions: []string{
		"author_id",
		"referenced_tweets.id",
		"referenced_tweets.id.author_id",
	},
	TweetFields: []string{
		"id",
		"created_at",
		"author_id",
		"text",
		"referenced_tweets",
	},
	UserFields: []string{
		"username",
	},
}

// Load reads a YAML config file and fills in defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	if len(cfg.Request.Expansions) == 0 && len(cfg.Request.TweetFields) == 0 && len(cfg.Request.UserFields) == 0 {
		cfg.Request = DefaultRequestConfig
	}
	if cfg.Collect.MaxResults == 0 {
		cfg.Collect.MaxResults = DefaultMaxResults
	}
	if cfg.Collect.FollowingMaxResults == 0 {
		cfg.Collect.FollowingMaxResults = DefaultFollowingMaxResults
	}
	if cfg.Collect.PageDelay == 0 {
		cfg.Collect.PageDelay = DefaultPageDelay
	}
}

func (cfg *Config) validate() error {
	for _, s := range cfg.Searches() {
		if !s.StartTime.IsZero() && !s.EndTime.IsZero() && !s.StartTime.Before(s.EndTime) {
			return fmt.Errorf("search %q: start_time must be before end_time", s.Query)
		}
	}
	if cfg.Build.Workers < 0 || cfg.Build.BatchSize < 0 {
		return fmt.Errorf("build: workers and batch_size must not be negative")
	}
	return nil
}

// Searches returns the configured searches with the collect-level window
// applied, deduplicated and sorted by key.
func (cfg *Config) Searches() []Search {
	present := map[string]bool{}
	r := []Search{}
	for _, ys := range cfg.Collect.Searches {
		s := ys.Search
		if s.Query == "" {
			continue
		}
		if s.StartTime.IsZero() {
			s.StartTime = cfg.Collect.StartTime
		}
		if s.EndTime.IsZero() {
			s.EndTime = cfg.Collect.EndTime
		}
		if present[s.Key()] {
			continue
		}
		present[s.Key()] = true
		r = append(r, s)
	}
	sort.Slice(r, func(i, j int) bool { return r[i].Key() < r[j].Key() })
	return r
}
