package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	ListenAddress string        `yaml:"listen_address"` // :9110
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`  // debug|info|warn|error
	Format    string `yaml:"format"` // text|json
	AddSource bool   `yaml:"add_source"`
}

type FeedConfig struct {
	Capacity int    `yaml:"capacity"` // per lane, default 25
	Seed     uint64 `yaml:"seed"`     // 0 = random
}

type LaneConfig struct {
	Enabled     *bool         `yaml:"enabled"` // default true
	MinInterval time.Duration `yaml:"min_interval"`
	MaxInterval time.Duration `yaml:"max_interval"`
}

func (l LaneConfig) IsEnabled() bool { return l.Enabled == nil || *l.Enabled }

type LanesConfig struct {
	Actions LaneConfig `yaml:"actions"`
	Posts   LaneConfig `yaml:"posts"`
}

type RetentionConfig struct {
	History  time.Duration `yaml:"history"`
	Category time.Duration `yaml:"category"`
	Actor    time.Duration `yaml:"actor"`
}

type CooldownConfig struct {
	Disabled      bool                     `yaml:"disabled"` // turn every rule off (NoRepeat included)
	NoRepeat      *bool                    `yaml:"no_repeat"`
	Category      time.Duration            `yaml:"category"`
	Rare          map[string]time.Duration `yaml:"rare"` // e.g. join: 5m
	Actor         time.Duration            `yaml:"actor"`
	TemplateFresh time.Duration            `yaml:"template_fresh"`
	ActorRetries  *int                     `yaml:"actor_retries"`
	Retention     RetentionConfig          `yaml:"retention"`
}

// SourceConfig describes an external raw-event feed merged into a lane.
type SourceConfig struct {
	Type          string        `yaml:"type"` // "http"
	Name          string        `yaml:"name"`
	Lane          string        `yaml:"lane"` // actions | posts
	URL           string        `yaml:"url"`
	Interval      time.Duration `yaml:"interval"`
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	RatePerSecond float64       `yaml:"rate_per_second"` // e.g. 1.0 = 1 req/sec
	Burst         int           `yaml:"burst"`
	MaxRetries    int           `yaml:"max_retries"`
	Backoff       time.Duration `yaml:"backoff"`
	MaxBackoff    time.Duration `yaml:"max_backoff"`
}

type LokiConfig struct {
	URL       string        `yaml:"url"`       // http://loki:3100
	TenantID  string        `yaml:"tenant_id"` // optional multi-tenancy
	Job       string        `yaml:"job"`       // label value, default: creator-feed
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type VictoriaConfig struct {
	URL       string        `yaml:"url"` // http://victoria-metrics:8428
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type KeywordRule struct {
	When   []string          `yaml:"when"`   // substrings (case-insensitive) matched against the event text
	Labels map[string]string `yaml:"labels"` // labels to add when matched
}

type RegexRule struct {
	Field  string            `yaml:"field"` // text|type|actor|target
	Expr   string            `yaml:"expr"`
	Labels map[string]string `yaml:"labels"`
}

type MapRule struct {
	Field   string            `yaml:"field"`   // e.g. type
	Mapping map[string]string `yaml:"mapping"` // e.g. "tip":"money"
	OutKey  string            `yaml:"out_key"` // label key to write
}

type PostProcessConfig struct {
	Keywords []KeywordRule `yaml:"keywords"`
	Regex    []RegexRule   `yaml:"regex"`
	Maps     []MapRule     `yaml:"maps"`
}

type DedupConfig struct {
	Enable  *bool         `yaml:"enable"`   // default true
	TTL     time.Duration `yaml:"ttl"`      // e.g. 1h
	MaxKeys int           `yaml:"max_keys"` // cap to bound memory
}

type PublishConfig struct {
	FlushInterval time.Duration `yaml:"flush_interval"`
	MaxPending    int           `yaml:"max_pending"`
}

type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Logging   LoggingConfig     `yaml:"logging"`
	Feed      FeedConfig        `yaml:"feed"`
	Lanes     LanesConfig       `yaml:"lanes"`
	Cooldowns CooldownConfig    `yaml:"cooldowns"`
	Sources   []SourceConfig    `yaml:"sources"`
	Loki      LokiConfig        `yaml:"loki"`
	Victoria  VictoriaConfig    `yaml:"victoria"`
	Post      PostProcessConfig `yaml:"postprocess"`
	Dedup     DedupConfig       `yaml:"dedup"`
	Publish   PublishConfig     `yaml:"publish"`
}

// Load reads the YAML file at path and fills defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":9110"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Feed.Capacity == 0 {
		c.Feed.Capacity = 25
	}
	for _, l := range []*LaneConfig{&c.Lanes.Actions, &c.Lanes.Posts} {
		if l.MinInterval == 0 {
			l.MinInterval = 2 * time.Second
		}
		if l.MaxInterval == 0 {
			l.MaxInterval = 4 * time.Second
		}
	}

	cd := &c.Cooldowns
	if !cd.Disabled {
		if cd.NoRepeat == nil {
			cd.NoRepeat = ptr(true)
		}
		if cd.Category == 0 {
			cd.Category = 30 * time.Second
		}
		if cd.Rare == nil {
			cd.Rare = map[string]time.Duration{"join": 5 * time.Minute}
		}
		if cd.Actor == 0 {
			cd.Actor = 2 * time.Minute
		}
	}
	if cd.TemplateFresh == 0 {
		cd.TemplateFresh = 10 * time.Minute
	}
	if cd.ActorRetries == nil {
		cd.ActorRetries = ptr(10)
	}
	if cd.Retention.History == 0 {
		cd.Retention.History = 20 * time.Minute
	}
	if cd.Retention.Category == 0 {
		cd.Retention.Category = 5 * time.Minute
	}
	if cd.Retention.Actor == 0 {
		cd.Retention.Actor = 10 * time.Minute
	}

	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Type == "" {
			s.Type = "http"
		}
		if s.Name == "" {
			s.Name = fmt.Sprintf("%s-%d", s.Type, i)
		}
		if s.Interval == 0 {
			s.Interval = 30 * time.Second
		}
		if s.Timeout == 0 {
			s.Timeout = 10 * time.Second
		}
		if s.RatePerSecond == 0 {
			s.RatePerSecond = 1
		}
		if s.Burst == 0 {
			s.Burst = 1
		}
		if s.MaxRetries == 0 {
			s.MaxRetries = 3
		}
		if s.Backoff == 0 {
			s.Backoff = 500 * time.Millisecond
		}
		if s.MaxBackoff == 0 {
			s.MaxBackoff = 5 * time.Second
		}
	}

	if c.Loki.Job == "" {
		c.Loki.Job = "creator-feed"
	}
	if c.Dedup.Enable == nil {
		c.Dedup.Enable = ptr(true)
	}
	if c.Dedup.TTL == 0 {
		c.Dedup.TTL = time.Hour
	}
	if c.Dedup.MaxKeys == 0 {
		c.Dedup.MaxKeys = 10000
	}
	if c.Publish.FlushInterval == 0 {
		c.Publish.FlushInterval = 10 * time.Second
	}
	if c.Publish.MaxPending == 0 {
		c.Publish.MaxPending = c.Feed.Capacity * 4
	}
}

// Validate checks cross-field constraints after defaults are applied.
func (c *Config) Validate() error {
	var errs []error
	if c.Feed.Capacity < 0 {
		errs = append(errs, fmt.Errorf("feed.capacity must be positive, got %d", c.Feed.Capacity))
	}
	for name, l := range map[string]LaneConfig{"actions": c.Lanes.Actions, "posts": c.Lanes.Posts} {
		if l.MinInterval < 0 || l.MaxInterval < l.MinInterval {
			errs = append(errs, fmt.Errorf("lanes.%s: need 0 <= min_interval <= max_interval", name))
		}
	}
	for _, s := range c.Sources {
		if s.Type != "http" {
			errs = append(errs, fmt.Errorf("source %q: unknown type %q", s.Name, s.Type))
		}
		if s.Lane != "actions" && s.Lane != "posts" {
			errs = append(errs, fmt.Errorf("source %q: lane must be actions or posts, got %q", s.Name, s.Lane))
		}
		if strings.TrimSpace(s.URL) == "" {
			errs = append(errs, fmt.Errorf("source %q: url is required", s.Name))
		}
		if s.Interval <= 0 {
			errs = append(errs, fmt.Errorf("source %q: interval must be positive, got %s", s.Name, s.Interval))
		}
	}
	if c.Publish.FlushInterval <= 0 {
		errs = append(errs, fmt.Errorf("publish.flush_interval must be positive, got %s", c.Publish.FlushInterval))
	}
	return errors.Join(errs...)
}

func ptr[T any](v T) *T { return &v }
