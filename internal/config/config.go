package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "TENNISWIRE_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	triggerSecretEnv = "TRIGGER_SECRET"
	openAIKeyEnv     = "OPENAI_API_KEY"
	openAIModelEnv   = "OPENAI_MODEL"
	listenAddrEnv    = "LISTEN_ADDR"
	cycleURLEnv      = "CYCLE_TRIGGER_URL"
)

// Config holds every setting the pipeline needs, constructed once at process
// start and passed by parameter into each component.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Trigger   TriggerConfig   `yaml:"trigger"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Rewrite   RewriteConfig   `yaml:"rewrite"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Backfill  BackfillConfig  `yaml:"backfill"`
	Publish   PublishConfig   `yaml:"publish"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
	Feeds     []FeedConfig    `yaml:"feeds"`
}

// ServerConfig describes the trigger HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// TriggerConfig wires endpoint auth and the self-trigger chain.
type TriggerConfig struct {
	Secret        string `yaml:"secret"`
	CycleURL      string `yaml:"cycleUrl"`
	MaxChainDepth int    `yaml:"maxChainDepth"`
}

// OpenAIConfig defines how to contact the text-generation service.
type OpenAIConfig struct {
	APIKey      string  `yaml:"apiKey"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"baseUrl"`
	Temperature float32 `yaml:"temperature"`
}

// RewriteConfig tunes the variant/synthesis pipeline.
type RewriteConfig struct {
	DefaultVariants   int            `yaml:"defaultVariants"`
	VariantsBySource  map[string]int `yaml:"variantsBySource"`
	MinLengthRatio    float64        `yaml:"minLengthRatio"`
	MinLengthFloor    int            `yaml:"minLengthFloor"`
	MaxExpandAttempts int            `yaml:"maxExpandAttempts"`
}

// IngestConfig bounds the ingest stage. Refresh switches dedup hits from
// skip to ledger-update-plus-draft-patch.
type IngestConfig struct {
	Budget        time.Duration `yaml:"budget"`
	SafetyBuffer  time.Duration `yaml:"safetyBuffer"`
	Lookback      time.Duration `yaml:"lookback"`
	MaxExcerptLen int           `yaml:"maxExcerptLen"`
	Refresh       bool          `yaml:"refresh"`
}

// BackfillConfig bounds the AI backfill stage.
type BackfillConfig struct {
	Budget       time.Duration `yaml:"budget"`
	SafetyBuffer time.Duration `yaml:"safetyBuffer"`
	Concurrency  int           `yaml:"concurrency"`
	MaxItems     int           `yaml:"maxItems"`
}

// PublishConfig tunes the publish stage. Publishing makes no model calls and
// always runs to completion, so it carries no budget.
type PublishConfig struct {
	DryRun bool `yaml:"dryRun"`
}

// FetchConfig tunes page acquisition.
type FetchConfig struct {
	UserAgent       string        `yaml:"userAgent"`
	Timeout         time.Duration `yaml:"timeout"`
	HeadlessEnabled bool          `yaml:"headlessEnabled"`
	HeadlessTimeout time.Duration `yaml:"headlessTimeout"`
}

// SchedulerConfig defines the optional in-process cron.
type SchedulerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	CronExpression string `yaml:"cronExpression"`
	Timezone       string `yaml:"timezone"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil || s.Timezone == "" {
		return time.UTC
	}
	return loc
}

// LoggingConfig controls slog verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FeedKind selects the provider shape for a configured source.
type FeedKind string

const (
	FeedKindSyndication FeedKind = "rss"
	FeedKindListing     FeedKind = "listing"
)

// FeedConfig describes one external publisher.
type FeedConfig struct {
	Name        string   `yaml:"name"`
	Kind        FeedKind `yaml:"kind"`
	URL         string   `yaml:"url"`
	ListingURLs []string `yaml:"listingUrls"`
	Origin      string   `yaml:"origin"`
	MaxPerPage  int      `yaml:"maxPerPage"`
	ExtractFull bool     `yaml:"extractFull"`
	AllowHosts  []string `yaml:"allowHosts"`
	License     string   `yaml:"license"`
	Variants    int      `yaml:"variants"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}

	return cfg
}

// Validate fails fast on settings whose absence would only surface mid-stage.
func (c Config) Validate() error {
	var errs []error
	if c.Trigger.Secret == "" {
		errs = append(errs, errors.New("trigger secret is not set"))
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("openai api key is not set"))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database dsn is not set"))
	}
	for _, feed := range c.Feeds {
		if feed.Kind != FeedKindSyndication && feed.Kind != FeedKindListing {
			errs = append(errs, fmt.Errorf("feed %s: unknown kind %q", feed.Name, feed.Kind))
		}
	}
	return errors.Join(errs...)
}

// VariantCount resolves the per-source variant policy.
func (c Config) VariantCount(sourceName string) int {
	if n, ok := c.Rewrite.VariantsBySource[sourceName]; ok && n > 0 {
		return n
	}
	for _, feed := range c.Feeds {
		if feed.Name == sourceName && feed.Variants > 0 {
			return feed.Variants
		}
	}
	if c.Rewrite.DefaultVariants > 0 {
		return c.Rewrite.DefaultVariants
	}
	return 3
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(triggerSecretEnv); v != "" {
		c.Trigger.Secret = v
	}
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(cycleURLEnv); v != "" {
		c.Trigger.CycleURL = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server = override.Server
	}
	if override.Database.DSN != "" {
		base.Database = override.Database
	}
	if override.Trigger.Secret != "" {
		base.Trigger.Secret = override.Trigger.Secret
	}
	if override.Trigger.CycleURL != "" {
		base.Trigger.CycleURL = override.Trigger.CycleURL
	}
	if override.Trigger.MaxChainDepth > 0 {
		base.Trigger.MaxChainDepth = override.Trigger.MaxChainDepth
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.BaseURL != "" {
		base.OpenAI.BaseURL = override.OpenAI.BaseURL
	}
	if override.OpenAI.Temperature > 0 {
		base.OpenAI.Temperature = override.OpenAI.Temperature
	}
	if override.Rewrite.DefaultVariants > 0 {
		base.Rewrite.DefaultVariants = override.Rewrite.DefaultVariants
	}
	if len(override.Rewrite.VariantsBySource) > 0 {
		base.Rewrite.VariantsBySource = override.Rewrite.VariantsBySource
	}
	if override.Rewrite.MinLengthRatio > 0 {
		base.Rewrite.MinLengthRatio = override.Rewrite.MinLengthRatio
	}
	if override.Rewrite.MinLengthFloor > 0 {
		base.Rewrite.MinLengthFloor = override.Rewrite.MinLengthFloor
	}
	if override.Rewrite.MaxExpandAttempts > 0 {
		base.Rewrite.MaxExpandAttempts = override.Rewrite.MaxExpandAttempts
	}
	if override.Ingest.Budget > 0 {
		base.Ingest.Budget = override.Ingest.Budget
	}
	if override.Ingest.SafetyBuffer > 0 {
		base.Ingest.SafetyBuffer = override.Ingest.SafetyBuffer
	}
	if override.Ingest.Lookback > 0 {
		base.Ingest.Lookback = override.Ingest.Lookback
	}
	if override.Ingest.MaxExcerptLen > 0 {
		base.Ingest.MaxExcerptLen = override.Ingest.MaxExcerptLen
	}
	if override.Ingest.Refresh {
		base.Ingest.Refresh = true
	}
	if override.Backfill.Budget > 0 {
		base.Backfill.Budget = override.Backfill.Budget
	}
	if override.Backfill.SafetyBuffer > 0 {
		base.Backfill.SafetyBuffer = override.Backfill.SafetyBuffer
	}
	if override.Backfill.Concurrency > 0 {
		base.Backfill.Concurrency = override.Backfill.Concurrency
	}
	if override.Backfill.MaxItems > 0 {
		base.Backfill.MaxItems = override.Backfill.MaxItems
	}
	if override.Publish.DryRun {
		base.Publish.DryRun = true
	}
	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}
	if override.Fetch.Timeout > 0 {
		base.Fetch.Timeout = override.Fetch.Timeout
	}
	if override.Fetch.HeadlessEnabled {
		base.Fetch.HeadlessEnabled = true
	}
	if override.Fetch.HeadlessTimeout > 0 {
		base.Fetch.HeadlessTimeout = override.Fetch.HeadlessTimeout
	}
	if override.Scheduler.CronExpression != "" {
		base.Scheduler = override.Scheduler
	}
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{DSN: ""},
		Trigger:  TriggerConfig{MaxChainDepth: 3},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.8,
		},
		Rewrite: RewriteConfig{
			DefaultVariants:   3,
			MinLengthRatio:    0.6,
			MinLengthFloor:    900,
			MaxExpandAttempts: 3,
		},
		Ingest: IngestConfig{
			Budget:        4 * time.Minute,
			SafetyBuffer:  20 * time.Second,
			Lookback:      48 * time.Hour,
			MaxExcerptLen: 280,
		},
		Backfill: BackfillConfig{
			Budget:       6 * time.Minute,
			SafetyBuffer: 30 * time.Second,
			Concurrency:  3,
			MaxItems:     12,
		},
		Fetch: FetchConfig{
			UserAgent:       "tenniswire/1.0 (+https://tenniswire.example)",
			Timeout:         20 * time.Second,
			HeadlessTimeout: 45 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:        false,
			CronExpression: "*/30 * * * *",
			Timezone:       "UTC",
		},
		Logging: LoggingConfig{Level: "info"},
		Feeds: []FeedConfig{
			{
				Name:       "atptour",
				Kind:       FeedKindListing,
				Origin:     "https://www.atptour.com",
				MaxPerPage: 12,
				Variants:   2,
				ListingURLs: []string{
					"https://www.atptour.com/en/media/all-news",
				},
			},
			{
				Name:        "wtatennis",
				Kind:        FeedKindListing,
				Origin:      "https://www.wtatennis.com",
				MaxPerPage:  12,
				Variants:    2,
				ListingURLs: []string{"https://www.wtatennis.com/news"},
			},
			{
				Name:        "tennis-syndication",
				Kind:        FeedKindSyndication,
				URL:         "https://feeds.example.com/tennis.xml",
				ExtractFull: true,
				AllowHosts:  []string{"www.atptour.com", "www.wtatennis.com"},
			},
		},
	}
}
