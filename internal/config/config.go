// Package config loads and validates onboarder configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/receptionist-onboarding/internal/extract/locale"
	"github.com/JakeFAU/receptionist-onboarding/internal/logging"
)

// EnvPrefix namespaces environment overrides, e.g. ONBOARDER_SERVER_PORT.
const EnvPrefix = "ONBOARDER"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Renderer RendererConfig `mapstructure:"renderer"`
	Sitemap  SitemapConfig  `mapstructure:"sitemap"`
	Workers  WorkersConfig  `mapstructure:"workers"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	DB       DBConfig       `mapstructure:"db"`
	Storage  StorageConfig  `mapstructure:"storage"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  logging.Config `mapstructure:"logging"`
	Locale   LocaleConfig   `mapstructure:"locale"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig bounds each crawl.
type CrawlerConfig struct {
	MaxPagesDefault   int      `mapstructure:"max_pages_default"`
	MaxDepthDefault   int      `mapstructure:"max_depth_default"`
	FanOutCap         int      `mapstructure:"fan_out_cap"`
	QueueCap          int      `mapstructure:"queue_cap"`
	PolitenessDelayMs int      `mapstructure:"politeness_delay_ms"`
	ChunkSize         int      `mapstructure:"chunk_size"`
	ChunkOverlap      int      `mapstructure:"chunk_overlap"`
	PriorityPatterns  []string `mapstructure:"priority_patterns"`
	ExcludePaths      []string `mapstructure:"exclude_paths"`
}

// RendererConfig configures the headless browser.
type RendererConfig struct {
	ExecPath           string   `mapstructure:"exec_path"`
	FallbackPaths      []string `mapstructure:"fallback_paths"`
	UserAgent          string   `mapstructure:"user_agent"`
	IdleTimeoutSeconds int      `mapstructure:"idle_timeout_seconds"`
	DOMTimeoutSeconds  int      `mapstructure:"dom_timeout_seconds"`
	SettleDelayMs      int      `mapstructure:"settle_delay_ms"`
}

// SitemapConfig configures sitemap seeding.
type SitemapConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
	MaxURLs        int  `mapstructure:"max_urls"`
}

// WorkersConfig sizes the import worker pool.
type WorkersConfig struct {
	Concurrency       int `mapstructure:"concurrency"`
	QueueDepth        int `mapstructure:"queue_depth"`
	JobTimeoutSeconds int `mapstructure:"job_timeout_seconds"`
}

// OracleConfig selects the generative extraction backend.
type OracleConfig struct {
	Provider      string `mapstructure:"provider"`
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	BaseURL       string `mapstructure:"base_url"`
	MaxTokens     int    `mapstructure:"max_tokens"`
	MaxInputChars int    `mapstructure:"max_input_chars"`
}

// DBConfig selects where profiles and jobs are persisted.
type DBConfig struct {
	Driver                 string `mapstructure:"driver"`
	DSN                    string `mapstructure:"dsn"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeSeconds int    `mapstructure:"max_conn_lifetime_seconds"`
	Migrate                bool   `mapstructure:"migrate"`
}

// StorageConfig selects where rendered page snapshots are written.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds the chunk topic. An empty project keeps chunks in memory.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LocaleConfig overrides the built-in extractor vocabulary. Empty fields keep the defaults.
type LocaleConfig struct {
	CountryCode          string   `mapstructure:"country_code"`
	Cities               []string `mapstructure:"cities"`
	AddressLabels        []string `mapstructure:"address_labels"`
	LegalKeywords        []string `mapstructure:"legal_keywords"`
	JunkTokens           []string `mapstructure:"junk_tokens"`
	GenericIndustryWords []string `mapstructure:"generic_industry_words"`
	GenericAdjectives    []string `mapstructure:"generic_adjectives"`
	AddressThreshold     int      `mapstructure:"address_threshold"`
	GenericNameThreshold int      `mapstructure:"generic_name_threshold"`
	MaxLocations         int      `mapstructure:"max_locations"`
}

// Supported backend names.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	BackendNone   = "none"
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendGCS    = "gcs"

	OracleNone      = "none"
	OracleAnthropic = "anthropic"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("crawler.max_pages_default", 25)
	v.SetDefault("crawler.max_depth_default", 2)
	v.SetDefault("crawler.fan_out_cap", 50)
	v.SetDefault("crawler.queue_cap", 400)
	v.SetDefault("crawler.politeness_delay_ms", 500)
	v.SetDefault("crawler.chunk_size", 1000)
	v.SetDefault("crawler.chunk_overlap", 100)
	v.SetDefault("renderer.idle_timeout_seconds", 8)
	v.SetDefault("renderer.dom_timeout_seconds", 20)
	v.SetDefault("renderer.settle_delay_ms", 750)
	v.SetDefault("sitemap.enabled", true)
	v.SetDefault("sitemap.timeout_seconds", 15)
	v.SetDefault("sitemap.max_urls", 200)
	v.SetDefault("workers.concurrency", 2)
	v.SetDefault("workers.queue_depth", 64)
	v.SetDefault("workers.job_timeout_seconds", 600)
	v.SetDefault("oracle.provider", OracleNone)
	v.SetDefault("oracle.max_tokens", 2048)
	v.SetDefault("oracle.max_input_chars", 24000)
	v.SetDefault("db.driver", DriverMemory)
	v.SetDefault("db.migrate", true)
	v.SetDefault("storage.backend", BackendNone)
	v.SetDefault("storage.prefix", "pages")
	v.SetDefault("pubsub.topic_name", "page-chunks")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Workers.Concurrency <= 0 {
		return fmt.Errorf("workers.concurrency must be > 0")
	}
	if c.Crawler.MaxPagesDefault <= 0 || c.Crawler.MaxDepthDefault < 0 {
		return fmt.Errorf("crawler.max_pages_default must be > 0 and crawler.max_depth_default >= 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.DB.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for driver %q", c.DB.Driver)
		}
	default:
		return fmt.Errorf("unknown db.driver %q", c.DB.Driver)
	}
	switch c.Storage.Backend {
	case BackendNone, BackendMemory:
	case BackendLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir is required for the local backend")
		}
	case BackendGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	switch c.Oracle.Provider {
	case OracleNone:
	case OracleAnthropic:
		if c.Oracle.APIKey == "" {
			return fmt.Errorf("oracle.api_key must be set for the anthropic provider")
		}
	default:
		return fmt.Errorf("unknown oracle.provider %q", c.Oracle.Provider)
	}
	return nil
}

// JobTimeout bounds a single import.
func (c Config) JobTimeout() time.Duration {
	return time.Duration(c.Workers.JobTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful HTTP shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// Build returns the built-in locale with the configured overrides applied.
func (c LocaleConfig) Build() *locale.Locale {
	l := locale.Default()
	if c.CountryCode != "" {
		l.CountryCode = strings.TrimPrefix(c.CountryCode, "+")
	}
	if len(c.Cities) > 0 {
		l.Cities = c.Cities
	}
	if len(c.AddressLabels) > 0 {
		l.AddressLabels = c.AddressLabels
	}
	if len(c.LegalKeywords) > 0 {
		l.LegalKeywords = c.LegalKeywords
	}
	if len(c.JunkTokens) > 0 {
		l.JunkTokens = c.JunkTokens
	}
	if len(c.GenericIndustryWords) > 0 {
		l.GenericIndustryWords = c.GenericIndustryWords
	}
	if len(c.GenericAdjectives) > 0 {
		l.GenericAdjectives = c.GenericAdjectives
	}
	if c.AddressThreshold > 0 {
		l.AddressThreshold = c.AddressThreshold
	}
	if c.GenericNameThreshold > 0 {
		l.GenericNameThreshold = c.GenericNameThreshold
	}
	if c.MaxLocations > 0 {
		l.MaxLocations = c.MaxLocations
	}
	l.Compile()
	return l
}
