// Package config loads and validates archiver configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/JakeFAU/boxarchiver/internal/archiver"
	"github.com/JakeFAU/boxarchiver/internal/policy/ratelimit"
)

// Storage backends.
const (
	StorageLocal  = "local"
	StorageGCS    = "gcs"
	StorageMemory = "memory"
)

// Browser backends for box and listing pages. Articles always render in
// Chrome.
const (
	BrowserChromedp = "chromedp"
	BrowserColly    = "colly"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Archive   archiver.Config  `mapstructure:"-"`
	Browser   BrowserConfig    `mapstructure:"browser"`
	Render    RenderConfig     `mapstructure:"render"`
	RateLimit ratelimit.Config `mapstructure:"ratelimit"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Catalog   CatalogConfig    `mapstructure:"catalog"`
	PubSub    PubSubConfig     `mapstructure:"pubsub"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Progress  ProgressConfig   `mapstructure:"progress"`
	Logging   LoggingConfig    `mapstructure:"logging"`
}

// BrowserConfig controls how sessions are opened.
type BrowserConfig struct {
	Backend         string `mapstructure:"backend"`
	Headless        bool   `mapstructure:"headless"`
	WindowMaximized bool   `mapstructure:"window_maximized"`
	UserAgent       string `mapstructure:"user_agent"`
	ExecPath        string `mapstructure:"exec_path"`
}

// RenderConfig lists the selectors used to strip page chrome before export.
type RenderConfig struct {
	HideSiblingsOf []string `mapstructure:"hide_siblings_of"`
	HideFollowing  string   `mapstructure:"hide_following"`
}

// StorageConfig selects where the manifest and artifacts go.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	OutputDir string `mapstructure:"output_dir"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"`
}

// CatalogConfig enables the Postgres catalog when DSN is set.
type CatalogConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig enables one notification per stored artifact when Topic is set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Endpoint  string `mapstructure:"endpoint"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ProgressConfig tunes console output.
type ProgressConfig struct {
	Width int `mapstructure:"width"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from an initialized Viper instance.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	archive, err := archiver.LoadConfig(v)
	if err != nil {
		return Config{}, err
	}
	cfg.Archive = archive
	cfg.Browser.Backend = strings.ToLower(strings.TrimSpace(cfg.Browser.Backend))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Browser.Backend {
	case BrowserChromedp, BrowserColly:
	default:
		return fmt.Errorf("browser.backend must be %q or %q, got %q", BrowserChromedp, BrowserColly, c.Browser.Backend)
	}
	switch c.Storage.Backend {
	case StorageLocal:
		if strings.TrimSpace(c.Storage.OutputDir) == "" {
			return fmt.Errorf("storage.output_dir must be set for the local backend")
		}
	case StorageGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set for the gcs backend")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Catalog.DSN != "" && c.Catalog.Table == "" {
		return fmt.Errorf("catalog.table must be set when catalog.dsn is set")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is set")
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("ratelimit.rps must be >= 0")
	}
	if c.Progress.Width < 0 {
		return fmt.Errorf("progress.width must be >= 0")
	}
	return nil
}
