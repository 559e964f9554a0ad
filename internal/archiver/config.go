package archiver

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ExportOptions controls the fixed-format export of one article.
type ExportOptions struct {
	Scale           float64
	PrintBackground bool
	PageFormat      string
	MarginLeft      string
	Media           string
}

// Config captures every knob that influences an archival run. Values come
// from Viper so they can be set via file, env or defaults.
type Config struct {
	BaseURL            string
	PageSize           int
	Interval           time.Duration
	HarvestConcurrency int
	ArchiveConcurrency int
	ListingTimeout     time.Duration
	ArticleTimeout     time.Duration
	DryRun             bool
	Extension          string
	Export             ExportOptions
	// Topic receives one message per stored artifact when set.
	Topic string
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		BaseURL:            strings.TrimRight(v.GetString("archive.base_url"), "/"),
		PageSize:           v.GetInt("archive.page_size"),
		Interval:           v.GetDuration("archive.interval"),
		HarvestConcurrency: v.GetInt("archive.harvest_concurrency"),
		ArchiveConcurrency: v.GetInt("archive.archive_concurrency"),
		ListingTimeout:     v.GetDuration("archive.listing_timeout"),
		ArticleTimeout:     v.GetDuration("archive.article_timeout"),
		DryRun:             v.GetBool("archive.dry_run"),
		Extension:          v.GetString("archive.extension"),
		Export: ExportOptions{
			Scale:           v.GetFloat64("export.scale"),
			PrintBackground: v.GetBool("export.print_background"),
			PageFormat:      v.GetString("export.page_format"),
			MarginLeft:      v.GetString("export.margin_left"),
			Media:           v.GetString("export.media"),
		},
		Topic: v.GetString("pubsub.topic"),
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("archive.base_url must be an absolute URL, got %q", c.BaseURL)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("archive.page_size must be > 0")
	}
	if c.Interval < 0 {
		return fmt.Errorf("archive.interval must be >= 0")
	}
	if c.HarvestConcurrency < 1 {
		return fmt.Errorf("archive.harvest_concurrency must be >= 1")
	}
	if c.ArchiveConcurrency < 1 {
		return fmt.Errorf("archive.archive_concurrency must be >= 1")
	}
	if c.ListingTimeout <= 0 {
		return fmt.Errorf("archive.listing_timeout must be > 0")
	}
	if c.ArticleTimeout <= 0 {
		return fmt.Errorf("archive.article_timeout must be > 0")
	}
	if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
		return fmt.Errorf("archive.extension must look like .pdf, got %q", c.Extension)
	}
	if c.Export.Scale < 0.1 || c.Export.Scale > 2 {
		return fmt.Errorf("export.scale must be within [0.1, 2]")
	}
	if strings.TrimSpace(c.Export.PageFormat) == "" {
		return fmt.Errorf("export.page_format must be set")
	}
	return nil
}
