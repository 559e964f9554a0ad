// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file and environment
// variables on top of defaults that reproduce the stock archiver behavior.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. BOXARCHIVER_ARCHIVE_INTERVAL=5s.
const EnvPrefix = "BOXARCHIVER"

// DefaultUserAgent is sent by every browser session unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

// InitConfig prepares v: it sets defaults, enables environment overrides and
// reads cfgFile, or the first "config" file found on the search path when
// cfgFile is empty. It returns the file used, if any. A missing file on the
// search path is not an error.
func InitConfig(v *viper.Viper, cfgFile string) (string, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/boxarchiver/")
		v.AddConfigPath("$HOME/.boxarchiver")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// SetDefaults registers every known key with its default.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("archive.base_url", "https://mery.jp")
	v.SetDefault("archive.page_size", 20)
	v.SetDefault("archive.interval", "15s")
	v.SetDefault("archive.harvest_concurrency", 3)
	v.SetDefault("archive.archive_concurrency", 1)
	v.SetDefault("archive.listing_timeout", "60s")
	v.SetDefault("archive.article_timeout", "200s")
	v.SetDefault("archive.dry_run", false)
	v.SetDefault("archive.extension", ".pdf")

	v.SetDefault("export.scale", 1.3)
	v.SetDefault("export.print_background", true)
	v.SetDefault("export.page_format", "A4")
	v.SetDefault("export.margin_left", "2cm")
	v.SetDefault("export.media", "screen")

	v.SetDefault("browser.backend", "chromedp")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_maximized", false)
	v.SetDefault("browser.user_agent", DefaultUserAgent)
	v.SetDefault("browser.exec_path", "")

	v.SetDefault("render.hide_siblings_of", []string{"#wrapper", "#column_content", "#article"})
	v.SetDefault("render.hide_following", ".articleArea")

	v.SetDefault("ratelimit.rps", 0.0)
	v.SetDefault("ratelimit.burst", 1)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.output_dir", ".")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.endpoint", "")

	v.SetDefault("catalog.dsn", "")
	v.SetDefault("catalog.table", "archived_articles")

	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.endpoint", "")
	v.SetDefault("pubsub.topic", "")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("progress.width", 0)

	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "warn")
}
