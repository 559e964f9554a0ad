package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/JakeFAU/boxarchiver/pkg/config"
)

func loadFile(t *testing.T, yaml string) (Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	v := viper.New()
	if _, err := pkgconfig.InitConfig(v, path); err != nil {
		t.Fatalf("InitConfig() error = %v", err)
	}
	return Load(v)
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := loadFile(t, "{}\n")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Archive.Interval != 15*time.Second || cfg.Archive.ArticleTimeout != 200*time.Second {
		t.Fatalf("unexpected archive timings: %+v", cfg.Archive)
	}
	if cfg.Browser.Backend != BrowserChromedp || !cfg.Browser.Headless {
		t.Fatalf("unexpected browser config: %+v", cfg.Browser)
	}
	if cfg.Storage.Backend != StorageLocal || cfg.Storage.OutputDir != "." {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
	if len(cfg.Render.HideSiblingsOf) != 3 || cfg.Render.HideFollowing != ".articleArea" {
		t.Fatalf("unexpected render config: %+v", cfg.Render)
	}
	if cfg.Catalog.DSN != "" || cfg.Catalog.Table != "archived_articles" {
		t.Fatalf("unexpected catalog config: %+v", cfg.Catalog)
	}
	if cfg.RateLimit.RPS != 0 || cfg.RateLimit.Burst != 1 {
		t.Fatalf("unexpected rate limit config: %+v", cfg.RateLimit)
	}
	if cfg.Logging.Development {
		t.Fatal("expected production logging by default")
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := loadFile(t, `
archive:
  interval: 1s
  dry_run: true
browser:
  backend: Colly
  headless: false
  window_maximized: true
storage:
  backend: gcs
  bucket: archive
  prefix: boxes
catalog:
  dsn: postgres://localhost/archive
pubsub:
  project_id: boxes
  topic: archived
metrics:
  addr: ":9090"
progress:
  width: 80
ratelimit:
  rps: 0.5
  burst: 2
logging:
  development: true
  level: debug
`)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Archive.Interval != time.Second || !cfg.Archive.DryRun {
		t.Fatalf("archive overrides not applied: %+v", cfg.Archive)
	}
	if cfg.Browser.Backend != BrowserColly || cfg.Browser.Headless || !cfg.Browser.WindowMaximized {
		t.Fatalf("browser overrides not applied: %+v", cfg.Browser)
	}
	if cfg.Storage.Bucket != "archive" || cfg.Storage.Prefix != "boxes" {
		t.Fatalf("storage overrides not applied: %+v", cfg.Storage)
	}
	if cfg.PubSub.Topic != "archived" || cfg.Archive.Topic != "archived" || cfg.PubSub.ProjectID != "boxes" {
		t.Fatalf("pubsub overrides not applied: %+v", cfg.PubSub)
	}
	if cfg.RateLimit.RPS != 0.5 || cfg.RateLimit.Burst != 2 {
		t.Fatalf("rate limit overrides not applied: %+v", cfg.RateLimit)
	}
	if cfg.Metrics.Addr != ":9090" || cfg.Progress.Width != 80 || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"unknown browser":  "browser:\n  backend: firefox\n",
		"unknown storage":  "storage:\n  backend: s3\n",
		"gcs needs bucket": "storage:\n  backend: gcs\n",
		"local needs dir":  "storage:\n  output_dir: \"\"\n",
		"catalog table":    "catalog:\n  dsn: postgres://x\n  table: \"\"\n",
		"negative width":   "progress:\n  width: -1\n",
		"negative rps":     "ratelimit:\n  rps: -1\n",
		"topic no project": "pubsub:\n  topic: archived\n",
		"archive invalid":  "archive:\n  harvest_concurrency: 0\n",
	}
	for name, yaml := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := loadFile(t, yaml); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}
