// Package app initializes and holds long-lived services for one archival
// run, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/boxarchiver/internal/archiver"
	chromedpbrowser "github.com/JakeFAU/boxarchiver/internal/browser/chromedp"
	collybrowser "github.com/JakeFAU/boxarchiver/internal/browser/colly"
	"github.com/JakeFAU/boxarchiver/internal/catalog/postgres"
	"github.com/JakeFAU/boxarchiver/internal/clock/system"
	"github.com/JakeFAU/boxarchiver/internal/config"
	"github.com/JakeFAU/boxarchiver/internal/hash/sha256"
	"github.com/JakeFAU/boxarchiver/internal/id/uuid"
	"github.com/JakeFAU/boxarchiver/internal/logging"
	"github.com/JakeFAU/boxarchiver/internal/metrics"
	"github.com/JakeFAU/boxarchiver/internal/policy/ratelimit"
	"github.com/JakeFAU/boxarchiver/internal/progress"
	pspublisher "github.com/JakeFAU/boxarchiver/internal/publisher/pubsub"
	"github.com/JakeFAU/boxarchiver/internal/storage/gcs"
	"github.com/JakeFAU/boxarchiver/internal/storage/local"
	"github.com/JakeFAU/boxarchiver/internal/storage/memory"
	pkgconfig "github.com/JakeFAU/boxarchiver/pkg/config"
)

// App holds the services a run needs.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	ids     *uuid.Generator
	store   archiver.ArtifactStore
	driver  *archiver.Driver
	closers []func(context.Context) error
}

// Options customize New. The zero value uses the configured backends.
type Options struct {
	// Pages and Renders replace the configured browser backends.
	Pages   archiver.SessionOpener
	Renders archiver.RenderOpener
}

// New loads configuration from cfgFile (or the default search path) and
// builds every service. Progress lines are written to out. It fails fast if
// any service cannot be initialized.
func New(ctx context.Context, cfgFile string, out io.Writer, opts Options) (_ *App, err error) {
	v := viper.New()
	used, err := pkgconfig.InitConfig(v, cfgFile)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if used != "" {
		logger.Info("using config file", zap.String("path", used))
	}

	a := &App{cfg: cfg, logger: logger, ids: uuid.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.store, err = a.buildStore(ctx); err != nil {
		return nil, err
	}
	renders, pages, err := a.buildOpeners(opts)
	if err != nil {
		return nil, err
	}
	catalog, err := a.buildCatalog(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := a.buildPublisher(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.startMetrics(); err != nil {
		return nil, err
	}

	reporter := progress.Multi{
		progress.NewConsole(out, cfg.Progress.Width),
		progress.NewLog(logger.Named("progress")),
	}
	deps := archiver.DriverDeps{
		Pages:    pages,
		Renders:  renders,
		Store:    a.store,
		Pauser:   archiver.TimerPauser{},
		Clock:    system.New(),
		Hasher:   sha256.New(),
		Reporter: reporter,
		Logger:   logger,
	}
	if catalog != nil {
		deps.Catalog = catalog
	}
	if publisher != nil {
		deps.Publisher = publisher
	}
	if a.driver, err = archiver.NewDriver(cfg.Archive, deps); err != nil {
		return nil, fmt.Errorf("build driver: %w", err)
	}
	return a, nil
}

func (a *App) buildStore(ctx context.Context) (archiver.ArtifactStore, error) {
	switch a.cfg.Storage.Backend {
	case config.StorageGCS:
		store, err := gcs.Dial(ctx, gcs.Config{
			Bucket:   a.cfg.Storage.Bucket,
			Prefix:   a.cfg.Storage.Prefix,
			Endpoint: a.cfg.Storage.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		a.logger.Info("using gcs storage", zap.String("bucket", a.cfg.Storage.Bucket))
		return store, nil
	case config.StorageMemory:
		a.logger.Info("using in-memory storage; artifacts are discarded on exit")
		return memory.NewBlobStore(), nil
	default:
		store, err := local.New(local.Config{Root: a.cfg.Storage.OutputDir})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.logger.Info("using local storage", zap.String("root", store.Root()))
		return store, nil
	}
}

func (a *App) buildOpeners(opts Options) (archiver.RenderOpener, archiver.SessionOpener, error) {
	renders := opts.Renders
	var chrome *chromedpbrowser.Opener
	if renders == nil || (opts.Pages == nil && a.cfg.Browser.Backend == config.BrowserChromedp) {
		var err error
		chrome, err = chromedpbrowser.New(chromedpbrowser.Config{
			Headless:        a.cfg.Browser.Headless,
			WindowMaximized: a.cfg.Browser.WindowMaximized,
			UserAgent:       a.cfg.Browser.UserAgent,
			ExecPath:        a.cfg.Browser.ExecPath,
			HideSiblingsOf:  a.cfg.Render.HideSiblingsOf,
			HideFollowing:   a.cfg.Render.HideFollowing,
		}, a.logger.Named("chromedp"))
		if err != nil {
			return nil, nil, fmt.Errorf("init browser: %w", err)
		}
	}
	if renders == nil {
		renders = chrome
	}

	pages := opts.Pages
	if pages == nil {
		switch a.cfg.Browser.Backend {
		case config.BrowserColly:
			pages = collybrowser.New(collybrowser.Config{UserAgent: a.cfg.Browser.UserAgent})
		default:
			pages = chrome
		}
	}

	if a.cfg.RateLimit.RPS > 0 {
		limiter := ratelimit.New(a.cfg.RateLimit)
		pages = ratelimit.Pages(pages, limiter)
		renders = ratelimit.Renders(renders, limiter)
		a.logger.Info("navigation rate limit enabled", zap.Float64("rps", a.cfg.RateLimit.RPS))
	}
	return renders, pages, nil
}

func (a *App) buildCatalog(ctx context.Context) (*postgres.Catalog, error) {
	if a.cfg.Catalog.DSN == "" {
		return nil, nil
	}
	catalog, err := postgres.New(ctx, postgres.Config{DSN: a.cfg.Catalog.DSN, Table: a.cfg.Catalog.Table}, a.ids)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error {
		catalog.Close()
		return nil
	})
	if err := catalog.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	a.logger.Info("recording artifacts in postgres", zap.String("table", a.cfg.Catalog.Table))
	return catalog, nil
}

func (a *App) buildPublisher(ctx context.Context) (*pspublisher.Publisher, error) {
	if a.cfg.PubSub.Topic == "" {
		return nil, nil
	}
	pub, err := pspublisher.Dial(ctx, pspublisher.Config{
		ProjectID: a.cfg.PubSub.ProjectID,
		Endpoint:  a.cfg.PubSub.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize publisher: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return pub.Close() })
	a.logger.Info("publishing artifact notifications", zap.String("topic", a.cfg.PubSub.Topic))
	return pub, nil
}

func (a *App) startMetrics() error {
	if a.cfg.Metrics.Addr == "" {
		return nil
	}
	metrics.Init()
	srv, err := metrics.Start(a.cfg.Metrics.Addr, a.logger.Named("metrics"))
	if err != nil {
		return err
	}
	a.closers = append(a.closers, srv.Shutdown)
	return nil
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Store returns the artifact store in use.
func (a *App) Store() archiver.ArtifactStore {
	return a.store
}

// Run archives box boxID under a fresh run id.
func (a *App) Run(ctx context.Context, boxID int64) error {
	runID, err := a.ids.NewID()
	if err != nil {
		return err
	}
	a.logger.Info("run starting", zap.String("run_id", runID), zap.Int64("box_id", boxID))
	if err := a.driver.Run(ctx, runID, boxID); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	return nil
}

// Close releases services in reverse order of creation.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown incomplete", zap.Error(err))
	}
	_ = a.logger.Sync()
}
