package archiver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/boxarchiver/internal/extract"
	"github.com/JakeFAU/boxarchiver/internal/metrics"
)

// ManifestName is the file holding the harvested URLs, one per line.
const ManifestName = "urls.csv"

const manifestContentType = "text/csv; charset=utf-8"

// IdentityHint is shown when the writer cannot be resolved.
const IdentityHint = "did you enter a user id? enter the number that follows mery.jp/boxes/"

// Driver sequences identity resolution, count resolution, planning,
// harvest and archival for one box.
type Driver struct {
	cfg       Config
	pages     SessionOpener
	harvester *Harvester
	worker    *Worker
	store     ArtifactStore
	reporter  Reporter
	logger    *zap.Logger
}

// DriverDeps groups the collaborators of a Driver.
type DriverDeps struct {
	Pages     SessionOpener
	Renders   RenderOpener
	Store     ArtifactStore
	Catalog   Catalog
	Pauser    Pauser
	Clock     Clock
	Hasher    Hasher
	Publisher Publisher
	Reporter  Reporter
	Logger    *zap.Logger
}

// NewDriver wires a Driver and its stages.
func NewDriver(cfg Config, deps DriverDeps) (*Driver, error) {
	switch {
	case deps.Pages == nil:
		return nil, errors.New("page session opener is required")
	case deps.Renders == nil:
		return nil, errors.New("render session opener is required")
	case deps.Store == nil:
		return nil, errors.New("artifact store is required")
	case deps.Reporter == nil:
		return nil, errors.New("progress reporter is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Driver{
		cfg:       cfg,
		pages:     deps.Pages,
		harvester: NewHarvester(cfg, deps.Pages, deps.Pauser, deps.Reporter, deps.Logger.Named("harvest")),
		worker: NewWorker(cfg, WorkerDeps{
			Opener:    deps.Renders,
			Store:     deps.Store,
			Catalog:   deps.Catalog,
			Pauser:    deps.Pauser,
			Clock:     deps.Clock,
			Hasher:    deps.Hasher,
			Publisher: deps.Publisher,
			Reporter:  deps.Reporter,
			Logger:    deps.Logger.Named("archive"),
		}),
		store:    deps.Store,
		reporter: deps.Reporter,
		logger:   deps.Logger.Named("driver"),
	}, nil
}

// Run archives every article of box boxID. Nothing is retried and nothing
// written before a failure is rolled back.
func (d *Driver) Run(ctx context.Context, runID string, boxID int64) error {
	logger := d.logger.With(zap.String("run_id", runID), zap.Int64("box_id", boxID))

	writer := Writer{ID: boxID}
	name, err := d.resolveName(ctx, boxID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Error(IdentityHint, zap.Error(err))
		}
		return err
	}
	writer.Name = name

	count, err := d.resolveCount(ctx, boxID)
	if err != nil {
		return err
	}
	writer.ArticleCount = count
	logger.Info("writer resolved", zap.String("writer", writer.Name), zap.Int("articles", writer.ArticleCount))
	d.reporter.RunStarted(writer)

	pages := PlanPages(d.cfg.BaseURL, writer, d.cfg.PageSize)
	logger.Debug("pages planned", zap.Int("pages", len(pages)))

	hrefs, err := d.harvester.Harvest(ctx, pages)
	if err != nil {
		return err
	}
	urls, err := ResolveArticleURLs(d.cfg.BaseURL, hrefs)
	if err != nil {
		return err
	}

	job := Job{RunID: runID, Writer: writer, Dir: WriterDir(writer.Name)}
	if err := d.writeManifest(ctx, job.Dir, urls); err != nil {
		return err
	}

	refs := BuildReferences(writer.Name, urls)
	d.reporter.ArchiveStarted(len(refs))
	artifacts, err := d.worker.ArchiveAll(ctx, job, refs)
	if err != nil {
		return err
	}

	logger.Info("run completed", zap.Int("artifacts", len(artifacts)))
	d.reporter.Completed()
	return nil
}

func (d *Driver) resolveName(ctx context.Context, boxID int64) (string, error) {
	doc, err := d.boxPage(ctx, boxID)
	if err != nil {
		return "", fmt.Errorf("resolve writer: %w", err)
	}
	name, err := doc.WriterName()
	if err != nil {
		return "", fmt.Errorf("%w: box %d: %w", ErrNotFound, boxID, err)
	}
	return name, nil
}

func (d *Driver) resolveCount(ctx context.Context, boxID int64) (int, error) {
	doc, err := d.boxPage(ctx, boxID)
	if err != nil {
		return 0, fmt.Errorf("resolve article count: %w", err)
	}
	count, err := doc.ArticleCount()
	if err != nil {
		return 0, fmt.Errorf("%w: box %d: %w", ErrInvalidCount, boxID, err)
	}
	return count, nil
}

// boxPage loads the box page in its own session.
func (d *Driver) boxPage(ctx context.Context, boxID int64) (*extract.Document, error) {
	var doc *extract.Document
	err := withSession(ctx, d.pages.Open, d.logger, func(s Session) error {
		if err := s.Navigate(ctx, BoxURL(d.cfg.BaseURL, boxID), d.cfg.ListingTimeout); err != nil {
			return fmt.Errorf("navigate: %w", err)
		}
		raw, err := s.HTML(ctx)
		if err != nil {
			return fmt.Errorf("read box html: %w", err)
		}
		doc, err = extract.Parse(raw)
		return err
	})
	return doc, err
}

func (d *Driver) writeManifest(ctx context.Context, dir string, urls []string) error {
	start := time.Now()
	manifest := path.Join(dir, ManifestName)
	uri, err := d.store.PutObject(ctx, manifest, manifestContentType, bytes.NewReader(Manifest(urls)))
	metrics.ObserveStage("manifest", time.Since(start))
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	d.logger.Info("manifest written", zap.String("uri", uri), zap.Int("urls", len(urls)))
	return nil
}

// Manifest renders urls one per line without a trailing newline.
func Manifest(urls []string) []byte {
	return []byte(strings.Join(urls, "\n"))
}

// ResolveArticleURLs turns harvested hrefs into absolute URLs against baseURL.
func ResolveArticleURLs(baseURL string, hrefs []string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	urls := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrLinkMissing, href, err)
		}
		urls = append(urls, base.ResolveReference(ref).String())
	}
	return urls, nil
}

// BuildReferences numbers urls from 1 in order.
func BuildReferences(writerName string, urls []string) []ArticleReference {
	refs := make([]ArticleReference, 0, len(urls))
	for i, u := range urls {
		refs = append(refs, ArticleReference{
			Index:      i + 1,
			URL:        u,
			WriterName: writerName,
		})
	}
	return refs
}
