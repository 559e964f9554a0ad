package archiver

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/boxarchiver/internal/batch"
	"github.com/JakeFAU/boxarchiver/internal/clock/system"
	"github.com/JakeFAU/boxarchiver/internal/extract"
	"github.com/JakeFAU/boxarchiver/internal/hash/sha256"
	"github.com/JakeFAU/boxarchiver/internal/metrics"
)

const pdfContentType = "application/pdf"

// Worker renders article pages and persists one artifact per article.
type Worker struct {
	cfg       Config
	opener    RenderOpener
	store     ArtifactStore
	catalog   Catalog
	pauser    Pauser
	clock     Clock
	hasher    Hasher
	publisher Publisher
	reporter  Reporter
	logger    *zap.Logger
}

// WorkerDeps groups the collaborators of a Worker.
type WorkerDeps struct {
	Opener    RenderOpener
	Store     ArtifactStore
	Catalog   Catalog
	Pauser    Pauser
	Clock     Clock
	Hasher    Hasher
	Publisher Publisher
	Reporter  Reporter
	Logger    *zap.Logger
}

// NewWorker constructs a Worker.
func NewWorker(cfg Config, deps WorkerDeps) *Worker {
	if deps.Pauser == nil {
		deps.Pauser = TimerPauser{}
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	if deps.Hasher == nil {
		deps.Hasher = sha256.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Worker{
		cfg:       cfg,
		opener:    deps.Opener,
		store:     deps.Store,
		catalog:   deps.Catalog,
		pauser:    deps.Pauser,
		clock:     deps.Clock,
		hasher:    deps.Hasher,
		publisher: deps.Publisher,
		reporter:  deps.Reporter,
		logger:    deps.Logger,
	}
}

// Job carries the values every article of one run shares.
type Job struct {
	RunID  string
	Writer Writer
	// Dir is the writer directory, relative to the storage root.
	Dir string
}

// ArchiveAll archives refs with at most cfg.ArchiveConcurrency articles in
// flight (one by default) and returns the artifacts in index order.
func (w *Worker) ArchiveAll(ctx context.Context, job Job, refs []ArticleReference) ([]Artifact, error) {
	start := time.Now()
	artifacts, err := batch.Map(ctx, refs, w.cfg.ArchiveConcurrency, func(ctx context.Context, ref ArticleReference) (Artifact, error) {
		return w.Archive(ctx, job, ref)
	})
	metrics.ObserveStage("archive", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("archive articles: %w", err)
	}
	return artifacts, nil
}

// Archive renders one article and stores it under the writer directory.
func (w *Worker) Archive(ctx context.Context, job Job, ref ArticleReference) (Artifact, error) {
	w.reporter.ArticleStarted(ref)
	logger := w.logger.With(zap.Int("index", ref.Index), zap.String("url", ref.URL))

	var artifact Artifact
	err := withSession(ctx, w.opener.OpenRender, logger, func(s RenderSession) error {
		var err error
		artifact, err = w.render(ctx, job, ref, s)
		return err
	})
	if err != nil {
		metrics.ObserveArticle("failed")
		logger.Error("archive failed", zap.Error(err))
		return Artifact{}, fmt.Errorf("article %d (%s): %w", ref.Index, ref.URL, err)
	}

	archivedAt := w.clock.Now()
	if err := w.record(ctx, job, artifact, archivedAt); err != nil {
		metrics.ObserveArticle("failed")
		return Artifact{}, fmt.Errorf("article %d (%s): %w", ref.Index, ref.URL, err)
	}
	if err := w.publish(ctx, job, artifact, archivedAt); err != nil {
		metrics.ObserveArticle("failed")
		return Artifact{}, fmt.Errorf("article %d (%s): %w", ref.Index, ref.URL, err)
	}

	metrics.ObserveArticle("succeeded")
	logger.Info("article archived", zap.String("path", artifact.Path), zap.String("uri", artifact.URI))
	w.reporter.ArticleDone(artifact)
	return artifact, nil
}

func (w *Worker) render(ctx context.Context, job Job, ref ArticleReference, s RenderSession) (Artifact, error) {
	if err := s.Navigate(ctx, ref.URL, w.cfg.ArticleTimeout); err != nil {
		return Artifact{}, fmt.Errorf("navigate: %w", err)
	}
	raw, err := s.HTML(ctx)
	if err != nil {
		return Artifact{}, fmt.Errorf("read article html: %w", err)
	}
	date, title, err := articleMetadata(raw)
	if err != nil {
		return Artifact{}, err
	}

	if err := s.HideNonContent(ctx); err != nil {
		return Artifact{}, fmt.Errorf("hide non-content: %w", err)
	}
	// The scroll runs during the pause below and forces lazy-loaded images
	// to materialize before export.
	if err := s.ScrollToBottom(ctx, w.cfg.Interval); err != nil {
		return Artifact{}, fmt.Errorf("scroll to bottom: %w", err)
	}
	if err := w.pauser.Pause(ctx, w.cfg.Interval); err != nil {
		return Artifact{}, err
	}

	artifact := Artifact{
		Reference:   ref,
		CreatedDate: date,
		Title:       title,
		Path:        path.Join(job.Dir, ArtifactFileName(date, title, w.cfg.Extension)),
	}
	if w.cfg.DryRun {
		return artifact, nil
	}

	data, err := s.ExportFixed(ctx, w.cfg.Export)
	if err != nil {
		return Artifact{}, fmt.Errorf("export: %w", err)
	}
	if artifact.Checksum, err = w.hasher.Hash(data); err != nil {
		return Artifact{}, fmt.Errorf("checksum: %w", err)
	}
	uri, err := w.store.PutObject(ctx, artifact.Path, pdfContentType, bytes.NewReader(data))
	if err != nil {
		return Artifact{}, fmt.Errorf("store artifact: %w", err)
	}
	artifact.URI = uri
	return artifact, nil
}

func (w *Worker) record(ctx context.Context, job Job, artifact Artifact, archivedAt time.Time) error {
	if w.catalog == nil || artifact.URI == "" {
		return nil
	}
	rec := CatalogRecord{
		RunID:       job.RunID,
		WriterID:    job.Writer.ID,
		WriterName:  job.Writer.Name,
		Index:       artifact.Reference.Index,
		URL:         artifact.Reference.URL,
		Title:       artifact.Title,
		CreatedDate: artifact.CreatedDate,
		URI:         artifact.URI,
		Checksum:    artifact.Checksum,
		ArchivedAt:  archivedAt,
	}
	if err := w.catalog.RecordArtifact(ctx, rec); err != nil {
		return fmt.Errorf("record artifact: %w", err)
	}
	return nil
}

func (w *Worker) publish(ctx context.Context, job Job, artifact Artifact, archivedAt time.Time) error {
	if w.cfg.Topic == "" || w.publisher == nil || artifact.URI == "" {
		return nil
	}
	payload := map[string]any{
		"run_id":       job.RunID,
		"box_id":       job.Writer.ID,
		"writer":       job.Writer.Name,
		"index":        artifact.Reference.Index,
		"url":          artifact.Reference.URL,
		"title":        artifact.Title,
		"created_date": artifact.CreatedDate,
		"artifact_uri": artifact.URI,
		"sha256":       artifact.Checksum,
		"timestamp":    archivedAt.Format(time.RFC3339),
	}
	id, err := w.publisher.Publish(ctx, w.cfg.Topic, payload)
	if err != nil {
		return fmt.Errorf("publish payload: %w", err)
	}
	w.logger.Debug("artifact published", zap.String("message_id", id), zap.String("uri", artifact.URI))
	return nil
}

func articleMetadata(raw string) (string, string, error) {
	doc, err := extract.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrMetadataNotFound, err)
	}
	date, err := doc.CreatedDate()
	if err != nil {
		return "", "", fmt.Errorf("%w: created date: %w", ErrMetadataNotFound, err)
	}
	title, err := doc.Title()
	if err != nil {
		return "", "", fmt.Errorf("%w: title: %w", ErrMetadataNotFound, err)
	}
	return date, title, nil
}
