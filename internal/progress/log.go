package progress

import (
	"go.uber.org/zap"

	"github.com/JakeFAU/boxarchiver/internal/archiver"
)

// Log emits structured debug logs for every milestone.
type Log struct {
	logger *zap.Logger
}

// NewLog wires a Zap logger to the reporter interface.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// RunStarted logs the resolved writer.
func (l *Log) RunStarted(w archiver.Writer) {
	l.logger.Debug("progress: run started",
		zap.Int64("box_id", w.ID),
		zap.String("writer", w.Name),
		zap.Int("articles", w.ArticleCount),
	)
}

// PageStarted logs the start of a listing page fetch.
func (l *Log) PageStarted(p archiver.ListingPage) {
	l.logger.Debug("progress: page started", zap.Int("page", p.Order), zap.String("url", p.URL))
}

// PageDone logs a harvested listing page.
func (l *Log) PageDone(p archiver.ListingPage, links int) {
	l.logger.Debug("progress: page done", zap.Int("page", p.Order), zap.Int("links", links))
}

// ArchiveStarted logs the archival batch size.
func (l *Log) ArchiveStarted(total int) {
	l.logger.Debug("progress: archive started", zap.Int("articles", total))
}

// ArticleStarted logs the start of one article.
func (l *Log) ArticleStarted(ref archiver.ArticleReference) {
	l.logger.Debug("progress: article started", zap.Int("index", ref.Index), zap.String("url", ref.URL))
}

// ArticleDone logs one archived article.
func (l *Log) ArticleDone(a archiver.Artifact) {
	l.logger.Debug("progress: article done",
		zap.Int("index", a.Reference.Index),
		zap.String("title", a.Title),
		zap.String("created", a.CreatedDate),
		zap.String("path", a.Path),
	)
}

// Completed logs the end of the run.
func (l *Log) Completed() {
	l.logger.Debug("progress: completed")
}
