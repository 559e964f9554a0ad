package archiver

import (
	"context"
	"io"
	"time"
)

// Session is one isolated browser (or HTTP) session. Close must be called on
// every exit path.
type Session interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// SessionOpener acquires isolated sessions for box and listing pages.
type SessionOpener interface {
	Open(ctx context.Context) (Session, error)
}

// Renderer is the narrow rendering capability used for article export.
type Renderer interface {
	HideNonContent(ctx context.Context) error
	ScrollToBottom(ctx context.Context, within time.Duration) error
	ExportFixed(ctx context.Context, opts ExportOptions) ([]byte, error)
}

// RenderSession is a session that can also render its page.
type RenderSession interface {
	Session
	Renderer
}

// RenderOpener acquires isolated render sessions for article pages.
type RenderOpener interface {
	OpenRender(ctx context.Context) (RenderSession, error)
}

// ArtifactStore persists the manifest and exported artifacts and returns a URI.
type ArtifactStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Catalog records archived artifacts. A nil Catalog disables recording.
type Catalog interface {
	RecordArtifact(ctx context.Context, record CatalogRecord) error
}

// Reporter prints user-facing progress lines.
type Reporter interface {
	RunStarted(writer Writer)
	PageStarted(page ListingPage)
	PageDone(page ListingPage, links int)
	ArchiveStarted(total int)
	ArticleStarted(ref ArticleReference)
	ArticleDone(artifact Artifact)
	Completed()
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Publisher announces archived artifacts on a topic and returns the
// message id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes a hex digest of exported artifact bytes.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Pauser waits out the fixed courtesy delay.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration) error
}

// CatalogRecord is one row written to the archive catalog.
type CatalogRecord struct {
	RunID       string
	WriterID    int64
	WriterName  string
	Index       int
	URL         string
	Title       string
	CreatedDate string
	URI         string
	Checksum    string
	ArchivedAt  time.Time
}
