package progress

import "github.com/JakeFAU/boxarchiver/internal/archiver"

// Multi forwards every milestone to each reporter in order.
type Multi []archiver.Reporter

// RunStarted implements archiver.Reporter.
func (m Multi) RunStarted(w archiver.Writer) {
	for _, r := range m {
		r.RunStarted(w)
	}
}

// PageStarted implements archiver.Reporter.
func (m Multi) PageStarted(p archiver.ListingPage) {
	for _, r := range m {
		r.PageStarted(p)
	}
}

// PageDone implements archiver.Reporter.
func (m Multi) PageDone(p archiver.ListingPage, links int) {
	for _, r := range m {
		r.PageDone(p, links)
	}
}

// ArchiveStarted implements archiver.Reporter.
func (m Multi) ArchiveStarted(total int) {
	for _, r := range m {
		r.ArchiveStarted(total)
	}
}

// ArticleStarted implements archiver.Reporter.
func (m Multi) ArticleStarted(ref archiver.ArticleReference) {
	for _, r := range m {
		r.ArticleStarted(ref)
	}
}

// ArticleDone implements archiver.Reporter.
func (m Multi) ArticleDone(a archiver.Artifact) {
	for _, r := range m {
		r.ArticleDone(a)
	}
}

// Completed implements archiver.Reporter.
func (m Multi) Completed() {
	for _, r := range m {
		r.Completed()
	}
}
