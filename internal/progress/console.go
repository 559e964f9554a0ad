package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/mattn/go-runewidth"

	"github.com/JakeFAU/boxarchiver/internal/archiver"
)

const ellipsis = "…"

// Console prints one line per milestone. Lines from concurrent pages are
// written atomically but may interleave in any order.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	width int
}

// NewConsole writes to out. When width is positive, artifact paths longer
// than width terminal columns are truncated; CJK runes count as two columns.
func NewConsole(out io.Writer, width int) *Console {
	return &Console{out: out, width: width}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A broken terminal must not fail the run.
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// RunStarted prints the target summary.
func (c *Console) RunStarted(w archiver.Writer) {
	c.printf("Target: %s, %d articles\n", w.Name, w.ArticleCount)
}

// PageStarted prints the line shown before a listing page is fetched.
func (c *Console) PageStarted(p archiver.ListingPage) {
	c.printf("Fetching article URLs on page %d...\n", p.Order)
}

// PageDone prints the line shown after a listing page is fetched.
func (c *Console) PageDone(p archiver.ListingPage, _ int) {
	c.printf("Fetched article URLs on page %d\n", p.Order)
}

// ArchiveStarted prints how many articles will be archived.
func (c *Console) ArchiveStarted(total int) {
	c.printf("Archiving %d pages\n", total)
}

// ArticleStarted prints the reference without a newline so the resulting
// path lands on the same line.
func (c *Console) ArticleStarted(ref archiver.ArticleReference) {
	c.printf("%s ", ref)
}

// ArticleDone finishes the line opened by ArticleStarted.
func (c *Console) ArticleDone(a archiver.Artifact) {
	c.printf("-> %s\n", c.fit(a.Path))
}

// Completed prints the completion marker.
func (c *Console) Completed() {
	c.printf("COMPLETE!\n")
}

func (c *Console) fit(s string) string {
	if c.width <= 0 || runewidth.StringWidth(s) <= c.width {
		return s
	}
	return runewidth.Truncate(s, c.width, ellipsis)
}
