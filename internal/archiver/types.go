package archiver

import (
	"fmt"
	"strings"
)

// Writer is the owner of a box. It is resolved once and never mutated.
type Writer struct {
	ID           int64
	Name         string
	ArticleCount int
}

// ListingPage is one page of the paginated article table.
type ListingPage struct {
	Order int
	URL   string
}

// ArticleReference points at one harvested article. Index is 1-based and
// follows the flattened harvest order.
type ArticleReference struct {
	Index      int
	URL        string
	WriterName string
}

// String renders the reference as "__12 https://..." with the index
// right-aligned to four columns.
func (r ArticleReference) String() string {
	return fmt.Sprintf("%s %s", padIndex(r.Index, 4), r.URL)
}

func padIndex(index, width int) string {
	s := fmt.Sprint(index)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("_", width-len(s)) + s
}

// Artifact describes one archived article.
type Artifact struct {
	Reference   ArticleReference
	CreatedDate string
	Title       string
	// Path is relative to the storage root: "{writerDir}/{file}".
	Path string
	// URI is what the artifact store returned; empty on dry runs.
	URI string
	// Checksum is the hex SHA-256 of the stored bytes; empty on dry runs.
	Checksum string
}
