// Package extract pulls writer, listing and article fields out of rendered
// box and article pages.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Selectors for the box and article page layouts.
const (
	WriterNameXPath    = `//*[@id="topBar"]/ul/li[2]/a/span`
	ArticleCountXPath  = `//*[@id="column_content"]/section[1]/div[2]`
	ArticleInfoXPath   = `//*[@id="article"]/div[1]/p`
	ListingContainer   = `#column_content`
	ListingLinkSel     = `#column_content .box-article-list .article_list_text a`
	ArticleHeadingSel  = `h1`
	createdDateCapture = `作成：(.{10})`
)

var createdDatePattern = regexp.MustCompile(createdDateCapture)

// Sentinel errors returned by the extractors.
var (
	ErrElementNotFound = errors.New("element not found")
	ErrPatternMismatch = errors.New("pattern did not match")
	ErrMissingHref     = errors.New("anchor has no href")
	ErrNotANumber      = errors.New("count is not a number")
)

// Document is one parsed page. CSS lookups go through goquery and XPath
// lookups through htmlquery over the same node tree.
type Document struct {
	root *html.Node
	doc  *goquery.Document
}

// Parse parses raw HTML into a Document.
func Parse(raw string) (*Document, error) {
	root, err := htmlquery.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{
		root: root,
		doc:  goquery.NewDocumentFromNode(root),
	}, nil
}

// firstXPath returns the text of the first node matched by expr.
func (d *Document) firstXPath(expr string) (string, error) {
	node, err := htmlquery.Query(d.root, expr)
	if err != nil {
		return "", fmt.Errorf("xpath %q: %w", expr, err)
	}
	if node == nil {
		return "", fmt.Errorf("%w: %s", ErrElementNotFound, expr)
	}
	return htmlquery.InnerText(node), nil
}

// WriterName returns the writer's display name from a box page.
func (d *Document) WriterName() (string, error) {
	text, err := d.firstXPath(WriterNameXPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ArticleCount returns the number of articles shown in a box page header.
// The text carries a one-rune unit suffix (e.g. "45件") that is dropped.
func (d *Document) ArticleCount() (int, error) {
	text, err := d.firstXPath(ArticleCountXPath)
	if err != nil {
		return 0, err
	}
	return ParseCount(text)
}

// ParseCount trims text, drops its trailing unit rune and parses the rest.
func ParseCount(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: empty", ErrNotANumber)
	}
	_, size := utf8.DecodeLastRuneInString(text)
	digits := strings.TrimSpace(text[:len(text)-size])
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, text)
	}
	return n, nil
}

// ArticleLinks returns the raw href of every article link in a listing page,
// in document order. A page without the listing container is an error; a
// container with no links yields an empty slice.
func (d *Document) ArticleLinks() ([]string, error) {
	if d.doc.Find(ListingContainer).Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, ListingContainer)
	}
	anchors := d.doc.Find(ListingLinkSel)
	links := make([]string, 0, anchors.Length())
	var missing error
	anchors.EachWithBreak(func(i int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			missing = fmt.Errorf("%w: link %d", ErrMissingHref, i+1)
			return false
		}
		links = append(links, href)
		return true
	})
	if missing != nil {
		return nil, missing
	}
	return links, nil
}

// CreatedDate returns the 10-character creation date that follows the
// "作成：" label in the article info block.
func (d *Document) CreatedDate() (string, error) {
	text, err := d.firstXPath(ArticleInfoXPath)
	if err != nil {
		return "", err
	}
	m := createdDatePattern.FindStringSubmatch(text)
	if m == nil {
		return "", fmt.Errorf("%w: %s in %q", ErrPatternMismatch, createdDateCapture, strings.TrimSpace(text))
	}
	return m[1], nil
}

// Title returns the trimmed text of the first h1 in the page.
func (d *Document) Title() (string, error) {
	h1 := d.doc.Find(ArticleHeadingSel).First()
	if h1.Length() == 0 {
		return "", fmt.Errorf("%w: %s", ErrElementNotFound, ArticleHeadingSel)
	}
	return strings.TrimSpace(h1.Text()), nil
}
