package archiver

import "errors"

var (
	// ErrNotFound means the writer identity element is absent from the box page.
	ErrNotFound = errors.New("writer not found")
	// ErrInvalidCount means the article count could not be read.
	ErrInvalidCount = errors.New("article count unreadable")
	// ErrListingNotFound means a listing page does not have the expected structure.
	ErrListingNotFound = errors.New("listing not found")
	// ErrLinkMissing means an article anchor carried no href.
	ErrLinkMissing = errors.New("article link missing")
	// ErrMetadataNotFound means the creation date or title could not be extracted.
	ErrMetadataNotFound = errors.New("article metadata not found")
)
