// Package sha256 verifies exported documents and computes the digest stored
// with each artifact.
package sha256

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	// ErrEmptyDocument is returned when the renderer produced no bytes.
	ErrEmptyDocument = errors.New("exported document is empty")
	// ErrNotPDF is returned when the exported bytes lack the PDF header.
	ErrNotPDF = errors.New("exported document is not a PDF")
)

var pdfMagic = []byte("%PDF")

// Hasher implements archiver.Hasher for PDF exports.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash checks that data looks like a PDF document and returns the lowercase
// hex digest of it. A truncated or blank print is rejected so it is never
// uploaded or catalogued.
func (*Hasher) Hash(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return "", ErrNotPDF
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
