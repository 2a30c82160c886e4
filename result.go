package pdfpages

import (
	"encoding/base64"
	"io"
	"os"
	"path/filepath"

	"github.com/porticus-lab/go-pdf-pages/internal/assemble"
)

// Result holds the page images of one extracted document, in page
// order, and provides helpers for the common output formats.
//
// A Result is returned by every extraction method. The page buffers are
// shared with the cache and must not be modified.
type Result struct {
	handle   string
	pages    [][]byte
	stable   bool
	scrolls  int
	retained int
	cached   bool
}

// NewResult wraps already materialized pages, for example ones restored
// from a cache, in a Result.
func NewResult(handle string, pages [][]byte) *Result {
	return &Result{
		handle:   handle,
		pages:    pages,
		stable:   true,
		retained: len(pages),
	}
}

// Handle returns the document handle the result belongs to.
func (r *Result) Handle() string {
	return r.handle
}

// Pages returns the raw page images.
func (r *Result) Pages() [][]byte {
	return r.pages
}

// Page returns the image at index i, or nil if i is out of range.
func (r *Result) Page(i int) []byte {
	if i < 0 || i >= len(r.pages) {
		return nil
	}
	return r.pages[i]
}

// Len returns the number of page images.
func (r *Result) Len() int {
	return len(r.pages)
}

// Stable reports whether the viewer settled before the scroll ceiling.
// Cached results report true.
func (r *Result) Stable() bool {
	return r.stable
}

// Scrolls returns the number of scroll steps the extraction took.
func (r *Result) Scrolls() int {
	return r.scrolls
}

// Retained returns the number of distinct image references observed.
// It exceeds [Result.Len] when some fetches failed.
func (r *Result) Retained() int {
	return r.retained
}

// Cached reports whether the result was served from the cache.
func (r *Result) Cached() bool {
	return r.cached
}

// Base64 returns every page encoded as a standard base64 string
// (RFC 4648), suitable for data URLs in JSON payloads.
func (r *Result) Base64() []string {
	out := make([]string, len(r.pages))
	for i, p := range r.pages {
		out[i] = base64.StdEncoding.EncodeToString(p)
	}
	return out
}

// WriteZip writes a ZIP archive with one page-N entry per page, named
// with the extension of its image format (page-N.jpg for viewer JPEGs).
func (r *Result) WriteZip(w io.Writer) error {
	return assemble.WriteZip(w, r.pages)
}

// PDF rebuilds a PDF document with one page per image, each page sized
// to its image.
func (r *Result) PDF() ([]byte, error) {
	return assemble.BuildPDF(r.pages)
}

// WriteToDir writes every page to dir as page-N.<ext>, creating dir if
// needed.
func (r *Result) WriteToDir(dir string, perm os.FileMode) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, p := range r.pages {
		name := filepath.Join(dir, assemble.PageName(i, p))
		if err := os.WriteFile(name, p, perm); err != nil {
			return err
		}
	}
	return nil
}
