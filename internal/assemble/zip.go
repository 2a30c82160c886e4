// Package assemble turns an ordered sequence of page images into the
// download formats: a ZIP archive and a rebuilt PDF.
package assemble

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zip"
)

// ErrNoPages is returned when there is nothing to assemble.
var ErrNoPages = errors.New("assemble: no pages")

// PageName returns the file name for the page at zero-based index i,
// with an extension matching its content. Unknown content is named .jpg.
func PageName(i int, data []byte) string {
	ext := mimetype.Detect(data).Extension()
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("page-%d%s", i+1, ext)
}

// WriteZip writes pages to w as a ZIP archive, one entry per page in
// order. Images are stored uncompressed since they already are.
func WriteZip(w io.Writer, pages [][]byte) error {
	if len(pages) == 0 {
		return ErrNoPages
	}

	zw := zip.NewWriter(w)
	now := time.Now()
	for i, p := range pages {
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     PageName(i, p),
			Method:   zip.Store,
			Modified: now,
		})
		if err != nil {
			return fmt.Errorf("assemble: adding page %d: %w", i+1, err)
		}
		if _, err := f.Write(p); err != nil {
			return fmt.Errorf("assemble: writing page %d: %w", i+1, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("assemble: finishing archive: %w", err)
	}
	return nil
}
