package pdfpages

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultViewerOrigin is the origin that serves the hosted preview.
const DefaultViewerOrigin = "https://drive.google.com"

// handlePattern matches a document handle: 25 or more word characters
// or hyphens.
var handlePattern = regexp.MustCompile(`[-\w]{25,}`)

// ExtractHandle returns the document handle embedded in input, which may
// be a share link, a preview link or the bare handle.
//
// The first matching token wins. If none is found the returned error
// wraps [ErrInvalidHandle].
func ExtractHandle(input string) (string, error) {
	h := handlePattern.FindString(input)
	if h == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, input)
	}
	return h, nil
}

// PreviewURL returns the canonical viewer URL for handle. An empty
// origin selects [DefaultViewerOrigin].
func PreviewURL(origin, handle string) string {
	if origin == "" {
		origin = DefaultViewerOrigin
	}
	return strings.TrimRight(origin, "/") + "/file/d/" + handle + "/preview"
}
