package pdfpages

import "errors"

// Sentinel errors returned by the library. Returned errors wrap these,
// so match them with [errors.Is].
var (
	// ErrClosed is returned when attempting to use a closed [Extractor].
	ErrClosed = errors.New("pdfpages: extractor is closed")

	// ErrInvalidHandle is returned when the input does not contain a
	// document handle.
	ErrInvalidHandle = errors.New("pdfpages: invalid link or file ID not found")

	// ErrLaunch is returned when the browser process cannot be started.
	ErrLaunch = errors.New("pdfpages: launching browser")

	// ErrNavigation is returned when the viewer page fails to load.
	ErrNavigation = errors.New("pdfpages: navigating to viewer")

	// ErrNoImagesFound is returned when the viewer finished loading
	// without yielding a single usable page image.
	ErrNoImagesFound = errors.New("pdfpages: no page images found, try increasing wait time")

	// ErrIncompleteExtraction is returned instead of a partial result
	// when [WithStrictCeiling] is set and the scroll ceiling is reached
	// before the viewer settles.
	ErrIncompleteExtraction = errors.New("pdfpages: viewer did not settle before scroll limit")
)
