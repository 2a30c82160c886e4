package pdfpages

import (
	"regexp"
	"strconv"
	"sync/atomic"
)

// DefaultImagePattern matches the viewer's internal page-image endpoint.
const DefaultImagePattern = `drive\.google\.com/viewer2/prod-\d+/img`

var pageParam = regexp.MustCompile(`page=(\d+)`)

// ImageRef is one observed page-image request.
type ImageRef struct {
	// URL is the request locator as issued by the viewer.
	URL string
	// Page is the zero-based page index parsed from the locator.
	Page int
	// Arrival is the order in which the classifier saw the request.
	Arrival int64
}

// Classifier decides which observed requests are page images.
// Classify may be called from multiple goroutines.
type Classifier struct {
	pattern *regexp.Regexp
	arrival atomic.Int64
}

// NewClassifier returns a Classifier for the given locator pattern.
// An empty pattern selects [DefaultImagePattern].
func NewClassifier(pattern string) (*Classifier, error) {
	if pattern == "" {
		pattern = DefaultImagePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Classifier{pattern: re}, nil
}

// Classify reports whether rawURL is a page-image request. Requests that
// match the endpoint but carry no page number are rejected.
func (c *Classifier) Classify(rawURL string) (ImageRef, bool) {
	if !c.pattern.MatchString(rawURL) {
		return ImageRef{}, false
	}
	page := parsePageIndex(rawURL)
	if page < 0 {
		return ImageRef{}, false
	}
	return ImageRef{
		URL:     rawURL,
		Page:    page,
		Arrival: c.arrival.Add(1),
	}, true
}

// parsePageIndex returns the value of the first page=N parameter, or -1.
func parsePageIndex(rawURL string) int {
	m := pageParam.FindStringSubmatch(rawURL)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}
