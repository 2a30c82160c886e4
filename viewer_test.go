package pdfpages

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testHandle = "ABCDEFGHIJKLMNOPQRSTUVWXY0123"

// testImagePattern matches the fake viewer's image endpoint on the
// loopback test server.
const testImagePattern = `/viewer2/prod-\d+/img`

// imageServer serves "img:<query>" for every page-image request.
// Paths listed in failing answer 404 and delays hold responses back.
type imageServer struct {
	*httptest.Server
	requests atomic.Int64

	mu      sync.Mutex
	failing map[string]bool
	delays  map[string]time.Duration
}

func newImageServer(t *testing.T) *imageServer {
	t.Helper()
	s := &imageServer{
		failing: make(map[string]bool),
		delays:  make(map[string]time.Duration),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.mu.Lock()
		fail := s.failing[r.URL.RawQuery]
		delay := s.delays[r.URL.RawQuery]
		s.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if fail {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "img:%s", r.URL.RawQuery)
	}))
	t.Cleanup(s.Close)
	return s
}

// imageURL returns a page-image locator for page with variant v.
func (s *imageServer) imageURL(page int, v string) string {
	return fmt.Sprintf("%s/viewer2/prod-01/img?id=%s&page=%d&v=%s", s.URL, testHandle, page, v)
}

// body is what the server answers for imageURL(page, v).
func body(page int, v string) string {
	return fmt.Sprintf("img:id=%s&page=%d&v=%s", testHandle, page, v)
}

func (s *imageServer) fail(page int, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[fmt.Sprintf("id=%s&page=%d&v=%s", testHandle, page, v)] = true
}

func (s *imageServer) delay(page int, v string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[fmt.Sprintf("id=%s&page=%d&v=%s", testHandle, page, v)] = d
}

// fakeViewer simulates the hosted viewer. Requests in onLoad fire on
// every navigation, but only reach the observer once interception is
// armed; perScroll[i] fires on the i-th scroll. With grow set, every
// scroll beyond perScroll requests one more new page.
type fakeViewer struct {
	onLoad    []string
	perScroll [][]string
	grow      func(i int) string

	launchErr error
	navErr    error
	// gate, if set, blocks the first scroll until closed.
	gate chan struct{}

	opened atomic.Int64
	closed atomic.Int64

	mu          sync.Mutex
	navigations int
	urls        []string
}

func (v *fakeViewer) open(ctx context.Context) (Session, error) {
	if v.launchErr != nil {
		return nil, v.launchErr
	}
	v.opened.Add(1)
	return &fakeSession{viewer: v}, nil
}

func (v *fakeViewer) navigated() ([]string, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.urls...), v.navigations
}

type fakeSession struct {
	viewer  *fakeViewer
	observe func(string)
	scrolls int
	closed  atomic.Bool
}

func (s *fakeSession) Intercept(observe func(rawURL string)) error {
	s.observe = observe
	return nil
}

func (s *fakeSession) fire(urls []string) {
	if s.observe == nil {
		return
	}
	for _, u := range urls {
		// Unrelated traffic is always present alongside page images.
		s.observe(strings.Replace(u, "/img?", "/meta?", 1))
		s.observe(u)
	}
}

func (s *fakeSession) Navigate(url string) error {
	v := s.viewer
	v.mu.Lock()
	v.navigations++
	v.urls = append(v.urls, url)
	v.mu.Unlock()

	if v.navErr != nil {
		return v.navErr
	}
	s.fire(v.onLoad)
	return nil
}

func (s *fakeSession) Scroll(deltaY float64) error {
	v := s.viewer
	if deltaY <= 0 {
		return errors.New("fake viewer: scroll without delta")
	}
	if s.scrolls == 0 && v.gate != nil {
		<-v.gate
	}
	if s.scrolls < len(v.perScroll) {
		s.fire(v.perScroll[s.scrolls])
	} else if v.grow != nil {
		s.fire([]string{v.grow(s.scrolls)})
	}
	s.scrolls++
	return nil
}

func (s *fakeSession) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.viewer.closed.Add(1)
	}
	return nil
}

// newTestExtractor returns an Extractor wired to viewer with delays
// removed so tests run quickly.
func newTestExtractor(t *testing.T, viewer *fakeViewer, opts ...Option) *Extractor {
	t.Helper()
	base := []Option{
		WithSessionOpener(viewer.open),
		WithImagePattern(testImagePattern),
		WithWarmupDelay(0),
		WithScroll(DefaultScrollDelta, 0),
	}
	e, err := NewExtractor(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}
