package pdfpages

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Fetcher downloads page images.
type Fetcher struct {
	client  *http.Client
	limit   int
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewFetcher returns a Fetcher. concurrency caps in-flight requests in
// [Fetcher.FetchAll] and perSecond caps request starts; zero disables
// either cap.
func NewFetcher(client *http.Client, concurrency int, perSecond float64, logger arbor.ILogger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return &Fetcher{
		client:  client,
		limit:   concurrency,
		limiter: limiter,
		logger:  logger,
	}
}

// Fetch returns the body of rawURL. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("pdfpages: building request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pdfpages: fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("pdfpages: fetching image: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pdfpages: reading image: %w", err)
	}
	return data, nil
}

// FetchAll downloads every reference concurrently and returns the
// buffers in the order of refs. Failed references are logged and left
// out, so the result may be shorter than refs.
func (f *Fetcher) FetchAll(ctx context.Context, refs []ImageRef) [][]byte {
	buffers := make([][]byte, len(refs))

	var g errgroup.Group
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}
	for i, ref := range refs {
		g.Go(func() error {
			data, err := f.Fetch(ctx, ref.URL)
			if err != nil {
				f.logger.Warn().
					Err(err).
					Int("page", ref.Page).
					Str("url", ref.URL).
					Msg("Failed to fetch image")
				return nil
			}
			buffers[i] = data
			return nil
		})
	}
	_ = g.Wait()

	out := buffers[:0]
	for _, b := range buffers {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}
