package pdfpages

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Extractor pulls page images out of the hosted document viewer.
//
// Each extraction launches its own browser, so an Extractor is safe for
// concurrent use. Concurrent batch extractions of the same document
// share one browser run, which lasts as long as at least one of its
// callers is still waiting. Successful results are kept in the configured
// [Cache] and served from it on later calls.
//
// Call [Extractor.Close] when the Extractor is no longer needed.
type Extractor struct {
	cfg     extractorConfig
	open    Opener
	fetcher *Fetcher
	flight  singleflight.Group

	runsMu sync.Mutex
	runs   map[string]*sharedRun

	mu     sync.Mutex
	closed bool
}

// sharedRun is the context of one batch extraction shared by every
// caller waiting on the same handle. It is cancelled when the last
// waiter leaves.
type sharedRun struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewExtractor creates an Extractor with the given options.
func NewExtractor(opts ...Option) (*Extractor, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.driver != DriverChromedp && cfg.driver != DriverRod {
		return nil, fmt.Errorf("pdfpages: unknown browser driver %q", cfg.driver)
	}
	if _, err := regexp.Compile(cfg.imagePattern); err != nil {
		return nil, fmt.Errorf("pdfpages: invalid image pattern: %w", err)
	}

	return &Extractor{
		cfg:     cfg,
		open:    cfg.opener(),
		fetcher: NewFetcher(cfg.httpClient, cfg.fetchLimit, cfg.fetchRate, cfg.logger),
		runs:    make(map[string]*sharedRun),
	}, nil
}

// Close marks the Extractor as closed. Browsers are owned by individual
// extractions and are already gone once they return. Close is
// idempotent and does not clear the cache.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Extract returns the page images of the document referenced by input,
// which may be any link containing the document handle.
//
// The viewer is scrolled until it stops requesting new pages, then every
// observed page image is downloaded. Images that fail to download are
// skipped. The returned error wraps one of the package sentinel errors.
func (e *Extractor) Extract(ctx context.Context, input string) (*Result, error) {
	if err := e.checkClosed(); err != nil {
		return nil, err
	}
	handle, err := ExtractHandle(input)
	if err != nil {
		return nil, err
	}
	logger := e.cfg.logger

	if res, ok := e.cached(handle); ok {
		logger.Info().
			Str("handle", handle).
			Int("pages", res.Len()).
			Msg("Using cached images")
		return res, nil
	}

	runCtx, leave := e.join(ctx, handle)
	ch := e.flight.DoChan(handle, func() (any, error) {
		return e.extract(runCtx, handle)
	})

	select {
	case r := <-ch:
		leave()
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			logger.Debug().Str("handle", handle).Msg("Joined in-flight extraction")
		}
		return r.Val.(*Result), nil
	case <-ctx.Done():
		if leave() {
			// Nobody else is waiting: the run is aborted, wait for its
			// browser to go away.
			<-ch
		}
		return nil, ctx.Err()
	}
}

// join registers the caller as a waiter on the shared run for handle
// and returns the run's context. The returned leave func reports whether
// the caller was the last waiter, in which case the run is cancelled and
// later callers start a fresh one.
func (e *Extractor) join(ctx context.Context, handle string) (context.Context, func() bool) {
	e.runsMu.Lock()
	defer e.runsMu.Unlock()

	run, ok := e.runs[handle]
	if !ok {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		run = &sharedRun{ctx: runCtx, cancel: cancel}
		e.runs[handle] = run
	}
	run.waiters++

	var (
		once sync.Once
		last bool
	)
	return run.ctx, func() bool {
		once.Do(func() {
			e.runsMu.Lock()
			defer e.runsMu.Unlock()
			run.waiters--
			if run.waiters > 0 {
				return
			}
			last = true
			run.cancel()
			if e.runs[handle] == run {
				delete(e.runs, handle)
				e.flight.Forget(handle)
			}
		})
		return last
	}
}

func (e *Extractor) extract(ctx context.Context, handle string) (*Result, error) {
	logger := e.cfg.logger
	start := time.Now()

	classifier, err := NewClassifier(e.cfg.imagePattern)
	if err != nil {
		return nil, err
	}
	set := NewPageSet(e.cfg.threshold)

	observe := func(rawURL string) {
		ref, ok := classifier.Classify(rawURL)
		if !ok {
			return
		}
		if set.Offer(ref) != Rejected {
			logger.Trace().
				Int("page", ref.Page).
				Str("url", ref.URL).
				Msg("Storing image")
		}
	}

	outcome, err := e.observe(ctx, handle, observe, set.Len)
	if err != nil {
		return nil, err
	}

	refs := set.Unique()
	if len(refs) == 0 {
		return nil, ErrNoImagesFound
	}
	if outcome.State != Stable && e.cfg.strictCeiling {
		return nil, fmt.Errorf("%w: %d images after %d scrolls", ErrIncompleteExtraction, len(refs), outcome.Scrolls)
	}
	logger.Info().
		Str("handle", handle).
		Int("unique", len(refs)).
		Int("captured", set.Len()).
		Msg("Unique image URLs found")

	pages := e.fetcher.FetchAll(ctx, refs)
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: all %d image fetches failed", ErrNoImagesFound, len(refs))
	}

	res := &Result{
		handle:   handle,
		pages:    pages,
		stable:   outcome.State == Stable,
		scrolls:  outcome.Scrolls,
		retained: len(refs),
	}
	e.store(res)

	logger.Info().
		Str("handle", handle).
		Int("pages", len(pages)).
		Int("failed", len(refs)-len(pages)).
		Bool("stable", res.stable).
		Dur("elapsed", time.Since(start)).
		Msg("Extraction complete")
	return res, nil
}

// observe opens the viewer for handle, arms interception, and scrolls
// until the driver stops. The session is closed before observe returns.
func (e *Extractor) observe(ctx context.Context, handle string, onRequest func(string), count func() int) (Outcome, error) {
	logger := e.cfg.logger
	previewURL := PreviewURL(e.cfg.viewerOrigin, handle)

	logger.Debug().Str("driver", e.cfg.driver).Msg("Launching browser")
	sess, err := e.open(ctx)
	if err != nil {
		if !errors.Is(err, ErrLaunch) {
			err = fmt.Errorf("%w: %w", ErrLaunch, err)
		}
		return Outcome{}, err
	}
	defer func() {
		logger.Debug().Str("handle", handle).Msg("Closing browser")
		if err := sess.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close browser")
		}
	}()

	// The first load warms the viewer up; interception is armed before
	// the second so the page-image requests of the reload are all seen.
	logger.Info().Str("url", previewURL).Msg("Opening viewer")
	if err := navigate(sess, previewURL); err != nil {
		return Outcome{}, err
	}
	if err := sleep(ctx, e.cfg.warmupDelay); err != nil {
		return Outcome{}, err
	}
	if err := sess.Intercept(onRequest); err != nil {
		return Outcome{}, err
	}
	logger.Debug().Str("url", previewURL).Msg("Reloading viewer with interception armed")
	if err := navigate(sess, previewURL); err != nil {
		return Outcome{}, err
	}

	driver := &Driver{
		ScrollDelta:  e.cfg.scrollDelta,
		SettleDelay:  e.cfg.settleDelay,
		StableRounds: e.cfg.stableRounds,
		MaxScrolls:   e.cfg.maxScrolls,
		OnScroll: func(iteration, captured, stable int) {
			logger.Debug().
				Int("scroll", iteration).
				Int("captured", captured).
				Int("stable", stable).
				Msg("Scrolling")
		},
	}
	outcome, err := driver.Run(ctx, sess.Scroll, count)
	if err != nil {
		return outcome, fmt.Errorf("pdfpages: scrolling viewer: %w", err)
	}
	if outcome.State == Stable {
		logger.Debug().Int("scrolls", outcome.Scrolls).Msg("No new images detected, stopping scroll")
	} else {
		logger.Warn().Int("scrolls", outcome.Scrolls).Msg("Scroll limit reached before viewer settled")
	}
	return outcome, nil
}

func navigate(sess Session, url string) error {
	if err := sess.Navigate(url); err != nil {
		if !errors.Is(err, ErrNavigation) {
			err = fmt.Errorf("%w: %w", ErrNavigation, err)
		}
		return err
	}
	return nil
}

func (e *Extractor) cached(handle string) (*Result, bool) {
	if e.cfg.cache == nil {
		return nil, false
	}
	pages, ok := e.cfg.cache.Get(handle)
	if !ok {
		return nil, false
	}
	return &Result{
		handle:   handle,
		pages:    pages,
		stable:   true,
		retained: len(pages),
		cached:   true,
	}, true
}

func (e *Extractor) store(res *Result) {
	if e.cfg.cache == nil {
		return
	}
	e.cfg.cache.Put(res.handle, res.pages)
	e.cfg.logger.Debug().
		Str("handle", res.handle).
		Int("pages", res.Len()).
		Msg("Stored images in cache")
}

func (e *Extractor) checkClosed() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return nil
}

// --- Package-level convenience functions ---

// Extract pulls page images using a temporary [Extractor] with no cache.
// For repeated use, create an [Extractor] with [NewExtractor] so results
// are cached.
func Extract(ctx context.Context, input string, opts ...Option) (*Result, error) {
	ext, err := NewExtractor(append(opts, WithCache(nil))...)
	if err != nil {
		return nil, err
	}
	defer ext.Close()
	return ext.Extract(ctx, input)
}
