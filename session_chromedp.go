package pdfpages

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

const (
	windowWidth  = 1280
	windowHeight = 1024
)

// chromedpSession drives the viewer through the Chrome DevTools Protocol.
type chromedpSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	logger      arbor.ILogger

	mu     sync.Mutex
	closed bool
}

func openChromedpSession(ctx context.Context, cfg *extractorConfig) (Session, error) {
	bin, err := resolveBrowser(cfg.chromePath, cfg.autoDownload)
	if err != nil {
		return nil, err
	}

	headless := chromedp.Flag("headless", false)
	if cfg.headless != "" {
		headless = chromedp.Flag("headless", cfg.headless)
	}
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		headless,
		chromedp.WindowSize(windowWidth, windowHeight),
	)
	for _, f := range browserFlags {
		allocOpts = append(allocOpts, chromedp.Flag(f, true))
	}
	if cfg.noSandbox {
		for _, f := range sandboxFlags {
			allocOpts = append(allocOpts, chromedp.Flag(f, true))
		}
	}
	if bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(bin))
	}
	if cfg.userAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(cfg.userAgent))
	}

	logger := cfg.logger
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Trace().Msgf(format, args...)
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Trace().Msgf(format, args...)
		}),
	)

	// Start the browser eagerly so launch errors surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	logger.Debug().
		Str("driver", DriverChromedp).
		Str("exec_path", bin).
		Bool("no_sandbox", cfg.noSandbox).
		Msg("Browser started")

	return &chromedpSession{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

func (s *chromedpSession) Intercept(observe func(rawURL string)) error {
	chromedp.ListenTarget(s.tabCtx, func(ev any) {
		e, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		observe(e.Request.URL)

		// CDP commands must not be issued from the listener itself.
		go func() {
			c := chromedp.FromContext(s.tabCtx)
			execCtx := cdp.WithExecutor(s.tabCtx, c.Target)
			if err := fetch.ContinueRequest(e.RequestID).Do(execCtx); err != nil && s.tabCtx.Err() == nil {
				s.logger.Trace().
					Err(err).
					Str("url", e.Request.URL).
					Msg("Failed to continue request")
			}
		}()
	})

	if err := chromedp.Run(s.tabCtx, fetch.Enable()); err != nil {
		return fmt.Errorf("pdfpages: enabling request interception: %w", err)
	}
	return nil
}

func (s *chromedpSession) Navigate(url string) error {
	if err := chromedp.Run(s.tabCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %w", ErrNavigation, err)
	}
	return nil
}

func (s *chromedpSession) Scroll(deltaY float64) error {
	return chromedp.Run(s.tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, windowWidth/2, windowHeight/2).
			WithDeltaX(0).
			WithDeltaY(deltaY).
			Do(ctx)
	}))
}

func (s *chromedpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := chromedp.Cancel(s.tabCtx)
	s.tabCancel()
	s.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("pdfpages: closing browser: %w", err)
	}
	return nil
}
