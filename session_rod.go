package pdfpages

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ternarybob/arbor"
)

// rodSession drives the viewer through go-rod. Hijacked requests are
// handled concurrently by rod, so observe may see them slightly out of
// issue order.
type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	logger   arbor.ILogger

	once     sync.Once
	closeErr error
}

func openRodSession(ctx context.Context, cfg *extractorConfig) (Session, error) {
	bin, err := resolveBrowser(cfg.chromePath, cfg.autoDownload)
	if err != nil {
		return nil, err
	}

	l := newRodLauncher(ctx, cfg, bin)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	browser := rod.New().Context(ctx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: connecting: %w", ErrLaunch, err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("%w: creating page: %w", ErrLaunch, err)
	}

	cfg.logger.Debug().
		Str("driver", DriverRod).
		Str("control_url", controlURL).
		Bool("no_sandbox", cfg.noSandbox).
		Msg("Browser started")

	return &rodSession{
		launcher: l,
		browser:  browser,
		page:     page,
		logger:   cfg.logger,
	}, nil
}

// newRodLauncher builds the launcher with the same switches as the
// chromedp backend.
func newRodLauncher(ctx context.Context, cfg *extractorConfig, bin string) *launcher.Launcher {
	l := launcher.New().
		Context(ctx).
		NoSandbox(cfg.noSandbox).
		Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", windowWidth, windowHeight))
	if cfg.headless != "" {
		l = l.Set(flags.Headless, cfg.headless)
	} else {
		l = l.Delete(flags.Headless)
	}
	for _, f := range browserFlags {
		l = l.Set(flags.Flag(f))
	}
	if cfg.noSandbox {
		l = l.Set(flags.Flag("disable-setuid-sandbox"))
	}
	if bin != "" {
		l = l.Bin(bin)
	}
	if cfg.userAgent != "" {
		l = l.Set(flags.Flag("user-agent"), cfg.userAgent)
	}
	return l
}

func (s *rodSession) Intercept(observe func(rawURL string)) error {
	router := s.page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		observe(h.Request.URL().String())
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return fmt.Errorf("pdfpages: enabling request interception: %w", err)
	}
	s.router = router
	go router.Run()
	return nil
}

func (s *rodSession) Navigate(url string) error {
	if err := s.page.Navigate(url); err != nil {
		return fmt.Errorf("%w: %w", ErrNavigation, err)
	}
	if err := s.page.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %w", ErrNavigation, err)
	}
	return nil
}

func (s *rodSession) Scroll(deltaY float64) error {
	// Wheel events go to the element under the pointer.
	if err := s.page.Mouse.MoveTo(proto.Point{X: windowWidth / 2, Y: windowHeight / 2}); err != nil {
		return err
	}
	return s.page.Mouse.Scroll(0, deltaY, 1)
}

func (s *rodSession) Close() error {
	s.once.Do(func() {
		if s.router != nil {
			if err := s.router.Stop(); err != nil {
				s.logger.Trace().Err(err).Msg("Failed to stop request router")
			}
		}
		if err := s.browser.Close(); err != nil {
			s.closeErr = fmt.Errorf("pdfpages: closing browser: %w", err)
		}
		s.launcher.Kill()
	})
	return s.closeErr
}
