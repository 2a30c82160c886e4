package pdfpages

import "context"

// Session is one browser process with a single page, held for the
// duration of an extraction.
//
// A Session is bound to the context it was opened with; cancelling that
// context aborts any call in progress.
type Session interface {
	// Intercept arms request observation. observe is called once for
	// every outgoing request, in issue order. Requests always proceed.
	Intercept(observe func(rawURL string)) error

	// Navigate loads url and waits for the page load event. There is no
	// navigation timeout.
	Navigate(url string) error

	// Scroll dispatches one synthetic mouse-wheel event.
	Scroll(deltaY float64) error

	// Close terminates the browser process. It is idempotent.
	Close() error
}

// Opener starts a new [Session].
type Opener func(ctx context.Context) (Session, error)

// Driver names accepted by [WithBrowserDriver].
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

// browserFlags are the launch switches for a restricted, sandboxless,
// GPU-less browser suitable for containers.
var browserFlags = []string{
	"disable-gpu",
	"disable-dev-shm-usage",
	"disable-extensions",
	"disable-background-networking",
	"disable-sync",
	"disable-translate",
	"no-first-run",
	"no-zygote",
}

// sandboxFlags are added when the sandbox is disabled.
var sandboxFlags = []string{
	"no-sandbox",
	"disable-setuid-sandbox",
}

func (c *extractorConfig) opener() Opener {
	if c.open != nil {
		return c.open
	}
	if c.driver == DriverRod {
		return func(ctx context.Context) (Session, error) {
			return openRodSession(ctx, c)
		}
	}
	return func(ctx context.Context) (Session, error) {
		return openChromedpSession(ctx, c)
	}
}
