package pdfpages

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
)

// extractorConfig holds internal configuration for an Extractor.
type extractorConfig struct {
	driver       string
	chromePath   string
	autoDownload bool
	noSandbox    bool
	headless     string // value of --headless; empty runs headed
	userAgent    string
	open         Opener

	viewerOrigin  string
	imagePattern  string
	threshold     int
	warmupDelay   time.Duration
	scrollDelta   float64
	settleDelay   time.Duration
	stableRounds  int
	maxScrolls    int
	strictCeiling bool
	httpClient    *http.Client
	fetchLimit    int
	fetchRate     float64
	cache         Cache
	logger        arbor.ILogger
}

func defaultConfig() extractorConfig {
	return extractorConfig{
		driver:       DriverChromedp,
		headless:     "new",
		viewerOrigin: DefaultViewerOrigin,
		imagePattern: DefaultImagePattern,
		threshold:    DefaultFirstPagesThreshold,
		warmupDelay:  3 * time.Second,
		scrollDelta:  DefaultScrollDelta,
		settleDelay:  DefaultSettleDelay,
		stableRounds: DefaultStableRounds,
		maxScrolls:   DefaultMaxScrolls,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		cache:        NewMemoryCache(),
		logger:       arbor.NewLogger(),
	}
}

// Option configures an [Extractor].
type Option func(*extractorConfig)

// WithBrowserDriver selects the browser automation backend,
// [DriverChromedp] (the default) or [DriverRod].
func WithBrowserDriver(name string) Option {
	return func(c *extractorConfig) {
		c.driver = name
	}
}

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *extractorConfig) {
		c.chromePath = path
	}
}

// WithAutoDownload downloads a compatible Chromium when none is found
// on the system.
func WithAutoDownload() Option {
	return func(c *extractorConfig) {
		c.autoDownload = true
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *extractorConfig) {
		c.noSandbox = true
	}
}

// WithHeadless toggles headless mode. Browsers run headless by default;
// passing false shows the browser window, which helps when debugging a
// viewer that does not load.
func WithHeadless(enabled bool) Option {
	return func(c *extractorConfig) {
		if enabled {
			c.headless = "new"
		} else {
			c.headless = ""
		}
	}
}

// WithUserAgent overrides the browser user agent.
func WithUserAgent(ua string) Option {
	return func(c *extractorConfig) {
		c.userAgent = ua
	}
}

// WithSessionOpener replaces the browser backend. It is mainly useful
// for tests that simulate the viewer.
func WithSessionOpener(open Opener) Option {
	return func(c *extractorConfig) {
		c.open = open
	}
}

// WithViewerOrigin sets the origin used to build preview URLs.
func WithViewerOrigin(origin string) Option {
	return func(c *extractorConfig) {
		c.viewerOrigin = origin
	}
}

// WithImagePattern overrides the regular expression that identifies
// page-image requests.
func WithImagePattern(pattern string) Option {
	return func(c *extractorConfig) {
		c.imagePattern = pattern
	}
}

// WithFirstPagesThreshold sets the page index below which only the
// first image per page is kept. Defaults to 3; zero keeps every image.
func WithFirstPagesThreshold(n int) Option {
	return func(c *extractorConfig) {
		if n >= 0 {
			c.threshold = n
		}
	}
}

// WithWarmupDelay sets how long the first navigation is left to settle
// before interception is armed. Defaults to 3 seconds.
func WithWarmupDelay(d time.Duration) Option {
	return func(c *extractorConfig) {
		c.warmupDelay = d
	}
}

// WithScroll tunes the scroll loop: wheel delta per step and the settle
// delay after each step. A non-positive delta or a negative settle delay
// keeps the default.
func WithScroll(deltaY float64, settle time.Duration) Option {
	return func(c *extractorConfig) {
		if deltaY > 0 {
			c.scrollDelta = deltaY
		}
		if settle >= 0 {
			c.settleDelay = settle
		}
	}
}

// WithStability sets how many unchanged observations in a row end the
// scroll loop, and the hard ceiling on scroll steps. Non-positive values
// keep the defaults of 5 and 200.
func WithStability(rounds, maxScrolls int) Option {
	return func(c *extractorConfig) {
		if rounds > 0 {
			c.stableRounds = rounds
		}
		if maxScrolls > 0 {
			c.maxScrolls = maxScrolls
		}
	}
}

// WithStrictCeiling makes reaching the scroll ceiling before the viewer
// settles an error ([ErrIncompleteExtraction]) instead of a partial
// success.
func WithStrictCeiling() Option {
	return func(c *extractorConfig) {
		c.strictCeiling = true
	}
}

// WithHTTPClient sets the client used to fetch page images.
func WithHTTPClient(client *http.Client) Option {
	return func(c *extractorConfig) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithFetchLimits bounds image fetching: at most concurrency requests in
// flight and at most perSecond requests started per second. Zero leaves
// the dimension unbounded, which is the default.
func WithFetchLimits(concurrency int, perSecond float64) Option {
	return func(c *extractorConfig) {
		c.fetchLimit = concurrency
		c.fetchRate = perSecond
	}
}

// WithCache sets the result cache. Passing nil disables caching.
func WithCache(cache Cache) Option {
	return func(c *extractorConfig) {
		c.cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(c *extractorConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}
