package common

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	pdfpages "github.com/porticus-lab/go-pdf-pages"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Browser BrowserConfig `toml:"browser"`
	Viewer  ViewerConfig  `toml:"viewer"`
	Scroll  ScrollConfig  `toml:"scroll"`
	Fetch   FetchConfig   `toml:"fetch"`
	Cache   CacheConfig   `toml:"cache"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Port            int    `toml:"port" validate:"min=1,max=65535"`
	Host            string `toml:"host"`
	ShutdownTimeout string `toml:"shutdown_timeout" validate:"omitempty,duration"` // e.g. "10s"
}

// BrowserConfig selects and launches the headless browser
type BrowserConfig struct {
	Driver       string `toml:"driver" validate:"oneof=chromedp rod"`
	ChromePath   string `toml:"chrome_path"`   // Empty = look up on PATH
	AutoDownload bool   `toml:"auto_download"` // Download a browser when none is found
	NoSandbox    bool   `toml:"no_sandbox"`    // Required when running as root in containers
	UserAgent    string `toml:"user_agent"`
	Headful      bool   `toml:"headful"` // Show the browser window
}

// ViewerConfig describes the hosted document viewer
type ViewerConfig struct {
	Origin              string `toml:"origin" validate:"required,url"`
	ImagePattern        string `toml:"image_pattern"`
	FirstPagesThreshold int    `toml:"first_pages_threshold" validate:"min=0"`
	WarmupDelay         string `toml:"warmup_delay" validate:"omitempty,duration"`
}

// ScrollConfig tunes the scroll driver
type ScrollConfig struct {
	Delta         float64 `toml:"delta" validate:"gt=0"`
	SettleDelay   string  `toml:"settle_delay" validate:"omitempty,duration"`
	StableRounds  int     `toml:"stable_rounds" validate:"min=1"`
	MaxScrolls    int     `toml:"max_scrolls" validate:"min=1"`
	StrictCeiling bool    `toml:"strict_ceiling"` // Fail instead of returning a partial result
}

// FetchConfig bounds page image downloads
type FetchConfig struct {
	Concurrency   int     `toml:"concurrency" validate:"min=0"`     // 0 = unbounded
	RatePerSecond float64 `toml:"rate_per_second" validate:"min=0"` // 0 = unlimited
	Timeout       string  `toml:"timeout" validate:"omitempty,duration"`
}

// CacheConfig selects the result cache backend
type CacheConfig struct {
	Backend string `toml:"backend" validate:"oneof=memory badger none"`
	Path    string `toml:"path"` // Badger directory; empty = in-memory
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output     []string `toml:"output" validate:"dive,oneof=stdout console file"`
	TimeFormat string   `toml:"time_format"`
	File       string   `toml:"file"` // Log file path when "file" output is enabled
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			Host:            "",
			ShutdownTimeout: "10s",
		},
		Browser: BrowserConfig{
			Driver: pdfpages.DriverChromedp,
		},
		Viewer: ViewerConfig{
			Origin:              pdfpages.DefaultViewerOrigin,
			ImagePattern:        pdfpages.DefaultImagePattern,
			FirstPagesThreshold: pdfpages.DefaultFirstPagesThreshold,
			WarmupDelay:         "3s",
		},
		Scroll: ScrollConfig{
			Delta:        pdfpages.DefaultScrollDelta,
			SettleDelay:  pdfpages.DefaultSettleDelay.String(),
			StableRounds: pdfpages.DefaultStableRounds,
			MaxScrolls:   pdfpages.DefaultMaxScrolls,
		},
		Fetch: FetchConfig{
			Concurrency:   8,
			RatePerSecond: 0,
			Timeout:       "60s",
		},
		Cache: CacheConfig{
			Backend: "memory",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
			File:       "logs/pdfpages.log",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. CLI flags are applied afterwards by ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies PDFPAGES_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Server configuration
	if port := os.Getenv("PDFPAGES_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PDFPAGES_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Browser configuration
	if driver := os.Getenv("PDFPAGES_BROWSER_DRIVER"); driver != "" {
		config.Browser.Driver = driver
	}
	if chromePath := os.Getenv("PDFPAGES_CHROME_PATH"); chromePath != "" {
		config.Browser.ChromePath = chromePath
	}
	if autoDownload := os.Getenv("PDFPAGES_BROWSER_AUTO_DOWNLOAD"); autoDownload != "" {
		if ad, err := strconv.ParseBool(autoDownload); err == nil {
			config.Browser.AutoDownload = ad
		}
	}
	if noSandbox := os.Getenv("PDFPAGES_BROWSER_NO_SANDBOX"); noSandbox != "" {
		if ns, err := strconv.ParseBool(noSandbox); err == nil {
			config.Browser.NoSandbox = ns
		}
	}
	if headful := os.Getenv("PDFPAGES_BROWSER_HEADFUL"); headful != "" {
		if h, err := strconv.ParseBool(headful); err == nil {
			config.Browser.Headful = h
		}
	}
	if userAgent := os.Getenv("PDFPAGES_BROWSER_USER_AGENT"); userAgent != "" {
		config.Browser.UserAgent = userAgent
	}

	// Viewer configuration
	if origin := os.Getenv("PDFPAGES_VIEWER_ORIGIN"); origin != "" {
		config.Viewer.Origin = origin
	}
	if warmup := os.Getenv("PDFPAGES_VIEWER_WARMUP_DELAY"); warmup != "" {
		config.Viewer.WarmupDelay = warmup
	}

	// Scroll configuration
	if settle := os.Getenv("PDFPAGES_SCROLL_SETTLE_DELAY"); settle != "" {
		config.Scroll.SettleDelay = settle
	}
	if maxScrolls := os.Getenv("PDFPAGES_SCROLL_MAX_SCROLLS"); maxScrolls != "" {
		if ms, err := strconv.Atoi(maxScrolls); err == nil {
			config.Scroll.MaxScrolls = ms
		}
	}
	if strict := os.Getenv("PDFPAGES_SCROLL_STRICT_CEILING"); strict != "" {
		if sc, err := strconv.ParseBool(strict); err == nil {
			config.Scroll.StrictCeiling = sc
		}
	}

	// Fetch configuration
	if concurrency := os.Getenv("PDFPAGES_FETCH_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Fetch.Concurrency = c
		}
	}
	if rate := os.Getenv("PDFPAGES_FETCH_RATE_PER_SECOND"); rate != "" {
		if r, err := strconv.ParseFloat(rate, 64); err == nil {
			config.Fetch.RatePerSecond = r
		}
	}

	// Cache configuration
	if backend := os.Getenv("PDFPAGES_CACHE_BACKEND"); backend != "" {
		config.Cache.Backend = backend
	}
	if path := os.Getenv("PDFPAGES_CACHE_PATH"); path != "" {
		config.Cache.Path = path
	}

	// Logging configuration
	if level := os.Getenv("PDFPAGES_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PDFPAGES_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks field constraints using go-playground/validator.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("duration", validateDuration); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func validateDuration(fl validator.FieldLevel) bool {
	_, err := time.ParseDuration(fl.Field().String())
	return err == nil
}

// duration parses a validated duration string, falling back to def when empty.
func duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// ShutdownTimeout returns the graceful shutdown timeout for the server.
func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 10*time.Second)
}

// ExtractorOptions translates the configuration into extractor options.
// The logger and cache are owned by the caller.
func (c *Config) ExtractorOptions() []pdfpages.Option {
	opts := []pdfpages.Option{
		pdfpages.WithBrowserDriver(c.Browser.Driver),
		pdfpages.WithViewerOrigin(c.Viewer.Origin),
		pdfpages.WithImagePattern(c.Viewer.ImagePattern),
		pdfpages.WithFirstPagesThreshold(c.Viewer.FirstPagesThreshold),
		pdfpages.WithWarmupDelay(duration(c.Viewer.WarmupDelay, 3*time.Second)),
		pdfpages.WithScroll(c.Scroll.Delta, duration(c.Scroll.SettleDelay, pdfpages.DefaultSettleDelay)),
		pdfpages.WithStability(c.Scroll.StableRounds, c.Scroll.MaxScrolls),
		pdfpages.WithFetchLimits(c.Fetch.Concurrency, c.Fetch.RatePerSecond),
		pdfpages.WithHTTPClient(&http.Client{Timeout: duration(c.Fetch.Timeout, 60*time.Second)}),
	}
	if c.Browser.ChromePath != "" {
		opts = append(opts, pdfpages.WithChromePath(c.Browser.ChromePath))
	}
	if c.Browser.AutoDownload {
		opts = append(opts, pdfpages.WithAutoDownload())
	}
	if c.Browser.NoSandbox {
		opts = append(opts, pdfpages.WithNoSandbox())
	}
	if c.Browser.UserAgent != "" {
		opts = append(opts, pdfpages.WithUserAgent(c.Browser.UserAgent))
	}
	if c.Browser.Headful {
		opts = append(opts, pdfpages.WithHeadless(false))
	}
	if c.Scroll.StrictCeiling {
		opts = append(opts, pdfpages.WithStrictCeiling())
	}
	return opts
}
