package main

import (
	"fmt"

	pdfpages "github.com/porticus-lab/go-pdf-pages"
	"github.com/porticus-lab/go-pdf-pages/internal/store"
)

// newExtractor builds the extractor and its cache from the loaded
// config. The returned cleanup clears the cache and releases its store.
func newExtractor() (*pdfpages.Extractor, func(), error) {
	opts := append(config.ExtractorOptions(), pdfpages.WithLogger(logger))

	var cleanup func()
	switch config.Cache.Backend {
	case "badger":
		cache, err := store.NewBadgerCache(logger, config.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pdfpages.WithCache(cache))
		cleanup = func() {
			if config.Cache.Path == "" {
				cache.Clear()
			}
			if err := cache.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close cache")
			}
		}
	case "none":
		opts = append(opts, pdfpages.WithCache(nil))
		cleanup = func() {}
	default:
		cache := pdfpages.NewMemoryCache()
		opts = append(opts, pdfpages.WithCache(cache))
		cleanup = cache.Clear
	}

	ext, err := pdfpages.NewExtractor(opts...)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	logger.Debug().
		Str("driver", config.Browser.Driver).
		Str("cache", config.Cache.Backend).
		Msg("Extractor ready")

	return ext, func() {
		ext.Close()
		cleanup()
	}, nil
}
