package pdfpages

import (
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
)

// resolveBrowser returns the browser executable to launch.
//
// An explicit path wins. Otherwise the standard install locations are
// searched, and if nothing is found and autoDownload is set a compatible
// Chromium is downloaded and cached in ~/.cache/rod/browser (Unix) or
// %APPDATA%\rod\browser (Windows). An empty result lets the driver use
// its own lookup.
func resolveBrowser(path string, autoDownload bool) (string, error) {
	if path != "" {
		return path, nil
	}
	if found, ok := launcher.LookPath(); ok {
		return found, nil
	}
	if !autoDownload {
		return "", nil
	}
	bin, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("%w: downloading browser: %v", ErrLaunch, err)
	}
	return bin, nil
}
