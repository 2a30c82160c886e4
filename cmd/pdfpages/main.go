// pdfpages pulls the page images of a document shared through a hosted
// viewer and serves them as images, a ZIP archive or a rebuilt PDF.
//
// Usage:
//
//	pdfpages serve [--port N] [--host H]
//	pdfpages extract [--format zip|pdf|dir] [--out PATH] <url>
//	pdfpages version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/porticus-lab/go-pdf-pages/internal/common"
)

var (
	// Command-line flags
	configFiles []string // Multiple --config flags supported

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "pdfpages",
	Short:         "Extract page images from hosted document previews",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Startup sequence:
		// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
		// 2. Apply CLI overrides (per command)
		// 3. Validate and initialize logger
		var err error
		config, err = common.LoadFromFiles(configFiles...)
		if err != nil {
			return err
		}
		if err := applyCommandOverrides(cmd); err != nil {
			return err
		}
		if err := config.Validate(); err != nil {
			return err
		}
		logger = common.InitLogger(config)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil,
		"Configuration file path (can be specified multiple times, later files override earlier ones)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("driver", "", "Browser driver (chromedp, rod)")
	rootCmd.PersistentFlags().Bool("no-sandbox", false, "Disable the Chrome sandbox")

	rootCmd.AddCommand(serveCmd, extractCmd, versionCmd)
}

// applyCommandOverrides applies the persistent flags that were set
// explicitly; command flags have the highest priority.
func applyCommandOverrides(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		level, err := flags.GetString("log-level")
		if err != nil {
			return err
		}
		config.Logging.Level = level
	}
	if flags.Changed("driver") {
		driver, err := flags.GetString("driver")
		if err != nil {
			return err
		}
		config.Browser.Driver = driver
	}
	if flags.Changed("no-sandbox") {
		noSandbox, err := flags.GetBool("no-sandbox")
		if err != nil {
			return err
		}
		config.Browser.NoSandbox = noSandbox
	}
	if flags.Changed("port") || flags.Changed("host") {
		port, _ := flags.GetInt("port")
		host, _ := flags.GetString("host")
		common.ApplyFlagOverrides(config, port, host)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
