package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/go-pdf-pages/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Skip config loading; version must work with a broken config.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pdfpages version %s\n", common.GetFullVersion())
	},
}
