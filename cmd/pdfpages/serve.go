package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/go-pdf-pages/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the HTTP server exposing batch extraction, live SSE and WebSocket streams, and ZIP or PDF downloads.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Server port (overrides config)")
	serveCmd.Flags().String("host", "", "Server host (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ext, cleanup, err := newExtractor()
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(ext, config, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready")

	// Wait for interrupt signal or server failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		return err
	}
	return <-errCh
}
