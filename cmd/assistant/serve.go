package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/campus-assistant/internal/transport/chi"
	"github.com/kailas-cloud/campus-assistant/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, envName)
	if err != nil {
		return err
	}
	defer a.close()

	cfg, logger := a.cfg, a.logger
	logger.Info("Starting campus assistant API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", envName),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("text_provider", cfg.TextService.Provider),
	)

	if created, err := a.search.EnsureIndex(ctx, cfg.TextService.Dimensions); err != nil {
		logger.Warn("Question index check failed", zap.Error(err))
	} else if created {
		logger.Info("Created question index", zap.String("index", a.search.IndexName()))
	}

	// Warm the vocabulary; a failure here is retried lazily on the first query.
	if res, err := a.vocab.Refresh(ctx); err != nil {
		logger.Warn("Vocabulary warm-up failed", zap.Error(err))
	} else {
		logger.Info("Vocabulary loaded", zap.Int("tokens", res.Count))
	}

	server := chiTransport.NewServer(a.chat, a.vocab, a.budget, a.health, cfg.Auth.AdminKeyList(), logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
