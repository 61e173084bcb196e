// Command kunquatd serves the synthesis core's HTTP control surface:
// Handle lifecycle (new/set_data/get_data/validate/del) and Player
// control (reset/play/skip/fire/status) for every Player an embedder
// registers in-process. Grounded on the teacher's cmd/flowpbx/main.go
// (config load, slog setup, http.Server with graceful shutdown), trimmed
// of the TLS/ACME and HTTP-redirect branches — see DESIGN.md's dropped
// dependencies list.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kunquat-go/synthcore/internal/api"
	"github.com/kunquat-go/synthcore/internal/config"
	"github.com/kunquat-go/synthcore/internal/modstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(cfg.SlogHandler(os.Stdout))
	slog.SetDefault(logger)

	secret, err := jwtSecret(cfg)
	if err != nil {
		logger.Error("decoding jwt secret", "error", err)
		os.Exit(1)
	}

	logger.Info("starting kunquatd",
		"http_port", cfg.HTTPPort,
		"data_dir", cfg.DataDir,
		"audio_rate", cfg.AudioRate,
		"voice_count", cfg.VoiceCount,
	)

	store, err := modstore.Open(cfg.DataDir)
	if err != nil {
		logger.Error("opening module store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	players := api.NewPlayerRegistry()
	handler := api.NewServer(store, players, cfg, secret, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		logger.Error("http server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("kunquatd stopped")
}

// jwtSecret decodes the configured hex secret, or returns nil (auth
// disabled) when none is set. No secret is generated: one that only the
// process knows would make every client-issued token fail just as
// having no secret at all does.
func jwtSecret(cfg *config.Config) ([]byte, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	secret, err := hex.DecodeString(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("jwt-secret must be hex-encoded: %w", err)
	}
	return secret, nil
}
