package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/corvino/widgetchat/internal/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type serverConfig struct {
	port       int
	maxHistory int
	logFormat  string
	logLevel   string
}

func main() {
	// A missing .env is fine; the environment and flags still apply.
	_ = godotenv.Load()

	if err := newServerCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newServerCmd() *cobra.Command {
	var cfg serverConfig
	cmd := &cobra.Command{
		Use:           "widgetchat-server",
		Short:         "Chat server with interactive poll widgets",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cfg.logFormat, cfg.logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.port, "port", envInt("WIDGETCHAT_PORT", 8080), "listen port")
	cmd.Flags().IntVar(&cfg.maxHistory, "max-history", envInt("WIDGETCHAT_MAX_HISTORY", 1000), "max messages per room")
	cmd.Flags().StringVar(&cfg.logFormat, "log-format", envOr("WIDGETCHAT_LOG_FORMAT", "text"), "log format: text or json")
	cmd.Flags().StringVar(&cfg.logLevel, "log-level", envOr("WIDGETCHAT_LOG_LEVEL", "info"), "log level: debug, info, warn or error")
	return cmd
}

func run(ctx context.Context, cfg serverConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub(cfg.maxHistory)
	addr := fmt.Sprintf(":%d", cfg.port)
	srv := server.New(hub, addr)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("widgetchat-server listening", "addr", addr, "max_history", cfg.maxHistory)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func newLogger(format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", format)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
