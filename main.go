// Package main provides the entry point for the movie and TV browsing backend.
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

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"moviebrowser/api"
	"moviebrowser/config"
	"moviebrowser/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load environment variables from .env file
	envErr := godotenv.Load()

	cfg, err := config.Load(os.Getenv("MOVIEBROWSER_CONFIG"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logr := logger.New(cfg.Logging)
	defer func() {
		if err := logr.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", err)
		}
	}()

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logr.Warn().Err(envErr).Msg("Could not load .env file")
	}
	if cfg.MissingAPIKey() {
		logr.Warn().Msg("TMDB_API_KEY is not set; upstream requests will be rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(cfg, logr.Logger)

	middlewares := []mux.MiddlewareFunc{
		api.RequestLogger(logr.Component("access")),
		api.Recoverer,
	}
	if cfg.Server.RateLimit > 0 {
		proxies, err := api.ParseTrustedProxies(cfg.Server.TrustedProxies)
		if err != nil {
			return err
		}
		limiter := api.NewIPRateLimiter(ctx, rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
		middlewares = append(middlewares, api.RateLimitMiddleware(limiter, proxies))
		logr.Info().Float64("per_second", cfg.Server.RateLimit).Int("burst", cfg.Server.RateBurst).Msg("Rate limiting enabled")
	}

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      newRouter(app, middlewares...),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Duration(cfg.TMDB.Timeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info().Str("addr", server.Addr).Msg("Server starting")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
