package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Dicklesworthstone/snapmon/internal/config"
	"github.com/Dicklesworthstone/snapmon/internal/sampler"
	"github.com/Dicklesworthstone/snapmon/internal/server"
	"github.com/Dicklesworthstone/snapmon/internal/ui"
)

func main() {
	cfg, err := config.FromFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapmon: %v\n", err)
		os.Exit(2)
	}

	logger, sync := newLogger(cfg)
	defer sync()

	if err := run(cfg, logger); err != nil {
		logger.Error(err, "snapmon exited")
		sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger logr.Logger) error {
	handle := sampler.NewSystemHandle(logger)
	engine := sampler.New(handle, sampler.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case cfg.JSON:
		time.Sleep(sampler.MinimumCPUInterval)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(engine.Snapshot())
	case cfg.JSONStream:
		return stream(ctx, cfg.Interval, engine)
	case cfg.Serve:
		return serve(ctx, cfg, engine, logger)
	default:
		return ui.RunTUI(cfg, engine)
	}
}

// stream writes one NDJSON snapshot per interval until ctx is done.
func stream(ctx context.Context, interval time.Duration, engine *sampler.Sampler) error {
	enc := json.NewEncoder(os.Stdout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := enc.Encode(engine.Snapshot()); err != nil {
				return err
			}
		}
	}
}

func serve(ctx context.Context, cfg config.Config, engine *sampler.Sampler, logger logr.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(engine, cfg.Token, cfg.CallTimeout, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "auth", cfg.Token != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newLogger maps -v onto zap levels the way zapr expects (V(n) is level -n).
// The dashboard owns the terminal, so it gets a no-op logger.
func newLogger(cfg config.Config) (logr.Logger, func()) {
	if !cfg.JSON && !cfg.JSONStream && !cfg.Serve {
		return logr.Discard(), func() {}
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-cfg.LogLevel))
	zc.OutputPaths = []string{"stderr"}

	zl, err := zc.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapmon: logger: %v\n", err)
		return logr.Discard(), func() {}
	}
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }
}
