// Package main is the entry point for the nakdan diacritization server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/term"

	"nakdan/config"
	"nakdan/internal/nakdan"
	"nakdan/internal/server"
	"nakdan/internal/status"
	"nakdan/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Structured logging: human-readable on a terminal, JSON otherwise.
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.TimeOnly})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("starting nakdan",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Settings persisted by a previous run win over env defaults.
	settingsStore := config.NewSettingsStore(cfg.SettingsFile)
	if persisted, ok, err := settingsStore.Load(); err != nil {
		slog.Warn("ignoring unreadable settings file", "error", err)
	} else if ok {
		cfg.Settings = persisted
		slog.Info("restored persisted cache settings",
			"ttl_enabled", persisted.TTLEnabled,
			"ttl_seconds", persisted.TTLSeconds,
			"max_entries", persisted.MaxEntries)
	}

	client := nakdan.New(nakdan.Options{
		Endpoint:       cfg.Endpoint,
		AttemptTimeout: cfg.AttemptTimeout,
		Settings:       cfg.Settings,
		Logger:         logger,
	})
	defer func() {
		_ = client.Close()
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tracker := status.NewTracker(registry, nil)

	if cfg.AuthToken == "" {
		slog.Warn("NAKDAN_AUTH_TOKEN not set - API routes are unauthenticated")
	}

	h := server.NewHandler(client, tracker, settingsStore, cfg.MaxRetries, logger)
	srv := server.New(h, server.Config{
		AuthToken: cfg.AuthToken,
		Registry:  registry,
	})

	go func() {
		slog.Info("listening", "addr", cfg.Addr)
		if err := srv.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
