package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"eriehall.dev/gapfinder"
	"eriehall.dev/gapfinder/config"
	"eriehall.dev/gapfinder/metrics"
	"eriehall.dev/gapfinder/storage"
	"eriehall.dev/gapfinder/web"
)

var (
	flagConfig = flag.String("config", "config.yml", "configuration path")
	flagOnce   = flag.Bool("once", false, "run one scrape cycle and exit")
	flagOut    = flag.String("out", "", "override the report output path")
	flagDebug  = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	level := slog.LevelInfo
	if *flagDebug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		return err
	}
	if *flagOut != "" {
		cfg.Scrape.ReportPath = *flagOut
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, err := gapfinder.NewRunner(cfg)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	runner.Store = store

	reg := prometheus.NewRegistry()
	runner.Metrics = metrics.New(reg)

	if *flagOnce {
		rep, err := runner.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Report: courts=%d, slots=%d\n", len(rep.Courts), rep.TotalSlots())
		return nil
	}

	if cfg.Web.Enabled {
		srv := web.NewServer(reg)
		runner.Server = srv
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Web.Listen); err != nil {
				slog.Error("web server failed", "error", err)
				cancel()
			}
		}()
	}

	slog.Info("starting scheduler",
		"facility", cfg.Facility.Name,
		"courts", len(cfg.Courts),
		"interval", cfg.Scrape.Interval,
	)
	if err := runner.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
