// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/sensor-harness/lib/clock"
	"github.com/bureau-foundation/sensor-harness/lib/config"
	"github.com/bureau-foundation/sensor-harness/lib/counter"
	"github.com/bureau-foundation/sensor-harness/lib/logging"
	"github.com/bureau-foundation/sensor-harness/lib/metrics"
	"github.com/bureau-foundation/sensor-harness/lib/process"
	"github.com/bureau-foundation/sensor-harness/lib/reporter"
	"github.com/bureau-foundation/sensor-harness/lib/sink"
	"github.com/bureau-foundation/sensor-harness/lib/version"
)

func main() {
	process.Main(run)
}

func run() error {
	cfg, showVersion, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("sensor-sink")
		return nil
	}

	logger, err := logging.NewFromFlags(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, clock.Real(), logger)
}

// loadConfig parses flags, loads the config file, and applies the
// flags the user set.
func loadConfig(args []string) (*config.Config, bool, error) {
	defaults := config.Default()
	var (
		configPath      string
		showVersion     bool
		socketPath      string
		reportInterval  time.Duration
		duplicateWindow int
		metricsAddr     string
		logFormat       string
		logLevel        string
	)

	flagSet := pflag.NewFlagSet("sensor-sink", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "YAML config file (default: $"+config.EnvVar+", else built-in defaults)")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	flagSet.StringVarP(&socketPath, "socket", "s", defaults.Generator.SocketPath, "unix socket to listen on (a stale file is replaced)")
	flagSet.DurationVar(&reportInterval, "report-interval", defaults.Reporter.Interval.Std(), "throughput log interval")
	flagSet.IntVar(&duplicateWindow, "duplicate-window", defaults.Sink.DuplicateWindow, "recent records remembered for duplicate detection (negative = off)")
	flagSet.StringVar(&metricsAddr, "metrics-addr", defaults.Metrics.Addr, "serve Prometheus metrics on this address (empty = disabled)")
	flagSet.StringVar(&logFormat, "log-format", defaults.Log.Format, "log format: auto, text or json")
	flagSet.StringVar(&logLevel, "log-level", defaults.Log.Level, "log level: debug, info, warn or error")

	if err := flagSet.Parse(args); err != nil {
		return nil, false, err
	}
	if flagSet.NArg() > 0 {
		return nil, false, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	if showVersion {
		return nil, true, nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, false, err
	}

	if flagSet.Changed("socket") {
		cfg.Generator.SocketPath = socketPath
	}
	if flagSet.Changed("report-interval") {
		cfg.Reporter.Interval = config.Duration(reportInterval)
	}
	if flagSet.Changed("duplicate-window") {
		cfg.Sink.DuplicateWindow = duplicateWindow
	}
	if flagSet.Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}
	if flagSet.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

// serve runs the sink, its reporter and the optional metrics endpoint
// until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger) error {
	records := counter.New()
	alerts, err := sink.New(sink.Config{
		SocketPath:      cfg.Generator.SocketPath,
		Counter:         records,
		DuplicateWindow: cfg.Sink.DuplicateWindow,
		Logger:          logger.With("component", "sink"),
	})
	if err != nil {
		return err
	}

	exporter := metrics.New(metrics.NamespaceSink)
	exporter.CounterFunc("", "records_total", "Alert records received.", records.Load)
	exporter.CounterFunc("", "connections_total", "Generator connections accepted.", func() uint64 { return alerts.Stats().Connections })
	exporter.CounterFunc("", "malformed_total", "Lines that were not alert records.", func() uint64 { return alerts.Stats().Malformed })
	exporter.CounterFunc("", "gaps_total", "Forward jumps in signature_id.", func() uint64 { return alerts.Stats().Gaps })
	exporter.CounterFunc("", "missing_total", "signature_id values skipped by gaps.", func() uint64 { return alerts.Stats().Missing })
	exporter.CounterFunc("", "duplicates_total", "Records seen twice within the duplicate window.", func() uint64 { return alerts.Stats().Duplicates })
	exporter.CounterFunc("", "restarts_total", "Backward jumps in signature_id.", func() uint64 { return alerts.Stats().Restarts })

	interval := cfg.Reporter.Interval.Std()
	throughput, err := reporter.New(reporter.Config{
		Counter:  records,
		Interval: interval,
		Clock:    clk,
		Logger:   logger.With("component", "reporter"),
		Message:  "sink throughput",
		OnSample: exporter.ObserveSample(interval),
	})
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return alerts.Serve(groupCtx) })
	group.Go(func() error { return throughput.Run(groupCtx) })
	if cfg.Metrics.Addr != "" {
		group.Go(func() error {
			return exporter.Serve(groupCtx, cfg.Metrics.Addr, logger.With("component", "metrics"))
		})
	}

	logger.Info("sensor sink running", "version", version.Info(), "socket_path", cfg.Generator.SocketPath)
	err = group.Wait()
	stats := alerts.Stats()
	logger.Info("sensor sink stopped",
		"records", stats.Records,
		"gaps", stats.Gaps,
		"missing", stats.Missing,
		"duplicates", stats.Duplicates,
		"restarts", stats.Restarts,
	)
	return err
}
