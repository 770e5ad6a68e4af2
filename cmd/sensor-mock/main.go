// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sensor-harness/lib/clock"
	"github.com/bureau-foundation/sensor-harness/lib/config"
	"github.com/bureau-foundation/sensor-harness/lib/logging"
	"github.com/bureau-foundation/sensor-harness/lib/process"
	"github.com/bureau-foundation/sensor-harness/lib/version"
)

func main() {
	process.Main(run)
}

func run() error {
	options, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if options.showVersion {
		version.Print("sensor-mock")
		return nil
	}

	cfg, err := options.resolve()
	if err != nil {
		return err
	}

	logger, err := logging.NewFromFlags(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	harness, err := newHarness(cfg, clock.Real(), logger)
	if err != nil {
		return err
	}

	listener, err := listenIngest(cfg)
	if err != nil {
		return err
	}

	logger.Info("sensor mock running",
		"version", version.Info(),
		"listen", listener.Addr().String(),
		"socket_path", cfg.Generator.SocketPath,
		"rate", cfg.Generator.Rate,
		"metrics_addr", cfg.Metrics.Addr,
	)

	if err := harness.run(ctx, listener); err != nil {
		return err
	}
	logger.Info("sensor mock stopped")
	return nil
}

// listenIngest binds the gRPC ingest address. Failure is fatal to the
// process; nothing retries the bind.
func listenIngest(cfg *config.Config) (net.Listener, error) {
	address := cfg.Listen.Addr()
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("binding ingest listener on %s: %w", address, err)
	}
	return listener, nil
}
