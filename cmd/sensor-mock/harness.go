// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bureau-foundation/sensor-harness/lib/alert"
	"github.com/bureau-foundation/sensor-harness/lib/clock"
	"github.com/bureau-foundation/sensor-harness/lib/config"
	"github.com/bureau-foundation/sensor-harness/lib/counter"
	"github.com/bureau-foundation/sensor-harness/lib/generator"
	"github.com/bureau-foundation/sensor-harness/lib/ingest"
	"github.com/bureau-foundation/sensor-harness/lib/metrics"
	"github.com/bureau-foundation/sensor-harness/lib/reporter"

	// Registers the zstd and lz4 gRPC compressors.
	_ "github.com/bureau-foundation/sensor-harness/lib/compress"
)

// harness owns every long-running component of sensor-mock. The
// counter is created here and handed to the ingest service (writer)
// and the reporter and exporter (readers); nothing else touches it.
type harness struct {
	logger      *slog.Logger
	metricsAddr string

	counter   *counter.Counter
	service   *ingest.Service
	generator *generator.Generator
	reporter  *reporter.Reporter
	exporter  *metrics.Exporter
	server    *grpc.Server
	health    *health.Server
}

func newHarness(cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*harness, error) {
	template := alert.Default()
	if path := cfg.Generator.TemplatePath; path != "" {
		loaded, err := alert.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading alert template: %w", err)
		}
		template = loaded
	}

	if err := ingest.SetMetricsField(protowire.Number(cfg.Listen.MetricsField)); err != nil {
		return nil, err
	}
	shared := counter.New()
	service := ingest.NewService(shared, logger.With("component", "ingest"))

	records, err := generator.New(generator.Config{
		SocketPath:        cfg.Generator.SocketPath,
		Rate:              cfg.Generator.Rate,
		PollInterval:      cfg.Generator.PollInterval.Std(),
		MaxWait:           cfg.Generator.SocketWaitMax.Std(),
		ConnectBackOff:    backoff.NewConstantBackOff(cfg.Generator.ConnectRetryInterval.Std()),
		WriteFailureDelay: cfg.Generator.WriteFailureDelay.Std(),
		Template:          template,
		Clock:             clk,
		Logger:            logger.With("component", "generator"),
	})
	if err != nil {
		return nil, err
	}

	exporter := metrics.New(metrics.NamespaceMock)
	exporter.RegisterIngest(shared, service)
	exporter.RegisterGenerator(records)

	interval := cfg.Reporter.Interval.Std()
	throughput, err := reporter.New(reporter.Config{
		Counter:  shared,
		Interval: interval,
		Clock:    clk,
		Logger:   logger.With("component", "reporter"),
		OnSample: exporter.ObserveSample(interval),
	})
	if err != nil {
		return nil, err
	}

	server := grpc.NewServer()
	ingest.Register(server, service)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus(ingest.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &harness{
		logger:      logger,
		metricsAddr: cfg.Metrics.Addr,
		counter:     shared,
		service:     service,
		generator:   records,
		reporter:    throughput,
		exporter:    exporter,
		server:      server,
		health:      healthServer,
	}, nil
}

// run serves ingest on listener and runs the generator, reporter and
// optional metrics endpoint until ctx is cancelled or one of them
// fails. Every goroutine has returned when run returns.
func (h *harness) run(ctx context.Context, listener net.Listener) error {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := h.server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("ingest server: %w", err)
		}
		return nil
	})

	// Stop is immediate: open streams are cut rather than drained.
	group.Go(func() error {
		<-groupCtx.Done()
		h.logger.Info("shutting down")
		h.health.Shutdown()
		h.server.Stop()
		return nil
	})

	group.Go(func() error {
		return h.reporter.Run(groupCtx)
	})

	group.Go(func() error {
		if err := h.generator.Run(groupCtx); err != nil {
			return fmt.Errorf("alert generator: %w", err)
		}
		return nil
	})

	if h.metricsAddr != "" {
		group.Go(func() error {
			return h.exporter.Serve(groupCtx, h.metricsAddr, h.logger.With("component", "metrics"))
		})
	}

	return group.Wait()
}
