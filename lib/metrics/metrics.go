// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bureau-foundation/sensor-harness/lib/counter"
	"github.com/bureau-foundation/sensor-harness/lib/generator"
	"github.com/bureau-foundation/sensor-harness/lib/ingest"
	"github.com/bureau-foundation/sensor-harness/lib/reporter"
)

// Namespaces used by the harness binaries.
const (
	NamespaceMock = "sensor_mock"
	NamespaceSink = "sensor_sink"
)

// shutdownTimeout bounds how long Serve waits for in-flight scrapes.
const shutdownTimeout = 5 * time.Second

// Exporter collects harness metrics into a private registry.
type Exporter struct {
	namespace  string
	registry   *prometheus.Registry
	throughput prometheus.Gauge
}

// New returns an Exporter whose metric names are prefixed with
// namespace. Go runtime and process collectors are included.
func New(namespace string) *Exporter {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	throughput := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "throughput_events_per_second",
		Help:      "Counter growth per second over the last reporter interval.",
	})
	registry.MustRegister(throughput)

	return &Exporter{
		namespace:  namespace,
		registry:   registry,
		throughput: throughput,
	}
}

// CounterFunc registers a counter read from value at scrape time.
func (e *Exporter) CounterFunc(subsystem, name, help string, value func() uint64) {
	e.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: e.namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(value()) }))
}

// GaugeFunc registers a gauge read from value at scrape time.
func (e *Exporter) GaugeFunc(subsystem, name, help string, value func() float64) {
	e.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: e.namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, value))
}

// RegisterIngest exports the shared metric counter and the ingest
// service's stream statistics.
func (e *Exporter) RegisterIngest(total *counter.Counter, service *ingest.Service) {
	e.CounterFunc("ingest", "metrics_total", "Metrics received across all StreamData streams.", total.Load)
	e.CounterFunc("ingest", "streams_total", "StreamData streams accepted.", service.Streams)
	e.CounterFunc("ingest", "events_total", "Events received across all StreamData streams.", service.Events)
	e.GaugeFunc("ingest", "active_streams", "StreamData streams currently open.", func() float64 {
		return float64(service.ActiveStreams())
	})
}

// RegisterGenerator exports the alert generator's record statistics.
func (e *Exporter) RegisterGenerator(source *generator.Generator) {
	e.CounterFunc("generator", "records_total", "Alert records written to the socket.", func() uint64 {
		return source.Stats().Emitted
	})
	e.CounterFunc("generator", "dropped_total", "Alert records whose write failed.", func() uint64 {
		return source.Stats().Dropped
	})
	e.CounterFunc("generator", "reconnects_total", "Socket connections replaced after a write failure.", func() uint64 {
		return source.Stats().Reconnects
	})
}

// ObserveSample returns a reporter OnSample hook that sets the
// throughput gauge from each sample.
func (e *Exporter) ObserveSample(interval time.Duration) func(reporter.Sample) {
	return func(sample reporter.Sample) {
		e.throughput.Set(sample.Rate(interval))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		Registry:          e.registry,
		EnableOpenMetrics: true,
	})
}

// Serve listens on addr and serves /metrics until ctx is cancelled.
// It returns nil after a clean shutdown and an error if the listener
// cannot be bound.
func (e *Exporter) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener on %s: %w", addr, err)
	}
	return e.serve(ctx, listener, logger)
}

func (e *Exporter) serve(ctx context.Context, listener net.Listener, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", listener.Addr().String())
	err := server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		<-shutdownDone
		return nil
	}
	return err
}
