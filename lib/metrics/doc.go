// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exports harness state in the Prometheus text format.
//
// An [Exporter] owns a private prometheus.Registry; nothing is
// registered on the global default registry, so several exporters
// (one per test) never collide. Counters are CounterFuncs over the
// atomics the components already keep, read at scrape time. The
// throughput gauge is the one pushed value: the reporter's OnSample
// hook feeds it through [Exporter.ObserveSample].
//
// Metric names carry the exporter's namespace, for example
// sensor_mock_ingest_metrics_total. The endpoint is off unless an
// address is configured.
package metrics
