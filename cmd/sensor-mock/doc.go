// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Sensor-mock is a test double for a sensor ingestion pipeline. It
// plays both ends of a forwarder under test:
//
//   - consumer: a gRPC endpoint (sensor.SensorService/StreamData) that
//     accepts client streams of sensor events and counts their metrics
//   - producer: a generator that writes Suricata-style alert records to
//     the forwarder's unix socket at a configurable rate
//
// Data flow:
//
//	generator → unix socket → forwarder under test → StreamData → counter → reporter log
//
// A reporter logs the counter's growth every --report-interval. The
// generator waits for the socket to appear, reconnects when the
// forwarder restarts, and never ends on its own unless a bounded wait
// (--socket-wait-max) expires. Delivery to the socket is at-most-once;
// a record whose write fails is dropped.
//
// Configuration comes from an optional YAML file (--config or
// SENSOR_HARNESS_CONFIG) with flags layered on top. Metrics are served
// on --metrics-addr when set.
//
// The process runs until SIGINT or SIGTERM. Shutdown is prompt: the
// gRPC server stops without draining open streams.
package main
