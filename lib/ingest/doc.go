// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest implements the sensor event ingestion endpoint: a gRPC
// service "sensor.SensorService" with one client-streaming method,
// StreamData, that counts the metrics carried by every event it
// receives.
//
// There is no generated code. The service descriptor is written by
// hand, and messages travel in one of two encodings registered by
// lib/codec:
//
//   - CBOR, selected per call with the "cbor" content subtype. [Client]
//     uses it by default.
//   - Protobuf on the plain "application/grpc" content type. [Event]
//     and [Ack] encode themselves as the SensorEvent and
//     google.protobuf.Empty messages of sensor.proto, so a stock
//     protobuf client can stream to the service unchanged. Senders
//     whose schema numbers the metrics field differently are handled
//     by [SetMetricsField].
//
// Forwarders may compress their streams with any compressor registered
// by lib/compress.
//
// [Service] adds len(event.Metrics) to a shared counter.Counter for
// each event and acknowledges the stream with an empty [Ack] when the
// client half-closes. A receive error fails the RPC; nothing is
// retried. [Client] is the calling side, used by tests and by tools
// that replay events against a running harness.
package ingest
