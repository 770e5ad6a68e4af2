// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

// Event is one sensor event on the StreamData stream. Only the number
// of Metrics is significant to the ingest service; the other fields
// exist so forwarders can send realistic payloads. It travels as CBOR
// or as the SensorEvent message of sensor.proto (see wire.go).
type Event struct {
	SensorID  string   `cbor:"sensor_id,omitempty"`
	Timestamp int64    `cbor:"timestamp,omitempty"`
	Metrics   []Metric `cbor:"metrics"`
}

// Metric is one named measurement within an Event.
type Metric struct {
	Name   string            `cbor:"name"`
	Value  float64           `cbor:"value"`
	Labels map[string]string `cbor:"labels,omitempty"`
}

// Ack is the empty response sent when a stream completes. On the
// protobuf content type it is google.protobuf.Empty.
type Ack struct{}
