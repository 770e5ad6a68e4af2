// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the message encodings used on the ingest RPC.
//
// Sensor events are plain Go structs rather than generated protobuf
// types. Two gRPC codecs carry them:
//
//   - The CBOR codec, registered under the content-subtype [Name]
//     ("application/grpc+cbor"). Clients in this repository use it.
//   - A replacement for the default "proto" codec, so stock protobuf
//     clients sending plain "application/grpc" work too. Types that
//     implement [WireMessage] encode themselves in the protobuf wire
//     format. All other values are handed to the stock proto codec,
//     so generated messages such as health checks are unaffected.
//
// Importing this package (directly or through lib/ingest) registers
// both codecs.
//
// The encoder uses Core Deterministic Encoding, so the same event
// always produces identical bytes. The decoder ignores unknown fields
// and decodes untyped maps as map[string]any.
//
//	data, err := codec.Marshal(event)
//	err = codec.Unmarshal(data, &event)
package codec
