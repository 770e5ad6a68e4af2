// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress registers zstd and lz4 message compressors with
// gRPC.
//
// Forwarders pushing large event streams at the ingest endpoint can
// select either algorithm per call:
//
//	stream, err := client.StreamData(ctx, grpc.UseCompressor(compress.Zstd))
//
// The server decompresses any registered algorithm automatically, so
// importing this package in the server binary is all that is needed
// on the receiving side. Encoders and decoders are pooled: both
// libraries allocate sizeable window buffers on construction.
package compress
