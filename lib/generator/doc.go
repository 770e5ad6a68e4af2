// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package generator writes a paced stream of synthetic alert records
// to a local unix socket owned by someone else.
//
// A [Generator] runs three phases inside [Generator.Run]:
//
//   - wait: poll the socket path until it exists (optionally bounded
//     by Config.MaxWait)
//   - connect: dial until a connection succeeds, spacing attempts by
//     Config.ConnectBackOff
//   - emit: render one record per iteration with the next signature
//     identifier, write it, and pace with a token bucket
//
// Delivery is at-most-once. A failed write drops its record and makes
// one immediate reconnect attempt; if that fails too the loop pauses
// for Config.WriteFailureDelay and carries on with the next
// identifier. The identifier advances on every iteration, so a
// downstream reader can count drops as gaps.
//
// All waiting goes through a [clock.Clock], which is how tests drive
// polling, pacing and failure delays without real sleeps. The
// connection is owned by the Run goroutine; cancellation closes it
// from outside to unblock a pending write.
package generator
