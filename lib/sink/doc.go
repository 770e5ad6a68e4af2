// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sink is the reading end of the alert socket: a unix-socket
// listener that accepts newline-delimited alert records, counts them,
// and checks the signature_id sequence.
//
// It stands in for the forwarder that normally owns the socket, so the
// generator can be exercised end to end on one machine. Records are
// counted into an injected counter.Counter (a reporter.Reporter turns
// that into a throughput log line). The sequence check runs across
// connections, because the generator holds at most one at a time:
//
//   - a jump forward by more than one is a gap; the skipped
//     identifiers are records the generator dropped
//   - a record whose BLAKE3 fingerprint is in the recent window is a
//     duplicate
//   - a jump backward that is not a duplicate is a generator restart
//     and resets the baseline
//
// Lines that are not JSON or lack alert.signature_id are counted as
// malformed and otherwise ignored.
package sink
