// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package counter provides the harness's shared metric tally.
//
// A single *Counter is created by the binary and handed to every
// writer (ingest streams, sink connections) and every reader (the
// throughput reporter, the metrics registry). There is no package
// state: two binaries in the same test process keep separate counts.
package counter

import "sync/atomic"

// Counter is a monotonically non-decreasing uint64 safe for any number
// of concurrent writers and readers. The zero value is ready to use.
type Counter struct {
	value atomic.Uint64
}

// New returns a zeroed Counter.
func New() *Counter {
	return &Counter{}
}

// Add increments the counter by n and returns the new total.
func (c *Counter) Add(n uint64) uint64 {
	return c.value.Add(n)
}

// Load returns the current total. The result reflects every Add that
// completed before Load began.
func (c *Counter) Load() uint64 {
	return c.value.Load()
}
