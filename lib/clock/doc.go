// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction.
//
// Every loop in the harness that waits on time (the generator's socket
// poll, connect retry, write-failure pause and pacing delay, the
// reporter's sampling ticker, the sink's reporter) takes a Clock.
// Production wiring passes Real(); tests pass Fake() and step time
// explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go generator.Run(ctx)        // generator built with Clock: c
//	c.WaitForTimers(1)           // generator is parked on a sleep
//	c.Advance(500 * time.Millisecond)
//
// WaitForTimers closes the race between a goroutine registering a
// timer and the test advancing past it.
//
// [SleepContext] is the cancellable sleep used by every harness loop
// so that shutdown is never stuck behind a pacing or retry delay.
package clock
