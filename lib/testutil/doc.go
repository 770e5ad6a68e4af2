// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [SocketDir] and [SocketPath] give unix socket tests paths short
// enough for sun_path (108 bytes).
//
// [RequireReceive], [RequireReceiveN] and [RequireClosed] wrap the
// select-with-timeout safety valve so that a broken test fails instead
// of hanging. Their timeouts are wall-clock; the code under test runs
// on clock.Fake wherever it waits.
//
// All helpers call t.Fatalf on failure.
package testutil
