// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies unix socket errors for the harness loops.
//
// [IsExpectedCloseError] recognises normal teardown (EOF, closed
// connection, EPIPE, ECONNRESET). [IsEndpointUnavailable] recognises
// dial failures that mean the socket owner is not up yet. Both let
// callers log routine churn at debug level and keep anything
// unexpected visible.
package netutil
