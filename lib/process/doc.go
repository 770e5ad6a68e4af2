// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers.
//
// Each binary's main is a single call to [Main] with its run function.
// Every failure path in run returns a wrapped error; [Fatal] prints it
// to stderr and exits 1. A listener bind failure in sensor-mock is the
// canonical fatal case: the harness has no purpose without its ingest
// endpoint.
package process
