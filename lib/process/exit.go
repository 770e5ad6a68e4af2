// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. It is the
// one place a binary reports an error without the structured logger,
// which may not exist yet (bad flags, unreadable config) or may be the
// thing that failed.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// Main runs fn and calls Fatal if it returns an error. Binaries use it
// as the whole body of main:
//
//	func main() { process.Main(run) }
func Main(fn func() error) {
	if err := fn(); err != nil {
		Fatal(err)
	}
}
