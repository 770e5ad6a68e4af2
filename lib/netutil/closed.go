// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"io/fs"
	"net"

	"golang.org/x/sys/unix"
)

// IsExpectedCloseError reports whether err is a normal connection
// termination: EOF, a locally closed connection, a broken pipe, or a
// connection reset. The generator sees EPIPE and ECONNRESET whenever
// the socket owner restarts; the sink sees EOF whenever the generator
// reconnects. None of these are worth more than a debug log line.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno == unix.EPIPE || errno == unix.ECONNRESET
	}
	return false
}

// IsEndpointUnavailable reports whether a dial error means the unix
// socket endpoint is not (or no longer) accepting connections: the
// path is missing, nothing is listening behind it, or the listen
// backlog is full. These are the transient conditions the generator
// retries forever.
func IsEndpointUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		switch errno {
		case unix.ENOENT, unix.ECONNREFUSED, unix.EAGAIN:
			return true
		}
	}
	return false
}
