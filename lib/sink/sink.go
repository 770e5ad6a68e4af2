// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/sensor-harness/lib/alert"
	"github.com/bureau-foundation/sensor-harness/lib/counter"
	"github.com/bureau-foundation/sensor-harness/lib/netutil"
)

// maxRecordSize bounds a single line. Alert records are well under
// 1 KiB; a longer line means the peer is not speaking the protocol.
const maxRecordSize = 1 << 20

// DefaultDuplicateWindow is the fingerprint window size when
// Config.DuplicateWindow is zero.
const DefaultDuplicateWindow = 4096

// Config holds the parameters for a Sink.
type Config struct {
	// SocketPath is where the listener is created. A stale file at
	// the path is removed first. Required.
	SocketPath string

	// Counter receives one Add per record. Required.
	Counter *counter.Counter

	// DuplicateWindow is how many recent fingerprints are remembered.
	// Negative disables duplicate detection. Zero selects
	// DefaultDuplicateWindow.
	DuplicateWindow int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Stats is a snapshot of a Sink's counters.
type Stats struct {
	Connections uint64
	Records     uint64
	Malformed   uint64
	Gaps        uint64
	Missing     uint64
	Duplicates  uint64
	Restarts    uint64
}

// Sink accepts alert records on a unix socket.
type Sink struct {
	socketPath string
	counter    *counter.Counter
	logger     *slog.Logger

	mu       sync.Mutex
	sequence sequence
	window   *fingerprintWindow

	connections atomic.Uint64
	records     atomic.Uint64
	malformed   atomic.Uint64
	gaps        atomic.Uint64
	missing     atomic.Uint64
	duplicates  atomic.Uint64
	restarts    atomic.Uint64

	activeConnections sync.WaitGroup
}

// sequence is the last signature identifier seen.
type sequence struct {
	last uint64
	seen bool
}

// New validates config and returns a Sink.
func New(config Config) (*Sink, error) {
	if config.SocketPath == "" {
		return nil, errors.New("sink: socket path is required")
	}
	if config.Counter == nil {
		return nil, errors.New("sink: counter is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	windowSize := config.DuplicateWindow
	if windowSize == 0 {
		windowSize = DefaultDuplicateWindow
	}
	return &Sink{
		socketPath: config.SocketPath,
		counter:    config.Counter,
		logger:     logger.With("socket_path", config.SocketPath),
		window:     newFingerprintWindow(windowSize),
	}, nil
}

// Stats returns the current counters.
func (s *Sink) Stats() Stats {
	return Stats{
		Connections: s.connections.Load(),
		Records:     s.records.Load(),
		Malformed:   s.malformed.Load(),
		Gaps:        s.gaps.Load(),
		Missing:     s.missing.Load(),
		Duplicates:  s.duplicates.Load(),
		Restarts:    s.restarts.Load(),
	}
}

// Serve listens on the socket path and handles connections until ctx
// is cancelled. Any existing file at the path is removed first; the
// socket file is removed on return.
func (s *Sink) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	// Unblock Accept when the context is cancelled.
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	s.logger.Info("sink listening")
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// handleConnection reads records until the peer disconnects or ctx is
// cancelled.
func (s *Sink) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.connections.Add(1)
	s.logger.Info("generator connected")

	var received uint64
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxRecordSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		received++
		s.observe(line)
	}

	err := scanner.Err()
	switch {
	case err == nil, ctx.Err() != nil, netutil.IsExpectedCloseError(err):
		s.logger.Info("generator disconnected", "records", received)
	default:
		s.logger.Warn("connection read failed", "records", received, "error", err)
	}
}

// observe counts one record and runs the sequence checks.
func (s *Sink) observe(line []byte) {
	s.counter.Add(1)
	s.records.Add(1)

	id, err := alert.SignatureID(line)
	if err != nil {
		s.malformed.Add(1)
		s.logger.Debug("malformed record", "error", err)
		return
	}
	fingerprint := alert.FingerprintOf(line)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.window.observe(fingerprint) {
		s.duplicates.Add(1)
		s.logger.Warn("duplicate record", "signature_id", id)
		return
	}

	previous := s.sequence
	s.sequence = sequence{last: id, seen: true}
	if !previous.seen {
		return
	}
	switch {
	case id == previous.last+1:
	case id > previous.last:
		missing := id - previous.last - 1
		s.gaps.Add(1)
		s.missing.Add(missing)
		s.logger.Info("signature_id gap", "after", previous.last, "next", id, "missing", missing)
	default:
		s.restarts.Add(1)
		s.logger.Info("signature_id went backwards, assuming generator restart", "previous", previous.last, "next", id)
	}
}

// fingerprintWindow remembers the last size fingerprints.
type fingerprintWindow struct {
	ring  []alert.Fingerprint
	next  int
	full  bool
	count map[alert.Fingerprint]int
}

func newFingerprintWindow(size int) *fingerprintWindow {
	if size <= 0 {
		return nil
	}
	return &fingerprintWindow{
		ring:  make([]alert.Fingerprint, size),
		count: make(map[alert.Fingerprint]int, size),
	}
}

// observe reports whether fingerprint is already in the window, and
// records it either way. A nil window never reports duplicates.
func (w *fingerprintWindow) observe(fingerprint alert.Fingerprint) bool {
	if w == nil {
		return false
	}
	duplicate := w.count[fingerprint] > 0

	if w.full {
		evicted := w.ring[w.next]
		if w.count[evicted]--; w.count[evicted] == 0 {
			delete(w.count, evicted)
		}
	}
	w.ring[w.next] = fingerprint
	w.count[fingerprint]++
	w.next++
	if w.next == len(w.ring) {
		w.next = 0
		w.full = true
	}
	return duplicate
}
