// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/sensor-harness/lib/alert"
	"github.com/bureau-foundation/sensor-harness/lib/clock"
	"github.com/bureau-foundation/sensor-harness/lib/netutil"
)

// Default timings, matching the behavior downstream forwarders have
// been tested against.
const (
	DefaultPollInterval      = 500 * time.Millisecond
	DefaultConnectRetry      = 500 * time.Millisecond
	DefaultWriteFailureDelay = 100 * time.Millisecond
)

// ErrSocketWaitExceeded is returned by Run when Config.MaxWait elapses
// before the socket path appears.
var ErrSocketWaitExceeded = errors.New("socket did not appear in time")

// ErrConnectExhausted is returned by Run when Config.ConnectBackOff
// stops before a dial succeeds.
var ErrConnectExhausted = errors.New("connect retries exhausted")

// DialFunc opens a connection to the socket at path.
type DialFunc func(ctx context.Context, path string) (net.Conn, error)

// Config holds the parameters for a Generator.
type Config struct {
	// SocketPath is the unix socket to write to. Required.
	SocketPath string

	// Rate is records per second. Zero or negative disables pacing.
	Rate float64

	// PollInterval is the delay between existence checks while
	// waiting for SocketPath. Defaults to DefaultPollInterval.
	PollInterval time.Duration

	// MaxWait bounds the existence wait. Zero waits forever.
	MaxWait time.Duration

	// ConnectBackOff spaces dial attempts. It is Reset before each
	// connect phase. Defaults to a constant DefaultConnectRetry that
	// never stops. A policy that returns backoff.Stop makes Run fail
	// with ErrConnectExhausted.
	ConnectBackOff backoff.BackOff

	// WriteFailureDelay is the pause after a failed write whose
	// immediate reconnect also failed. Defaults to
	// DefaultWriteFailureDelay.
	WriteFailureDelay time.Duration

	// Template renders records. Defaults to alert.Default().
	Template *alert.Template

	// Clock drives every wait. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger

	// Dial opens connections. Defaults to a unix-domain net.Dialer.
	Dial DialFunc
}

// Stats is a snapshot of a Generator's counters.
type Stats struct {
	// Emitted is the number of records written successfully.
	Emitted uint64

	// Dropped is the number of records whose write failed.
	Dropped uint64

	// Reconnects is the number of connections that replaced a failed
	// one.
	Reconnects uint64
}

// Generator emits alert records to a unix socket. Create one with New
// and call Run once.
type Generator struct {
	socketPath        string
	rate              float64
	pollInterval      time.Duration
	maxWait           time.Duration
	connectBackOff    backoff.BackOff
	writeFailureDelay time.Duration
	template          *alert.Template
	clock             clock.Clock
	logger            *slog.Logger
	dial              DialFunc

	emitted    atomic.Uint64
	dropped    atomic.Uint64
	reconnects atomic.Uint64
}

// New validates config and returns a Generator.
func New(config Config) (*Generator, error) {
	if config.SocketPath == "" {
		return nil, errors.New("generator: socket path is required")
	}
	if config.PollInterval < 0 || config.MaxWait < 0 || config.WriteFailureDelay < 0 {
		return nil, errors.New("generator: durations must not be negative")
	}
	if math.IsNaN(config.Rate) || math.IsInf(config.Rate, 0) {
		return nil, fmt.Errorf("generator: invalid rate %v", config.Rate)
	}

	generator := &Generator{
		socketPath:        config.SocketPath,
		rate:              config.Rate,
		pollInterval:      config.PollInterval,
		maxWait:           config.MaxWait,
		connectBackOff:    config.ConnectBackOff,
		writeFailureDelay: config.WriteFailureDelay,
		template:          config.Template,
		clock:             config.Clock,
		logger:            config.Logger,
		dial:              config.Dial,
	}
	if generator.pollInterval == 0 {
		generator.pollInterval = DefaultPollInterval
	}
	if generator.connectBackOff == nil {
		generator.connectBackOff = backoff.NewConstantBackOff(DefaultConnectRetry)
	}
	if generator.writeFailureDelay == 0 {
		generator.writeFailureDelay = DefaultWriteFailureDelay
	}
	if generator.template == nil {
		generator.template = alert.Default()
	}
	if generator.clock == nil {
		generator.clock = clock.Real()
	}
	if generator.logger == nil {
		generator.logger = slog.Default()
	}
	if generator.dial == nil {
		generator.dial = dialUnix
	}
	generator.logger = generator.logger.With("socket_path", generator.socketPath)
	return generator, nil
}

func dialUnix(ctx context.Context, path string) (net.Conn, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, "unix", path)
}

// Stats returns the current counters. Safe to call concurrently with
// Run.
func (g *Generator) Stats() Stats {
	return Stats{
		Emitted:    g.emitted.Load(),
		Dropped:    g.dropped.Load(),
		Reconnects: g.reconnects.Load(),
	}
}

// Run waits for the socket, connects, and emits records until ctx is
// cancelled. It returns nil on cancellation. It returns an error only
// when a bounded policy gives up: ErrSocketWaitExceeded or
// ErrConnectExhausted, wrapped.
func (g *Generator) Run(ctx context.Context) error {
	if err := g.waitForSocket(ctx); err != nil {
		return ignoreCancel(ctx, err)
	}

	conn, err := g.connect(ctx)
	if err != nil {
		return ignoreCancel(ctx, err)
	}

	slot := &connSlot{}
	slot.swap(conn)
	stop := context.AfterFunc(ctx, slot.close)
	defer stop()
	defer slot.close()

	return ignoreCancel(ctx, g.emit(ctx, conn, slot))
}

// waitForSocket polls until the socket path exists.
func (g *Generator) waitForSocket(ctx context.Context) error {
	start := g.clock.Now()
	announced := false
	for {
		_, err := os.Stat(g.socketPath)
		if err == nil {
			if announced {
				g.logger.Info("socket appeared", "waited", g.clock.Now().Sub(start))
			}
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			g.logger.Debug("stat socket failed", "error", err)
		}

		if g.maxWait > 0 && g.clock.Now().Sub(start) >= g.maxWait {
			return fmt.Errorf("%w: %s after %s", ErrSocketWaitExceeded, g.socketPath, g.maxWait)
		}
		if !announced {
			g.logger.Info("waiting for socket", "poll_interval", g.pollInterval)
			announced = true
		}
		if err := clock.SleepContext(ctx, g.clock, g.pollInterval); err != nil {
			return err
		}
	}
}

// connect dials until it succeeds or the backoff policy stops.
func (g *Generator) connect(ctx context.Context) (net.Conn, error) {
	g.connectBackOff.Reset()
	for attempt := 1; ; attempt++ {
		conn, err := g.dial(ctx, g.socketPath)
		if err == nil {
			g.logger.Info("connected to socket", "attempts", attempt)
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		delay := g.connectBackOff.NextBackOff()
		if delay == backoff.Stop {
			return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrConnectExhausted, g.socketPath, attempt, err)
		}
		if attempt == 1 || !netutil.IsEndpointUnavailable(err) {
			g.logger.Info("connect failed, retrying", "error", err, "retry_in", delay)
		} else {
			g.logger.Debug("connect failed, retrying", "error", err, "attempt", attempt, "retry_in", delay)
		}
		if err := clock.SleepContext(ctx, g.clock, delay); err != nil {
			return nil, err
		}
	}
}

// emit is the record loop. conn is the connection from the connect
// phase; slot tracks whichever connection is current so cancellation
// can close it.
func (g *Generator) emit(ctx context.Context, conn net.Conn, slot *connSlot) error {
	var limiter *rate.Limiter
	if g.rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(g.rate), 1)
		g.logger.Info("emitting alerts", "rate", g.rate)
	} else {
		g.logger.Info("emitting alerts", "rate", "unlimited")
	}

	var signatureID uint64
	buffer := make([]byte, 0, g.template.Size(math.MaxUint64))
	for {
		if err := g.pace(ctx, limiter); err != nil {
			return err
		}

		signatureID++
		buffer = g.template.AppendRecord(buffer[:0], signatureID)

		_, err := conn.Write(buffer)
		if err == nil {
			g.emitted.Add(1)
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		g.dropped.Add(1)
		level := slog.LevelWarn
		if netutil.IsExpectedCloseError(err) {
			level = slog.LevelDebug
		}
		g.logger.Log(ctx, level, "write failed, reconnecting", "error", err, "signature_id", signatureID)

		replacement, dialErr := g.dial(ctx, g.socketPath)
		if dialErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.logger.Debug("reconnect failed", "error", dialErr, "retry_in", g.writeFailureDelay)
			if err := clock.SleepContext(ctx, g.clock, g.writeFailureDelay); err != nil {
				return err
			}
			continue
		}
		if !slot.swap(replacement) {
			return ctx.Err()
		}
		conn = replacement
		g.reconnects.Add(1)
		g.logger.Info("reconnected to socket")
	}
}

// pace blocks until the limiter grants the next record. A nil limiter
// never blocks. Reservations are made against the injected clock so
// fake time controls the bucket.
func (g *Generator) pace(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return ctx.Err()
	}
	now := g.clock.Now()
	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return fmt.Errorf("rate limiter refused reservation at rate %v", g.rate)
	}
	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return ctx.Err()
	}
	return clock.SleepContext(ctx, g.clock, delay)
}

// ignoreCancel maps any error returned after ctx is done to nil:
// cancellation is the normal way Run ends.
func ignoreCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// connSlot holds the current connection so it can be closed from the
// cancellation callback while the Run goroutine is blocked writing.
type connSlot struct {
	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// swap installs conn as current and closes the previous one. It
// returns false (and closes conn) if the slot was already closed.
func (s *connSlot) swap(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.Close()
		return false
	}
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	return true
}

func (s *connSlot) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.conn != nil {
		s.conn.Close()
	}
}
