// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bureau-foundation/sensor-harness/lib/alert"
	"github.com/bureau-foundation/sensor-harness/lib/clock"
	"github.com/bureau-foundation/sensor-harness/lib/logging"
	"github.com/bureau-foundation/sensor-harness/lib/testutil"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const receiveTimeout = 5 * time.Second

func TestRunPacesAtConfiguredRate(t *testing.T) {
	path := testutil.SocketPath(t, "eve.sock")
	endpoint := listen(t, path)
	fake := clock.Fake(epoch)
	generator := newGenerator(t, Config{SocketPath: path, Rate: 2, Clock: fake})

	runGenerator(t, generator)
	ids := readIDs(t, testutil.RequireReceive(t, endpoint.conns, receiveTimeout, "generator never connected"))

	// Three seconds of fake time at 2/s: records at 0, 0.5, ..., 3.0.
	for range 6 {
		fake.WaitForTimers(1)
		fake.Advance(500 * time.Millisecond)
	}
	got := testutil.RequireReceiveN(t, ids, 7, receiveTimeout, "paced records")
	for index, id := range got {
		if id != uint64(index+1) {
			t.Fatalf("record %d has signature_id %d, want %d", index, id, index+1)
		}
	}

	// The generator is now waiting for the 3.5s token.
	fake.WaitForTimers(1)
	select {
	case id := <-ids:
		t.Fatalf("unexpected record %d before the next token", id)
	default:
	}
	if stats := generator.Stats(); stats.Emitted != 7 || stats.Dropped != 0 {
		t.Errorf("Stats() = %+v, want 7 emitted, 0 dropped", stats)
	}
}

func TestRunUnlimitedEmitsConsecutiveIDs(t *testing.T) {
	path := testutil.SocketPath(t, "eve.sock")
	endpoint := listen(t, path)
	generator := newGenerator(t, Config{SocketPath: path, Clock: clock.Fake(epoch)})

	runGenerator(t, generator)
	ids := readIDs(t, testutil.RequireReceive(t, endpoint.conns, receiveTimeout, "generator never connected"))

	// No clock advances at all: an unpaced generator never waits, and
	// it outruns the seven records a 2/s rate allows in three seconds.
	got := testutil.RequireReceiveN(t, ids, 500, receiveTimeout, "unpaced records")
	for index, id := range got {
		if id != uint64(index+1) {
			t.Fatalf("record %d has signature_id %d, want %d", index, id, index+1)
		}
	}
}

func TestRunWaitsForLateSocket(t *testing.T) {
	path := testutil.SocketPath(t, "late.sock")
	fake := clock.Fake(epoch)
	generator := newGenerator(t, Config{SocketPath: path, Clock: fake, PollInterval: 500 * time.Millisecond})

	runGenerator(t, generator)

	// The generator is polling; create the endpoint and let one poll
	// interval elapse.
	fake.WaitForTimers(1)
	endpoint := listen(t, path)
	fake.Advance(500 * time.Millisecond)

	ids := readIDs(t, testutil.RequireReceive(t, endpoint.conns, receiveTimeout, "generator did not connect within one poll interval"))
	if first := testutil.RequireReceive(t, ids, receiveTimeout, "first record"); first != 1 {
		t.Errorf("first signature_id = %d, want 1", first)
	}
}

func TestRunSocketWaitExceeded(t *testing.T) {
	path := testutil.SocketPath(t, "never.sock")
	fake := clock.Fake(epoch)
	generator := newGenerator(t, Config{
		SocketPath:   path,
		Clock:        fake,
		PollInterval: 500 * time.Millisecond,
		MaxWait:      time.Second,
	})

	done := runGenerator(t, generator)
	for range 2 {
		fake.WaitForTimers(1)
		fake.Advance(500 * time.Millisecond)
	}

	err := testutil.RequireReceive(t, done, receiveTimeout, "Run should give up")
	if !errors.Is(err, ErrSocketWaitExceeded) {
		t.Fatalf("Run() = %v, want ErrSocketWaitExceeded", err)
	}
}

func TestRunBoundedConnectPolicyGivesUp(t *testing.T) {
	// A regular file at the path passes the existence check but refuses
	// every dial.
	path := testutil.SocketPath(t, "file.sock")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	fake := clock.Fake(epoch)
	generator := newGenerator(t, Config{
		SocketPath:     path,
		Clock:          fake,
		ConnectBackOff: backoff.WithMaxRetries(backoff.NewConstantBackOff(500*time.Millisecond), 2),
	})

	done := runGenerator(t, generator)
	for range 2 {
		fake.WaitForTimers(1)
		fake.Advance(500 * time.Millisecond)
	}

	err := testutil.RequireReceive(t, done, receiveTimeout, "Run should give up")
	if !errors.Is(err, ErrConnectExhausted) {
		t.Fatalf("Run() = %v, want ErrConnectExhausted", err)
	}
	if stats := generator.Stats(); stats != (Stats{}) {
		t.Errorf("Stats() = %+v, want zero", stats)
	}
}

func TestRunReconnectsAfterPeerClose(t *testing.T) {
	path := testutil.SocketPath(t, "eve.sock")
	endpoint := listen(t, path)
	generator := newGenerator(t, Config{SocketPath: path, Clock: clock.Fake(epoch)})

	runGenerator(t, generator)
	first := testutil.RequireReceive(t, endpoint.conns, receiveTimeout, "initial connection")
	firstIDs := readIDs(t, first)
	seen := testutil.RequireReceiveN(t, firstIDs, 10, receiveTimeout, "records on first connection")
	first.Close()

	second := testutil.RequireReceive(t, endpoint.conns, receiveTimeout, "generator did not reconnect")
	next := testutil.RequireReceive(t, readIDs(t, second), receiveTimeout, "record after reconnect")
	if next <= seen[len(seen)-1] {
		t.Errorf("signature_id after reconnect = %d, want > %d", next, seen[len(seen)-1])
	}
	if stats := generator.Stats(); stats.Reconnects < 1 || stats.Dropped < 1 {
		t.Errorf("Stats() = %+v, want at least one reconnect and one drop", stats)
	}
}

func TestRunSurvivesEndpointRestart(t *testing.T) {
	path := testutil.SocketPath(t, "eve.sock")
	endpoint := listen(t, path)
	fake := clock.Fake(epoch)
	generator := newGenerator(t, Config{
		SocketPath:        path,
		Clock:             fake,
		WriteFailureDelay: 100 * time.Millisecond,
	})

	runGenerator(t, generator)
	first := testutil.RequireReceive(t, endpoint.conns, receiveTimeout, "initial connection")
	seen := testutil.RequireReceiveN(t, readIDs(t, first), 10, receiveTimeout, "records on first connection")

	// Closing the listener unlinks the path, so the immediate
	// reconnect fails and the generator pauses.
	endpoint.listener.Close()
	first.Close()
	fake.WaitForTimers(1)

	restarted := listen(t, path)
	fake.Advance(100 * time.Millisecond)

	second := testutil.RequireReceive(t, restarted.conns, receiveTimeout, "generator did not reconnect to restarted endpoint")
	next := testutil.RequireReceive(t, readIDs(t, second), receiveTimeout, "record after restart")
	if next <= seen[len(seen)-1] {
		t.Errorf("signature_id after restart = %d, want > %d", next, seen[len(seen)-1])
	}
}

func TestRunCancelledWhileWaiting(t *testing.T) {
	fake := clock.Fake(epoch)
	generator := newGenerator(t, Config{SocketPath: testutil.SocketPath(t, "absent.sock"), Clock: fake})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- generator.Run(ctx) }()

	fake.WaitForTimers(1)
	cancel()
	if err := testutil.RequireReceive(t, done, receiveTimeout, "Run should stop"); err != nil {
		t.Fatalf("Run() after cancel = %v, want nil", err)
	}
}

func TestRunUsesTemplate(t *testing.T) {
	template, err := alert.Parse([]byte(`{"alert": {"signature_id": 0}, "sensor": "lab"}`))
	if err != nil {
		t.Fatal(err)
	}
	path := testutil.SocketPath(t, "eve.sock")
	endpoint := listen(t, path)
	generator := newGenerator(t, Config{SocketPath: path, Clock: clock.Fake(epoch), Template: template})

	runGenerator(t, generator)
	conn := testutil.RequireReceive(t, endpoint.conns, receiveTimeout, "generator never connected")
	t.Cleanup(func() { conn.Close() })
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"alert":{"signature_id":1},"sensor":"lab"}` + "\n"; line != want {
		t.Errorf("record = %q, want %q", line, want)
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New without socket path should fail")
	}
	if _, err := New(Config{SocketPath: "/tmp/x.sock", PollInterval: -time.Second}); err == nil {
		t.Error("New with negative poll interval should fail")
	}
}

type endpoint struct {
	listener net.Listener
	conns    chan net.Conn
}

// listen creates a unix listener at path and forwards accepted
// connections on conns.
func listen(t *testing.T, path string) *endpoint {
	t.Helper()
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen %s: %v", path, err)
	}
	t.Cleanup(func() { listener.Close() })

	result := &endpoint{listener: listener, conns: make(chan net.Conn, 8)}
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			result.conns <- conn
		}
	}()
	return result
}

// readIDs parses records from conn and delivers their signature_id
// values until the connection closes or the test ends.
func readIDs(t *testing.T, conn net.Conn) <-chan uint64 {
	t.Helper()
	t.Cleanup(func() { conn.Close() })

	ids := make(chan uint64, 1024)
	ctx := t.Context()
	go func() {
		defer close(ids)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			id, err := alert.SignatureID(scanner.Bytes())
			if err != nil {
				return
			}
			select {
			case ids <- id:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ids
}

func newGenerator(t *testing.T, config Config) *Generator {
	t.Helper()
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}
	generator, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return generator
}

// runGenerator starts Run in a goroutine and stops it at cleanup. The
// returned channel receives Run's result.
func runGenerator(t *testing.T, generator *Generator) <-chan error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		done <- generator.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-exited:
		case <-time.After(receiveTimeout):
			t.Error("generator did not stop after cancel")
		}
	})
	return done
}
