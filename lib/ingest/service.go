// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/bureau-foundation/sensor-harness/lib/counter"
)

// DefaultLogEvery is how many events a stream receives between
// progress log lines.
const DefaultLogEvery = 1000

// Service counts metrics from StreamData streams into a shared
// counter. Any number of streams may run concurrently.
type Service struct {
	counter  *counter.Counter
	logger   *slog.Logger
	logEvery uint64

	streams atomic.Uint64
	events  atomic.Uint64
	active  atomic.Int64
}

// NewService returns a Service adding to metrics. A nil logger uses
// slog.Default().
func NewService(metrics *counter.Counter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		counter:  metrics,
		logger:   logger,
		logEvery: DefaultLogEvery,
	}
}

// Streams returns the number of StreamData calls accepted so far.
func (s *Service) Streams() uint64 { return s.streams.Load() }

// Events returns the number of events received across all streams.
func (s *Service) Events() uint64 { return s.events.Load() }

// ActiveStreams returns the number of streams currently open.
func (s *Service) ActiveStreams() int64 { return s.active.Load() }

// StreamData receives events until the client half-closes, then
// acknowledges. A receive error ends the RPC with that error.
func (s *Service) StreamData(stream grpc.ClientStreamingServer[Event, Ack]) error {
	logger := s.logger.With("session", uuid.NewString())
	if remote, ok := peer.FromContext(stream.Context()); ok {
		logger = logger.With("peer", remote.Addr.String())
	}

	s.streams.Add(1)
	s.active.Add(1)
	defer s.active.Add(-1)
	logger.Info("stream accepted")

	var received uint64
	for {
		event, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			logger.Info("stream ended", "events", received)
			return stream.SendAndClose(&Ack{})
		}
		if err != nil {
			level := slog.LevelWarn
			if code := status.Code(err); code == codes.Canceled || code == codes.DeadlineExceeded {
				level = slog.LevelInfo
			}
			logger.Log(stream.Context(), level, "stream receive failed", "events", received, "error", err)
			return err
		}

		s.counter.Add(uint64(len(event.Metrics)))
		s.events.Add(1)
		received++
		if received%s.logEvery == 0 {
			logger.Info("received events", "events", received, "last_event_metrics", len(event.Metrics))
		}
	}
}
