// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package reporter periodically samples a counter.Counter and reports
// how much it grew since the previous sample.
//
// Each tick produces a [Sample]: the counter's total and the delta
// from the previous tick. The first delta is measured from zero.
// Ticks the consumer misses are dropped, so one sample may cover more
// than one interval; the delta is still exact, only the label "per
// interval" stretches. There is no drift compensation.
package reporter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bureau-foundation/sensor-harness/lib/clock"
	"github.com/bureau-foundation/sensor-harness/lib/counter"
)

// DefaultInterval is the sampling period when Config.Interval is zero.
const DefaultInterval = time.Second

// Sample is one reporter observation.
type Sample struct {
	// At is the clock time of the tick.
	At time.Time

	// Total is the counter value at the tick.
	Total uint64

	// Delta is Total minus the previous sample's Total.
	Delta uint64
}

// Config holds the parameters for a Reporter.
type Config struct {
	// Counter is the value to sample. Required.
	Counter *counter.Counter

	// Interval is the sampling period. Defaults to DefaultInterval.
	Interval time.Duration

	// Clock drives the ticker. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives one Info line per sample. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Message is the log message for each sample. Defaults to
	// "server throughput".
	Message string

	// OnSample, if set, is called synchronously with every sample
	// after it is logged.
	OnSample func(Sample)
}

// Reporter samples a counter on a fixed interval.
type Reporter struct {
	counter  *counter.Counter
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	message  string
	onSample func(Sample)
}

// New validates config and returns a Reporter.
func New(config Config) (*Reporter, error) {
	if config.Counter == nil {
		return nil, errors.New("reporter: counter is required")
	}
	if config.Interval < 0 {
		return nil, errors.New("reporter: interval must not be negative")
	}
	reporter := &Reporter{
		counter:  config.Counter,
		interval: config.Interval,
		clock:    config.Clock,
		logger:   config.Logger,
		message:  config.Message,
		onSample: config.OnSample,
	}
	if reporter.interval == 0 {
		reporter.interval = DefaultInterval
	}
	if reporter.clock == nil {
		reporter.clock = clock.Real()
	}
	if reporter.logger == nil {
		reporter.logger = slog.Default()
	}
	if reporter.message == "" {
		reporter.message = "server throughput"
	}
	return reporter, nil
}

// Run samples until ctx is cancelled and then returns nil.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	var previous uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			current := r.counter.Load()
			sample := Sample{At: now, Total: current, Delta: current - previous}
			previous = current

			r.logger.Info(r.message,
				"events_per_sec", perSecond(sample.Delta, r.interval),
				"delta", sample.Delta,
				"total", sample.Total,
			)
			if r.onSample != nil {
				r.onSample(sample)
			}
		}
	}
}

// Rate converts a sample's delta into events per second over interval.
func (s Sample) Rate(interval time.Duration) float64 {
	return perSecond(s.Delta, interval)
}

func perSecond(delta uint64, interval time.Duration) float64 {
	if interval <= 0 {
		return 0
	}
	return float64(delta) / interval.Seconds()
}
