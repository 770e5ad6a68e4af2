// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the slog logger every harness binary uses.
//
// In "auto" format the handler follows stderr: slog.TextHandler when it
// is a terminal, slog.JSONHandler when it is piped or redirected (CI,
// log shippers, integration tests). Callers scope the returned logger
// with With:
//
//	logger := logging.New(os.Stderr, "auto", slog.LevelInfo).With("component", "generator")
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Formats accepted by [New] and [ParseFormat].
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to w at level. format is one of
// FormatAuto, FormatText or FormatJSON; anything else is treated as
// FormatAuto.
func New(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if useText(w, format) {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}

// NewFromFlags parses format and level strings as given on the command
// line or in the config file and returns a stderr logger.
func NewFromFlags(format, level string) (*slog.Logger, error) {
	parsedFormat, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	parsedLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return New(os.Stderr, parsedFormat, parsedLevel), nil
}

// ParseFormat normalizes a --log-format value.
func ParseFormat(format string) (string, error) {
	switch normalized := strings.ToLower(strings.TrimSpace(format)); normalized {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatText, FormatJSON:
		return normalized, nil
	default:
		return "", fmt.Errorf("unknown log format %q (want auto, text or json)", format)
	}
}

// ParseLevel parses a --log-level value ("debug", "info", "warn",
// "error", optionally with an offset such as "info+2").
func ParseLevel(level string) (slog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return slog.LevelInfo, nil
	}
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("unknown log level %q: %w", level, err)
	}
	return parsed, nil
}

func useText(w io.Writer, format string) bool {
	switch format {
	case FormatText:
		return true
	case FormatJSON:
		return false
	}
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// Discard returns a logger that drops everything. Tests pass it where
// a component requires a logger but the output is not under test.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
