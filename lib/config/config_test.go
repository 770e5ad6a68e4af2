// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Generator.SocketPath != "/tmp/suricata.sock" {
		t.Errorf("expected socket_path=/tmp/suricata.sock, got %s", cfg.Generator.SocketPath)
	}
	if cfg.Listen.Addr() != "0.0.0.0:50051" {
		t.Errorf("expected listen addr 0.0.0.0:50051, got %s", cfg.Listen.Addr())
	}
	if cfg.Generator.Rate != 0 {
		t.Errorf("expected unpaced default rate, got %v", cfg.Generator.Rate)
	}
	if cfg.Generator.PollInterval.Std() != 500*time.Millisecond {
		t.Errorf("expected poll_interval=500ms, got %s", cfg.Generator.PollInterval)
	}
	if cfg.Reporter.Interval.Std() != time.Second {
		t.Errorf("expected reporter interval=1s, got %s", cfg.Reporter.Interval)
	}
	if cfg.Listen.MetricsField != 3 {
		t.Errorf("expected listen metrics_field=3, got %d", cfg.Listen.MetricsField)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_WithoutEnvironmentReturnsDefaults(t *testing.T) {
	t.Setenv(EnvVar, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Listen.Port != 50051 {
		t.Errorf("expected default port, got %d", cfg.Listen.Port)
	}
}

func TestLoad_WithEnvironment(t *testing.T) {
	configPath := writeConfig(t, `
listen:
  port: 6000
`)
	t.Setenv(EnvVar, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Listen.Port != 6000 {
		t.Errorf("expected port=6000, got %d", cfg.Listen.Port)
	}
}

func TestLoadFile_MergesOverDefaults(t *testing.T) {
	configPath := writeConfig(t, `
listen:
  host: 127.0.0.1
generator:
  rate: 250
  poll_interval: 50ms
  socket_wait_max: 30s
reporter:
  interval: 5s
metrics:
  addr: 127.0.0.1:9100
log:
  format: json
  level: debug
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.Listen.Addr() != "127.0.0.1:50051" {
		t.Errorf("expected host override with default port, got %s", cfg.Listen.Addr())
	}
	if cfg.Generator.Rate != 250 {
		t.Errorf("expected rate=250, got %v", cfg.Generator.Rate)
	}
	if cfg.Generator.PollInterval.Std() != 50*time.Millisecond {
		t.Errorf("expected poll_interval=50ms, got %s", cfg.Generator.PollInterval)
	}
	if cfg.Generator.SocketWaitMax.Std() != 30*time.Second {
		t.Errorf("expected socket_wait_max=30s, got %s", cfg.Generator.SocketWaitMax)
	}
	if cfg.Generator.ConnectRetryInterval.Std() != 500*time.Millisecond {
		t.Errorf("omitted connect_retry_interval should keep default, got %s", cfg.Generator.ConnectRetryInterval)
	}
	if cfg.Generator.SocketPath != "/tmp/suricata.sock" {
		t.Errorf("omitted socket_path should keep default, got %s", cfg.Generator.SocketPath)
	}
	if cfg.Reporter.Interval.Std() != 5*time.Second {
		t.Errorf("expected reporter interval=5s, got %s", cfg.Reporter.Interval)
	}
	if cfg.Metrics.Addr != "127.0.0.1:9100" {
		t.Errorf("expected metrics addr, got %q", cfg.Metrics.Addr)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "debug" {
		t.Errorf("expected json/debug logging, got %s/%s", cfg.Log.Format, cfg.Log.Level)
	}
}

func TestLoadFile_ExpandsPaths(t *testing.T) {
	t.Setenv("SENSOR_TEST_RUNTIME", "/run/sensor")
	configPath := writeConfig(t, `
generator:
  socket_path: ${SENSOR_TEST_RUNTIME}/eve.sock
  template_path: ${SENSOR_TEST_UNSET:-/etc/sensor}/alert.jsonc
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Generator.SocketPath != "/run/sensor/eve.sock" {
		t.Errorf("socket_path = %q", cfg.Generator.SocketPath)
	}
	if cfg.Generator.TemplatePath != "/etc/sensor/alert.jsonc" {
		t.Errorf("template_path = %q", cfg.Generator.TemplatePath)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: expected os.ErrNotExist, got %v", err)
	}

	badDuration := writeConfig(t, "generator:\n  poll_interval: soon\n")
	if _, err := LoadFile(badDuration); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("bad duration: expected error naming line 2, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port zero", func(c *Config) { c.Listen.Port = 0 }, "listen.port"},
		{"port too large", func(c *Config) { c.Listen.Port = 70000 }, "listen.port"},
		{"empty socket", func(c *Config) { c.Generator.SocketPath = "" }, "socket_path"},
		{"negative rate", func(c *Config) { c.Generator.Rate = -1 }, "generator.rate"},
		{"zero poll", func(c *Config) { c.Generator.PollInterval = 0 }, "poll_interval"},
		{"negative wait", func(c *Config) { c.Generator.SocketWaitMax = Duration(-time.Second) }, "socket_wait_max"},
		{"zero retry", func(c *Config) { c.Generator.ConnectRetryInterval = 0 }, "connect_retry_interval"},
		{"zero report", func(c *Config) { c.Reporter.Interval = 0 }, "reporter.interval"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"metrics field zero", func(c *Config) { c.Listen.MetricsField = 0 }, "listen.metrics_field"},
		{"metrics field is sensor_id", func(c *Config) { c.Listen.MetricsField = 1 }, "listen.metrics_field"},
		{"metrics field reserved", func(c *Config) { c.Listen.MetricsField = 19500 }, "listen.metrics_field"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error %q does not mention %q", err, test.want)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Listen.Port = 0
	cfg.Generator.SocketPath = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "listen.port") || !strings.Contains(err.Error(), "socket_path") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}
