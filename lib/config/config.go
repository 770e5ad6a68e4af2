// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable [Load] reads the config file
// path from.
const EnvVar = "SENSOR_HARNESS_CONFIG"

// ErrInvalid is wrapped by every error [Config.Validate] returns.
var ErrInvalid = errors.New("invalid configuration")

// Config is the configuration shared by sensor-mock and sensor-sink.
type Config struct {
	// Listen is the gRPC ingest endpoint.
	Listen ListenConfig `yaml:"listen"`

	// Generator configures the alert stream written to the local socket.
	Generator GeneratorConfig `yaml:"generator"`

	// Reporter configures the throughput log line.
	Reporter ReporterConfig `yaml:"reporter"`

	// Metrics configures the Prometheus endpoint. Empty Addr disables it.
	Metrics MetricsConfig `yaml:"metrics"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`

	// Sink configures the sensor-sink socket listener.
	Sink SinkConfig `yaml:"sink"`
}

// ListenConfig is the TCP address the ingest service binds.
type ListenConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// MetricsField is the protobuf field number of the repeated
	// metrics field in events sent on the plain "application/grpc"
	// content type. CBOR streams ignore it.
	MetricsField int `yaml:"metrics_field"`
}

// Addr returns host:port, bracketing IPv6 hosts.
func (l ListenConfig) Addr() string {
	return net.JoinHostPort(l.Host, strconv.Itoa(l.Port))
}

// GeneratorConfig configures the alert stream generator.
type GeneratorConfig struct {
	// SocketPath is the unix socket the generator dials. The generator
	// never creates it.
	SocketPath string `yaml:"socket_path"`

	// Rate is records per second. Zero means unpaced.
	Rate float64 `yaml:"rate"`

	// PollInterval is how often the socket path is checked for
	// existence at startup.
	PollInterval Duration `yaml:"poll_interval"`

	// SocketWaitMax bounds the startup wait. Zero waits forever.
	SocketWaitMax Duration `yaml:"socket_wait_max"`

	// ConnectRetryInterval is the delay between failed dials.
	ConnectRetryInterval Duration `yaml:"connect_retry_interval"`

	// WriteFailureDelay is the pause after a write failure whose
	// immediate reconnect also failed.
	WriteFailureDelay Duration `yaml:"write_failure_delay"`

	// TemplatePath is an optional JSONC alert template. Empty selects
	// the built-in template.
	TemplatePath string `yaml:"template_path"`
}

// ReporterConfig configures the throughput reporter.
type ReporterConfig struct {
	Interval Duration `yaml:"interval"`
}

// MetricsConfig configures the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the slog handler. Format is "auto", "text" or
// "json"; Level is any level slog.Level.UnmarshalText accepts.
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// SinkConfig configures sensor-sink.
type SinkConfig struct {
	// DuplicateWindow is how many recent record fingerprints are
	// remembered for duplicate detection. Negative disables it.
	DuplicateWindow int `yaml:"duplicate_window"`
}

// Duration is a time.Duration that reads from YAML as a Go duration
// string ("500ms", "2s").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", node.Line, err)
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Default returns the configuration used when no file is given. The
// socket path, port, bind host and rate match the historical CLI
// defaults.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			Host:         "0.0.0.0",
			Port:         50051,
			MetricsField: 3,
		},
		Generator: GeneratorConfig{
			SocketPath:           "/tmp/suricata.sock",
			PollInterval:         Duration(500 * time.Millisecond),
			ConnectRetryInterval: Duration(500 * time.Millisecond),
			WriteFailureDelay:    Duration(100 * time.Millisecond),
		},
		Reporter: ReporterConfig{
			Interval: Duration(time.Second),
		},
		Log: LogConfig{
			Format: "auto",
			Level:  "info",
		},
		Sink: SinkConfig{
			DuplicateWindow: 4096,
		},
	}
}

// Load loads configuration from the file named by SENSOR_HARNESS_CONFIG.
// When the variable is unset it returns [Default]; the harness is
// expected to run from flags alone.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over the defaults. Fields the
// file omits keep their default values. ${VAR} and ${VAR:-default} are
// expanded in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":   os.Getenv("HOME"),
		"TMPDIR": os.TempDir(),
	}

	c.Generator.SocketPath = expandVars(c.Generator.SocketPath, vars)
	c.Generator.TemplatePath = expandVars(c.Generator.TemplatePath, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. Every problem found is
// reported; each wraps [ErrInvalid].
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		invalid("listen.port %d out of range 1..65535", c.Listen.Port)
	}
	// Fields 1 and 2 are the event's sensor_id and timestamp.
	if field := protowire.Number(c.Listen.MetricsField); !field.IsValid() || field <= 2 {
		invalid("listen.metrics_field %d is not a usable protobuf field number", c.Listen.MetricsField)
	}
	if c.Generator.SocketPath == "" {
		invalid("generator.socket_path is required")
	}
	if c.Generator.Rate < 0 {
		invalid("generator.rate must not be negative, got %v", c.Generator.Rate)
	}
	if c.Generator.PollInterval <= 0 {
		invalid("generator.poll_interval must be positive, got %s", c.Generator.PollInterval)
	}
	if c.Generator.SocketWaitMax < 0 {
		invalid("generator.socket_wait_max must not be negative, got %s", c.Generator.SocketWaitMax)
	}
	if c.Generator.ConnectRetryInterval <= 0 {
		invalid("generator.connect_retry_interval must be positive, got %s", c.Generator.ConnectRetryInterval)
	}
	if c.Generator.WriteFailureDelay < 0 {
		invalid("generator.write_failure_delay must not be negative, got %s", c.Generator.WriteFailureDelay)
	}
	if c.Reporter.Interval <= 0 {
		invalid("reporter.interval must be positive, got %s", c.Reporter.Interval)
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		invalid("log.format must be auto, text or json, got %q", c.Log.Format)
	}

	return errors.Join(errs...)
}
