// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sensor-harness/lib/config"
)

// cliOptions holds parsed command-line flags. Only flags the user set
// explicitly override the config file.
type cliOptions struct {
	flagSet     *pflag.FlagSet
	configPath  string
	showVersion bool

	socketPath           string
	host                 string
	port                 int
	metricsField         int
	rate                 float64
	socketWaitMax        time.Duration
	pollInterval         time.Duration
	connectRetryInterval time.Duration
	reportInterval       time.Duration
	metricsAddr          string
	templatePath         string
	logFormat            string
	logLevel             string
}

func parseFlags(args []string) (*cliOptions, error) {
	defaults := config.Default()
	options := &cliOptions{}

	flagSet := pflag.NewFlagSet("sensor-mock", pflag.ContinueOnError)
	flagSet.StringVar(&options.configPath, "config", "", "YAML config file (default: $"+config.EnvVar+", else built-in defaults)")
	flagSet.BoolVar(&options.showVersion, "version", false, "print version and exit")

	flagSet.StringVarP(&options.socketPath, "socket", "s", defaults.Generator.SocketPath, "unix socket the alert generator writes to")
	flagSet.StringVar(&options.host, "host", defaults.Listen.Host, "address the gRPC ingest endpoint binds")
	flagSet.IntVarP(&options.port, "port", "p", defaults.Listen.Port, "port the gRPC ingest endpoint binds")
	flagSet.IntVar(&options.metricsField, "metrics-field", defaults.Listen.MetricsField, "protobuf field number of the repeated metrics field in plain application/grpc events")
	flagSet.Float64VarP(&options.rate, "rate", "r", defaults.Generator.Rate, "alert records per second (0 = unlimited)")
	flagSet.DurationVar(&options.socketWaitMax, "socket-wait-max", defaults.Generator.SocketWaitMax.Std(), "give up if the socket has not appeared after this long (0 = wait forever)")
	flagSet.DurationVar(&options.pollInterval, "poll-interval", defaults.Generator.PollInterval.Std(), "how often to check for the socket while waiting")
	flagSet.DurationVar(&options.connectRetryInterval, "connect-retry-interval", defaults.Generator.ConnectRetryInterval.Std(), "delay between failed connection attempts")
	flagSet.DurationVar(&options.reportInterval, "report-interval", defaults.Reporter.Interval.Std(), "throughput log interval")
	flagSet.StringVar(&options.metricsAddr, "metrics-addr", defaults.Metrics.Addr, "serve Prometheus metrics on this address (empty = disabled)")
	flagSet.StringVar(&options.templatePath, "template", defaults.Generator.TemplatePath, "JSONC alert template file (default: built-in Suricata alert)")
	flagSet.StringVar(&options.logFormat, "log-format", defaults.Log.Format, "log format: auto, text or json")
	flagSet.StringVar(&options.logLevel, "log-level", defaults.Log.Level, "log level: debug, info, warn or error")
	flagSet.SetOutput(os.Stderr)

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if flagSet.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	options.flagSet = flagSet
	return options, nil
}

// resolve loads the config file (if any), applies explicitly set
// flags on top, and validates the result.
func (o *cliOptions) resolve() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	changed := o.flagSet.Changed
	if changed("socket") {
		cfg.Generator.SocketPath = o.socketPath
	}
	if changed("host") {
		cfg.Listen.Host = o.host
	}
	if changed("port") {
		cfg.Listen.Port = o.port
	}
	if changed("metrics-field") {
		cfg.Listen.MetricsField = o.metricsField
	}
	if changed("rate") {
		cfg.Generator.Rate = o.rate
	}
	if changed("socket-wait-max") {
		cfg.Generator.SocketWaitMax = config.Duration(o.socketWaitMax)
	}
	if changed("poll-interval") {
		cfg.Generator.PollInterval = config.Duration(o.pollInterval)
	}
	if changed("connect-retry-interval") {
		cfg.Generator.ConnectRetryInterval = config.Duration(o.connectRetryInterval)
	}
	if changed("report-interval") {
		cfg.Reporter.Interval = config.Duration(o.reportInterval)
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = o.metricsAddr
	}
	if changed("template") {
		cfg.Generator.TemplatePath = o.templatePath
	}
	if changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	if changed("log-level") {
		cfg.Log.Level = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
