// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the sensor
// harness binaries.
//
// Configuration has three layers, applied in order: [Default], an
// optional YAML file ([LoadFile], or [Load] via the
// SENSOR_HARNESS_CONFIG environment variable), and command-line flags
// the user set explicitly. The flag layer lives in each binary; this
// package only knows about the first two.
//
// Durations are written as Go duration strings and decoded through
// [Duration]. Path fields support ${HOME}, ${TMPDIR} and
// ${VAR:-default} expansion. No other environment variables override
// config values.
//
// [Config.Validate] collects every problem at once, each wrapping
// [ErrInvalid].
package config
