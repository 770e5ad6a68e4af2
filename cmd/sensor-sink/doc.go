// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Sensor-sink listens on the alert socket in place of a real forwarder
// so sensor-mock's generator can be smoke-tested on its own:
//
//	sensor-sink -s /tmp/suricata.sock &
//	sensor-mock -s /tmp/suricata.sock -r 1000
//
// It logs record throughput every --report-interval and reports
// signature_id gaps (records the generator dropped), duplicates and
// generator restarts. Counts are exported as sensor_sink_* metrics on
// --metrics-addr when set.
package main
