// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package alert renders the synthetic alert records the generator
// writes to the sensor socket.
//
// A record is one line of Suricata EVE-style JSON followed by '\n'.
// Every field is static template content except alert.signature_id,
// which carries the generator's per-record identifier so that each
// line hashes differently downstream.
//
// A [Template] is parsed once: the JSON is compacted and the byte span
// of the alert.signature_id value is located. Rendering a record is
// then an append of prefix, decimal identifier, and suffix, with no
// per-record JSON encoding on the hot path:
//
//	tmpl := alert.Default()
//	buf = tmpl.AppendRecord(buf[:0], id)
//	conn.Write(buf)
//
// Custom templates are read as JSONC (// and /* */ comments, trailing
// commas) so fixture files can be annotated.
//
// [SignatureID] and [Fingerprint] are the receiving-side helpers used
// by the sink to detect gaps and duplicates.
package alert
