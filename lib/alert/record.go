// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package alert

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// recordIdentity is the subset of a record the receiving side reads.
type recordIdentity struct {
	Alert struct {
		SignatureID *uint64 `json:"signature_id"`
	} `json:"alert"`
}

// SignatureID extracts alert.signature_id from one record. A trailing
// newline is ignored.
func SignatureID(record []byte) (uint64, error) {
	var identity recordIdentity
	if err := json.Unmarshal(bytes.TrimRight(record, "\n"), &identity); err != nil {
		return 0, fmt.Errorf("decoding alert record: %w", err)
	}
	if identity.Alert.SignatureID == nil {
		return 0, ErrNoSignatureID
	}
	return *identity.Alert.SignatureID, nil
}

// Fingerprint is a BLAKE3-256 digest of a record without its framing
// newline.
type Fingerprint [32]byte

// FingerprintOf hashes one record.
func FingerprintOf(record []byte) Fingerprint {
	return Fingerprint(blake3.Sum256(bytes.TrimRight(record, "\n")))
}
