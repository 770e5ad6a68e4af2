// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package alert

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTemplateRendersValidJSON(t *testing.T) {
	record := Default().AppendRecord(nil, 42)

	if !bytes.HasSuffix(record, []byte("}\n")) {
		t.Fatalf("record not newline framed: %q", record)
	}
	if bytes.Count(record, []byte("\n")) != 1 {
		t.Fatalf("record contains embedded newlines: %q", record)
	}

	var decoded map[string]any
	if err := json.Unmarshal(record, &decoded); err != nil {
		t.Fatalf("rendered record is not valid JSON: %v\n%s", err, record)
	}
	if decoded["event_type"] != "alert" {
		t.Errorf("event_type = %v, want alert", decoded["event_type"])
	}

	id, err := SignatureID(record)
	if err != nil {
		t.Fatalf("SignatureID: %v", err)
	}
	if id != 42 {
		t.Errorf("SignatureID = %d, want 42", id)
	}
}

func TestDefaultTemplatePreservesFieldOrder(t *testing.T) {
	record := string(Default().AppendRecord(nil, 7))
	wantPrefix := `{"metadata":{"sensor_id":"test"`
	if !strings.HasPrefix(record, wantPrefix) {
		t.Fatalf("record = %q, want prefix %q", record, wantPrefix)
	}
	if !strings.Contains(record, `"gid":1,"signature_id":7,"rev":1`) {
		t.Fatalf("signature_id not substituted in place: %q", record)
	}
}

func TestAppendRecordReusesBuffer(t *testing.T) {
	template := Default()
	buffer := make([]byte, 0, 2048)

	first := template.AppendRecord(buffer[:0], 1)
	firstCopy := append([]byte(nil), first...)
	second := template.AppendRecord(buffer[:0], 18446744073709551615)

	if &first[0] != &second[0] {
		t.Fatal("AppendRecord reallocated despite sufficient capacity")
	}
	id, err := SignatureID(second)
	if err != nil {
		t.Fatalf("SignatureID: %v", err)
	}
	if id != 18446744073709551615 {
		t.Errorf("SignatureID = %d, want max uint64", id)
	}
	if bytes.Equal(firstCopy, second) {
		t.Error("records with different identifiers are identical")
	}
}

func TestSize(t *testing.T) {
	template := Default()
	for _, id := range []uint64{0, 9, 10, 12345, 18446744073709551615} {
		if got, want := template.Size(id), len(template.AppendRecord(nil, id)); got != want {
			t.Errorf("Size(%d) = %d, want %d", id, got, want)
		}
	}
}

func TestParseJSONC(t *testing.T) {
	source := []byte(`{
		// annotated fixture
		"event_type": "alert",
		"alert": {
			"signature": "Custom",
			"signature_id": "placeholder", /* replaced per record */
			"severity": 1,
		},
		"src_ip": "10.1.1.1",
	}`)

	template, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	record := template.AppendRecord(nil, 99)
	want := `{"event_type":"alert","alert":{"signature":"Custom","signature_id":99,"severity":1},"src_ip":"10.1.1.1"}` + "\n"
	if string(record) != want {
		t.Fatalf("record = %q, want %q", record, want)
	}
}

func TestParseSkipsNestedSignatureIDOutsideAlert(t *testing.T) {
	source := []byte(`{"other":{"signature_id":5},"alert":{"signature_id":null}}`)
	template, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	record := string(template.AppendRecord(nil, 3))
	want := `{"other":{"signature_id":5},"alert":{"signature_id":3}}` + "\n"
	if record != want {
		t.Fatalf("record = %q, want %q", record, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		noID   bool
	}{
		{name: "not json", source: `{"alert":`},
		{name: "array", source: `[1,2]`},
		{name: "no alert", source: `{"event_type":"alert"}`, noID: true},
		{name: "alert not object", source: `{"alert":3}`},
		{name: "no signature id", source: `{"alert":{"gid":1}}`, noID: true},
		{name: "object signature id", source: `{"alert":{"signature_id":{"a":1}}}`, noID: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.source))
			if err == nil {
				t.Fatal("expected error")
			}
			if test.noID && !errors.Is(err, ErrNoSignatureID) {
				t.Fatalf("error = %v, want ErrNoSignatureID", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alert.jsonc")
	if err := os.WriteFile(path, []byte(`{"alert":{"signature_id":0}} // tail`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	template, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := string(template.AppendRecord(nil, 1)); got != "{\"alert\":{\"signature_id\":1}}\n" {
		t.Fatalf("record = %q", got)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.jsonc")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}

func TestFingerprintDistinguishesRecords(t *testing.T) {
	template := Default()
	first := FingerprintOf(template.AppendRecord(nil, 1))
	again := FingerprintOf(bytes.TrimRight(template.AppendRecord(nil, 1), "\n"))
	second := FingerprintOf(template.AppendRecord(nil, 2))

	if first != again {
		t.Error("fingerprint depends on the framing newline")
	}
	if first == second {
		t.Error("different records share a fingerprint")
	}
}

func TestSignatureIDMissing(t *testing.T) {
	if _, err := SignatureID([]byte(`{"alert":{}}`)); !errors.Is(err, ErrNoSignatureID) {
		t.Fatalf("error = %v, want ErrNoSignatureID", err)
	}
	if _, err := SignatureID([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func BenchmarkAppendRecord(b *testing.B) {
	template := Default()
	buffer := make([]byte, 0, 2048)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buffer = template.AppendRecord(buffer[:0], uint64(i))
	}
}
