// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"testing"

	"google.golang.org/grpc/encoding"
	protocodec "google.golang.org/grpc/encoding/proto"
	"google.golang.org/grpc/mem"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// counted is a WireMessage holding one string in field 1.
type counted struct {
	value string
}

func (c *counted) MarshalWire() ([]byte, error) {
	if c.value == "" {
		return nil, errors.New("empty value")
	}
	return protowire.AppendString(protowire.AppendTag(nil, 1, protowire.BytesType), c.value), nil
}

func (c *counted) UnmarshalWire(data []byte) error {
	number, wireType, n := protowire.ConsumeTag(data)
	if n < 0 || number != 1 || wireType != protowire.BytesType {
		return errors.New("unexpected field")
	}
	value, m := protowire.ConsumeString(data[n:])
	if m < 0 {
		return protowire.ParseError(m)
	}
	c.value = value
	return nil
}

func TestProtoCodecEncodesWireMessages(t *testing.T) {
	registered := encoding.GetCodecV2(protocodec.Name)
	if _, ok := registered.(wireCodec); !ok {
		t.Fatalf("codec registered under %q is %T, want wireCodec", protocodec.Name, registered)
	}

	data, err := registered.Marshal(&counted{value: "sensor-1"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// The bytes must be what a generated StringValue would produce.
	var generated wrapperspb.StringValue
	if err := registered.Unmarshal(data, &generated); err != nil {
		t.Fatalf("Unmarshal into generated message: %v", err)
	}
	if generated.GetValue() != "sensor-1" {
		t.Errorf("generated value = %q, want %q", generated.GetValue(), "sensor-1")
	}

	var decoded counted
	if err := registered.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.value != "sensor-1" {
		t.Errorf("decoded value = %q, want %q", decoded.value, "sensor-1")
	}
}

func TestProtoCodecDelegatesGeneratedMessages(t *testing.T) {
	registered := encoding.GetCodecV2(protocodec.Name)

	data, err := registered.Marshal(wrapperspb.String("health"))
	if err != nil {
		t.Fatalf("Marshal generated message: %v", err)
	}
	var decoded counted
	if err := registered.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.value != "health" {
		t.Errorf("decoded value = %q, want %q", decoded.value, "health")
	}

	if _, err := registered.Marshal(struct{}{}); err == nil {
		t.Error("expected the stock codec to reject a non-proto value")
	}
}

func TestProtoCodecWrapsWireErrors(t *testing.T) {
	registered := encoding.GetCodecV2(protocodec.Name)

	if _, err := registered.Marshal(&counted{}); err == nil {
		t.Error("expected MarshalWire error to propagate")
	}
	var decoded counted
	if err := registered.Unmarshal(mem.BufferSlice{mem.SliceBuffer([]byte{0x10, 0x01})}, &decoded); err == nil {
		t.Error("expected UnmarshalWire error to propagate")
	}
}
