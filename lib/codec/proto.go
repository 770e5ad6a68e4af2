// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	protocodec "google.golang.org/grpc/encoding/proto"
	"google.golang.org/grpc/mem"
)

// WireMessage is implemented by types that encode themselves in the
// protobuf binary wire format without generated code. The default
// "application/grpc" content type carries them alongside ordinary
// proto.Message values.
type WireMessage interface {
	MarshalWire() ([]byte, error)
	UnmarshalWire(data []byte) error
}

// wireCodec replaces the registered "proto" codec. WireMessage values
// are encoded directly; everything else (health checks, any generated
// message) goes to the codec it replaced.
type wireCodec struct {
	base encoding.CodecV2
}

func (c wireCodec) Marshal(v any) (mem.BufferSlice, error) {
	message, ok := v.(WireMessage)
	if !ok {
		return c.base.Marshal(v)
	}
	data, err := message.MarshalWire()
	if err != nil {
		return nil, fmt.Errorf("proto wire marshal %T: %w", v, err)
	}
	return mem.BufferSlice{mem.SliceBuffer(data)}, nil
}

func (c wireCodec) Unmarshal(data mem.BufferSlice, v any) error {
	message, ok := v.(WireMessage)
	if !ok {
		return c.base.Unmarshal(data, v)
	}
	if err := message.UnmarshalWire(data.Materialize()); err != nil {
		return fmt.Errorf("proto wire unmarshal %T: %w", v, err)
	}
	return nil
}

func (wireCodec) Name() string { return protocodec.Name }

func init() {
	// The grpc proto package's init has already registered the stock
	// codec under the same name.
	encoding.RegisterCodecV2(wireCodec{base: encoding.GetCodecV2(protocodec.Name)})
}
