// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is the gRPC content-subtype for CBOR-encoded messages. Clients
// select it with grpc.CallContentSubtype(codec.Name); the server picks
// the codec from the request's "application/grpc+cbor" content type.
const Name = "cbor"

// grpcCodec adapts the package's CBOR modes to encoding.Codec.
type grpcCodec struct{}

func (grpcCodec) Marshal(v any) ([]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor marshal %T: %w", v, err)
	}
	return data, nil
}

func (grpcCodec) Unmarshal(data []byte, v any) error {
	if err := Unmarshal(data, v); err != nil {
		return fmt.Errorf("cbor unmarshal %T: %w", v, err)
	}
	return nil
}

func (grpcCodec) Name() string { return Name }

func init() {
	encoding.RegisterCodec(grpcCodec{})
}
