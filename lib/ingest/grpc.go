// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"

	"google.golang.org/grpc"

	"github.com/bureau-foundation/sensor-harness/lib/codec"
)

// Service and method names on the wire.
const (
	ServiceName      = "sensor.SensorService"
	StreamDataMethod = "/" + ServiceName + "/StreamData"
)

// SensorServiceServer is implemented by anything that can serve
// StreamData. *Service is the production implementation.
type SensorServiceServer interface {
	StreamData(grpc.ClientStreamingServer[Event, Ack]) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SensorServiceServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamData",
			Handler:       streamDataHandler,
			ClientStreams: true,
		},
	},
	Metadata: "sensor.proto",
}

func streamDataHandler(srv any, stream grpc.ServerStream) error {
	return srv.(SensorServiceServer).StreamData(&grpc.GenericServerStream[Event, Ack]{ServerStream: stream})
}

// Register installs server on registrar (normally a *grpc.Server).
func Register(registrar grpc.ServiceRegistrar, server SensorServiceServer) {
	registrar.RegisterService(&serviceDesc, server)
}

// Client calls StreamData on a remote SensorService.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient returns a Client using conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// StreamData opens a client stream. Messages are CBOR-encoded unless
// opts select another subtype (grpc.CallContentSubtype("proto") sends
// SensorEvent protobuf). Pass grpc.UseCompressor to compress them.
func (c *Client) StreamData(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[Event, Ack], error) {
	callOptions := append([]grpc.CallOption{grpc.CallContentSubtype(codec.Name)}, opts...)
	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], StreamDataMethod, callOptions...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[Event, Ack]{ClientStream: stream}, nil
}

// SendAll streams events in one StreamData call and waits for the
// acknowledgement.
func (c *Client) SendAll(ctx context.Context, events []Event, opts ...grpc.CallOption) (*Ack, error) {
	stream, err := c.StreamData(ctx, opts...)
	if err != nil {
		return nil, err
	}
	for index := range events {
		if err := stream.Send(&events[index]); err != nil {
			// The real error surfaces from CloseAndRecv.
			_, recvErr := stream.CloseAndRecv()
			if recvErr != nil {
				return nil, recvErr
			}
			return nil, err
		}
	}
	return stream.CloseAndRecv()
}
