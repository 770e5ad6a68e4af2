// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/grpc/encoding"
)

// Zstd is the gRPC compressor name for Zstandard.
const Zstd = "zstd"

type zstdCompressor struct {
	encoders sync.Pool
	decoders sync.Pool
}

type zstdWriter struct {
	*zstd.Encoder
	pool *sync.Pool
}

// Close flushes the frame and returns the encoder to the pool.
func (w *zstdWriter) Close() error {
	err := w.Encoder.Close()
	w.pool.Put(w)
	return err
}

type zstdReader struct {
	decoder *zstd.Decoder
	pool    *sync.Pool
}

// Read returns the decoder to the pool once the message is exhausted.
func (r *zstdReader) Read(p []byte) (int, error) {
	if r.decoder == nil {
		return 0, io.EOF
	}
	n, err := r.decoder.Read(p)
	if err == io.EOF {
		r.pool.Put(r.decoder)
		r.decoder = nil
	}
	return n, err
}

func (c *zstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	if pooled, ok := c.encoders.Get().(*zstdWriter); ok {
		pooled.Encoder.Reset(w)
		return pooled, nil
	}
	encoder, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedFastest),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}
	return &zstdWriter{Encoder: encoder, pool: &c.encoders}, nil
}

func (c *zstdCompressor) Decompress(r io.Reader) (io.Reader, error) {
	decoder, ok := c.decoders.Get().(*zstd.Decoder)
	if ok {
		if err := decoder.Reset(r); err != nil {
			c.decoders.Put(decoder)
			return nil, err
		}
	} else {
		var err error
		decoder, err = zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
	}
	return &zstdReader{decoder: decoder, pool: &c.decoders}, nil
}

func (c *zstdCompressor) Name() string { return Zstd }

func init() {
	encoding.RegisterCompressor(&zstdCompressor{})
}
