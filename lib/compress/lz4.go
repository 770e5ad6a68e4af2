// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
	"google.golang.org/grpc/encoding"
)

// LZ4 is the gRPC compressor name for the LZ4 frame format.
const LZ4 = "lz4"

type lz4Compressor struct {
	writers sync.Pool
	readers sync.Pool
}

type lz4Writer struct {
	*lz4.Writer
	pool *sync.Pool
}

// Close flushes the frame and returns the writer to the pool.
func (w *lz4Writer) Close() error {
	err := w.Writer.Close()
	w.pool.Put(w)
	return err
}

type lz4Reader struct {
	reader *lz4.Reader
	pool   *sync.Pool
}

func (r *lz4Reader) Read(p []byte) (int, error) {
	if r.reader == nil {
		return 0, io.EOF
	}
	n, err := r.reader.Read(p)
	if err == io.EOF {
		r.pool.Put(r.reader)
		r.reader = nil
	}
	return n, err
}

func (c *lz4Compressor) Compress(w io.Writer) (io.WriteCloser, error) {
	if pooled, ok := c.writers.Get().(*lz4Writer); ok {
		pooled.Writer.Reset(w)
		return pooled, nil
	}
	return &lz4Writer{Writer: lz4.NewWriter(w), pool: &c.writers}, nil
}

func (c *lz4Compressor) Decompress(r io.Reader) (io.Reader, error) {
	reader, ok := c.readers.Get().(*lz4.Reader)
	if ok {
		reader.Reset(r)
	} else {
		reader = lz4.NewReader(r)
	}
	return &lz4Reader{reader: reader, pool: &c.readers}, nil
}

func (c *lz4Compressor) Name() string { return LZ4 }

func init() {
	encoding.RegisterCompressor(&lz4Compressor{})
}
