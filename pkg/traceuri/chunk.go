/*
 * Copyright (C) 2023  Intergral GmbH
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package traceuri

import (
	"context"
	"io"

	"go.uber.org/multierr"
)

// DefaultChunkSize is how much of a trace file or object is read per chunk.
const DefaultChunkSize = 32 * 1024 * 1024

// ChunkIterator is a lazy, finite, non-restartable sequence of byte chunks.
// NextChunk returns io.EOF once drained and keeps returning it. Close is
// safe to call at any point and releases whatever the iterator holds open.
type ChunkIterator interface {
	NextChunk(ctx context.Context) ([]byte, error)
	Close() error
}

// ChunksFromBytes yields the given bytes as a single chunk. Empty input
// yields no chunks.
func ChunksFromBytes(b []byte) ChunkIterator {
	return &bytesChunks{buf: b}
}

type bytesChunks struct {
	buf  []byte
	done bool
}

func (c *bytesChunks) NextChunk(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.done || len(c.buf) == 0 {
		return nil, io.EOF
	}
	c.done = true
	return c.buf, nil
}

func (c *bytesChunks) Close() error {
	c.done = true
	return nil
}

// ChunksFromReader reads the reader in chunkSize pieces until EOF. Close
// closes the reader when it is an io.Closer.
func ChunksFromReader(r io.Reader, chunkSize int) ChunkIterator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &readerChunks{r: r, chunkSize: chunkSize}
}

type readerChunks struct {
	r         io.Reader
	chunkSize int
	done      bool
}

func (c *readerChunks) NextChunk(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.done {
		return nil, io.EOF
	}

	buf := make([]byte, c.chunkSize)
	n, err := io.ReadFull(c.r, buf)
	switch err {
	case nil:
		return buf, nil
	case io.EOF:
		c.done = true
		return nil, io.EOF
	case io.ErrUnexpectedEOF:
		c.done = true
		return buf[:n], nil
	default:
		c.done = true
		return nil, err
	}
}

func (c *readerChunks) Close() error {
	c.done = true
	if closer, ok := c.r.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// LazyChunks defers building the underlying iterator until the first chunk
// is requested, so resolving a large reference tree does not pin file
// handles or connections before anything is drained.
func LazyChunks(open func(ctx context.Context) (ChunkIterator, error)) ChunkIterator {
	return &lazyChunks{open: open}
}

type lazyChunks struct {
	open  func(ctx context.Context) (ChunkIterator, error)
	inner ChunkIterator
	err   error
}

func (c *lazyChunks) NextChunk(ctx context.Context) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.inner == nil {
		inner, err := c.open(ctx)
		if err != nil {
			c.err = err
			return nil, err
		}
		c.inner = inner
	}
	return c.inner.NextChunk(ctx)
}

func (c *lazyChunks) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// ReadAll drains the iterator into one buffer and closes it.
func ReadAll(ctx context.Context, it ChunkIterator) (buf []byte, err error) {
	defer func() {
		err = multierr.Append(err, it.Close())
	}()

	for {
		chunk, nextErr := it.NextChunk(ctx)
		if nextErr == io.EOF {
			return buf, nil
		}
		if nextErr != nil {
			return nil, nextErr
		}
		buf = append(buf, chunk...)
	}
}
