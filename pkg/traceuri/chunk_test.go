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
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeTrackingReader struct {
	io.Reader
	closed bool
}

func (r *closeTrackingReader) Close() error {
	r.closed = true
	return nil
}

func TestChunksFromBytes(t *testing.T) {
	it := ChunksFromBytes([]byte("hello"))

	chunk, err := it.NextChunk(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), chunk)

	_, err = it.NextChunk(context.Background())
	assert.Equal(t, io.EOF, err)
	_, err = it.NextChunk(context.Background())
	assert.Equal(t, io.EOF, err, "EOF must repeat")

	require.NoError(t, it.Close())
}

func TestChunksFromBytesEmpty(t *testing.T) {
	it := ChunksFromBytes(nil)
	_, err := it.NextChunk(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestChunksFromReader(t *testing.T) {
	content := []byte("0123456789abc") // 13 bytes, chunk size 5 -> 5, 5, 3
	it := ChunksFromReader(bytes.NewReader(content), 5)

	var got []byte
	var sizes []int
	for {
		chunk, err := it.NextChunk(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk...)
		sizes = append(sizes, len(chunk))
	}

	assert.Equal(t, content, got)
	assert.Equal(t, []int{5, 5, 3}, sizes)

	_, err := it.NextChunk(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestChunksFromReaderExactMultiple(t *testing.T) {
	it := ChunksFromReader(bytes.NewReader([]byte("0123456789")), 5)

	buf, err := ReadAll(context.Background(), it)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), buf)
}

func TestChunksFromReaderCloses(t *testing.T) {
	r := &closeTrackingReader{Reader: bytes.NewReader([]byte("x"))}
	it := ChunksFromReader(r, 5)

	require.NoError(t, it.Close())
	assert.True(t, r.closed)

	_, err := it.NextChunk(context.Background())
	assert.Equal(t, io.EOF, err, "closed iterator is drained")
}

func TestLazyChunksDefersOpen(t *testing.T) {
	opened := 0
	it := LazyChunks(func(ctx context.Context) (ChunkIterator, error) {
		opened++
		return ChunksFromBytes([]byte("late")), nil
	})
	assert.Equal(t, 0, opened, "construction must not open")

	chunk, err := it.NextChunk(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("late"), chunk)
	assert.Equal(t, 1, opened)

	_, err = it.NextChunk(context.Background())
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 1, opened, "open must run once")
}

func TestLazyChunksOpenErrorSticks(t *testing.T) {
	boom := errors.New("open failed")
	opened := 0
	it := LazyChunks(func(ctx context.Context) (ChunkIterator, error) {
		opened++
		return nil, boom
	})

	_, err := it.NextChunk(context.Background())
	assert.Equal(t, boom, err)
	_, err = it.NextChunk(context.Background())
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, opened)

	require.NoError(t, it.Close())
}

func TestReadAllClosesIterator(t *testing.T) {
	r := &closeTrackingReader{Reader: bytes.NewReader([]byte("payload"))}

	buf, err := ReadAll(context.Background(), ChunksFromReader(r, 3))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), buf)
	assert.True(t, r.closed)
}

func TestReadAllPropagatesReadError(t *testing.T) {
	boom := errors.New("read failed")
	r := &closeTrackingReader{Reader: io.MultiReader(bytes.NewReader([]byte("abc")), errReader{boom})}

	_, err := ReadAll(context.Background(), ChunksFromReader(r, 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.True(t, r.closed, "iterator must be closed even on error")
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestNextChunkHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ChunksFromBytes([]byte("x")).NextChunk(ctx)
	assert.Equal(t, context.Canceled, err)

	_, err = ChunksFromReader(bytes.NewReader([]byte("x")), 5).NextChunk(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestChunksFromReaderDefaultSize(t *testing.T) {
	it := ChunksFromReader(bytes.NewReader([]byte("tiny")), 0)

	chunk, err := it.NextChunk(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("tiny"), chunk)
}
