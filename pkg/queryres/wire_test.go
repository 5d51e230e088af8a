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

package queryres

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// appendCellsBatch serializes a batch the way the engine does, optionally
// with unpacked repeated numeric fields, which parsers must accept too.
func appendCellsBatch(buf []byte, b *CellsBatch, packed bool, padding int) []byte {
	var sub []byte

	if packed {
		var cells []byte
		for _, c := range b.Cells {
			cells = protowire.AppendVarint(cells, uint64(c))
		}
		if len(cells) > 0 {
			sub = protowire.AppendTag(sub, fieldCells, protowire.BytesType)
			sub = protowire.AppendBytes(sub, cells)
		}
		var varints []byte
		for _, v := range b.VarintCells {
			varints = protowire.AppendVarint(varints, uint64(v))
		}
		if len(varints) > 0 {
			sub = protowire.AppendTag(sub, fieldVarintCells, protowire.BytesType)
			sub = protowire.AppendBytes(sub, varints)
		}
		var floats []byte
		for _, f := range b.Float64Cells {
			floats = protowire.AppendFixed64(floats, math.Float64bits(f))
		}
		if len(floats) > 0 {
			sub = protowire.AppendTag(sub, fieldFloat64Cells, protowire.BytesType)
			sub = protowire.AppendBytes(sub, floats)
		}
	} else {
		for _, c := range b.Cells {
			sub = protowire.AppendTag(sub, fieldCells, protowire.VarintType)
			sub = protowire.AppendVarint(sub, uint64(c))
		}
		for _, v := range b.VarintCells {
			sub = protowire.AppendTag(sub, fieldVarintCells, protowire.VarintType)
			sub = protowire.AppendVarint(sub, uint64(v))
		}
		for _, f := range b.Float64Cells {
			sub = protowire.AppendTag(sub, fieldFloat64Cells, protowire.Fixed64Type)
			sub = protowire.AppendFixed64(sub, math.Float64bits(f))
		}
	}

	if len(b.StringCells) > 0 {
		sub = protowire.AppendTag(sub, fieldStringCells, protowire.BytesType)
		sub = protowire.AppendBytes(sub, b.StringCells)
	}
	for _, blob := range b.BlobCells {
		sub = protowire.AppendTag(sub, fieldBlobCells, protowire.BytesType)
		sub = protowire.AppendBytes(sub, blob)
	}
	if b.IsLastBatch {
		sub = protowire.AppendTag(sub, fieldIsLastBatch, protowire.VarintType)
		sub = protowire.AppendVarint(sub, 1)
	}
	if padding > 0 {
		sub = protowire.AppendTag(sub, 7, protowire.BytesType)
		sub = protowire.AppendBytes(sub, make([]byte, padding))
	}

	buf = protowire.AppendTag(buf, fieldBatch, protowire.BytesType)
	return protowire.AppendBytes(buf, sub)
}

func appendQueryResult(buf []byte, qr *QueryResult, packed bool, padding int) []byte {
	for _, name := range qr.ColumnNames {
		buf = protowire.AppendTag(buf, fieldColumnNames, protowire.BytesType)
		buf = protowire.AppendString(buf, name)
	}
	if qr.Error != "" {
		buf = protowire.AppendTag(buf, fieldError, protowire.BytesType)
		buf = protowire.AppendString(buf, qr.Error)
	}
	for _, b := range qr.Batches {
		buf = appendCellsBatch(buf, b, packed, padding)
	}
	if qr.StatementCount > 0 {
		buf = protowire.AppendTag(buf, fieldStatementCount, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(qr.StatementCount))
	}
	if qr.StatementWithOutputCount > 0 {
		buf = protowire.AppendTag(buf, fieldStatementWithOutputCount, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(qr.StatementWithOutputCount))
	}
	if qr.LastStatementSQL != "" {
		buf = protowire.AppendTag(buf, fieldLastStatementSQL, protowire.BytesType)
		buf = protowire.AppendString(buf, qr.LastStatementSQL)
	}
	return buf
}

func TestWireRoundTrip(t *testing.T) {
	want := &QueryResult{
		ColumnNames: []string{"id", "name", "value"},
		Batches: []*CellsBatch{
			{
				Cells:        []CellType{CellVarint, CellString, CellFloat64, CellVarint, CellString, CellNull},
				VarintCells:  []int64{1, -2},
				Float64Cells: []float64{0.5},
				StringCells:  []byte("alpha\x00beta\x00"),
			},
			{
				Cells:       []CellType{CellVarint, CellNull, CellBlob},
				VarintCells: []int64{3},
				BlobCells:   [][]byte{{0xca, 0xfe}},
				IsLastBatch: true,
			},
		},
		StatementCount:           2,
		StatementWithOutputCount: 1,
		LastStatementSQL:         "select * from slice",
	}

	for _, tc := range []struct {
		name    string
		packed  bool
		padding int
	}{
		{name: "packed", packed: true},
		{name: "unpacked", packed: false},
		{name: "packed with padding", packed: true, padding: 64},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf := appendQueryResult(nil, want, tc.packed, tc.padding)

			got, err := UnmarshalQueryResult(buf)
			require.NoError(t, err)
			assert.True(t, cmp.Equal(want, got), cmp.Diff(want, got))
		})
	}
}

func TestWireNegativeVarint(t *testing.T) {
	buf := appendCellsBatch(nil, &CellsBatch{
		Cells:       []CellType{CellVarint},
		VarintCells: []int64{-9000000000},
		IsLastBatch: true,
	}, true, 0)

	qr, err := UnmarshalQueryResult(buf)
	require.NoError(t, err)
	require.Len(t, qr.Batches, 1)
	assert.Equal(t, []int64{-9000000000}, qr.Batches[0].VarintCells)
}

func TestWireUnknownFieldsSkipped(t *testing.T) {
	var buf []byte
	buf = protowire.AppendTag(buf, 1000, protowire.VarintType)
	buf = protowire.AppendVarint(buf, 7)
	buf = protowire.AppendTag(buf, fieldColumnNames, protowire.BytesType)
	buf = protowire.AppendString(buf, "x")

	qr, err := UnmarshalQueryResult(buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, qr.ColumnNames)
}

func TestWireMalformed(t *testing.T) {
	buf := appendQueryResult(nil, &QueryResult{ColumnNames: []string{"x"}}, true, 0)
	buf = buf[:len(buf)-1] // truncate inside the column name

	_, err := UnmarshalQueryResult(buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProtocolViolation))
}

func TestNewResultFromWire(t *testing.T) {
	buf := appendQueryResult(nil, &QueryResult{
		ColumnNames: []string{"x"},
		Batches: []*CellsBatch{
			{
				Cells:       []CellType{CellVarint, CellVarint, CellVarint},
				VarintCells: []int64{1, 2, 3},
				IsLastBatch: true,
			},
		},
	}, true, 0)

	res, err := NewResultFromWire(buf, DefaultResultOptions())
	require.NoError(t, err)
	require.Equal(t, 3, res.RowCount())

	var got []int64
	for res.Next() {
		cell, ok := res.Row().Get("x")
		require.True(t, ok)
		got = append(got, cell.N)
	}
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestNewResultFromWireQueryError(t *testing.T) {
	buf := appendQueryResult(nil, &QueryResult{
		ColumnNames: []string{"x"},
		Error:       "no such table: nope",
	}, true, 0)

	_, err := NewResultFromWire(buf, DefaultResultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueryFailed))
	assert.Contains(t, err.Error(), "no such table")
}
