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
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ResultOptions controls decode and table conversion.
type ResultOptions struct {
	// Strategy selects the decode path.
	Strategy DecodeStrategy
	// Backend builds the tabular view. Nil disables Table entirely, it
	// then fails naming the backends that could serve it.
	Backend TableBackend
}

// DefaultResultOptions is what NewResult uses: vectorized decode with the
// in-memory matrix backend.
func DefaultResultOptions() ResultOptions {
	return ResultOptions{
		Strategy: DecodeVectorized,
		Backend:  MatrixBackend{},
	}
}

// Result is a fully decoded query result. All batches are decoded eagerly
// at construction; iteration afterwards is a single forward pass and never
// fails.
type Result struct {
	columns  []string
	colIndex map[string]int
	cells    []Cell
	rowCount int
	backend  TableBackend

	cursor int
}

// NewResult decodes the given batches against the column list with default
// options.
func NewResult(columnNames []string, batches []*CellsBatch) (*Result, error) {
	return NewResultWithOptions(columnNames, batches, DefaultResultOptions())
}

// NewResultWithOptions decodes the given batches against the column list.
// It fails with ErrProtocolViolation when the batch sequence is malformed:
// a non-empty sequence whose last batch is not marked terminal, a terminal
// mark before the last batch, a batch whose cell count is not divisible by
// the column count, an invalid cell tag, or a typed array with fewer values
// than tags referencing it.
func NewResultWithOptions(columnNames []string, batches []*CellsBatch, opts ResultOptions) (*Result, error) {
	total := 0
	for i, b := range batches {
		last := i == len(batches)-1
		if last && !b.IsLastBatch {
			return nil, errors.Wrap(ErrProtocolViolation, "last batch is not marked terminal")
		}
		if !last && b.IsLastBatch {
			return nil, errors.Wrapf(ErrProtocolViolation, "batch %d of %d is marked terminal", i, len(batches))
		}
		if len(columnNames) > 0 && len(b.Cells)%len(columnNames) != 0 {
			return nil, errors.Wrapf(ErrProtocolViolation, "batch %d: %d cells not divisible by %d columns", i, len(b.Cells), len(columnNames))
		}
		total += len(b.Cells)
	}

	var (
		cells []Cell
		err   error
	)
	switch opts.Strategy {
	case DecodeVectorized:
		cells, err = decodeVectorized(batches, total)
	case DecodeScalar:
		cells, err = decodeScalar(batches, total)
	default:
		return nil, errors.Errorf("invalid decode strategy: %d", opts.Strategy)
	}
	if err != nil {
		return nil, err
	}

	rowCount := 0
	if len(columnNames) > 0 {
		rowCount = total / len(columnNames)
	}

	return &Result{
		columns:  columnNames,
		colIndex: buildColumnIndex(columnNames),
		cells:    cells,
		rowCount: rowCount,
		backend:  opts.Backend,
	}, nil
}

// NewResultFromWire unmarshals a serialized QueryResult message and decodes
// it. A non-empty wire error field fails with ErrQueryFailed carrying the
// engine text.
func NewResultFromWire(buf []byte, opts ResultOptions) (*Result, error) {
	qr, err := UnmarshalQueryResult(buf)
	if err != nil {
		return nil, err
	}
	if qr.Error != "" {
		return nil, errors.Wrap(ErrQueryFailed, qr.Error)
	}
	return NewResultWithOptions(qr.ColumnNames, qr.Batches, opts)
}

// NewResultFromCells builds a Result from already decoded cells laid out
// row-major. Used when deriving new results from existing ones, merging or
// flattening. The cells are kept as given.
func NewResultFromCells(columnNames []string, cells []Cell) (*Result, error) {
	if len(columnNames) == 0 && len(cells) > 0 {
		return nil, errors.New("cells without columns")
	}
	rowCount := 0
	if len(columnNames) > 0 {
		if len(cells)%len(columnNames) != 0 {
			return nil, errors.Errorf("%d cells not divisible by %d columns", len(cells), len(columnNames))
		}
		rowCount = len(cells) / len(columnNames)
	}

	return &Result{
		columns:  columnNames,
		colIndex: buildColumnIndex(columnNames),
		cells:    cells,
		rowCount: rowCount,
		backend:  MatrixBackend{},
	}, nil
}

// Columns returns the column names in wire order, duplicates included.
func (r *Result) Columns() []string {
	return r.columns
}

// RowCount returns the number of rows in the result.
func (r *Result) RowCount() int {
	return r.rowCount
}

// Next advances the iterator to the next row. It returns false once the
// result is exhausted and keeps returning false afterwards.
func (r *Result) Next() bool {
	if r.cursor >= r.rowCount {
		return false
	}
	r.cursor++
	return true
}

// Row returns the row the last call to Next advanced to. Valid only after
// Next returned true.
func (r *Result) Row() Row {
	if r.cursor == 0 || r.cursor > r.rowCount {
		return Row{}
	}
	num := r.cursor - 1
	start := num * len(r.columns)
	return Row{
		columns:  r.columns,
		colIndex: r.colIndex,
		cells:    r.cells[start : start+len(r.columns)],
		num:      num,
	}
}

// Table converts the result into the tabular view of the configured
// backend.
func (r *Result) Table() (Table, error) {
	if r.backend == nil {
		return nil, errors.Wrap(ErrNoTableBackend, "table conversion needs queryres.MatrixBackend or arrowtable.Backend")
	}
	return r.backend.BuildTable(r.columns, r.cells, r.rowCount)
}

func decodeVectorized(batches []*CellsBatch, total int) ([]Cell, error) {
	cells := make([]Cell, total)
	base := 0
	for i, b := range batches {
		if err := scatterBatch(cells[base:base+len(b.Cells)], b); err != nil {
			return nil, errors.Wrapf(err, "batch %d", i)
		}
		base += len(b.Cells)
	}
	return cells, nil
}

// scatterBatch fills the slot range of one batch: nulls directly, then one
// bulk pass per typed array. Slot order within the batch is tag order, each
// typed array is consumed in the order its tag appears.
func scatterBatch(dst []Cell, batch *CellsBatch) error {
	var varintIdx, floatIdx, stringIdx, blobIdx []int

	for i, tag := range batch.Cells {
		switch tag {
		case CellNull:
			dst[i] = NewNullCell()
		case CellVarint:
			varintIdx = append(varintIdx, i)
		case CellFloat64:
			floatIdx = append(floatIdx, i)
		case CellString:
			stringIdx = append(stringIdx, i)
		case CellBlob:
			blobIdx = append(blobIdx, i)
		default:
			return errors.Wrapf(ErrProtocolViolation, "cell %d: invalid cell type %d", i, tag)
		}
	}

	if len(varintIdx) > len(batch.VarintCells) {
		return errors.Wrapf(ErrProtocolViolation, "%d varint tags but %d varint cells", len(varintIdx), len(batch.VarintCells))
	}
	for k, i := range varintIdx {
		dst[i] = NewVarintCell(batch.VarintCells[k])
	}

	if len(floatIdx) > len(batch.Float64Cells) {
		return errors.Wrapf(ErrProtocolViolation, "%d float64 tags but %d float64 cells", len(floatIdx), len(batch.Float64Cells))
	}
	for k, i := range floatIdx {
		dst[i] = NewFloat64Cell(batch.Float64Cells[k])
	}

	strs := splitStringCells(batch.StringCells)
	if len(stringIdx) > len(strs) {
		return errors.Wrapf(ErrProtocolViolation, "%d string tags but %d string cells", len(stringIdx), len(strs))
	}
	for k, i := range stringIdx {
		dst[i] = NewStringCell(strs[k])
	}

	if len(blobIdx) > len(batch.BlobCells) {
		return errors.Wrapf(ErrProtocolViolation, "%d blob tags but %d blob cells", len(blobIdx), len(batch.BlobCells))
	}
	for k, i := range blobIdx {
		dst[i] = NewBlobCell(batch.BlobCells[k])
	}

	return nil
}

// decodeScalar concatenates the typed arrays across batches and walks the
// concatenated tag stream once, pulling from one cursor per type.
func decodeScalar(batches []*CellsBatch, total int) ([]Cell, error) {
	tags := make([]CellType, 0, total)
	var (
		varints []int64
		floats  []float64
		strs    []string
		blobs   [][]byte
	)
	for _, b := range batches {
		tags = append(tags, b.Cells...)
		varints = append(varints, b.VarintCells...)
		floats = append(floats, b.Float64Cells...)
		strs = append(strs, splitStringCells(b.StringCells)...)
		blobs = append(blobs, b.BlobCells...)
	}

	cells := make([]Cell, 0, total)
	var vi, fi, si, bi int
	for i, tag := range tags {
		switch tag {
		case CellNull:
			cells = append(cells, NewNullCell())
		case CellVarint:
			if vi >= len(varints) {
				return nil, errors.Wrapf(ErrProtocolViolation, "cell %d: varint cells exhausted", i)
			}
			cells = append(cells, NewVarintCell(varints[vi]))
			vi++
		case CellFloat64:
			if fi >= len(floats) {
				return nil, errors.Wrapf(ErrProtocolViolation, "cell %d: float64 cells exhausted", i)
			}
			cells = append(cells, NewFloat64Cell(floats[fi]))
			fi++
		case CellString:
			if si >= len(strs) {
				return nil, errors.Wrapf(ErrProtocolViolation, "cell %d: string cells exhausted", i)
			}
			cells = append(cells, NewStringCell(strs[si]))
			si++
		case CellBlob:
			if bi >= len(blobs) {
				return nil, errors.Wrapf(ErrProtocolViolation, "cell %d: blob cells exhausted", i)
			}
			cells = append(cells, NewBlobCell(blobs[bi]))
			bi++
		default:
			return nil, errors.Wrapf(ErrProtocolViolation, "cell %d: invalid cell type %d", i, tag)
		}
	}

	return cells, nil
}

// splitStringCells turns the NUL-joined string blob into individual
// strings. Every string is NUL-terminated including the last, so the final
// split element is always an artifact and dropped. Invalid UTF-8 is
// replaced, never fatal.
func splitStringCells(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	parts := strings.Split(s, "\x00")
	return parts[:len(parts)-1]
}

// buildColumnIndex maps names to positions, later duplicates win.
func buildColumnIndex(columns []string) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, name := range columns {
		idx[name] = i
	}
	return idx
}
