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

// Package arrowtable converts decoded query results into Apache Arrow
// records, one typed column per result column.
package arrowtable

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pkg/errors"

	"github.com/intergral/tracequery/pkg/queryres"
	"github.com/intergral/tracequery/pkg/util/log"
)

// ErrMixedTypeColumn is returned when a column holds cells of more than one
// non-null type. Arrow columns are homogeneous, the conversion never guesses.
var ErrMixedTypeColumn = errors.New("column mixes cell types")

// Backend builds Arrow-backed tables. It satisfies queryres.TableBackend.
type Backend struct {
	mem memory.Allocator
}

func NewBackend() *Backend {
	log.WarnExperimentalUse("arrow table backend")
	return &Backend{mem: memory.DefaultAllocator}
}

// NewBackendWithAllocator is NewBackend with a caller-owned allocator, used
// by tests to assert releases.
func NewBackendWithAllocator(mem memory.Allocator) *Backend {
	return &Backend{mem: mem}
}

func (b *Backend) Name() string {
	return "arrow"
}

// BuildTable infers one Arrow type per column from its non-null cells and
// materializes a record. Columns with only null cells get the Arrow null
// type.
func (b *Backend) BuildTable(columns []string, cells []queryres.Cell, rowCount int) (queryres.Table, error) {
	fields := make([]arrow.Field, len(columns))
	for col, name := range columns {
		cellType, err := columnCellType(columns, cells, rowCount, col)
		if err != nil {
			return nil, err
		}
		fields[col] = arrow.Field{Name: name, Type: arrowType(cellType), Nullable: true}
	}

	builder := array.NewRecordBuilder(b.mem, arrow.NewSchema(fields, nil))
	defer builder.Release()

	for row := 0; row < rowCount; row++ {
		for col := range columns {
			cell := cells[row*len(columns)+col]
			if cell.IsNull() {
				builder.Field(col).AppendNull()
				continue
			}
			switch fb := builder.Field(col).(type) {
			case *array.Int64Builder:
				fb.Append(cell.N)
			case *array.Float64Builder:
				fb.Append(cell.F)
			case *array.StringBuilder:
				fb.Append(cell.S)
			case *array.BinaryBuilder:
				fb.Append(cell.B)
			default:
				fb.AppendNull()
			}
		}
	}

	colIndex := make(map[string]int, len(columns))
	for i, name := range columns {
		colIndex[name] = i
	}

	return &Table{
		record:   builder.NewRecord(),
		colIndex: colIndex,
	}, nil
}

func columnCellType(columns []string, cells []queryres.Cell, rowCount, col int) (queryres.CellType, error) {
	cellType := queryres.CellNull
	for row := 0; row < rowCount; row++ {
		c := cells[row*len(columns)+col]
		if c.Type == queryres.CellNull {
			continue
		}
		if cellType == queryres.CellNull {
			cellType = c.Type
			continue
		}
		if cellType != c.Type {
			return queryres.CellInvalid, errors.Wrapf(ErrMixedTypeColumn, "column %s mixes %s and %s", columns[col], cellType, c.Type)
		}
	}
	return cellType, nil
}

func arrowType(c queryres.CellType) arrow.DataType {
	switch c {
	case queryres.CellVarint:
		return arrow.PrimitiveTypes.Int64
	case queryres.CellFloat64:
		return arrow.PrimitiveTypes.Float64
	case queryres.CellString:
		return arrow.BinaryTypes.String
	case queryres.CellBlob:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.Null
	}
}

// Table is an Arrow record satisfying queryres.Table. Callers done with it
// should Release it.
type Table struct {
	record   arrow.Record
	colIndex map[string]int
}

func (t *Table) NumRows() int {
	return int(t.record.NumRows())
}

func (t *Table) NumCols() int {
	return int(t.record.NumCols())
}

func (t *Table) ColumnName(i int) string {
	return t.record.ColumnName(i)
}

// ColumnIndex resolves a column by name, duplicates keep-last.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.colIndex[name]
	return i, ok
}

func (t *Table) At(row, col int) queryres.Cell {
	arr := t.record.Column(col)
	if arr.IsNull(row) {
		return queryres.NewNullCell()
	}
	switch a := arr.(type) {
	case *array.Int64:
		return queryres.NewVarintCell(a.Value(row))
	case *array.Float64:
		return queryres.NewFloat64Cell(a.Value(row))
	case *array.String:
		return queryres.NewStringCell(a.Value(row))
	case *array.Binary:
		return queryres.NewBlobCell(a.Value(row))
	default:
		return queryres.NewNullCell()
	}
}

// Record exposes the underlying Arrow record for consumers speaking Arrow
// natively. Ownership stays with the Table.
func (t *Table) Record() arrow.Record {
	return t.record
}

// Release frees the Arrow buffers. The Table must not be used afterwards.
func (t *Table) Release() {
	t.record.Release()
}
