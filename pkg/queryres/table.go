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

// TableBackend reshapes decoded cells into a tabular view. It is resolved
// once at Result construction, never per call.
type TableBackend interface {
	Name() string
	BuildTable(columns []string, cells []Cell, rowCount int) (Table, error)
}

// Table is a rowCount x columnCount view with headers. Positional access
// retains every column; name access resolves duplicate names keep-last.
type Table interface {
	NumRows() int
	NumCols() int
	ColumnName(i int) string
	ColumnIndex(name string) (int, bool)
	At(row, col int) Cell
}

// MatrixBackend is the default in-memory table backend. It reshapes the
// flat cell array into per-row slices without copying cells.
type MatrixBackend struct{}

func (MatrixBackend) Name() string {
	return "matrix"
}

func (MatrixBackend) BuildTable(columns []string, cells []Cell, rowCount int) (Table, error) {
	rows := make([][]Cell, 0, rowCount)
	for i := 0; i < rowCount; i++ {
		rows = append(rows, cells[i*len(columns):(i+1)*len(columns)])
	}
	return &MatrixTable{
		columns:  columns,
		colIndex: buildColumnIndex(columns),
		rows:     rows,
	}, nil
}

// MatrixTable is the table the MatrixBackend builds.
type MatrixTable struct {
	columns  []string
	colIndex map[string]int
	rows     [][]Cell
}

func (t *MatrixTable) NumRows() int {
	return len(t.rows)
}

func (t *MatrixTable) NumCols() int {
	return len(t.columns)
}

func (t *MatrixTable) ColumnName(i int) string {
	return t.columns[i]
}

func (t *MatrixTable) ColumnIndex(name string) (int, bool) {
	i, ok := t.colIndex[name]
	return i, ok
}

func (t *MatrixTable) At(row, col int) Cell {
	return t.rows[row][col]
}

// Rows exposes the underlying row slices.
func (t *MatrixTable) Rows() [][]Cell {
	return t.rows
}
