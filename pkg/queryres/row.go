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
	"bytes"
	"encoding/json"
)

// Row is a view over one row of a Result. It stays valid after the
// iterator moves on, the underlying cells are shared with the Result.
type Row struct {
	columns  []string
	colIndex map[string]int
	cells    []Cell
	num      int
}

// Num returns the zero-based row number.
func (r Row) Num() int {
	return r.num
}

// Columns returns the column names in wire order, duplicates included.
func (r Row) Columns() []string {
	return r.columns
}

// Cell returns the cell at the given column position.
func (r Row) Cell(i int) Cell {
	return r.cells[i]
}

// Get returns the cell bound to the given column name. With duplicate
// column names the last occurrence wins.
func (r Row) Get(name string) (Cell, bool) {
	i, ok := r.colIndex[name]
	if !ok {
		return Cell{}, false
	}
	return r.cells[i], true
}

// MarshalJSON renders the row as an object in column order. Duplicate
// column names collapse keep-last, matching name-based access.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for i, name := range r.columns {
		// skip earlier duplicates so the emitted object has unique keys
		if r.colIndex[name] != i {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')

		v, err := json.Marshal(r.cells[i])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
