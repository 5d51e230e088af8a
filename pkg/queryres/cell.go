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
	"fmt"
	"strconv"
)

// Cell is one decoded scalar slot of a query result. Only the field
// matching Type carries a value, the rest stay zero.
type Cell struct {
	Type CellType
	N    int64
	F    float64
	S    string
	B    []byte
}

func NewNullCell() Cell {
	return Cell{Type: CellNull}
}

func NewVarintCell(n int64) Cell {
	return Cell{Type: CellVarint, N: n}
}

func NewFloat64Cell(f float64) Cell {
	return Cell{Type: CellFloat64, F: f}
}

func NewStringCell(s string) Cell {
	return Cell{Type: CellString, S: s}
}

func NewBlobCell(b []byte) Cell {
	return Cell{Type: CellBlob, B: b}
}

// IsNull reports whether the cell carries no value.
func (c Cell) IsNull() bool {
	return c.Type == CellNull
}

// Value returns the dynamically typed value of the cell: nil, int64,
// float64, string or []byte.
func (c Cell) Value() interface{} {
	switch c.Type {
	case CellVarint:
		return c.N
	case CellFloat64:
		return c.F
	case CellString:
		return c.S
	case CellBlob:
		return c.B
	default:
		return nil
	}
}

func (c Cell) Equals(other Cell) bool {
	if c.Type != other.Type {
		return false
	}

	switch c.Type {
	case CellVarint:
		return c.N == other.N
	case CellFloat64:
		return c.F == other.F
	case CellString:
		return c.S == other.S
	case CellBlob:
		return bytes.Equal(c.B, other.B)
	default:
		return true
	}
}

func (c Cell) String() string {
	switch c.Type {
	case CellNull:
		return "<null>"
	case CellVarint:
		return strconv.FormatInt(c.N, 10)
	case CellFloat64:
		return strconv.FormatFloat(c.F, 'g', -1, 64)
	case CellString:
		return c.S
	case CellBlob:
		return fmt.Sprintf("<blob %d bytes>", len(c.B))
	default:
		return "<invalid>"
	}
}

// MarshalJSON implements the marshaler interface of the json pkg.
// Null and invalid cells render as JSON null, blobs as base64 strings.
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value())
}
