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
	"strings"
)

// CellType is the wire tag identifying the type of a single result cell.
type CellType byte

// The different cell types.
// Make sure to preserve the order, these numeric values come off the wire!
const (
	CellInvalid CellType = iota
	CellNull
	CellVarint
	CellFloat64
	CellString
	CellBlob
)

// SupportedCellTypes is a slice of all cell types a well-formed batch may carry.
var SupportedCellTypes = []CellType{
	CellNull,
	CellVarint,
	CellFloat64,
	CellString,
	CellBlob,
}

func (c CellType) String() string {
	switch c {
	case CellInvalid:
		return "invalid"
	case CellNull:
		return "null"
	case CellVarint:
		return "varint"
	case CellFloat64:
		return "float64"
	case CellString:
		return "string"
	case CellBlob:
		return "blob"
	default:
		return "unsupported"
	}
}

// UnmarshalYAML implements the Unmarshaler interface of the yaml pkg.
func (c *CellType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var typeString string
	err := unmarshal(&typeString)
	if err != nil {
		return err
	}

	*c, err = ParseCellType(typeString)
	if err != nil {
		return err
	}

	return nil
}

// MarshalYAML implements the Marshaler interface of the yaml pkg
func (c CellType) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// UnmarshalJSON implements the Unmarshaler interface of the json pkg.
func (c *CellType) UnmarshalJSON(b []byte) error {
	var typeString string
	err := json.Unmarshal(b, &typeString)
	if err != nil {
		return err
	}

	*c, err = ParseCellType(typeString)
	if err != nil {
		return err
	}

	return nil
}

// MarshalJSON implements the marshaler interface of the json pkg.
func (c CellType) MarshalJSON() ([]byte, error) {
	buffer := bytes.NewBufferString("\"" + c.String() + "\"")
	return buffer.Bytes(), nil
}

// ParseCellType parses a cell type by its name.
func ParseCellType(t string) (CellType, error) {
	for _, c := range SupportedCellTypes {
		if strings.EqualFold(c.String(), t) {
			return c, nil
		}
	}
	return CellInvalid, fmt.Errorf("invalid cell type: %s, supported: %s", t, SupportedCellTypesString())
}

// SupportedCellTypesString returns the list of supported CellTypes.
func SupportedCellTypesString() string {
	var sb strings.Builder
	for i := range SupportedCellTypes {
		sb.WriteString(SupportedCellTypes[i].String())
		if i != len(SupportedCellTypes)-1 {
			sb.WriteString(", ")
		}
	}
	return sb.String()
}
