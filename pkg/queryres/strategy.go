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
	"fmt"
	"strings"
)

// DecodeStrategy selects how batches are turned into cells. Both
// strategies produce identical cells in identical order.
type DecodeStrategy byte

const (
	// DecodeVectorized scatters each batch into its slot range by tag,
	// then fills the typed slots with per-type bulk copies.
	DecodeVectorized DecodeStrategy = iota
	// DecodeScalar walks the concatenated tag stream once with one
	// cursor per typed array.
	DecodeScalar
)

// SupportedDecodeStrategies is a slice of all decode strategies.
var SupportedDecodeStrategies = []DecodeStrategy{
	DecodeVectorized,
	DecodeScalar,
}

func (d DecodeStrategy) String() string {
	switch d {
	case DecodeVectorized:
		return "vectorized"
	case DecodeScalar:
		return "scalar"
	default:
		return "unsupported"
	}
}

// ParseDecodeStrategy parses a decode strategy by its name.
func ParseDecodeStrategy(s string) (DecodeStrategy, error) {
	for _, d := range SupportedDecodeStrategies {
		if strings.EqualFold(d.String(), s) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid decode strategy: %s, supported: %s", s, supportedDecodeStrategiesString())
}

func supportedDecodeStrategiesString() string {
	var sb strings.Builder
	for i := range SupportedDecodeStrategies {
		sb.WriteString(SupportedDecodeStrategies[i].String())
		if i != len(SupportedDecodeStrategies)-1 {
			sb.WriteString(", ")
		}
	}
	return sb.String()
}
