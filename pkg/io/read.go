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

package io

import (
	"io"
)

// ReadAllWithEstimate reads r to EOF into a buffer presized to
// estimatedBytes. Callers that stat a file or know an object length first
// skip the doubling reallocations io.ReadAll would do. Estimates of zero or
// below fall back to io.ReadAll's default of 512.
//
// The read loop follows https://go.googlesource.com/go/+/go1.16.3/src/io/io.go#626.
func ReadAllWithEstimate(r io.Reader, estimatedBytes int64) ([]byte, error) {
	if estimatedBytes <= 0 {
		estimatedBytes = 512
	}

	// one spare byte so an exact estimate sees EOF without growing
	buf := make([]byte, 0, estimatedBytes+1)
	for {
		if len(buf) == cap(buf) {
			// Add more capacity (let append pick how much).
			buf = append(buf, 0)[:len(buf)]
		}
		n, err := r.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			return buf, err
		}
	}
}
