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

import "github.com/pkg/errors"

var (
	// ErrProtocolViolation marks malformed batch sequences: a missing or
	// early terminal flag, cell counts not divisible by the column count,
	// invalid cell tags, exhausted typed arrays, bad wire bytes. A result
	// failing this way is aborted as a whole.
	ErrProtocolViolation = errors.New("cell batch protocol violation")

	// ErrQueryFailed wraps the error text the engine put on the wire.
	ErrQueryFailed = errors.New("query failed")

	// ErrNoTableBackend is returned by Table when the result was built
	// without a table backend.
	ErrNoTableBackend = errors.New("no table backend configured")
)
