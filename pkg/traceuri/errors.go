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

package traceuri

import "github.com/pkg/errors"

var (
	// ErrUnknownScheme is returned when a URI names a scheme no factory is
	// registered for.
	ErrUnknownScheme = errors.New("unknown trace uri scheme")

	// ErrInvalidURI marks URIs the parser rejects, like an ambiguous
	// single-character scheme, and malformed remainder arguments.
	ErrInvalidURI = errors.New("invalid trace uri")

	// ErrInvalidReference is returned for the zero Reference.
	ErrInvalidReference = errors.New("invalid trace reference")
)
