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

import "context"

// Result is one expansion step of a resolver: a nested reference plus the
// metadata this step contributes to it.
type Result struct {
	Trace    Reference
	Metadata map[string]string
}

// Resolver expands into zero or more results whose references may need
// further resolution.
type Resolver interface {
	Resolve(ctx context.Context) ([]Result, error)
}

// Factory builds resolvers for one URI scheme from the remainder after the
// scheme separator.
type Factory interface {
	Scheme() string
	FromTraceURI(remainder string) (Resolver, error)
}

// ResolvedTrace is a fully resolved leaf: a lazy byte stream plus the
// merged metadata of every resolver along its path.
type ResolvedTrace struct {
	Chunks   ChunkIterator
	Metadata map[string]string
}
