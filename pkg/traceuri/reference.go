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

import "io"

type refKind byte

const (
	refInvalid refKind = iota
	refString
	refBytes
	refReader
	refChunks
	refResolver
	refList
)

// Reference is one node of a trace reference tree: raw bytes, a reader, a
// chunk iterator, a path or URI string, a resolver instance, or a list of
// further references. The zero Reference is invalid and fails to resolve.
type Reference struct {
	kind     refKind
	str      string
	bytes    []byte
	reader   io.Reader
	chunks   ChunkIterator
	resolver Resolver
	list     []Reference
}

// RefString references a trace by path or URI. Which one it is gets decided
// at resolve time.
func RefString(s string) Reference {
	return Reference{kind: refString, str: s}
}

// RefBytes references an in-memory trace.
func RefBytes(b []byte) Reference {
	return Reference{kind: refBytes, bytes: b}
}

// RefReader references a trace behind a reader. The reader is consumed once
// and closed with the resolved chunks when it is an io.Closer.
func RefReader(r io.Reader) Reference {
	return Reference{kind: refReader, reader: r}
}

// RefChunks references a trace behind an existing chunk iterator.
func RefChunks(it ChunkIterator) Reference {
	return Reference{kind: refChunks, chunks: it}
}

// RefResolver references whatever the given resolver expands to.
func RefResolver(r Resolver) Reference {
	return Reference{kind: refResolver, resolver: r}
}

// RefList references a list of further references, resolved left to right.
func RefList(refs ...Reference) Reference {
	return Reference{kind: refList, list: refs}
}
