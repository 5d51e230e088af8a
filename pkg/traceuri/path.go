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

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

// MetadataPath is the metadata key carrying the origin path of
// path-resolved traces.
const MetadataPath = "_path"

// PathResolver is the leaf resolver for filesystem paths. The file opens at
// the first read, not at resolve time, so resolving a large tree does not
// pin one handle per leaf.
type PathResolver struct {
	path      string
	chunkSize int
}

func NewPathResolver(path string) *PathResolver {
	return &PathResolver{path: path, chunkSize: DefaultChunkSize}
}

// WithChunkSize overrides how much of the file each chunk carries.
func (p *PathResolver) WithChunkSize(chunkSize int) *PathResolver {
	p.chunkSize = chunkSize
	return p
}

func (p *PathResolver) Resolve(ctx context.Context) ([]Result, error) {
	path := p.path
	chunkSize := p.chunkSize

	chunks := LazyChunks(func(ctx context.Context) (ChunkIterator, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "opening trace %s", path)
		}
		return ChunksFromReader(f, chunkSize), nil
	})

	return []Result{{
		Trace:    RefChunks(chunks),
		Metadata: map[string]string{MetadataPath: path},
	}}, nil
}
