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
	"runtime"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Registry dispatches URI schemes to resolver factories and recursively
// expands reference trees. Register every factory before resolving, the
// scheme map is not locked.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry(factories ...Factory) *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	for _, f := range factories {
		r.Register(f)
	}
	return r
}

// Register adds a factory. Registering a scheme twice keeps the last one.
func (r *Registry) Register(f Factory) {
	r.factories[f.Scheme()] = f
}

// Schemes returns the registered schemes, sorted.
func (r *Registry) Schemes() []string {
	schemes := maps.Keys(r.factories)
	slices.Sort(schemes)
	return schemes
}

// Resolve expands a reference tree depth first into a flat ordered list of
// resolved traces. Resolution is all-or-nothing: the first failing branch
// fails the whole call and no results are returned.
func (r *Registry) Resolve(ctx context.Context, ref Reference) ([]ResolvedTrace, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Registry.Resolve")
	defer span.Finish()

	resolved, err := r.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	span.SetTag("traces", len(resolved))
	return resolved, nil
}

func (r *Registry) resolve(ctx context.Context, ref Reference) ([]ResolvedTrace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch ref.kind {
	case refBytes:
		return leafTrace(ChunksFromBytes(ref.bytes)), nil
	case refReader:
		return leafTrace(ChunksFromReader(ref.reader, DefaultChunkSize)), nil
	case refChunks:
		return leafTrace(ref.chunks), nil
	case refString:
		return r.resolveString(ctx, ref.str)
	case refResolver:
		return r.resolveResolver(ctx, ref.resolver)
	case refList:
		var out []ResolvedTrace
		for _, elem := range ref.list {
			resolved, err := r.resolve(ctx, elem)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved...)
		}
		return out, nil
	default:
		return nil, errors.Wrap(ErrInvalidReference, "empty trace reference")
	}
}

func leafTrace(chunks ChunkIterator) []ResolvedTrace {
	return []ResolvedTrace{{Chunks: chunks, Metadata: map[string]string{}}}
}

func (r *Registry) resolveString(ctx context.Context, uri string) ([]ResolvedTrace, error) {
	scheme, remainder, isPath, err := parseTraceURI(uri, runtime.GOOS)
	if err != nil {
		return nil, err
	}
	if isPath {
		return r.resolveResolver(ctx, NewPathResolver(uri))
	}

	factory, ok := r.factories[scheme]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownScheme, "%q", scheme)
	}
	resolver, err := factory.FromTraceURI(remainder)
	if err != nil {
		return nil, errors.Wrapf(err, "building %s resolver", scheme)
	}
	return r.resolveResolver(ctx, resolver)
}

// resolveResolver expands a resolver one level and recurses into every
// nested reference it produced. For every outer x inner pair the inner
// metadata is merged over the outer metadata.
func (r *Registry) resolveResolver(ctx context.Context, resolver Resolver) ([]ResolvedTrace, error) {
	outer, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	var out []ResolvedTrace
	for _, res := range outer {
		inner, err := r.resolve(ctx, res.Trace)
		if err != nil {
			return nil, err
		}
		for _, in := range inner {
			out = append(out, ResolvedTrace{
				Chunks:   in.Chunks,
				Metadata: mergeMetadata(res.Metadata, in.Metadata),
			})
		}
	}
	return out, nil
}

// mergeMetadata is a shallow right-biased union, inner wins on conflicts.
func mergeMetadata(outer, inner map[string]string) map[string]string {
	merged := make(map[string]string, len(outer)+len(inner))
	for k, v := range outer {
		merged[k] = v
	}
	for k, v := range inner {
		merged[k] = v
	}
	return merged
}

// parseTraceURI splits a reference string into scheme and remainder, or
// recognizes it as a plain path. Strings starting with / or . are always
// paths, as is anything without a colon. A colon at index 1 is ambiguous
// with drive letter paths: rejected everywhere except on windows, where it
// is a path.
func parseTraceURI(uri string, goos string) (scheme, remainder string, isPath bool, err error) {
	if strings.HasPrefix(uri, "/") || strings.HasPrefix(uri, ".") {
		return "", "", true, nil
	}

	idx := strings.Index(uri, ":")
	if idx < 0 {
		return "", "", true, nil
	}
	if idx == 1 {
		if goos == "windows" {
			return "", "", true, nil
		}
		return "", "", false, errors.Wrapf(ErrInvalidURI, "ambiguous single-character scheme in %q", uri)
	}
	return uri[:idx], uri[idx+1:], false, nil
}
