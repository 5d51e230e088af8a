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

package azure

import (
	"context"

	blob "github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/facette/natsort"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/intergral/tracequery/pkg/traceuri"
)

const (
	// Scheme is the reference scheme handled by this package.
	Scheme = "azure"

	// MetadataObject is the metadata key carrying the container and name of
	// the blob a trace was loaded from.
	MetadataObject = "_azure_object"
)

// Factory builds azure resolvers. Two service URLs are kept, reads go
// through the hedged one.
type Factory struct {
	cfg           *Config
	service       blob.ServiceURL
	hedgedService blob.ServiceURL
}

func NewFactory(ctx context.Context, cfg *Config) (*Factory, error) {
	service, err := getServiceURL(ctx, cfg, false)
	if err != nil {
		return nil, errors.Wrap(err, "getting storage service URL")
	}

	hedgedService, err := getServiceURL(ctx, cfg, true)
	if err != nil {
		return nil, errors.Wrap(err, "getting hedged storage service URL")
	}

	return &Factory{cfg: cfg, service: service, hedgedService: hedgedService}, nil
}

func (f *Factory) Scheme() string {
	return Scheme
}

func (f *Factory) FromTraceURI(remainder string) (traceuri.Resolver, error) {
	args, err := traceuri.ParseArgs(remainder)
	if err != nil {
		return nil, err
	}
	return newResolver(f, args)
}

type resolver struct {
	f         *Factory
	container string
	object    string
	prefix    string
}

func newResolver(f *Factory, args map[string]string) (*resolver, error) {
	r := &resolver{
		f:         f,
		container: f.cfg.ContainerName,
		object:    args["object"],
		prefix:    args["prefix"],
	}
	if container, ok := args["container"]; ok {
		r.container = container
	}

	if (r.object == "") == (r.prefix == "") {
		return nil, errors.Wrap(traceuri.ErrInvalidURI, "azure references need exactly one of object= or prefix=")
	}
	if r.container == "" {
		return nil, errors.Wrap(traceuri.ErrInvalidURI, "azure references need a container, configure one or pass container=")
	}
	return r, nil
}

func (r *resolver) Resolve(ctx context.Context) ([]traceuri.Result, error) {
	span, derivedCtx := opentracing.StartSpanFromContext(ctx, "azure.Resolve")
	defer span.Finish()

	if r.object != "" {
		return []traceuri.Result{r.result(r.object)}, nil
	}

	objects, err := r.list(derivedCtx)
	if err != nil {
		return nil, err
	}
	natsort.Sort(objects)

	results := make([]traceuri.Result, 0, len(objects))
	for _, object := range objects {
		results = append(results, r.result(object))
	}
	return results, nil
}

func (r *resolver) list(ctx context.Context) ([]string, error) {
	container := r.f.service.NewContainerURL(r.container)
	marker := blob.Marker{}

	var objects []string
	for {
		list, err := container.ListBlobsFlatSegment(ctx, marker, blob.ListBlobsSegmentOptions{
			Prefix: r.prefix,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "listing blobs under %s", r.prefix)
		}
		marker = list.NextMarker

		for _, item := range list.Segment.BlobItems {
			objects = append(objects, item.Name)
		}

		// Continue iterating if we are not done.
		if !marker.NotDone() {
			break
		}
	}
	return objects, nil
}

func (r *resolver) result(object string) traceuri.Result {
	f := r.f
	container := r.container

	chunkSize := f.cfg.BufferSize
	if chunkSize <= 0 {
		chunkSize = traceuri.DefaultChunkSize
	}

	chunks := traceuri.LazyChunks(func(ctx context.Context) (traceuri.ChunkIterator, error) {
		blobURL := f.hedgedService.NewContainerURL(container).NewBlockBlobURL(object)

		resp, err := blobURL.Download(ctx, 0, blob.CountToEnd, blob.BlobAccessConditions{}, false, blob.ClientProvidedKeyOptions{})
		if err != nil {
			return nil, errors.Wrapf(err, "fetching blob %s", object)
		}

		body := resp.Body(blob.RetryReaderOptions{MaxRetryRequests: maxRetries})
		return traceuri.ChunksFromReader(body, chunkSize), nil
	})

	return traceuri.Result{
		Trace: traceuri.RefChunks(chunks),
		Metadata: map[string]string{
			MetadataObject: container + "/" + object,
		},
	}
}
