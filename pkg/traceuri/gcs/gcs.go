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

package gcs

import (
	"context"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/cristalhq/hedgedhttp"
	"github.com/facette/natsort"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	google_http "google.golang.org/api/transport/http"

	"github.com/intergral/tracequery/pkg/traceuri"
	"github.com/intergral/tracequery/pkg/traceuri/instrumentation"
)

const (
	// Scheme is the reference scheme handled by this package.
	Scheme = "gcs"

	// MetadataObject is the metadata key carrying the bucket and name of the
	// object a trace was loaded from.
	MetadataObject = "_gcs_object"
)

// Factory builds gcs resolvers around a shared storage client.
type Factory struct {
	cfg    *Config
	client *storage.Client
}

func NewFactory(ctx context.Context, cfg *Config) (*Factory, error) {
	client, err := createClient(ctx, cfg, true)
	if err != nil {
		return nil, errors.Wrap(err, "creating gcs client")
	}
	return &Factory{cfg: cfg, client: client}, nil
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
	f      *Factory
	bucket string
	object string
	prefix string
}

func newResolver(f *Factory, args map[string]string) (*resolver, error) {
	r := &resolver{
		f:      f,
		bucket: f.cfg.BucketName,
		object: args["object"],
		prefix: args["prefix"],
	}
	if bucket, ok := args["bucket"]; ok {
		r.bucket = bucket
	}

	if (r.object == "") == (r.prefix == "") {
		return nil, errors.Wrap(traceuri.ErrInvalidURI, "gcs references need exactly one of object= or prefix=")
	}
	if r.bucket == "" {
		return nil, errors.Wrap(traceuri.ErrInvalidURI, "gcs references need a bucket, configure one or pass bucket=")
	}
	return r, nil
}

func (r *resolver) Resolve(ctx context.Context) ([]traceuri.Result, error) {
	span, derivedCtx := opentracing.StartSpanFromContext(ctx, "gcs.Resolve")
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
	var objects []string
	iter := r.f.client.Bucket(r.bucket).Objects(ctx, &storage.Query{
		Prefix:   r.prefix,
		Versions: false,
	})

	for {
		attrs, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "listing objects under %s", r.prefix)
		}
		objects = append(objects, attrs.Name)
	}
	return objects, nil
}

func (r *resolver) result(object string) traceuri.Result {
	f := r.f
	bucket := r.bucket

	chunkSize := f.cfg.ChunkBufferSize
	if chunkSize <= 0 {
		chunkSize = traceuri.DefaultChunkSize
	}

	chunks := traceuri.LazyChunks(func(ctx context.Context) (traceuri.ChunkIterator, error) {
		reader, err := f.client.Bucket(bucket).Object(object).NewReader(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "fetching object %s", object)
		}
		return traceuri.ChunksFromReader(reader, chunkSize), nil
	})

	return traceuri.Result{
		Trace: traceuri.RefChunks(chunks),
		Metadata: map[string]string{
			MetadataObject: r.bucket + "/" + object,
		},
	}
}

func createClient(ctx context.Context, cfg *Config, hedge bool) (*storage.Client, error) {
	// start with default transport
	customTransport := http.DefaultTransport.(*http.Transport).Clone()

	// add google auth
	transportOptions := []option.ClientOption{
		option.WithScopes(storage.ScopeReadOnly),
	}
	if cfg.Insecure {
		transportOptions = append(transportOptions, option.WithoutAuthentication())
	}
	transport, err := google_http.NewTransport(ctx, customTransport, transportOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "creating transport")
	}

	// add instrumentation
	var roundTripper http.RoundTripper = instrumentation.NewTransport(transport)
	var stats *hedgedhttp.Stats

	// hedge if desired (0 means disabled)
	if hedge && cfg.HedgeRequestsAt != 0 {
		roundTripper, stats, err = hedgedhttp.NewRoundTripperAndStats(cfg.HedgeRequestsAt, cfg.HedgeRequestsUpTo, roundTripper)
		if err != nil {
			return nil, err
		}
		instrumentation.PublishHedgedMetrics(stats)
	}

	storageClientOptions := []option.ClientOption{
		option.WithHTTPClient(&http.Client{
			Transport: roundTripper,
		}),
	}
	if cfg.Endpoint != "" {
		storageClientOptions = append(storageClientOptions, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := storage.NewClient(ctx, storageClientOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}

	return client, nil
}
