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

package s3

import (
	"context"
	"net/http"

	"github.com/cristalhq/hedgedhttp"
	"github.com/facette/natsort"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/intergral/tracequery/pkg/traceuri"
	"github.com/intergral/tracequery/pkg/traceuri/instrumentation"
)

const (
	// Scheme is the reference scheme handled by this package.
	Scheme = "s3"

	// MetadataObject is the metadata key carrying the bucket and key of the
	// object a trace was loaded from.
	MetadataObject = "_s3_object"
)

// Factory builds s3 resolvers. The minio client is created once and shared
// by every resolver the factory hands out.
type Factory struct {
	cfg    *Config
	client *minio.Client
}

func NewFactory(cfg *Config) (*Factory, error) {
	client, err := createClient(cfg, true)
	if err != nil {
		return nil, errors.Wrap(err, "creating s3 client")
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
		bucket: f.cfg.Bucket,
		object: args["object"],
		prefix: args["prefix"],
	}
	if bucket, ok := args["bucket"]; ok {
		r.bucket = bucket
	}

	if (r.object == "") == (r.prefix == "") {
		return nil, errors.Wrap(traceuri.ErrInvalidURI, "s3 references need exactly one of object= or prefix=")
	}
	if r.bucket == "" {
		return nil, errors.Wrap(traceuri.ErrInvalidURI, "s3 references need a bucket, configure one or pass bucket=")
	}
	return r, nil
}

func (r *resolver) Resolve(ctx context.Context) ([]traceuri.Result, error) {
	span, derivedCtx := opentracing.StartSpanFromContext(ctx, "s3.Resolve")
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
	for info := range r.f.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{
		Prefix:    r.prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, errors.Wrapf(info.Err, "listing objects under %s", r.prefix)
		}
		objects = append(objects, info.Key)
	}
	return objects, nil
}

func (r *resolver) result(object string) traceuri.Result {
	bucket := r.bucket
	client := r.f.client

	chunks := traceuri.LazyChunks(func(ctx context.Context) (traceuri.ChunkIterator, error) {
		obj, err := client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
		if err != nil {
			return nil, errors.Wrapf(err, "fetching object %s", object)
		}
		return traceuri.ChunksFromReader(obj, traceuri.DefaultChunkSize), nil
	})

	return traceuri.Result{
		Trace: traceuri.RefChunks(chunks),
		Metadata: map[string]string{
			MetadataObject: bucket + "/" + object,
		},
	}
}

type overrideSignatureVersion struct {
	useV2    bool
	upstream credentials.Provider
}

func (s *overrideSignatureVersion) Retrieve() (credentials.Value, error) {
	v, err := s.upstream.Retrieve()
	if err != nil {
		return v, err
	}

	if s.useV2 && !v.SignerType.IsAnonymous() {
		v.SignerType = credentials.SignatureV2
	}

	return v, nil
}

func (s *overrideSignatureVersion) IsExpired() bool {
	return s.upstream.IsExpired()
}

func createClient(cfg *Config, hedge bool) (*minio.Client, error) {
	wrapCredentialsProvider := func(p credentials.Provider) credentials.Provider {
		if cfg.SignatureV2 {
			return &overrideSignatureVersion{useV2: cfg.SignatureV2, upstream: p}
		}
		return p
	}

	creds := credentials.NewChainCredentials([]credentials.Provider{
		wrapCredentialsProvider(&credentials.EnvAWS{}),
		wrapCredentialsProvider(&credentials.Static{
			Value: credentials.Value{
				AccessKeyID:     cfg.AccessKey,
				SecretAccessKey: cfg.SecretKey.String(),
				SessionToken:    cfg.SessionToken.String(),
			},
		}),
		wrapCredentialsProvider(&credentials.EnvMinio{}),
		wrapCredentialsProvider(&credentials.FileAWSCredentials{}),
		wrapCredentialsProvider(&credentials.FileMinioClient{}),
		wrapCredentialsProvider(&credentials.IAM{
			Client: &http.Client{
				Transport: http.DefaultTransport,
			},
		}),
	})

	customTransport, err := minio.DefaultTransport(!cfg.Insecure)
	if err != nil {
		return nil, errors.Wrap(err, "create minio.DefaultTransport")
	}

	if cfg.InsecureSkipVerify {
		customTransport.TLSClientConfig.InsecureSkipVerify = true
	}

	// add instrumentation
	transport := instrumentation.NewTransport(customTransport)
	var stats *hedgedhttp.Stats

	// hedge if desired (0 means disabled)
	if hedge && cfg.HedgeRequestsAt != 0 {
		transport, stats, err = hedgedhttp.NewRoundTripperAndStats(cfg.HedgeRequestsAt, cfg.HedgeRequestsUpTo, transport)
		if err != nil {
			return nil, err
		}
		instrumentation.PublishHedgedMetrics(stats)
	}

	opts := &minio.Options{
		Region:       cfg.Region,
		Secure:       !cfg.Insecure,
		Creds:        creds,
		BucketLookup: minio.BucketLookupType(cfg.BucketLookupType),
		Transport:    transport,
	}

	if cfg.ForcePathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}

	return minio.New(cfg.Endpoint, opts)
}
