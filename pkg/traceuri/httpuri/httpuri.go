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

// Package httpuri resolves http: and https: references by fetching the URL.
package httpuri

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/cristalhq/hedgedhttp"
	"github.com/klauspost/compress/gzhttp"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/intergral/tracequery/pkg/traceuri"
	"github.com/intergral/tracequery/pkg/traceuri/instrumentation"
)

// MetadataURL is the metadata key carrying the URL a trace was fetched from.
const MetadataURL = "_url"

type Config struct {
	Timeout           time.Duration `yaml:"timeout"`
	HedgeRequestsAt   time.Duration `yaml:"hedge_requests_at"`
	HedgeRequestsUpTo int           `yaml:"hedge_requests_up_to"`
}

// Factory builds resolvers for one of the http schemes. Register two, one
// per scheme, sharing a config.
type Factory struct {
	scheme string
	client *http.Client
}

func NewFactory(cfg *Config, scheme string) (*Factory, error) {
	if scheme != "http" && scheme != "https" {
		return nil, errors.Errorf("unsupported http scheme %q", scheme)
	}
	client, err := createClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating http client")
	}
	return &Factory{scheme: scheme, client: client}, nil
}

func (f *Factory) Scheme() string {
	return f.scheme
}

func (f *Factory) FromTraceURI(remainder string) (traceuri.Resolver, error) {
	full := f.scheme + ":" + remainder

	u, err := url.Parse(full)
	if err != nil {
		return nil, errors.Wrapf(traceuri.ErrInvalidURI, "parsing %q: %v", full, err)
	}
	if u.Host == "" {
		return nil, errors.Wrapf(traceuri.ErrInvalidURI, "%q has no host", full)
	}

	return &resolver{client: f.client, url: full}, nil
}

type resolver struct {
	client *http.Client
	url    string
}

func (r *resolver) Resolve(ctx context.Context) ([]traceuri.Result, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "httpuri.Resolve")
	defer span.Finish()

	client := r.client
	target := r.url

	chunks := traceuri.LazyChunks(func(ctx context.Context) (traceuri.ChunkIterator, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, errors.Wrapf(err, "fetching %s", target)
		}
		if resp.StatusCode >= 400 {
			_ = resp.Body.Close()
			return nil, errors.Errorf("fetching %s: unexpected status %s", target, resp.Status)
		}

		return traceuri.ChunksFromReader(resp.Body, traceuri.DefaultChunkSize), nil
	})

	return []traceuri.Result{{
		Trace: traceuri.RefChunks(chunks),
		Metadata: map[string]string{
			MetadataURL: target,
		},
	}}, nil
}

func createClient(cfg *Config) (*http.Client, error) {
	// transparent gzip, then instrumentation
	transport := instrumentation.NewTransport(gzhttp.Transport(http.DefaultTransport.(*http.Transport).Clone()))

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}

	// hedge if desired (0 means disabled)
	if cfg.HedgeRequestsAt != 0 {
		hedgedClient, stats, err := hedgedhttp.NewClientAndStats(cfg.HedgeRequestsAt, cfg.HedgeRequestsUpTo, client)
		if err != nil {
			return nil, err
		}
		instrumentation.PublishHedgedMetrics(stats)
		return hedgedClient, nil
	}

	return client, nil
}
