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

// Package instrumentation wraps the HTTP transports the store resolvers use
// with shared request metrics, so s3, gcs, azure and plain http reads all
// land in the same histogram.
package instrumentation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cristalhq/hedgedhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/intergral/tracequery/pkg/hedgedmetrics"
)

var (
	storeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tracequery",
		Name:      "store_request_duration_seconds",
		Help:      "Time spent doing trace store requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 4, 6),
	}, []string{"operation", "status_code"})

	hedgedRoundTrips = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tracequery",
			Name:      "store_hedged_roundtrips_total",
			Help:      "Total number of hedged trace store requests. Published through a gauge but only ever increases.",
		},
	)
)

type timedTransport struct {
	observer prometheus.ObserverVec
	next     http.RoundTripper
}

// NewTransport wraps next so every round trip is timed into the store
// request histogram, labelled by method and response code. Failed round
// trips have no response code and are not observed.
func NewTransport(next http.RoundTripper) http.RoundTripper {
	return &timedTransport{
		observer: storeRequestDuration,
		next:     next,
	}
}

func (t *timedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	t.observer.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).
		Observe(time.Since(start).Seconds())
	return resp, nil
}

// PublishHedgedMetrics starts the background publisher that folds the hedged
// round trip count of s into the shared gauge.
func PublishHedgedMetrics(s *hedgedhttp.Stats) {
	hedgedmetrics.Publish(s, hedgedRoundTrips)
}
