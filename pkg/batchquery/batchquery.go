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

// Package batchquery runs one SQL query against many traces at once and
// collects the per-trace results.
package batchquery

import (
	"context"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/intergral/tracequery/pkg/queryres"
	"github.com/intergral/tracequery/pkg/traceuri"
	"github.com/intergral/tracequery/pkg/util/log"
)

var (
	metricTracesResolved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracequery",
		Name:      "batch_traces_resolved_total",
		Help:      "Total number of traces resolved for batch query runs.",
	})
	metricQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracequery",
		Name:      "batch_queries_total",
		Help:      "Total number of per-trace queries executed by batch query runs.",
	}, []string{"status"})
)

// Engine executes one SQL query against one resolved trace. Implementations
// wrap whatever engine consumes the trace bytes, the runner only schedules
// and collects. The engine owns draining trace.Chunks, the runner closes
// them when the call returns.
type Engine interface {
	QueryTrace(ctx context.Context, trace *traceuri.ResolvedTrace, sql string) (*queryres.Result, error)
}

type Config struct {
	MaxConcurrentQueries int `yaml:"max_concurrent_queries"`
	// QueryRateLimit caps per-trace queries per second across the whole
	// run. Zero disables the limit.
	QueryRateLimit  float64       `yaml:"query_rate_limit"`
	FailureHandling FailurePolicy `yaml:"failure_handling"`
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrentQueries: 8,
		FailureHandling:      RaiseError,
	}
}

// TraceResult is the outcome of one per-trace query. The slice returned by
// Query preserves resolve order, Index is the position in that order. With
// the IncrementStat policy a failed trace keeps its slot with Err set and a
// nil Result.
type TraceResult struct {
	Index    int
	Metadata map[string]string
	Result   *queryres.Result
	Err      error
}

// Runner fans one query out over every trace a reference resolves to.
type Runner struct {
	cfg      Config
	engine   Engine
	registry *traceuri.Registry
	limiter  *rate.Limiter
	stats    Stats
}

func NewRunner(cfg Config, engine Engine, registry *traceuri.Registry) (*Runner, error) {
	if engine == nil {
		return nil, errors.New("batchquery needs an engine")
	}
	if registry == nil {
		return nil, errors.New("batchquery needs a registry")
	}
	if cfg.MaxConcurrentQueries <= 0 {
		cfg.MaxConcurrentQueries = DefaultConfig().MaxConcurrentQueries
	}

	var limiter *rate.Limiter
	if cfg.QueryRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.QueryRateLimit), 1)
	}

	return &Runner{
		cfg:      cfg,
		engine:   engine,
		registry: registry,
		limiter:  limiter,
	}, nil
}

// Stats returns the cumulative counters of this runner.
func (r *Runner) Stats() *Stats {
	return &r.stats
}

// Query resolves ref and runs sql against every resolved trace.
func (r *Runner) Query(ctx context.Context, ref traceuri.Reference, sql string) ([]TraceResult, error) {
	runID := uuid.New().String()

	span, ctx := opentracing.StartSpanFromContext(ctx, "batchquery.Query")
	defer span.Finish()
	span.SetTag("run_id", runID)

	resolved, err := r.registry.Resolve(ctx, ref)
	if err != nil {
		return nil, errors.Wrap(err, "resolving traces")
	}
	span.SetTag("traces", len(resolved))
	r.stats.tracesResolved.Add(int64(len(resolved)))
	metricTracesResolved.Add(float64(len(resolved)))
	level.Info(log.Logger).Log("msg", "starting batch query run", "run_id", runID, "traces", len(resolved))

	results := make([]TraceResult, len(resolved))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrentQueries)

	for i := range resolved {
		i := i
		trace := &resolved[i]

		g.Go(func() error {
			if r.limiter != nil {
				if err := r.limiter.Wait(gctx); err != nil {
					return err
				}
			}

			span, qctx := opentracing.StartSpanFromContext(gctx, "batchquery.QueryTrace")
			span.SetTag("run_id", runID)
			span.SetTag("trace_index", i)
			defer span.Finish()

			res, err := r.engine.QueryTrace(qctx, trace, sql)
			_ = trace.Chunks.Close()

			r.stats.queriesExecuted.Inc()
			if err != nil {
				r.stats.queriesFailed.Inc()
				metricQueriesTotal.WithLabelValues("failed").Inc()

				if r.cfg.FailureHandling == RaiseError {
					return errors.Wrapf(err, "querying trace %d", i)
				}

				level.Warn(log.Logger).Log("msg", "query failed, skipping trace", "run_id", runID, "trace_index", i, "err", err)
				results[i] = TraceResult{Index: i, Metadata: trace.Metadata, Err: err}
				return nil
			}

			metricQueriesTotal.WithLabelValues("success").Inc()
			results[i] = TraceResult{Index: i, Metadata: trace.Metadata, Result: res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// QueryAndFlatten runs Query and concatenates every per-trace result into a
// single result. One extra string column is appended per metadata key found
// on any trace, sorted by name, traces without the key carry a null cell.
// All per-trace results must agree on their column set.
func (r *Runner) QueryAndFlatten(ctx context.Context, ref traceuri.Reference, sql string) (*queryres.Result, error) {
	results, err := r.Query(ctx, ref, sql)
	if err != nil {
		return nil, err
	}

	var columns []string
	keySet := make(map[string]struct{})
	for _, tr := range results {
		if tr.Result == nil {
			continue
		}
		if columns == nil {
			columns = tr.Result.Columns()
		} else if !slices.Equal(columns, tr.Result.Columns()) {
			return nil, errors.Errorf("trace %d returned columns %v, want %v", tr.Index, tr.Result.Columns(), columns)
		}
		for k := range tr.Metadata {
			keySet[k] = struct{}{}
		}
	}
	metaKeys := maps.Keys(keySet)
	slices.Sort(metaKeys)

	flatColumns := make([]string, 0, len(columns)+len(metaKeys))
	flatColumns = append(flatColumns, columns...)
	flatColumns = append(flatColumns, metaKeys...)

	var cells []queryres.Cell
	for _, tr := range results {
		if tr.Result == nil {
			continue
		}

		metaCells := make([]queryres.Cell, 0, len(metaKeys))
		for _, k := range metaKeys {
			if v, ok := tr.Metadata[k]; ok {
				metaCells = append(metaCells, queryres.NewStringCell(v))
			} else {
				metaCells = append(metaCells, queryres.NewNullCell())
			}
		}

		res := tr.Result
		for res.Next() {
			row := res.Row()
			for col := range columns {
				cells = append(cells, row.Cell(col))
			}
			cells = append(cells, metaCells...)
		}
	}

	return queryres.NewResultFromCells(flatColumns, cells)
}
