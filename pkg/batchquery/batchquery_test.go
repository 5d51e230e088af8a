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

package batchquery

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/intergral/tracequery/pkg/queryres"
	"github.com/intergral/tracequery/pkg/traceuri"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// engineFunc adapts a function to the Engine interface.
type engineFunc func(ctx context.Context, trace *traceuri.ResolvedTrace, sql string) (*queryres.Result, error)

func (f engineFunc) QueryTrace(ctx context.Context, trace *traceuri.ResolvedTrace, sql string) (*queryres.Result, error) {
	return f(ctx, trace, sql)
}

// echoEngine returns a one-row result whose single column carries the trace
// content.
func echoEngine() Engine {
	return engineFunc(func(ctx context.Context, trace *traceuri.ResolvedTrace, _ string) (*queryres.Result, error) {
		buf, err := traceuri.ReadAll(ctx, trace.Chunks)
		if err != nil {
			return nil, err
		}
		return queryres.NewResultFromCells([]string{"content"}, []queryres.Cell{
			queryres.NewStringCell(string(buf)),
		})
	})
}

func refsOf(contents ...string) traceuri.Reference {
	refs := make([]traceuri.Reference, 0, len(contents))
	for _, c := range contents {
		refs = append(refs, traceuri.RefBytes([]byte(c)))
	}
	return traceuri.RefList(refs...)
}

func newTestRunner(t *testing.T, cfg Config, engine Engine) *Runner {
	runner, err := NewRunner(cfg, engine, traceuri.NewRegistry())
	require.NoError(t, err)
	return runner
}

func TestQueryPreservesResolveOrder(t *testing.T) {
	contents := make([]string, 20)
	for i := range contents {
		contents[i] = fmt.Sprintf("trace-%d", i)
	}

	runner := newTestRunner(t, Config{MaxConcurrentQueries: 4}, echoEngine())
	results, err := runner.Query(context.Background(), refsOf(contents...), "select 1")
	require.NoError(t, err)
	require.Len(t, results, len(contents))

	for i, tr := range results {
		require.NoError(t, tr.Err)
		require.NotNil(t, tr.Result)
		assert.Equal(t, i, tr.Index)

		require.True(t, tr.Result.Next())
		cell, ok := tr.Result.Row().Get("content")
		require.True(t, ok)
		assert.Equal(t, contents[i], cell.S)
	}

	assert.Equal(t, int64(len(contents)), runner.Stats().TracesResolved())
	assert.Equal(t, int64(len(contents)), runner.Stats().QueriesExecuted())
	assert.Equal(t, int64(0), runner.Stats().QueriesFailed())
}

func TestQueryRaiseError(t *testing.T) {
	boom := errors.New("engine blew up")
	engine := engineFunc(func(ctx context.Context, trace *traceuri.ResolvedTrace, sql string) (*queryres.Result, error) {
		buf, err := traceuri.ReadAll(ctx, trace.Chunks)
		if err != nil {
			return nil, err
		}
		if string(buf) == "bad" {
			return nil, boom
		}
		return queryres.NewResultFromCells([]string{"content"}, []queryres.Cell{queryres.NewStringCell(string(buf))})
	})

	runner := newTestRunner(t, Config{FailureHandling: RaiseError}, engine)
	_, err := runner.Query(context.Background(), refsOf("ok", "bad", "ok"), "select 1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestQueryIncrementStat(t *testing.T) {
	boom := errors.New("engine blew up")
	engine := engineFunc(func(ctx context.Context, trace *traceuri.ResolvedTrace, sql string) (*queryres.Result, error) {
		buf, err := traceuri.ReadAll(ctx, trace.Chunks)
		if err != nil {
			return nil, err
		}
		if string(buf) == "bad" {
			return nil, boom
		}
		return queryres.NewResultFromCells([]string{"content"}, []queryres.Cell{queryres.NewStringCell(string(buf))})
	})

	runner := newTestRunner(t, Config{FailureHandling: IncrementStat}, engine)
	results, err := runner.Query(context.Background(), refsOf("ok0", "bad", "ok2"), "select 1")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Result)
	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Result)
	assert.NoError(t, results[2].Err)

	assert.Equal(t, int64(3), runner.Stats().QueriesExecuted())
	assert.Equal(t, int64(1), runner.Stats().QueriesFailed())
}

func TestQueryAndFlatten(t *testing.T) {
	inner := &metadataResolver{results: []traceuri.Result{
		{Trace: traceuri.RefBytes([]byte("a")), Metadata: map[string]string{"source": "s1", "region": "eu"}},
		{Trace: traceuri.RefBytes([]byte("b")), Metadata: map[string]string{"source": "s2"}},
	}}

	runner := newTestRunner(t, Config{}, echoEngine())
	res, err := runner.QueryAndFlatten(context.Background(), traceuri.RefResolver(inner), "select 1")
	require.NoError(t, err)

	// metadata keys are appended sorted
	assert.Equal(t, []string{"content", "region", "source"}, res.Columns())
	require.Equal(t, 2, res.RowCount())

	require.True(t, res.Next())
	row := res.Row()
	assert.Equal(t, "a", mustGet(t, row, "content").S)
	assert.Equal(t, "eu", mustGet(t, row, "region").S)
	assert.Equal(t, "s1", mustGet(t, row, "source").S)

	require.True(t, res.Next())
	row = res.Row()
	assert.Equal(t, "b", mustGet(t, row, "content").S)
	assert.True(t, mustGet(t, row, "region").IsNull(), "missing metadata key must be null")
	assert.Equal(t, "s2", mustGet(t, row, "source").S)

	assert.False(t, res.Next())
}

func TestQueryAndFlattenColumnMismatch(t *testing.T) {
	calls := 0
	engine := engineFunc(func(ctx context.Context, trace *traceuri.ResolvedTrace, sql string) (*queryres.Result, error) {
		calls++
		if calls == 1 {
			return queryres.NewResultFromCells([]string{"a"}, []queryres.Cell{queryres.NewNullCell()})
		}
		return queryres.NewResultFromCells([]string{"b"}, []queryres.Cell{queryres.NewNullCell()})
	})

	runner := newTestRunner(t, Config{MaxConcurrentQueries: 1}, engine)
	_, err := runner.QueryAndFlatten(context.Background(), refsOf("x", "y"), "select 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "columns")
}

func TestQueryAndFlattenSkipsFailedTraces(t *testing.T) {
	boom := errors.New("engine blew up")
	engine := engineFunc(func(ctx context.Context, trace *traceuri.ResolvedTrace, sql string) (*queryres.Result, error) {
		buf, err := traceuri.ReadAll(ctx, trace.Chunks)
		if err != nil {
			return nil, err
		}
		if string(buf) == "bad" {
			return nil, boom
		}
		return queryres.NewResultFromCells([]string{"content"}, []queryres.Cell{queryres.NewStringCell(string(buf))})
	})

	runner := newTestRunner(t, Config{FailureHandling: IncrementStat}, engine)
	res, err := runner.QueryAndFlatten(context.Background(), refsOf("ok0", "bad", "ok2"), "select 1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowCount())
}

func TestQueryAndFlattenNoTraces(t *testing.T) {
	runner := newTestRunner(t, Config{}, echoEngine())
	res, err := runner.QueryAndFlatten(context.Background(), traceuri.RefList(), "select 1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.RowCount())
	assert.Empty(t, res.Columns())
}

func TestNewRunnerValidation(t *testing.T) {
	_, err := NewRunner(Config{}, nil, traceuri.NewRegistry())
	require.Error(t, err)

	_, err = NewRunner(Config{}, echoEngine(), nil)
	require.Error(t, err)
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("raise-error")
	require.NoError(t, err)
	assert.Equal(t, RaiseError, p)

	p, err = ParseFailurePolicy("Increment-Stat")
	require.NoError(t, err)
	assert.Equal(t, IncrementStat, p)

	_, err = ParseFailurePolicy("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), SupportedFailurePoliciesString())
}

type metadataResolver struct {
	results []traceuri.Result
}

func (m *metadataResolver) Resolve(context.Context) ([]traceuri.Result, error) {
	return m.results, nil
}

func mustGet(t *testing.T, row queryres.Row, name string) queryres.Cell {
	cell, ok := row.Get(name)
	require.True(t, ok, "column %s", name)
	return cell
}
