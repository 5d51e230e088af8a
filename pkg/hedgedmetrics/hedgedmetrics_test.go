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

package hedgedmetrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cristalhq/hedgedhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestDiffCounter(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter"})
	d := &diffCounter{counter: counter}

	d.addAbsoluteToCounter(5)
	require.Equal(t, float64(5), testutil.ToFloat64(counter))

	d.addAbsoluteToCounter(7)
	require.Equal(t, float64(7), testutil.ToFloat64(counter))

	// absolute value going backwards means the source was reset
	d.addAbsoluteToCounter(3)
	require.Equal(t, float64(10), testutil.ToFloat64(counter))
}

func TestPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, stats, err := hedgedhttp.NewClientAndStats(100*time.Millisecond, 2, srv.Client())
	require.NoError(t, err)

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_hedged_total"})
	publishWithDuration(stats, counter, 10*time.Millisecond)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	// a fast upstream never hedges, so the published counter stays at zero
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, float64(0), testutil.ToFloat64(counter))
}
