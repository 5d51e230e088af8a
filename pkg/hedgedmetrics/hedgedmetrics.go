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
	"time"

	"github.com/cristalhq/hedgedhttp"
	"github.com/prometheus/client_golang/prometheus"
)

const hedgedMetricsPublishDuration = 10 * time.Second

type diffCounter struct {
	previous uint64
	counter  prometheus.Counter
}

func (d *diffCounter) addAbsoluteToCounter(value uint64) {
	diff := float64(value - d.previous)
	if value < d.previous {
		diff = float64(value)
	}
	d.counter.Add(diff)
	d.previous = value
}

// Publish flushes metrics from hedged requests every 10 seconds
func Publish(s *hedgedhttp.Stats, counter prometheus.Counter) {
	publishWithDuration(s, counter, hedgedMetricsPublishDuration)
}

func publishWithDuration(s *hedgedhttp.Stats, counter prometheus.Counter, duration time.Duration) {
	diff := &diffCounter{previous: 0, counter: counter}

	ticker := time.NewTicker(duration)
	go func() {
		for range ticker.C {
			snap := s.Snapshot()
			hedgedRequests := int64(snap.ActualRoundTrips) - int64(snap.RequestedRoundTrips)
			if hedgedRequests < 0 {
				hedgedRequests = 0
			}
			diff.addAbsoluteToCounter(uint64(hedgedRequests))
		}
	}()
}
