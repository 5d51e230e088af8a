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
	"go.uber.org/atomic"
)

// Stats are cumulative counters across every run of one Runner.
type Stats struct {
	tracesResolved  atomic.Int64
	queriesExecuted atomic.Int64
	queriesFailed   atomic.Int64
}

// TracesResolved returns how many traces all runs resolved so far.
func (s *Stats) TracesResolved() int64 {
	return s.tracesResolved.Load()
}

// QueriesExecuted returns how many per-trace queries ran so far, failed
// ones included.
func (s *Stats) QueriesExecuted() int64 {
	return s.queriesExecuted.Load()
}

// QueriesFailed returns how many per-trace queries errored so far.
func (s *Stats) QueriesFailed() int64 {
	return s.queriesFailed.Load()
}
