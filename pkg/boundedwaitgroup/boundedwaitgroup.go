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

package boundedwaitgroup

import "sync"

// BoundedWaitGroup is a sync.WaitGroup that also caps the number of
// in-flight goroutines. Add blocks while the group is at capacity, so
// callers can spawn workers in a plain loop without flooding the
// backend they fan out to.
type BoundedWaitGroup struct {
	wg   sync.WaitGroup
	slot chan struct{} // buffer size bounds concurrency
}

// New creates a BoundedWaitGroup that allows at most cap concurrent
// members. A zero capacity would deadlock the first Add, so it panics
// instead.
func New(cap uint) BoundedWaitGroup {
	if cap == 0 {
		panic("boundedwaitgroup: capacity must be greater than zero")
	}
	return BoundedWaitGroup{slot: make(chan struct{}, cap)}
}

// Add adjusts the group by delta the way sync.WaitGroup.Add does.
// Positive deltas block until enough slots free up.
func (bwg *BoundedWaitGroup) Add(delta int) {
	for i := delta; i < 0; i++ {
		bwg.release()
	}
	for i := 0; i < delta; i++ {
		bwg.acquire()
	}
	bwg.wg.Add(delta)
}

// Done marks one member finished and frees its slot.
func (bwg *BoundedWaitGroup) Done() {
	bwg.Add(-1)
}

// Wait blocks until the group counter reaches zero.
func (bwg *BoundedWaitGroup) Wait() {
	bwg.wg.Wait()
}

func (bwg *BoundedWaitGroup) acquire() {
	bwg.slot <- struct{}{}
}

func (bwg *BoundedWaitGroup) release() {
	<-bwg.slot
}
