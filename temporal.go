/*
Copyright © 2024 the colloc authors.
This file is part of colloc.

colloc is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

colloc is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with colloc.  If not, see <http://www.gnu.org/licenses/>.
*/

package colloc

import (
	"math"
	"sort"
	"time"
)

const secondsPerDay = 86400.0

// DayNumber returns t as fractional days since 1970-01-01 UTC.
func DayNumber(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9 / secondsPerDay
}

// Nearest returns the index of the value in candidates that is closest
// to target. If more than one candidate is equally close, the lowest
// index is returned. It returns -1 if candidates is empty or target is NaN.
func Nearest(target float64, candidates []float64) int {
	if math.IsNaN(target) {
		return -1
	}
	best := -1
	bestDist := math.Inf(1)
	for i, c := range candidates {
		if d := math.Abs(target - c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// StepIndex maps indices into the concatenated time steps of a
// Snapshots collection back to (snapshot, step) pairs. Snapshots
// may have different numbers of steps.
type StepIndex struct {
	// offsets[i] is the flat index of the first step of snapshot i;
	// the final element is the total number of steps.
	offsets []int
	times   []float64
}

// StepIndex returns the flat time index of c.
func (c Snapshots) StepIndex() *StepIndex {
	idx := &StepIndex{offsets: make([]int, len(c)+1)}
	for i, s := range c {
		idx.offsets[i+1] = idx.offsets[i] + s.Steps()
		for _, t := range s.Time {
			idx.times = append(idx.times, DayNumber(t))
		}
	}
	return idx
}

// Len returns the total number of time steps.
func (idx *StepIndex) Len() int { return idx.offsets[len(idx.offsets)-1] }

// Times returns the day number of every step, in flat index order.
func (idx *StepIndex) Times() []float64 { return idx.times }

// Locate returns the snapshot and the step within that snapshot that
// correspond to the given flat index. ok is false if flat is out of range.
func (idx *StepIndex) Locate(flat int) (snapshot, step int, ok bool) {
	if flat < 0 || flat >= idx.Len() {
		return -1, -1, false
	}
	// First snapshot whose end offset is past flat. Empty snapshots
	// have equal start and end offsets and are skipped.
	snapshot = sort.Search(len(idx.offsets)-1, func(i int) bool {
		return idx.offsets[i+1] > flat
	})
	return snapshot, flat - idx.offsets[snapshot], true
}

// Nearest returns the snapshot and step closest in time to t.
func (idx *StepIndex) Nearest(t time.Time) (snapshot, step int, ok bool) {
	return idx.Locate(Nearest(DayNumber(t), idx.times))
}
