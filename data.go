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
	"errors"
	"fmt"
	"time"

	"github.com/ctessum/sparse"
)

var (
	// ErrInconsistentInput is returned when input data are malformed,
	// for example when parallel arrays have different lengths. It
	// indicates a problem with whatever produced the data, so collocation
	// is not attempted.
	ErrInconsistentInput = errors.New("inconsistent input data")

	// ErrUnsupported is returned when an unknown model or observation
	// product is requested.
	ErrUnsupported = errors.New("unsupported product")
)

// Observations holds a time series of ground-based column measurements
// from a single station.
type Observations struct {
	// Label identifies the series, typically the name of the file
	// it was read from. It must be unique within a batch.
	Label string

	// Lon and Lat are the station coordinates [degrees].
	Lon, Lat float64

	// Time is the time of each measurement.
	Time []time.Time

	// Zenith is the viewing zenith angle [degrees from vertical].
	Zenith []float64

	// Azimuth is the viewing azimuth angle [degrees clockwise from north].
	Azimuth []float64

	// Column is the reported vertical column [1e15 molecules cm-2].
	Column []float64

	// Uncertainty is the reported column uncertainty [1e15 molecules cm-2].
	Uncertainty []float64

	// AMF is the air-mass factor converting between slant and vertical
	// columns [dimensionless].
	AMF []float64
}

// Len returns the number of observations in o.
func (o *Observations) Len() int { return len(o.Time) }

// Validate checks that all of the per-observation arrays in o have
// the same length.
func (o *Observations) Validate() error {
	n := len(o.Time)
	fields := []struct {
		name string
		v    []float64
	}{
		{"Zenith", o.Zenith},
		{"Azimuth", o.Azimuth},
		{"Column", o.Column},
		{"Uncertainty", o.Uncertainty},
		{"AMF", o.AMF},
	}
	for _, f := range fields {
		if len(f.v) != n {
			return fmt.Errorf("colloc: observations %q: %s has length %d but Time has length %d: %w",
				o.Label, f.name, len(f.v), n, ErrInconsistentInput)
		}
	}
	return nil
}

// Snapshot holds the output of one chemical transport model file, which
// typically covers one simulation day.
type Snapshot struct {
	// Time is the time of each internal time step.
	Time []time.Time

	// Lon and Lat are the grid cell center coordinates [degrees],
	// with dimensions [row, col]. They are shared by all time steps
	// and vertical levels.
	Lon, Lat *sparse.DenseArray

	// Density is the trace gas partial column density along a unit path,
	// [molecules cm-2 m-1], with dimensions [time, level, row, col].
	Density *sparse.DenseArray

	// Height is the grid cell center height above ground [m],
	// with dimensions [time, level, row, col].
	Height *sparse.DenseArray
}

// Steps returns the number of time steps in s.
func (s *Snapshot) Steps() int { return len(s.Time) }

// Validate checks that the arrays in s have consistent shapes.
func (s *Snapshot) Validate() error {
	if s.Lon == nil || s.Lat == nil || s.Density == nil || s.Height == nil {
		return fmt.Errorf("colloc: snapshot is missing data: %w", ErrInconsistentInput)
	}
	if len(s.Lon.Shape) != 2 || !sameShape(s.Lon.Shape, s.Lat.Shape) {
		return fmt.Errorf("colloc: snapshot longitude shape %v and latitude shape %v should be the same 2-d shape: %w",
			s.Lon.Shape, s.Lat.Shape, ErrInconsistentInput)
	}
	if len(s.Density.Shape) != 4 || len(s.Height.Shape) != 4 {
		return fmt.Errorf("colloc: snapshot density (%d-d) and height (%d-d) should be 4-d: %w",
			len(s.Density.Shape), len(s.Height.Shape), ErrInconsistentInput)
	}
	if s.Density.Shape[0] != s.Height.Shape[0] {
		return fmt.Errorf("colloc: snapshot density has %d time steps but height has %d: %w",
			s.Density.Shape[0], s.Height.Shape[0], ErrInconsistentInput)
	}
	if s.Density.Shape[0] != len(s.Time) {
		return fmt.Errorf("colloc: snapshot has %d timestamps but %d data time steps: %w",
			len(s.Time), s.Density.Shape[0], ErrInconsistentInput)
	}
	if !sameShape(s.Density.Shape, s.Height.Shape) {
		return fmt.Errorf("colloc: snapshot density shape %v != height shape %v: %w",
			s.Density.Shape, s.Height.Shape, ErrInconsistentInput)
	}
	if !sameShape(s.Density.Shape[2:], s.Lon.Shape) {
		return fmt.Errorf("colloc: snapshot data horizontal shape %v != grid shape %v: %w",
			s.Density.Shape[2:], s.Lon.Shape, ErrInconsistentInput)
	}
	return nil
}

// Field returns the density and height fields for time step t.
func (s *Snapshot) Field(t int) StepField {
	return StepField{density: s.Density, height: s.Height, t: t}
}

// Snapshots is an ordered collection of model snapshots that
// all share the same horizontal grid.
type Snapshots []*Snapshot

// Validate checks each snapshot in c and makes sure they all
// share the same horizontal grid.
func (c Snapshots) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("colloc: no model snapshots: %w", ErrInconsistentInput)
	}
	for i, s := range c {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("snapshot %d: %w", i, err)
		}
		if i == 0 {
			continue
		}
		if !sameShape(s.Lon.Shape, c[0].Lon.Shape) ||
			!sameElements(s.Lon.Elements, c[0].Lon.Elements) ||
			!sameElements(s.Lat.Elements, c[0].Lat.Elements) {
			return fmt.Errorf("colloc: snapshot %d has a different horizontal grid than snapshot 0: %w",
				i, ErrInconsistentInput)
		}
		if s.Density.Shape[1] != c[0].Density.Shape[1] {
			return fmt.Errorf("colloc: snapshot %d has %d levels but snapshot 0 has %d: %w",
				i, s.Density.Shape[1], c[0].Density.Shape[1], ErrInconsistentInput)
		}
	}
	return nil
}

// StepField is a read-only view of the density and height
// fields of a single snapshot time step.
type StepField struct {
	density, height *sparse.DenseArray
	t               int
}

// Levels returns the number of vertical levels.
func (f StepField) Levels() int { return f.density.Shape[1] }

// Density returns the density at the given level, row, and column.
func (f StepField) Density(k, j, i int) float64 { return f.density.Get(f.t, k, j, i) }

// Profile returns the height of each level at the given row and column.
func (f StepField) Profile(j, i int) []float64 {
	p := make([]float64, f.height.Shape[1])
	for k := range p {
		p[k] = f.height.Get(f.t, k, j, i)
	}
	return p
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if b[i] != v {
			return false
		}
	}
	return true
}

func sameElements(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if b[i] != v {
			return false
		}
	}
	return true
}
