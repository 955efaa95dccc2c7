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

// Package colloc pairs ground-based slant-column measurements with
// chemical transport model output. For each measurement it finds the
// model time step closest in time, traces the instrument line of sight
// through the model grid, and integrates the model trace gas density
// along it to give a model-equivalent slant column.
package colloc

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Version is the version of this software.
const Version = "0.1.0"

// ColumnScale converts integrated densities [molecules cm-2] to
// the units of observed columns [1e15 molecules cm-2].
const ColumnScale = 1e-15

// Default line-of-sight parameters.
const (
	DefaultStep     = 100.0 // m
	DefaultMaxDist  = 1.0e5 // m
	DefaultStartAlt = 2.0   // m
)

// Results holds collocated model and observed columns for one
// observation series. All slices have one element per observation.
type Results struct {
	// Label is the label of the observation series.
	Label string

	// Lon and Lat are the station coordinates [degrees].
	Lon, Lat float64

	// Time is the observation time.
	Time []time.Time

	// Step is the time of the model step matched to each observation.
	Step []time.Time

	// ModelSCD and ModelVCD are the model slant and vertical
	// columns [1e15 molecules cm-2].
	ModelSCD, ModelVCD []float64

	// ObsVCD and ObsVCDErr are the observed vertical column and its
	// uncertainty, and ObsSCD is the observed slant column
	// [1e15 molecules cm-2].
	ObsVCD, ObsVCDErr, ObsSCD []float64
}

// Len returns the number of collocated observations.
func (r *Results) Len() int { return len(r.Time) }

// Collocator computes model-equivalent columns for observations.
// The zero value is not usable; use NewCollocator.
type Collocator struct {
	// Step is the distance between line-of-sight samples [m].
	Step float64

	// MaxDist is the length of the line of sight [m].
	MaxDist float64

	// StartAlt is the height of the instrument above ground [m].
	StartAlt float64

	// Log receives progress messages.
	Log logrus.FieldLogger
}

// NewCollocator returns a Collocator with the default line-of-sight
// parameters.
func NewCollocator() *Collocator {
	return &Collocator{
		Step:     DefaultStep,
		MaxDist:  DefaultMaxDist,
		StartAlt: DefaultStartAlt,
		Log:      logrus.StandardLogger(),
	}
}

// Model is a validated collection of snapshots together with its
// horizontal grid and time step indexes. A Model is read-only and can
// be shared by concurrent calls to CollocateModel.
type Model struct {
	Snapshots Snapshots
	grid      *GridIndex
	steps     *StepIndex
}

// NewModel validates snapshots and indexes their grid and time steps.
func NewModel(snapshots Snapshots) (*Model, error) {
	if err := snapshots.Validate(); err != nil {
		return nil, err
	}
	grid, err := NewGridIndex(snapshots[0].Lon, snapshots[0].Lat)
	if err != nil {
		return nil, err
	}
	return &Model{Snapshots: snapshots, grid: grid, steps: snapshots.StepIndex()}, nil
}

// Collocate calculates model slant and vertical columns corresponding
// to each observation in obs. The inputs are not modified. An error
// wrapping ErrInconsistentInput is returned, before any calculations
// are done, if the inputs are malformed. Observations with missing
// geometry result in NaN model columns.
func (c *Collocator) Collocate(ctx context.Context, obs *Observations, snapshots Snapshots) (*Results, error) {
	if err := obs.Validate(); err != nil {
		return nil, err
	}
	m, err := NewModel(snapshots)
	if err != nil {
		return nil, err
	}
	return c.collocate(ctx, obs, m)
}

// CollocateModel is like Collocate but uses a Model that has already
// been validated and indexed.
func (c *Collocator) CollocateModel(ctx context.Context, obs *Observations, m *Model) (*Results, error) {
	if err := obs.Validate(); err != nil {
		return nil, err
	}
	return c.collocate(ctx, obs, m)
}

// CollocateAll collocates each of the given observation series with
// snapshots. The results are keyed by observation label, which must
// be unique.
func (c *Collocator) CollocateAll(ctx context.Context, series []*Observations, snapshots Snapshots) (map[string]*Results, error) {
	for _, obs := range series {
		if err := obs.Validate(); err != nil {
			return nil, err
		}
	}
	m, err := NewModel(snapshots)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*Results, len(series))
	for _, obs := range series {
		if _, ok := out[obs.Label]; ok {
			return nil, fmt.Errorf("colloc: duplicate observation label %q: %w", obs.Label, ErrInconsistentInput)
		}
		r, err := c.collocate(ctx, obs, m)
		if err != nil {
			return nil, err
		}
		out[obs.Label] = r
	}
	return out, nil
}

func (c *Collocator) log() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

func (c *Collocator) collocate(ctx context.Context, obs *Observations, m *Model) (*Results, error) {
	n := obs.Len()
	r := &Results{
		Label:     obs.Label,
		Lon:       obs.Lon,
		Lat:       obs.Lat,
		Time:      make([]time.Time, n),
		Step:      make([]time.Time, n),
		ModelSCD:  make([]float64, n),
		ModelVCD:  make([]float64, n),
		ObsVCD:    make([]float64, n),
		ObsVCDErr: make([]float64, n),
		ObsSCD:    make([]float64, n),
	}
	log := c.log().WithFields(logrus.Fields{"series": obs.Label})
	log.WithFields(logrus.Fields{"observations": n}).Info("collocating")

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		r.Time[i] = obs.Time[i]
		r.ObsVCD[i] = obs.Column[i]
		r.ObsVCDErr[i] = obs.Uncertainty[i]
		r.ObsSCD[i] = obs.Column[i] * obs.AMF[i]

		sIdx, step, ok := m.steps.Nearest(obs.Time[i])
		if !ok {
			r.ModelSCD[i], r.ModelVCD[i] = math.NaN(), math.NaN()
			continue
		}
		snap := m.Snapshots[sIdx]
		r.Step[i] = snap.Time[step]
		log.WithFields(logrus.Fields{
			"time":       obs.Time[i],
			"model_time": snap.Time[step],
		}).Debug("matched model time step")

		samples := Trace(obs.Lon, obs.Lat, obs.Zenith[i], obs.Azimuth[i], c.Step, c.MaxDist, c.StartAlt)
		scd := Integrate(samples, m.grid, snap.Field(step), c.Step) * ColumnScale
		r.ModelSCD[i] = scd
		if obs.AMF[i] == 0 {
			r.ModelVCD[i] = math.NaN()
		} else {
			r.ModelVCD[i] = scd / obs.AMF[i]
		}
	}
	return r, nil
}
