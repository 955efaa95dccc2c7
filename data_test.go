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
	"math"
	"testing"
	"time"

	"github.com/ctessum/sparse"
)

// testGrid returns a regular ny×nx longitude/latitude grid with its
// lower-left cell center at (lon0, lat0).
func testGrid(ny, nx int, lon0, lat0, d float64) (lon, lat *sparse.DenseArray) {
	lon = sparse.ZerosDense(ny, nx)
	lat = sparse.ZerosDense(ny, nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			lon.Set(lon0+float64(i)*d, j, i)
			lat.Set(lat0+float64(j)*d, j, i)
		}
	}
	return
}

// testSnapshot returns an hourly snapshot starting at start on a
// 0.1° grid with its lower-left corner at (-77, 38). Level k is
// centered at height 100·(2k+1) m, and the density is given by
// density(t, k, j, i).
func testSnapshot(start time.Time, nt, nz, ny, nx int, density func(t, k, j, i int) float64) *Snapshot {
	lon, lat := testGrid(ny, nx, -77, 38, 0.1)
	s := &Snapshot{
		Lon:     lon,
		Lat:     lat,
		Density: sparse.ZerosDense(nt, nz, ny, nx),
		Height:  sparse.ZerosDense(nt, nz, ny, nx),
	}
	for t := 0; t < nt; t++ {
		s.Time = append(s.Time, start.Add(time.Duration(t)*time.Hour))
		for k := 0; k < nz; k++ {
			for j := 0; j < ny; j++ {
				for i := 0; i < nx; i++ {
					s.Density.Set(density(t, k, j, i), t, k, j, i)
					s.Height.Set(100*float64(2*k+1), t, k, j, i)
				}
			}
		}
	}
	return s
}

func uniform(v float64) func(t, k, j, i int) float64 {
	return func(_, _, _, _ int) float64 { return v }
}

func TestObservationsValidate(t *testing.T) {
	o := &Observations{
		Label:       "a",
		Time:        make([]time.Time, 3),
		Zenith:      make([]float64, 3),
		Azimuth:     make([]float64, 3),
		Column:      make([]float64, 3),
		Uncertainty: make([]float64, 3),
		AMF:         make([]float64, 3),
	}
	if err := o.Validate(); err != nil {
		t.Fatal(err)
	}
	o.Uncertainty = o.Uncertainty[:2]
	if err := o.Validate(); !errors.Is(err, ErrInconsistentInput) {
		t.Errorf("want ErrInconsistentInput, have %v", err)
	}
}

func TestSnapshotsValidate(t *testing.T) {
	start := time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)
	good := func() *Snapshot { return testSnapshot(start, 2, 3, 4, 5, uniform(1)) }

	tests := []struct {
		name   string
		modify func(Snapshots)
	}{
		{
			name:   "time count",
			modify: func(s Snapshots) { s[1].Time = s[1].Time[:1] },
		},
		{
			name:   "height shape",
			modify: func(s Snapshots) { s[0].Height = sparse.ZerosDense(2, 2, 4, 5) },
		},
		{
			name:   "grid shape",
			modify: func(s Snapshots) { s[0].Lat = sparse.ZerosDense(5, 4) },
		},
		{
			name: "different grid",
			modify: func(s Snapshots) {
				s[1].Lon, s[1].Lat = testGrid(4, 5, -90, 30, 0.1)
			},
		},
		{
			name:   "missing data",
			modify: func(s Snapshots) { s[1].Density = nil },
		},
		{
			name: "different levels",
			modify: func(s Snapshots) {
				s[1] = testSnapshot(start, 2, 2, 4, 5, uniform(1))
			},
		},
	}
	if err := (Snapshots{good(), good()}).Validate(); err != nil {
		t.Fatal(err)
	}
	if err := (Snapshots{}).Validate(); !errors.Is(err, ErrInconsistentInput) {
		t.Errorf("empty: want ErrInconsistentInput, have %v", err)
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := Snapshots{good(), good()}
			test.modify(s)
			if err := s.Validate(); !errors.Is(err, ErrInconsistentInput) {
				t.Errorf("want ErrInconsistentInput, have %v", err)
			}
		})
	}
}

func TestStepField(t *testing.T) {
	start := time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)
	s := testSnapshot(start, 2, 3, 4, 5, func(t, k, j, i int) float64 {
		return float64(1000*t + 100*k + 10*j + i)
	})
	f := s.Field(1)
	if f.Levels() != 3 {
		t.Errorf("levels: have %d, want 3", f.Levels())
	}
	if v := f.Density(2, 3, 4); v != 1234 {
		t.Errorf("density: have %g, want 1234", v)
	}
	p := f.Profile(1, 1)
	want := []float64{100, 300, 500}
	for k, h := range p {
		if math.Abs(h-want[k]) > 1e-12 {
			t.Errorf("profile level %d: have %g, want %g", k, h, want[k])
		}
	}
}
