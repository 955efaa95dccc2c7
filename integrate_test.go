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
	"testing"
	"time"
)

func TestIntegrateUniform(t *testing.T) {
	s := testSnapshot(time.Unix(0, 0), 1, 3, 4, 5, uniform(2.5))
	g, err := NewGridIndex(s.Lon, s.Lat)
	if err != nil {
		t.Fatal(err)
	}
	p := Trace(-76.8, 38.1, 45, 200, 100, 5000, 2)
	have := Integrate(p, g, s.Field(0), 100)
	if want := 2.5 * 5000; different(have, want, 1e-12) {
		t.Errorf("have %g, want %g", have, want)
	}
}

func TestIntegrateAdditive(t *testing.T) {
	s := testSnapshot(time.Unix(0, 0), 2, 4, 6, 7, func(t, k, j, i int) float64 {
		return float64(1+t) * (1 + float64(k)) * math.Exp(-float64(k)) * float64(j*7+i+1)
	})
	g, err := NewGridIndex(s.Lon, s.Lat)
	if err != nil {
		t.Fatal(err)
	}
	p := Trace(-76.7, 38.2, 70, 300, 50, 20000, 2)
	f := s.Field(1)
	whole := Integrate(p, g, f, 50)
	for _, split := range []int{0, 1, 57, len(p) - 1, len(p)} {
		a := Integrate(p[:split], g, f, 50)
		b := Integrate(p[split:], g, f, 50)
		if different(a+b, whole, 1e-12) {
			t.Errorf("split at %d: %g + %g != %g", split, a, b, whole)
		}
	}
}

func TestIntegrateMissing(t *testing.T) {
	s := testSnapshot(time.Unix(0, 0), 1, 2, 3, 3, uniform(1))
	// Sample at the center of cell (1, 1) in the lowest level.
	p := []LOSPoint{
		{Lon: -76.9, Lat: 38.1, Alt: 10},
		{Lon: -76.8, Lat: 38.2, Alt: 10},
	}
	s.Density.Set(math.NaN(), 0, 0, 1, 1)
	g, err := NewGridIndex(s.Lon, s.Lat)
	if err != nil {
		t.Fatal(err)
	}
	if have := Integrate(p, g, s.Field(0), 10); have != 10 {
		t.Errorf("missing density: have %g, want 10", have)
	}

	p = append(p, LOSPoint{Lon: math.NaN(), Lat: 38.1, Alt: 10})
	if have := Integrate(p, g, s.Field(0), 10); !math.IsNaN(have) {
		t.Errorf("NaN position: have %g, want NaN", have)
	}

	if have := Integrate(nil, g, s.Field(0), 10); have != 0 {
		t.Errorf("no samples: have %g, want 0", have)
	}
}
