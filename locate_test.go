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
	"math/rand"
	"testing"

	"github.com/ctessum/sparse"
)

// bruteNearestCell is the exhaustive equivalent of GridIndex.NearestCell.
func bruteNearestCell(lon, lat *sparse.DenseArray, x, y float64) (row, col int) {
	best := math.Inf(1)
	for j := 0; j < lon.Shape[0]; j++ {
		for i := 0; i < lon.Shape[1]; i++ {
			d := math.Hypot(lon.Get(j, i)-x, lat.Get(j, i)-y)
			if d < best {
				best, row, col = d, j, i
			}
		}
	}
	return
}

func TestNearestCell(t *testing.T) {
	lon, lat := testGrid(3, 4, -77, 38, 0.1)
	g, err := NewGridIndex(lon, lat)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name     string
		lon, lat float64
		row, col int
		ok       bool
	}{
		{name: "center", lon: -76.9, lat: 38.1, row: 1, col: 1, ok: true},
		{name: "near", lon: -76.79, lat: 38.02, row: 0, col: 2, ok: true},
		{name: "outside", lon: -60, lat: 50, row: 2, col: 3, ok: true},
		{name: "far outside", lon: 100, lat: -80, row: 0, col: 3, ok: true},
		{name: "NaN", lon: math.NaN(), lat: 38, row: -1, col: -1, ok: false},
		{name: "Inf", lon: -77, lat: math.Inf(1), row: -1, col: -1, ok: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			row, col, ok := g.NearestCell(test.lon, test.lat)
			if row != test.row || col != test.col || ok != test.ok {
				t.Errorf("have (%d, %d, %v), want (%d, %d, %v)", row, col, ok, test.row, test.col, test.ok)
			}
		})
	}
}

func TestNearestCellTie(t *testing.T) {
	lon, lat := testGrid(2, 2, -77, 38, 0.5)
	g, err := NewGridIndex(lon, lat)
	if err != nil {
		t.Fatal(err)
	}
	// Equidistant from all four cell centers.
	row, col, ok := g.NearestCell(-76.75, 38.25)
	if !ok || row != 0 || col != 0 {
		t.Errorf("have (%d, %d, %v), want (0, 0, true)", row, col, ok)
	}
	// Equidistant from the two cells in the second row.
	row, col, ok = g.NearestCell(-76.75, 38.5)
	if !ok || row != 1 || col != 0 {
		t.Errorf("have (%d, %d, %v), want (1, 0, true)", row, col, ok)
	}
}

func TestNearestCellBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	const ny, nx = 17, 23
	lon, lat := testGrid(ny, nx, -80, 35, 0.12)
	// Distort the grid so it is no longer regular.
	for i := range lon.Elements {
		lon.Elements[i] += (r.Float64() - 0.5) * 0.05
		lat.Elements[i] += (r.Float64() - 0.5) * 0.05
	}
	g, err := NewGridIndex(lon, lat)
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < 2000; n++ {
		x := -81 + r.Float64()*5
		y := 34 + r.Float64()*4
		row, col, ok := g.NearestCell(x, y)
		wantRow, wantCol := bruteNearestCell(lon, lat, x, y)
		if !ok || row != wantRow || col != wantCol {
			t.Fatalf("(%g, %g): have (%d, %d, %v), want (%d, %d)", x, y, row, col, ok, wantRow, wantCol)
		}
	}
}

func TestNewGridIndexShape(t *testing.T) {
	if _, err := NewGridIndex(sparse.ZerosDense(2, 3), sparse.ZerosDense(3, 2)); err == nil {
		t.Error("expected an error for mismatched shapes")
	}
	if _, err := NewGridIndex(sparse.ZerosDense(6), sparse.ZerosDense(6)); err == nil {
		t.Error("expected an error for 1-d coordinates")
	}
}

func TestNearestLevel(t *testing.T) {
	heights := []float64{10, 50, 120, 300}
	tests := []struct {
		alt  float64
		want int
	}{
		{alt: 0, want: 0},
		{alt: 29, want: 0},
		{alt: 30, want: 0},
		{alt: 31, want: 1},
		{alt: 250, want: 3},
		{alt: 1e6, want: 3},
		{alt: math.NaN(), want: -1},
	}
	for _, test := range tests {
		if have := NearestLevel(test.alt, heights); have != test.want {
			t.Errorf("NearestLevel(%g) = %d; want %d", test.alt, have, test.want)
		}
	}
	if have := NearestLevel(10, nil); have != -1 {
		t.Errorf("empty heights: have %d, want -1", have)
	}
}
