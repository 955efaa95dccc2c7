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
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// cellCenter is a grid cell center stored in the spatial index.
type cellCenter struct {
	geom.Point
	index    int // flat index into the grid arrays
	row, col int
}

// GridIndex finds the grid cell whose center is closest to a
// given horizontal location.
//
// Distances are Euclidean distances in longitude/latitude degree space
// rather than great-circle distances. This is adequate when grid cells
// are small compared to the curvature of the earth, but near the poles
// or for coarse grids the selected cell may not be the one that is
// closest on the ground.
type GridIndex struct {
	tree     *rtree.Rtree
	ny, nx   int
	spacing  float64 // typical distance between neighboring cell centers
	diagonal float64 // diagonal of the bounding box of all cell centers
	bounds   *geom.Bounds
}

// NewGridIndex creates a spatial index of the cell centers with the
// given longitudes and latitudes, which must be 2-d arrays with
// dimensions [row, col].
func NewGridIndex(lon, lat *sparse.DenseArray) (*GridIndex, error) {
	if len(lon.Shape) != 2 || !sameShape(lon.Shape, lat.Shape) {
		return nil, fmt.Errorf("colloc: grid longitude shape %v and latitude shape %v should be the same 2-d shape: %w",
			lon.Shape, lat.Shape, ErrInconsistentInput)
	}
	g := &GridIndex{
		tree:   rtree.NewTree(25, 50),
		ny:     lon.Shape[0],
		nx:     lon.Shape[1],
		bounds: geom.NewBounds(),
	}
	if g.ny*g.nx == 0 {
		return nil, fmt.Errorf("colloc: empty grid: %w", ErrInconsistentInput)
	}
	for j := 0; j < g.ny; j++ {
		for i := 0; i < g.nx; i++ {
			c := &cellCenter{
				Point: geom.Point{X: lon.Get(j, i), Y: lat.Get(j, i)},
				index: j*g.nx + i,
				row:   j,
				col:   i,
			}
			g.tree.Insert(c)
			g.bounds.Extend(c.Bounds())
		}
	}
	dx := g.bounds.Max.X - g.bounds.Min.X
	dy := g.bounds.Max.Y - g.bounds.Min.Y
	g.diagonal = math.Hypot(dx, dy)
	g.spacing = math.Max(dx/float64(g.nx), dy/float64(g.ny))
	if !(g.spacing > 0) {
		g.spacing = 1
	}
	return g, nil
}

// Shape returns the number of rows and columns in the grid.
func (g *GridIndex) Shape() (ny, nx int) { return g.ny, g.nx }

// NearestCell returns the row and column of the grid cell whose center
// is closest to (lon, lat). When cells are equally close, the one with
// the lowest flat (row-major) index is returned. ok is false if the
// location is not finite.
func (g *GridIndex) NearestCell(lon, lat float64) (row, col int, ok bool) {
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return -1, -1, false
	}
	p := geom.Point{X: lon, Y: lat}

	// Any search window at least this large contains every cell center.
	maxR := g.diagonal + distToBounds(p, g.bounds) + g.spacing

	r := g.spacing
	for {
		best, bestDist := g.searchWindow(p, r)
		if best != nil && bestDist <= r {
			// Every cell outside the window is farther than r.
			return best.row, best.col, true
		}
		if best != nil {
			r = bestDist
		} else if r < maxR {
			r = math.Min(2*r, maxR)
		} else {
			// Unreachable for a non-empty grid.
			return -1, -1, false
		}
	}
}

// searchWindow returns the closest cell center within the square
// window of half-width r around p.
func (g *GridIndex) searchWindow(p geom.Point, r float64) (*cellCenter, float64) {
	b := &geom.Bounds{
		Min: geom.Point{X: p.X - r, Y: p.Y - r},
		Max: geom.Point{X: p.X + r, Y: p.Y + r},
	}
	var best *cellCenter
	bestDist := math.Inf(1)
	for _, cI := range g.tree.SearchIntersect(b) {
		c := cI.(*cellCenter)
		d := math.Hypot(c.X-p.X, c.Y-p.Y)
		if d < bestDist || (d == bestDist && c.index < best.index) {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

// distToBounds is the distance from p to the closest point in b.
func distToBounds(p geom.Point, b *geom.Bounds) float64 {
	dx := math.Max(0, math.Max(b.Min.X-p.X, p.X-b.Max.X))
	dy := math.Max(0, math.Max(b.Min.Y-p.Y, p.Y-b.Max.Y))
	return math.Hypot(dx, dy)
}

// NearestLevel returns the index of the height in heights that is
// closest to alt, or -1 if heights is empty or alt is NaN.
func NearestLevel(alt float64, heights []float64) int {
	if len(heights) == 0 || math.IsNaN(alt) {
		return -1
	}
	diff := make([]float64, len(heights))
	for k, h := range heights {
		diff[k] = math.Abs(h - alt)
		if math.IsNaN(diff[k]) {
			diff[k] = math.Inf(1)
		}
	}
	return floats.MinIdx(diff)
}
