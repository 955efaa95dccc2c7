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

import "math"

// Integrate sums the model density along the given line-of-sight samples,
// each of which represents a path segment of length step [m]. At each
// sample the density is taken from the grid cell whose center is
// horizontally closest to the sample, at the level whose height is
// closest to the sample altitude. The result is in the units of the
// density multiplied by meters.
//
// Samples that land on a missing (NaN) density value do not
// contribute to the sum. If any sample position is NaN the result is NaN.
func Integrate(samples []LOSPoint, grid *GridIndex, field StepField, step float64) float64 {
	var sum float64
	for _, p := range samples {
		if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.IsNaN(p.Alt) {
			return math.NaN()
		}
		j, i, ok := grid.NearestCell(p.Lon, p.Lat)
		if !ok {
			continue
		}
		k := NearestLevel(p.Alt, field.Profile(j, i))
		if k < 0 {
			continue
		}
		v := field.Density(k, j, i)
		if math.IsNaN(v) {
			continue
		}
		sum += v * step
	}
	return sum
}
