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

	"github.com/tidwall/geodesic"
)

// Forward returns the longitude and latitude [degrees] reached by
// travelling dist meters from (lon0, lat0) along the given initial
// bearing [degrees clockwise from north] on the WGS84 ellipsoid.
// NaN inputs result in NaN outputs.
func Forward(lon0, lat0, bearing, dist float64) (lon, lat float64) {
	if dist == 0 {
		return lon0, lat0
	}
	if math.IsNaN(lon0) || math.IsNaN(lat0) || math.IsNaN(bearing) || math.IsNaN(dist) {
		return math.NaN(), math.NaN()
	}
	geodesic.WGS84.Direct(lat0, lon0, bearing, dist, &lat, &lon, nil)
	return lon, lat
}
