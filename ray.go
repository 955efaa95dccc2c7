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

// LOSPoint is a sample location along an instrument line of sight.
type LOSPoint struct {
	Lon, Lat float64 // degrees
	Alt      float64 // meters above ground
}

// Trace samples the straight line of sight that leaves the point
// (lon0, lat0, startAlt) at the given zenith angle [degrees from vertical]
// and azimuth [degrees clockwise from north]. Samples are taken at path
// distances s = 0, step, 2·step, ... for all s < maxDist [m]. The
// horizontal position of each sample is the point s·sin(zenith) meters
// away from the origin along the azimuth, and its altitude is
// startAlt + s·cos(zenith).
//
// An empty trace is returned if step is not positive or any of the
// distance parameters is not finite.
func Trace(lon0, lat0, zenith, azimuth, step, maxDist, startAlt float64) []LOSPoint {
	if !(step > 0) || math.IsInf(step, 0) || math.IsNaN(maxDist) ||
		math.IsInf(maxDist, 0) || math.IsNaN(startAlt) || math.IsInf(startAlt, 0) {
		return nil
	}
	n := int(math.Ceil(maxDist / step))
	if n <= 0 {
		return nil
	}
	sinZ, cosZ := math.Sincos(zenith * math.Pi / 180)
	out := make([]LOSPoint, 0, n)
	for i := 0; i < n; i++ {
		s := float64(i) * step
		if s >= maxDist {
			break
		}
		lon, lat := Forward(lon0, lat0, azimuth, s*sinZ)
		out = append(out, LOSPoint{Lon: lon, Lat: lat, Alt: startAlt + s*cosZ})
	}
	return out
}
