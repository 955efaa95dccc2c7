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
	"io/ioutil"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

// wgs84 is the spatial reference of station locations.
const wgs84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`

// Station is the location and model performance at one
// observation site.
type Station struct {
	geom.Point
	Label            string
	N                int
	MB, ME, MFB, MFE float64
	Slope, R2        float64
}

// WriteStations writes a point shapefile with the location and
// evaluation statistics of each series in results.
func WriteStations(filename string, results []*Results) error {
	e, err := shp.NewEncoder(filename, Station{})
	if err != nil {
		return fmt.Errorf("colloc: creating station shapefile: %v", err)
	}
	for _, r := range results {
		ev := Evaluate(r)
		err := e.Encode(&Station{
			Point: geom.Point{X: r.Lon, Y: r.Lat},
			Label: r.Label,
			N:     ev.N,
			MB:    ev.MB,
			ME:    ev.ME,
			MFB:   ev.MFB,
			MFE:   ev.MFE,
			Slope: ev.Slope,
			R2:    ev.R2,
		})
		if err != nil {
			e.Close()
			return fmt.Errorf("colloc: writing station %q: %v", r.Label, err)
		}
	}
	e.Close()
	prj := strings.TrimSuffix(filename, ".shp") + ".prj"
	if err := ioutil.WriteFile(prj, []byte(wgs84), 0644); err != nil {
		return fmt.Errorf("colloc: writing station projection: %v", err)
	}
	return nil
}
