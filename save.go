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
	"time"

	"github.com/ctessum/cdf"
)

// resultVars are the per-observation variables written by WriteResults.
var resultVars = []struct {
	name, description, units string
	get                      func(*Results) []float64
	set                      func(*Results, []float64)
}{
	{"ctm_SCD", "Model slant column", "1e15 molecules cm-2",
		func(r *Results) []float64 { return r.ModelSCD },
		func(r *Results, v []float64) { r.ModelSCD = v }},
	{"ctm_VCD", "Model vertical column", "1e15 molecules cm-2",
		func(r *Results) []float64 { return r.ModelVCD },
		func(r *Results, v []float64) { r.ModelVCD = v }},
	{"pandora_VCD", "Observed vertical column", "1e15 molecules cm-2",
		func(r *Results) []float64 { return r.ObsVCD },
		func(r *Results, v []float64) { r.ObsVCD = v }},
	{"pandora_VCD_err", "Observed vertical column uncertainty", "1e15 molecules cm-2",
		func(r *Results) []float64 { return r.ObsVCDErr },
		func(r *Results, v []float64) { r.ObsVCDErr = v }},
	{"pandora_SCD", "Observed slant column", "1e15 molecules cm-2",
		func(r *Results) []float64 { return r.ObsSCD },
		func(r *Results, v []float64) { r.ObsSCD = v }},
}

const timeUnits = "seconds since 1970-01-01 00:00:00 UTC"

// WriteResults writes r to w in NetCDF format.
func WriteResults(w cdf.ReaderWriterAt, r *Results) error {
	n := r.Len()
	if n == 0 {
		return fmt.Errorf("colloc: writing results for %q: no observations", r.Label)
	}
	if len(r.Step) != n {
		return fmt.Errorf("colloc: writing results for %q: %d model times for %d observations: %w",
			r.Label, len(r.Step), n, ErrInconsistentInput)
	}
	for _, v := range resultVars {
		if len(v.get(r)) != n {
			return fmt.Errorf("colloc: writing results for %q: %s has length %d instead of %d: %w",
				r.Label, v.name, len(v.get(r)), n, ErrInconsistentInput)
		}
	}

	h := cdf.NewHeader([]string{"obs"}, []int{n})
	h.AddAttribute("", "label", r.Label)
	h.AddAttribute("", "longitude", []float64{r.Lon})
	h.AddAttribute("", "latitude", []float64{r.Lat})
	h.AddVariable("time", []string{"obs"}, []float64{0})
	h.AddAttribute("time", "description", "Observation time")
	h.AddAttribute("time", "units", timeUnits)
	h.AddVariable("model_time", []string{"obs"}, []float64{0})
	h.AddAttribute("model_time", "description", "Time of the matched model time step")
	h.AddAttribute("model_time", "units", timeUnits)
	for _, v := range resultVars {
		h.AddVariable(v.name, []string{"obs"}, []float64{0})
		h.AddAttribute(v.name, "description", v.description)
		h.AddAttribute(v.name, "units", v.units)
	}
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("colloc: creating results netcdf file: %v", err)
	}

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("colloc: creating results netcdf file: %v", err)
	}
	write := func(name string, data []float64) error {
		// The end index is one past the last element so the writer
		// does not report io.EOF after a complete write.
		wr := f.Writer(name, []int{0}, []int{len(data)})
		if _, err := wr.Write(data); err != nil {
			return fmt.Errorf("colloc: writing variable %s to netcdf file: %v", name, err)
		}
		return nil
	}
	if err := write("time", unixSeconds(r.Time)); err != nil {
		return err
	}
	if err := write("model_time", unixSeconds(r.Step)); err != nil {
		return err
	}
	for _, v := range resultVars {
		if err := write(v.name, v.get(r)); err != nil {
			return err
		}
	}
	return nil
}

// ReadResults reads results that were written by WriteResults.
func ReadResults(rw cdf.ReaderWriterAt) (*Results, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("colloc: opening results netcdf file: %v", err)
	}
	r := new(Results)
	var ok bool
	if r.Label, ok = f.Header.GetAttribute("", "label").(string); !ok {
		return nil, fmt.Errorf("colloc: results netcdf file is missing the label attribute")
	}
	for _, a := range []struct {
		name string
		v    *float64
	}{{"longitude", &r.Lon}, {"latitude", &r.Lat}} {
		val, ok := f.Header.GetAttribute("", a.name).([]float64)
		if !ok || len(val) != 1 {
			return nil, fmt.Errorf("colloc: results netcdf file is missing the %s attribute", a.name)
		}
		*a.v = val[0]
	}

	read := func(name string) ([]float64, error) {
		if len(f.Header.Lengths(name)) != 1 {
			return nil, fmt.Errorf("colloc: results netcdf file: variable %s is missing or not 1-d", name)
		}
		rd := f.Reader(name, nil, nil)
		buf := rd.Zero(-1)
		if _, err := rd.Read(buf); err != nil {
			return nil, fmt.Errorf("colloc: reading netcdf variable %s: %v", name, err)
		}
		data, ok := buf.([]float64)
		if !ok {
			return nil, fmt.Errorf("colloc: netcdf variable %s has type %T; it should be []float64", name, buf)
		}
		return data, nil
	}
	t, err := read("time")
	if err != nil {
		return nil, err
	}
	r.Time = fromUnixSeconds(t)
	if t, err = read("model_time"); err != nil {
		return nil, err
	}
	r.Step = fromUnixSeconds(t)
	for _, v := range resultVars {
		data, err := read(v.name)
		if err != nil {
			return nil, err
		}
		v.set(r, data)
	}
	return r, nil
}

func unixSeconds(t []time.Time) []float64 {
	o := make([]float64, len(t))
	for i, tt := range t {
		if tt.IsZero() {
			o[i] = math.NaN()
			continue
		}
		o[i] = float64(tt.UnixNano()) / 1e9
	}
	return o
}

// fromUnixSeconds converts seconds since the epoch to UTC times
// rounded to the nearest microsecond. NaN values become the zero time.
func fromUnixSeconds(s []float64) []time.Time {
	o := make([]time.Time, len(s))
	for i, ss := range s {
		if math.IsNaN(ss) {
			continue
		}
		sec, frac := math.Modf(ss)
		o[i] = time.Unix(int64(sec), int64(frac*1e9)).Round(time.Microsecond).UTC()
	}
	return o
}
