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

// Package cmaq reads CMAQ chemical transport model output and MCIP
// meteorology into the form required for collocation.
package cmaq

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/colloc"
)

// boltzmann is the Boltzmann constant [J K-1].
const boltzmann = 1.380649e-23

// perMeter3 is the dimension of number density.
var perMeter3 = unit.Dimensions{unit.LengthDim: -3}

// airNumberDensity returns the number of air molecules per m3 per
// unit of pressure [Pa] divided by temperature [K].
func airNumberDensity() (float64, error) {
	joulePerKelvin := unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2, unit.TemperatureDim: -1}
	kB := unit.New(boltzmann, joulePerKelvin)
	n := unit.Div(unit.New(1, unit.Pascal), unit.Mul(kB, unit.New(1, unit.Kelvin)))
	if err := n.Check(perMeter3); err != nil {
		return 0, fmt.Errorf("cmaq: air number density: %v", err)
	}
	return n.Value(), nil
}

// perM3ToPerCM2PerM converts molecules m-3 to molecules cm-2 m-1.
const perM3ToPerCM2PerM = 1e-4

// Species returns the CMAQ model species name for the given gas.
func Species(gas string) string {
	switch strings.ToUpper(gas) {
	case "HCHO":
		return "FORM"
	default:
		return strings.ToUpper(gas)
	}
}

// FileSet holds the paths of the files needed to create a single
// snapshot.
type FileSet struct {
	// Conc is the CCTM_CONC concentration file.
	Conc string

	// Grid is the MCIP GRIDCRO2D grid file.
	Grid string

	// Met is the MCIP METCRO3D meteorology file.
	Met string
}

// Find returns the file sets in concDir and mcipDir for the given
// month (in YYYYMM format). A single grid file may be shared by all
// file sets; otherwise there must be one grid and one meteorology
// file for each concentration file.
func Find(concDir, mcipDir, month string) ([]FileSet, error) {
	glob := func(dir, prefix, suffix string) ([]string, error) {
		f, err := filepath.Glob(filepath.Join(dir, prefix+"*"+month+"*"+suffix))
		if err != nil {
			return nil, fmt.Errorf("cmaq: finding files: %v", err)
		}
		sort.Strings(f)
		return f, nil
	}
	conc, err := glob(concDir, "CCTM_CONC_", ".nc")
	if err != nil {
		return nil, err
	}
	grid, err := glob(mcipDir, "GRIDCRO2D_", "")
	if err != nil {
		return nil, err
	}
	met, err := glob(mcipDir, "METCRO3D_", "")
	if err != nil {
		return nil, err
	}
	if len(conc) == 0 {
		return nil, fmt.Errorf("cmaq: no CCTM_CONC files for %s in %s: %w", month, concDir, colloc.ErrInconsistentInput)
	}
	if len(conc) != len(met) {
		return nil, fmt.Errorf("cmaq: %d CCTM_CONC files but %d METCRO3D files for %s: %w",
			len(conc), len(met), month, colloc.ErrInconsistentInput)
	}
	if len(grid) != 1 && len(grid) != len(conc) {
		return nil, fmt.Errorf("cmaq: %d CCTM_CONC files but %d GRIDCRO2D files for %s: %w",
			len(conc), len(grid), month, colloc.ErrInconsistentInput)
	}
	fs := make([]FileSet, len(conc))
	for i := range conc {
		fs[i] = FileSet{Conc: conc[i], Met: met[i], Grid: grid[0]}
		if len(grid) > 1 {
			fs[i].Grid = grid[i]
		}
	}
	return fs, nil
}

// Reader reads CMAQ output.
type Reader struct {
	// ConcDir is the directory holding CCTM_CONC files.
	ConcDir string

	// MCIPDir is the directory holding MCIP files.
	MCIPDir string

	// Gas is the trace gas to read, e.g. NO2 or HCHO.
	Gas string

	// NumProcessors is the number of files to read at once.
	NumProcessors int

	// Log receives progress messages.
	Log logrus.FieldLogger
}

// Read reads all of the snapshots for the given month (YYYYMM).
// Snapshots are returned in file name order.
func (r *Reader) Read(month string) (colloc.Snapshots, error) {
	fs, err := Find(r.ConcDir, r.MCIPDir, month)
	if err != nil {
		return nil, err
	}
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	nprocs := r.NumProcessors
	if nprocs < 1 {
		nprocs = 1
	}
	if nprocs > len(fs) {
		nprocs = len(fs)
	}

	out := make(colloc.Snapshots, len(fs))
	jobChan := make(chan int, len(fs))
	errChan := make(chan error)
	for p := 0; p < nprocs; p++ {
		go func() {
			var err error
			for i := range jobChan {
				if err != nil {
					continue // Drain remaining jobs.
				}
				log.WithFields(logrus.Fields{"file": filepath.Base(fs[i].Conc)}).Info("reading CMAQ file")
				out[i], err = ReadFileSet(fs[i], r.Gas)
			}
			errChan <- err
		}()
	}
	for i := range fs {
		jobChan <- i
	}
	close(jobChan)
	for p := 0; p < nprocs; p++ {
		if e := <-errChan; e != nil && err == nil {
			err = e
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadFileSet reads a single snapshot of the given gas from fs.
func ReadFileSet(fs FileSet, gas string) (*colloc.Snapshot, error) {
	conc, err := openNCF(fs.Conc)
	if err != nil {
		return nil, err
	}
	defer conc.Close()
	met, err := openNCF(fs.Met)
	if err != nil {
		return nil, err
	}
	defer met.Close()
	grid, err := openNCF(fs.Grid)
	if err != nil {
		return nil, err
	}
	defer grid.Close()

	s := new(colloc.Snapshot)
	if s.Lat, err = grid.read2D("LAT"); err != nil {
		return nil, err
	}
	if s.Lon, err = grid.read2D("LON"); err != nil {
		return nil, err
	}

	if s.Time, err = conc.times(); err != nil {
		return nil, err
	}
	metTimes, err := met.times()
	if err != nil {
		return nil, err
	}
	metIndex := make(map[time.Time]int, len(metTimes))
	for i, t := range metTimes {
		metIndex[t] = i
	}

	species := Species(gas)
	nt := len(s.Time)
	if nt == 0 {
		return nil, fmt.Errorf("cmaq: %s has no time steps: %w", fs.Conc, colloc.ErrInconsistentInput)
	}
	factor, err := airNumberDensity()
	if err != nil {
		return nil, err
	}
	for t, tt := range s.Time {
		mt, ok := metIndex[tt]
		if !ok {
			return nil, fmt.Errorf("cmaq: %s has no meteorology for %v: %w",
				fs.Met, tt, colloc.ErrInconsistentInput)
		}
		gasData, err := conc.readStep(species, t)
		if err != nil {
			return nil, err
		}
		pres, err := met.readStep("PRES", mt)
		if err != nil {
			return nil, err
		}
		temp, err := met.readStep("TA", mt)
		if err != nil {
			return nil, err
		}
		height, err := met.heights(mt)
		if err != nil {
			return nil, err
		}
		for _, d := range []struct {
			name string
			v    *sparse.DenseArray
		}{{"PRES", pres}, {"TA", temp}, {"height", height}} {
			if !sameShape(d.v.Shape, gasData.Shape) {
				return nil, fmt.Errorf("cmaq: %s shape %v does not match %s shape %v: %w",
					d.name, d.v.Shape, species, gasData.Shape, colloc.ErrInconsistentInput)
			}
		}
		if t == 0 {
			dims := append([]int{nt}, gasData.Shape...)
			s.Density = sparse.ZerosDense(dims...)
			s.Height = sparse.ZerosDense(dims...)
		}
		n := len(gasData.Elements)
		for i, ppm := range gasData.Elements {
			// ppmV to molecules cm-2 per meter of path.
			s.Density.Elements[t*n+i] = ppm * 1e-6 * pres.Elements[i] / temp.Elements[i] * factor * perM3ToPerCM2PerM
		}
		copy(s.Height.Elements[t*n:(t+1)*n], height.Elements)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("cmaq: %s: %w", fs.Conc, err)
	}
	return s, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if b[i] != v {
			return false
		}
	}
	return true
}
