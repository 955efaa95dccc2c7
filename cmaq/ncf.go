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

package cmaq

import (
	"fmt"
	"os"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/colloc"
)

// ncf is an open NetCDF file in the Models-3 I/O API format.
type ncf struct {
	*cdf.File
	f    *os.File
	name string
}

func openNCF(name string) (*ncf, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("cmaq: %v", err)
	}
	ff, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("cmaq: opening %s: %v", name, err)
	}
	return &ncf{File: ff, f: f, name: name}, nil
}

func (n *ncf) Close() error { return n.f.Close() }

func (n *ncf) hasVariable(v string) bool {
	for _, vv := range n.Header.Variables() {
		if vv == v {
			return true
		}
	}
	return false
}

// steps returns the number of time steps in variable v.
func (n *ncf) steps(v string) (int, error) {
	dims := n.Header.Lengths(v)
	if len(dims) == 0 {
		return 0, fmt.Errorf("cmaq: variable %s not in %s", v, n.name)
	}
	if !n.Header.IsRecordVariable(v) {
		return dims[0], nil
	}
	fi, err := n.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("cmaq: %v", err)
	}
	return int(n.Header.NumRecs(fi.Size())), nil
}

// readStep reads variable v at time step t. The time
// dimension is removed from the returned array.
func (n *ncf) readStep(v string, t int) (*sparse.DenseArray, error) {
	nt, err := n.steps(v)
	if err != nil {
		return nil, err
	}
	if t < 0 || t >= nt {
		return nil, fmt.Errorf("cmaq: %s: time step %d out of range [0, %d) for variable %s: %w",
			n.name, t, nt, v, colloc.ErrInconsistentInput)
	}
	dims := n.Header.Lengths(v)[1:]
	nread := 1
	for _, dim := range dims {
		nread *= dim
	}
	start, end := make([]int, len(dims)+1), make([]int, len(dims)+1)
	start[0], end[0] = t, t+1
	r := n.Reader(v, start, end)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("cmaq: reading %s variable %s: %v", n.name, v, err)
	}
	data := sparse.ZerosDense(dims...)
	switch b := buf.(type) {
	case []float32:
		for i, val := range b {
			data.Elements[i] = float64(val)
		}
	case []float64:
		copy(data.Elements, b)
	default:
		return nil, fmt.Errorf("cmaq: %s variable %s has unsupported type %T", n.name, v, buf)
	}
	return data, nil
}

// read2D reads a 2-d [row, col] field from the first time step and
// layer of variable v.
func (n *ncf) read2D(v string) (*sparse.DenseArray, error) {
	d, err := n.readStep(v, 0)
	if err != nil {
		return nil, err
	}
	if len(d.Shape) < 2 {
		return nil, fmt.Errorf("cmaq: %s variable %s has shape %v; it should have at least 2 dimensions",
			n.name, v, d.Shape)
	}
	ny, nx := d.Shape[len(d.Shape)-2], d.Shape[len(d.Shape)-1]
	out := sparse.ZerosDense(ny, nx)
	copy(out.Elements, d.Elements[:ny*nx])
	return out, nil
}

// times returns the time of each step in the file, read from the
// TFLAG variable, which has dimensions [TSTEP, VAR, DATE-TIME]
// with dates in YYYYDDD format and times in HHMMSS format.
func (n *ncf) times() ([]time.Time, error) {
	const v = "TFLAG"
	nt, err := n.steps(v)
	if err != nil {
		return nil, err
	}
	dims := n.Header.Lengths(v)
	if len(dims) != 3 || dims[2] != 2 {
		return nil, fmt.Errorf("cmaq: %s: TFLAG has shape %v; it should be [TSTEP, VAR, 2]", n.name, dims)
	}
	nread := dims[1] * dims[2]
	out := make([]time.Time, nt)
	for t := 0; t < nt; t++ {
		r := n.Reader(v, []int{t, 0, 0}, []int{t + 1, 0, 0})
		buf := r.Zero(nread)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("cmaq: reading %s TFLAG: %v", n.name, err)
		}
		b, ok := buf.([]int32)
		if !ok {
			return nil, fmt.Errorf("cmaq: %s: TFLAG has type %T; it should be []int32", n.name, buf)
		}
		out[t] = parseTFLAG(b[0], b[1])
	}
	return out, nil
}

// parseTFLAG converts a Models-3 date (YYYYDDD) and time (HHMMSS)
// to a UTC time.
func parseTFLAG(date, hhmmss int32) time.Time {
	year, doy := int(date/1000), int(date%1000)
	h, m, s := int(hhmmss/10000), int(hhmmss/100%100), int(hhmmss%100)
	return time.Date(year, time.January, doy, h, m, s, 0, time.UTC)
}

// heights returns the height of each layer center [m above ground]
// at time step t. ZH is used if present; otherwise the centers are
// calculated from the layer top heights in ZF.
func (n *ncf) heights(t int) (*sparse.DenseArray, error) {
	if n.hasVariable("ZH") {
		return n.readStep("ZH", t)
	}
	zf, err := n.readStep("ZF", t)
	if err != nil {
		return nil, err
	}
	if len(zf.Shape) != 3 {
		return nil, fmt.Errorf("cmaq: %s: ZF has shape %v; it should be [LAY, ROW, COL]", n.name, zf.Shape)
	}
	nz, ny, nx := zf.Shape[0], zf.Shape[1], zf.Shape[2]
	zh := sparse.ZerosDense(nz, ny, nx)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				below := 0.
				if k > 0 {
					below = zf.Get(k-1, j, i)
				}
				zh.Set((below+zf.Get(k, j, i))/2, k, j, i)
			}
		}
	}
	return zh, nil
}
