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

// Package pandora reads and downloads Pandonia Global Network (PGN)
// Pandora level-2 total column files.
package pandora

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/colloc"
)

// Product is the supported PGN data product: the NO2 total column
// from direct sun measurements.
const Product = "rnvs3"

// Data columns (0-based) in rnvs3 files.
const (
	colTime        = 0
	colZenith      = 3
	colAzimuth     = 4
	colQuality     = 35
	colColumn      = 38
	colUncertainty = 42
	colAMF         = 49
	minColumns     = colAMF + 1
)

// MaxZenith is the largest solar zenith angle [degrees] of retained
// measurements.
const MaxZenith = 75.0

// molPerM2To1e15PerCM2 converts mol m-2 to 1e15 molecules cm-2.
const molPerM2To1e15PerCM2 = 6.022e23 / 1e4 * 1e-15

const (
	timeFormat = "20060102T150405Z" // fractional seconds are accepted when parsing
	missing    = "-999"
)

// Parse reads a Pandora rnvs3 file from r. Only measurements at
// times in [start, end) with a high quality flag and a solar zenith
// angle less than MaxZenith are kept. The returned observations are
// nil if no measurements remain.
func Parse(r io.Reader, label string, start, end time.Time) (*colloc.Observations, error) {
	o := &colloc.Observations{Label: label, Lon: math.NaN(), Lat: math.NaN()}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	dashes := 0
	line := 0
	for dashes < 2 && s.Scan() {
		line++
		l := s.Text()
		if strings.HasPrefix(strings.TrimSpace(l), "---") {
			dashes++
			continue
		}
		var err error
		switch {
		case strings.HasPrefix(l, "Location latitude"):
			o.Lat, err = headerValue(l)
		case strings.HasPrefix(l, "Location longitude"):
			o.Lon, err = headerValue(l)
		}
		if err != nil {
			return nil, fmt.Errorf("pandora: %s line %d: %v", label, line, err)
		}
	}
	if dashes < 2 {
		if err := s.Err(); err != nil {
			return nil, fmt.Errorf("pandora: reading %s: %v", label, err)
		}
		return nil, fmt.Errorf("pandora: %s: incomplete header: %w", label, colloc.ErrInconsistentInput)
	}
	if math.IsNaN(o.Lat) || math.IsNaN(o.Lon) {
		return nil, fmt.Errorf("pandora: %s: missing station location: %w", label, colloc.ErrInconsistentInput)
	}

	for s.Scan() {
		line++
		fields := strings.Fields(s.Text())
		if len(fields) == 0 || fields[colTime] == missing {
			continue
		}
		if len(fields) < minColumns {
			return nil, fmt.Errorf("pandora: %s line %d: have %d columns, want at least %d: %w",
				label, line, len(fields), minColumns, colloc.ErrInconsistentInput)
		}
		t, err := time.Parse(timeFormat, fields[colTime])
		if err != nil {
			return nil, fmt.Errorf("pandora: %s line %d: %v", label, line, err)
		}
		if t.Before(start) || !t.Before(end) {
			continue
		}
		var v [5]float64
		for i, c := range []int{colQuality, colZenith, colAzimuth, colColumn, colUncertainty} {
			if v[i], err = strconv.ParseFloat(fields[c], 64); err != nil {
				return nil, fmt.Errorf("pandora: %s line %d column %d: %v", label, line, c+1, err)
			}
		}
		amf, err := strconv.ParseFloat(fields[colAMF], 64)
		if err != nil {
			return nil, fmt.Errorf("pandora: %s line %d column %d: %v", label, line, colAMF+1, err)
		}
		quality, zenith := v[0], v[1]
		if quality != 0 || !(zenith < MaxZenith) {
			continue
		}
		o.Time = append(o.Time, t)
		o.Zenith = append(o.Zenith, zenith)
		o.Azimuth = append(o.Azimuth, v[2])
		o.Column = append(o.Column, v[3]*molPerM2To1e15PerCM2)
		o.Uncertainty = append(o.Uncertainty, v[4]*molPerM2To1e15PerCM2)
		o.AMF = append(o.AMF, amf)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("pandora: reading %s: %v", label, err)
	}
	if o.Len() == 0 {
		return nil, nil
	}
	return o, nil
}

// headerValue returns the number after the colon in a header line
// such as "Location latitude [deg]: 38.9926".
func headerValue(l string) (float64, error) {
	i := strings.Index(l, ":")
	if i < 0 {
		return 0, fmt.Errorf("missing ':' in header line %q", l)
	}
	return strconv.ParseFloat(strings.TrimSpace(l[i+1:]), 64)
}

// ReadFile reads the Pandora file at path. The series is labeled
// with the file name.
func ReadFile(path string, start, end time.Time) (*colloc.Observations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pandora: %v", err)
	}
	defer f.Close()
	return Parse(f, filepath.Base(path), start, end)
}

// Reader reads directories of Pandora files.
type Reader struct {
	// Dir is the directory holding the files.
	Dir string

	// Product is the data product. Only rnvs3 is supported.
	Product string

	// NumProcessors is the number of files to read at once.
	NumProcessors int

	// Log receives progress messages.
	Log logrus.FieldLogger
}

// Read reads the measurements between start and end from all
// files in r.Dir whose names include the product name. Files
// without any usable measurements are skipped. Series are returned
// in file name order.
func (r *Reader) Read(start, end time.Time) ([]*colloc.Observations, error) {
	if r.Product != Product {
		return nil, fmt.Errorf("pandora: product %q: %w", r.Product, colloc.ErrUnsupported)
	}
	files, err := filepath.Glob(filepath.Join(r.Dir, "*"+r.Product+"*"))
	if err != nil {
		return nil, fmt.Errorf("pandora: finding files: %v", err)
	}
	sort.Strings(files)
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	type result struct {
		obs *colloc.Observations
		err error
	}
	results := make([]chan result, len(files))
	nprocs := r.NumProcessors
	if nprocs < 1 {
		nprocs = 1
	}
	sem := make(chan struct{}, nprocs)
	for i, file := range files {
		results[i] = make(chan result, 1)
		go func(file string, out chan<- result) {
			sem <- struct{}{}
			defer func() { <-sem }()
			o, err := ReadFile(file, start, end)
			out <- result{obs: o, err: err}
		}(file, results[i])
	}

	var out []*colloc.Observations
	for i, c := range results {
		res := <-c
		if res.err != nil && err == nil {
			err = res.err
		}
		if res.obs == nil {
			log.WithFields(logrus.Fields{"file": filepath.Base(files[i])}).Debug("no usable Pandora measurements")
			continue
		}
		log.WithFields(logrus.Fields{
			"file":         filepath.Base(files[i]),
			"observations": res.obs.Len(),
		}).Info("read Pandora file")
		out = append(out, res.obs)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
