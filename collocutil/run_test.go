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

package collocutil

import (
	"context"
	"errors"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/colloc"
	"github.com/tealeg/xlsx"
)

var testStart = time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)

// testSnapshots returns one day of hourly model output with a uniform
// density of 1e10 molecules cm-2 m-1 on a 0.1° grid.
func testSnapshots() colloc.Snapshots {
	const nt, nz, ny, nx = 24, 3, 4, 4
	s := &colloc.Snapshot{
		Lon:     sparse.ZerosDense(ny, nx),
		Lat:     sparse.ZerosDense(ny, nx),
		Density: sparse.ZerosDense(nt, nz, ny, nx),
		Height:  sparse.ZerosDense(nt, nz, ny, nx),
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			s.Lon.Set(-77+0.1*float64(i), j, i)
			s.Lat.Set(38+0.1*float64(j), j, i)
		}
	}
	for t := 0; t < nt; t++ {
		s.Time = append(s.Time, testStart.Add(time.Duration(t)*time.Hour))
		for k := 0; k < nz; k++ {
			for j := 0; j < ny; j++ {
				for i := 0; i < nx; i++ {
					s.Density.Set(1e10, t, k, j, i)
					s.Height.Set(100*float64(2*k+1), t, k, j, i)
				}
			}
		}
	}
	return colloc.Snapshots{s}
}

func testSeries(label string, n int) *colloc.Observations {
	o := &colloc.Observations{Label: label, Lon: -76.85, Lat: 38.15}
	for i := 0; i < n; i++ {
		o.Time = append(o.Time, testStart.Add(time.Duration(i)*time.Hour))
		o.Zenith = append(o.Zenith, 30)
		o.Azimuth = append(o.Azimuth, 90)
		o.Column = append(o.Column, 0.5+0.1*float64(i))
		o.Uncertainty = append(o.Uncertainty, 0.05)
		o.AMF = append(o.AMF, 2)
	}
	return o
}

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.Level = logrus.WarnLevel
	return log
}

func testCollocator() *colloc.Collocator {
	col := colloc.NewCollocator()
	col.Log = testLog()
	return col
}

func TestCollocateSeries(t *testing.T) {
	series := []*colloc.Observations{
		testSeries("a.txt", 5),
		testSeries("b.txt", 3),
		testSeries("c.txt", 8),
	}
	results, err := collocateSeries(context.Background(), testCollocator(), series, testSnapshots(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(series) {
		t.Fatalf("have %d results, want %d", len(results), len(series))
	}
	for i, r := range results {
		if r.Label != series[i].Label || r.Len() != series[i].Len() {
			t.Errorf("result %d: label %s, length %d", i, r.Label, r.Len())
		}
		for j, scd := range r.ModelSCD {
			if math.Abs(scd-1) > 1e-9 {
				t.Errorf("result %d, observation %d: SCD = %g; want 1", i, j, scd)
			}
			if math.Abs(r.ModelVCD[j]-0.5) > 1e-9 {
				t.Errorf("result %d, observation %d: VCD = %g; want 0.5", i, j, r.ModelVCD[j])
			}
		}
	}
}

func TestCollocateSeriesErrors(t *testing.T) {
	t.Run("duplicate", func(t *testing.T) {
		series := []*colloc.Observations{testSeries("a.txt", 2), testSeries("a.txt", 2)}
		_, err := collocateSeries(context.Background(), testCollocator(), series, testSnapshots(), 2)
		if !errors.Is(err, colloc.ErrInconsistentInput) {
			t.Errorf("want ErrInconsistentInput, have %v", err)
		}
	})
	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		series := []*colloc.Observations{testSeries("a.txt", 2), testSeries("b.txt", 2)}
		if _, err := collocateSeries(ctx, testCollocator(), series, testSnapshots(), 1); err != context.Canceled {
			t.Errorf("want context.Canceled, have %v", err)
		}
	})
}

func TestResultName(t *testing.T) {
	if n := resultName("/data/Pandora32s1_GreenbeltMD_L2_rnvs3p1-8.txt", "NO2"); n != "Pandora32s1_GreenbeltMD_L2_rnvs3p1-8_NO2" {
		t.Errorf("resultName = %s", n)
	}
}

func TestSaveAndEvaluate(t *testing.T) {
	dir, err := ioutil.TempDir("", "colloc_output")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	results, err := collocateSeries(context.Background(), testCollocator(),
		[]*colloc.Observations{testSeries("a.txt", 5)}, testSnapshots(), 1)
	if err != nil {
		t.Fatal(err)
	}
	out, err := newOutput(context.Background(), filepath.Join(dir, "results"))
	if err != nil {
		t.Fatal(err)
	}
	e, err := save(context.Background(), out, results[0], resultName("a.txt", "NO2"), true, testLog())
	if err != nil {
		t.Fatal(err)
	}
	if e.N != 5 {
		t.Errorf("saved N = %d; want 5", e.N)
	}
	for _, f := range []string{"a_NO2.nc", "a_NO2.png"} {
		if _, err := os.Stat(filepath.Join(dir, "results", f)); err != nil {
			t.Error(err)
		}
	}

	evals, err := Evaluate([]string{filepath.Join(dir, "results", "*.nc")}, false, testLog())
	if err != nil {
		t.Fatal(err)
	}
	var ok bool
	e, ok = evals[filepath.Join(dir, "results", "a_NO2.nc")]
	if !ok {
		t.Fatalf("missing evaluation: %v", evals)
	}
	if e.N != 5 {
		t.Errorf("N = %d; want 5", e.N)
	}
	// Model VCD is 0.5 everywhere and observations are 0.5, 0.6, ... 0.9.
	if math.Abs(e.MB-(-0.2)) > 1e-9 {
		t.Errorf("MB = %g; want -0.2", e.MB)
	}

	if _, err := Evaluate([]string{filepath.Join(dir, "none", "*.nc")}, false, testLog()); err == nil {
		t.Error("expected an error for no matching files")
	}
}

func TestBlobOutput(t *testing.T) {
	const bucketDir = "tmp_colloc_bucket"
	if err := os.Mkdir(bucketDir, os.ModePerm); err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(bucketDir)

	out, err := newOutput(context.Background(), "file://"+bucketDir)
	if err != nil {
		t.Fatal(err)
	}
	err = out.write(context.Background(), "test.txt", func(f *os.File) error {
		_, err := f.WriteString("contents")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	b, err := ioutil.ReadFile(filepath.Join(bucketDir, "test.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "contents" {
		t.Errorf("have %q, want %q", b, "contents")
	}
}

func TestIsBlob(t *testing.T) {
	for loc, want := range map[string]bool{
		"gs://bucket/dir":  true,
		"s3://bucket":      true,
		"file://bucket":    true,
		"colloc_output":    false,
		"/tmp/colloc/out/": false,
	} {
		if IsBlob(loc) != want {
			t.Errorf("IsBlob(%q) != %v", loc, want)
		}
	}
}

func TestWriteSummary(t *testing.T) {
	dir, err := ioutil.TempDir("", "colloc_summary")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "summary.xlsx")
	evals := map[string]colloc.Evaluation{
		"b.nc": {N: 3, MB: 0.5, ME: 0.5, MFB: 0.1, MFE: 0.1, Slope: 1, R2: 1},
		"a.nc": {N: 0, MB: math.NaN(), ME: math.NaN(), MFB: math.NaN(), MFE: math.NaN(),
			Slope: math.NaN(), Intercept: math.NaN(), R2: math.NaN()},
	}
	if err := WriteSummary(path, evals); err != nil {
		t.Fatal(err)
	}
	f, err := xlsx.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	rows := f.Sheet["Evaluation"].Rows
	if len(rows) != 3 {
		t.Fatalf("have %d rows, want 3", len(rows))
	}
	want := [][]string{{"File", "N"}, {"a.nc", "0"}, {"b.nc", "3"}}
	for i, w := range want {
		for j, v := range w {
			if have := rows[i].Cells[j].Value; have != v {
				t.Errorf("row %d column %d: have %q, want %q", i, j, have, v)
			}
		}
	}
}
