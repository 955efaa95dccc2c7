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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/colloc"
	"github.com/spatialmodel/colloc/cmaq"
	"github.com/spatialmodel/colloc/pandora"
)

// Collocate reads the model and observation data specified by c,
// collocates each observation series with the model, and saves the
// results and their evaluation statistics to c.OutputDir.
func Collocate(ctx context.Context, c *Config, log logrus.FieldLogger) error {
	cr := &cmaq.Reader{
		ConcDir:       c.ConcDir,
		MCIPDir:       c.MCIPDir,
		Gas:           c.Gas,
		NumProcessors: c.NumWorkers,
		Log:           log,
	}
	snapshots, err := cr.Read(c.Month)
	if err != nil {
		return err
	}
	pr := &pandora.Reader{
		Dir:           c.PandoraDir,
		Product:       c.Product,
		NumProcessors: c.NumWorkers,
		Log:           log,
	}
	series, err := pr.Read(c.Start, c.End)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		log.WithFields(logrus.Fields{"dir": c.PandoraDir}).Warn("no usable Pandora measurements")
		return nil
	}

	col := &colloc.Collocator{Step: c.Step, MaxDist: c.MaxDist, StartAlt: c.StartAlt, Log: log}
	results, err := collocateSeries(ctx, col, series, snapshots, c.NumWorkers)
	if err != nil {
		return err
	}

	out, err := newOutput(ctx, c.OutputDir)
	if err != nil {
		return err
	}
	evals := make(map[string]colloc.Evaluation, len(results))
	for _, r := range results {
		name := resultName(r.Label, c.Gas)
		if evals[name+".nc"], err = save(ctx, out, r, name, c.Plot, log); err != nil {
			return err
		}
	}
	if c.SummaryFile != "" {
		if err := WriteSummary(c.SummaryFile, evals); err != nil {
			return err
		}
	}
	if c.StationFile != "" {
		if err := colloc.WriteStations(c.StationFile, results); err != nil {
			return err
		}
	}
	return nil
}

// collocateSeries collocates each observation series with snapshots,
// processing up to nworkers series at once. Results are in the same
// order as series.
func collocateSeries(ctx context.Context, col *colloc.Collocator, series []*colloc.Observations, snapshots colloc.Snapshots, nworkers int) ([]*colloc.Results, error) {
	labels := make(map[string]bool, len(series))
	for _, s := range series {
		if labels[s.Label] {
			return nil, fmt.Errorf("collocutil: duplicate observation label %q: %w", s.Label, colloc.ErrInconsistentInput)
		}
		labels[s.Label] = true
	}
	m, err := colloc.NewModel(snapshots)
	if err != nil {
		return nil, err
	}
	if nworkers < 1 {
		nworkers = 1
	}
	if nworkers > len(series) {
		nworkers = len(series)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	out := make([]*colloc.Results, len(series))
	jobChan := make(chan int, len(series))
	errChan := make(chan error)
	for p := 0; p < nworkers; p++ {
		go func() {
			var err error
			for i := range jobChan {
				if err != nil {
					continue
				}
				if out[i], err = col.CollocateModel(ctx, series[i], m); err != nil {
					cancel()
				}
			}
			errChan <- err
		}()
	}
	for i := range series {
		jobChan <- i
	}
	close(jobChan)
	for p := 0; p < nworkers; p++ {
		if e := <-errChan; e != nil && err == nil {
			err = e
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// resultName returns the base output file name for a series.
func resultName(label, gas string) string {
	label = strings.TrimSuffix(filepath.Base(label), filepath.Ext(label))
	return fmt.Sprintf("%s_%s", label, gas)
}

// save writes r to out as name.nc and, if plot is true, its scatter
// plot as name.png. It returns the evaluation statistics for r.
func save(ctx context.Context, out *output, r *colloc.Results, name string, plot bool, log logrus.FieldLogger) (colloc.Evaluation, error) {
	e := colloc.Evaluate(r)
	err := out.write(ctx, name+".nc", func(f *os.File) error {
		return colloc.WriteResults(f, r)
	})
	if err != nil {
		return e, err
	}
	log.WithFields(logrus.Fields{"series": r.Label}).Info(e.String())
	if !plot {
		return e, nil
	}
	if e.N == 0 {
		log.WithFields(logrus.Fields{"series": r.Label}).Warn("no valid pairs; skipping plot")
		return e, nil
	}
	return e, out.write(ctx, name+".png", func(f *os.File) error {
		return colloc.PlotScatter(f, r, e)
	})
}

// Evaluate reads the result files matching the given glob patterns
// and calculates their evaluation statistics. If plot is true, a
// scatter plot is saved next to each file.
func Evaluate(patterns []string, plot bool, log logrus.FieldLogger) (map[string]colloc.Evaluation, error) {
	var files []string
	for _, p := range patterns {
		f, err := filepath.Glob(os.ExpandEnv(p))
		if err != nil {
			return nil, fmt.Errorf("collocutil: %v", err)
		}
		files = append(files, f...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("collocutil: no result files match %v", patterns)
	}
	out := make(map[string]colloc.Evaluation, len(files))
	for _, file := range files {
		r, err := readResults(file)
		if err != nil {
			return nil, err
		}
		e := colloc.Evaluate(r)
		out[file] = e
		log.WithFields(logrus.Fields{"file": file, "series": r.Label}).Info(e.String())
		if !plot || e.N == 0 {
			continue
		}
		w, err := os.Create(strings.TrimSuffix(file, filepath.Ext(file)) + ".png")
		if err != nil {
			return nil, fmt.Errorf("collocutil: %v", err)
		}
		if err := colloc.PlotScatter(w, r, e); err != nil {
			w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readResults(file string) (*colloc.Results, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("collocutil: %v", err)
	}
	defer f.Close()
	r, err := colloc.ReadResults(f)
	if err != nil {
		return nil, fmt.Errorf("collocutil: reading %s: %v", file, err)
	}
	return r, nil
}

// Download retrieves the Pandora files specified by c that have not
// already been downloaded and returns the number of new files.
func Download(ctx context.Context, c *DownloadConfig, log logrus.FieldLogger) (int, error) {
	d := pandora.NewDownloader(c.BaseURL, c.Dir, c.Interval, c.MaxRetries)
	d.Product = c.Product
	d.Log = log
	return d.Download(ctx)
}
