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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/colloc"
	"github.com/spatialmodel/colloc/pandora"
	"github.com/spf13/cast"
)

const dateFormat = "20060102"

// Config holds the settings for a collocation run.
type Config struct {
	// Step, MaxDist, and StartAlt are the line-of-sight sample
	// spacing, length, and starting height [m].
	Step, MaxDist, StartAlt float64

	// CTMType is the chemical transport model. Only CMAQ is supported.
	CTMType string

	// ConcDir and MCIPDir are the CMAQ concentration and
	// meteorology directories.
	ConcDir, MCIPDir string

	// Month selects model files (YYYYMM).
	Month string

	// Gas is the trace gas, e.g. NO2 or HCHO.
	Gas string

	// Product and PandoraDir are the Pandora data product and the
	// directory holding its files.
	Product, PandoraDir string

	// Start and End bound the observation times [Start, End).
	Start, End time.Time

	// NumWorkers is the number of files or series processed at once.
	NumWorkers int

	// OutputDir is a local directory or blob storage location
	// for results.
	OutputDir string

	// Plot specifies whether to save a scatter plot for each series.
	Plot bool

	// SummaryFile, if not empty, is a spreadsheet where the evaluation
	// statistics of all series are saved.
	SummaryFile string

	// StationFile, if not empty, is a shapefile where the station
	// locations and evaluation statistics are saved.
	StationFile string
}

// ParseConfig reads a collocation configuration from cfg.
func ParseConfig(cfg *viper.Viper) (*Config, error) {
	c := &Config{
		Step:       cfg.GetFloat64("Collocate.StepM"),
		MaxDist:    cfg.GetFloat64("Collocate.MaxDistM"),
		StartAlt:   cfg.GetFloat64("Collocate.StartAltM"),
		CTMType:    os.ExpandEnv(cfg.GetString("CTM.Type")),
		ConcDir:    os.ExpandEnv(cfg.GetString("CTM.ConcDir")),
		MCIPDir:    os.ExpandEnv(cfg.GetString("CTM.MCIPDir")),
		Month:      os.ExpandEnv(cfg.GetString("CTM.Month")),
		Gas:        os.ExpandEnv(cfg.GetString("Gas")),
		Product:    os.ExpandEnv(cfg.GetString("Pandora.Product")),
		PandoraDir: os.ExpandEnv(cfg.GetString("Pandora.Dir")),
		OutputDir:  os.ExpandEnv(cfg.GetString("OutputDir")),
		Plot:       cfg.GetBool("Plot"),

		SummaryFile: os.ExpandEnv(cfg.GetString("SummaryFile")),
		StationFile: os.ExpandEnv(cfg.GetString("StationFile")),
	}
	var err error
	if c.NumWorkers, err = cast.ToIntE(cfg.Get("NumWorkers")); err != nil {
		return nil, fmt.Errorf("collocutil: NumWorkers: %v", err)
	}
	if c.NumWorkers < 1 {
		return nil, fmt.Errorf("collocutil: NumWorkers=%d but should be >0", c.NumWorkers)
	}

	if !strings.EqualFold(c.CTMType, "CMAQ") {
		return nil, fmt.Errorf("collocutil: CTM.Type %q: %w", c.CTMType, colloc.ErrUnsupported)
	}
	if c.Product != pandora.Product {
		return nil, fmt.Errorf("collocutil: Pandora.Product %q: %w", c.Product, colloc.ErrUnsupported)
	}

	vars := []float64{c.Step, c.MaxDist}
	varNames := []string{"Collocate.StepM", "Collocate.MaxDistM"}
	for i, v := range vars {
		if !(v > 0) {
			return nil, fmt.Errorf("collocutil: %s=%g but should be >0", varNames[i], v)
		}
	}
	strs := []string{c.ConcDir, c.MCIPDir, c.PandoraDir, c.Gas, c.OutputDir}
	varNames = []string{"CTM.ConcDir", "CTM.MCIPDir", "Pandora.Dir", "Gas", "OutputDir"}
	for i, v := range strs {
		if v == "" {
			return nil, fmt.Errorf("collocutil: %s is not specified", varNames[i])
		}
	}

	if c.Start, err = parseDate("StartDate", cfg.GetString("StartDate")); err != nil {
		return nil, err
	}
	if c.End, err = parseDate("EndDate", cfg.GetString("EndDate")); err != nil {
		return nil, err
	}
	if !c.End.After(c.Start) {
		return nil, fmt.Errorf("collocutil: EndDate %s is not after StartDate %s",
			c.End.Format(dateFormat), c.Start.Format(dateFormat))
	}
	if c.Month == "" {
		c.Month = c.Start.Format("200601")
	} else if _, err := time.Parse("200601", c.Month); err != nil {
		return nil, fmt.Errorf("collocutil: CTM.Month %q should be in YYYYMM format", c.Month)
	}
	return c, nil
}

func parseDate(name, v string) (time.Time, error) {
	t, err := time.Parse(dateFormat, os.ExpandEnv(v))
	if err != nil {
		return t, fmt.Errorf("collocutil: %s %q should be in YYYYMMDD format", name, v)
	}
	return t, nil
}

// DownloadConfig holds the settings for downloading Pandora files.
type DownloadConfig struct {
	BaseURL    string
	Dir        string
	Product    string
	Interval   time.Duration
	MaxRetries int
}

// ParseDownloadConfig reads a download configuration from cfg.
func ParseDownloadConfig(cfg *viper.Viper) (*DownloadConfig, error) {
	c := &DownloadConfig{
		BaseURL: os.ExpandEnv(cfg.GetString("Download.BaseURL")),
		Dir:     os.ExpandEnv(cfg.GetString("Download.Dir")),
		Product: os.ExpandEnv(cfg.GetString("Pandora.Product")),
	}
	var err error
	if c.Interval, err = cast.ToDurationE(cfg.Get("Download.Interval")); err != nil {
		return nil, fmt.Errorf("collocutil: Download.Interval: %v", err)
	}
	if c.MaxRetries, err = cast.ToIntE(cfg.Get("Download.MaxRetries")); err != nil {
		return nil, fmt.Errorf("collocutil: Download.MaxRetries: %v", err)
	}
	if c.Product != pandora.Product {
		return nil, fmt.Errorf("collocutil: Pandora.Product %q: %w", c.Product, colloc.ErrUnsupported)
	}
	if c.BaseURL == "" || c.Dir == "" {
		return nil, fmt.Errorf("collocutil: Download.BaseURL and Download.Dir must be specified")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("collocutil: Download.Interval=%v but should be >0", c.Interval)
	}
	return c, nil
}

// NewLogger returns a logger that writes messages at or above
// the named level.
func NewLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("collocutil: LogLevel: %v", err)
	}
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	}
	log.Level = lvl
	return log, nil
}
