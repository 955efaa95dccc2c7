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

// Package collocutil contains the command-line interface and the
// configuration handling for the collocation tools.
package collocutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/ctessum/gobra"
	"github.com/lnashier/viper"
	"github.com/skratchdot/open-golang/open"
	"github.com/spatialmodel/colloc"
	"github.com/spatialmodel/colloc/pandora"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to colloc.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel specifies the minimum level of log messages to
              print: debug, info, warning, or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Collocate.StepM",
			usage: `
              Collocate.StepM specifies the distance in meters between
              samples along the instrument line of sight.`,
			defaultVal: colloc.DefaultStep,
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "Collocate.MaxDistM",
			usage: `
              Collocate.MaxDistM specifies the length in meters of the
              line of sight that is integrated through the model.`,
			defaultVal: colloc.DefaultMaxDist,
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "Collocate.StartAltM",
			usage: `
              Collocate.StartAltM specifies the height in meters above
              ground of the start of the line of sight.`,
			defaultVal: colloc.DefaultStartAlt,
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "CTM.Type",
			usage: `
              CTM.Type specifies the chemical transport model that produced
              the model output. Currently CMAQ is the only option.`,
			defaultVal: "CMAQ",
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "CTM.ConcDir",
			usage: `
              CTM.ConcDir specifies the directory holding the CMAQ
              CCTM_CONC files.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "CTM.MCIPDir",
			usage: `
              CTM.MCIPDir specifies the directory holding the MCIP
              GRIDCRO2D and METCRO3D files.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "CTM.Month",
			usage: `
              CTM.Month selects the model files to read, in YYYYMM format.
              If it is empty, the month of StartDate is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "Gas",
			usage: `
              Gas specifies the trace gas to collocate, for example NO2
              or HCHO.`,
			defaultVal: "NO2",
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "Pandora.Product",
			usage: `
              Pandora.Product specifies the Pandora data product.
              Currently rnvs3 is the only option.`,
			defaultVal: pandora.Product,
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags(), downloadCmd.Flags()},
		},
		{
			name: "Pandora.Dir",
			usage: `
              Pandora.Dir specifies the directory holding the Pandora
              level-2 files.`,
			defaultVal: "PGN_rnvs3_L2_files",
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "StartDate",
			usage: `
              StartDate is the date of the first observations to use,
              in YYYYMMDD format.`,
			defaultVal: "No Default",
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "EndDate",
			usage: `
              EndDate is the date after the last observations to use,
              in YYYYMMDD format.`,
			defaultVal: "No Default",
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "NumWorkers",
			usage: `
              NumWorkers specifies the number of files or observation series
              to process at the same time.`,
			defaultVal: runtime.NumCPU(),
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir specifies where results are saved. It can be a
              local directory or a blob storage location starting with
              file://, gs://, or s3://.`,
			defaultVal: "colloc_output",
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "Plot",
			usage: `
              Plot specifies whether to also save a scatter plot of model
              versus observed vertical columns for each observation series.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags(), evaluateCmd.Flags()},
		},
		{
			name: "SummaryFile",
			usage: `
              SummaryFile, if not empty, specifies a spreadsheet (.xlsx) file
              where the evaluation statistics of all observation series are saved.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags(), evaluateCmd.Flags()},
		},
		{
			name: "StationFile",
			usage: `
              StationFile, if not empty, specifies a shapefile (.shp) where the
              location and evaluation statistics of each station are saved.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{collocateCmd.Flags()},
		},
		{
			name: "Download.BaseURL",
			usage: `
              Download.BaseURL specifies the root of the Pandonia Global
              Network data archive.`,
			defaultVal: pandora.DefaultBaseURL,
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
		{
			name: "Download.Dir",
			usage: `
              Download.Dir specifies the directory where downloaded
              files are saved.`,
			defaultVal: "PGN_rnvs3_L2_files",
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
		{
			name: "Download.Interval",
			usage: `
              Download.Interval specifies the minimum time between requests
              to the data archive.`,
			defaultVal: "1s",
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
		{
			name: "Download.MaxRetries",
			usage: `
              Download.MaxRetries specifies how many times a failed request
              is retried.`,
			defaultVal: 5,
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("COLLOC")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(collocateCmd)
	Root.AddCommand(downloadCmd)
	Root.AddCommand(evaluateCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("colloc: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "colloc",
	Short: "Compare model trace gas columns with ground-based observations.",
	Long: `colloc pairs Pandora ground-based slant-column measurements with
CMAQ chemical transport model output along each instrument's line of sight.
Use the subcommands specified below to access the functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'COLLOC_var' where 'var' is the
name of the variable to be set, with any '.' replaced by '_' (e.g. COLLOC_CTM_MONTH). Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of colloc.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("colloc v%s\n", colloc.Version)
	},
	DisableAutoGenTag: true,
}

var collocateCmd = &cobra.Command{
	Use:   "collocate",
	Short: "Collocate model output with observations.",
	Long: `collocate reads CMAQ output and Pandora observations, calculates the
model slant and vertical columns along each observation's line of sight, and
saves one result file per Pandora file to OutputDir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := NewLogger(Cfg.GetString("LogLevel"))
		if err != nil {
			return err
		}
		c, err := ParseConfig(Cfg)
		if err != nil {
			return err
		}
		start := time.Now()
		if err := Collocate(context.Background(), c, log); err != nil {
			return err
		}
		log.WithField("duration", time.Since(start)).Info("collocation complete")
		return nil
	},
	DisableAutoGenTag: true,
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download Pandora observations.",
	Long: `download retrieves Pandora level-2 files from the Pandonia Global Network
data archive, skipping files that have already been downloaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := NewLogger(Cfg.GetString("LogLevel"))
		if err != nil {
			return err
		}
		c, err := ParseDownloadConfig(Cfg)
		if err != nil {
			return err
		}
		n, err := Download(context.Background(), c, log)
		log.WithField("files", n).Info("download finished")
		return err
	},
	DisableAutoGenTag: true,
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [result files...]",
	Short: "Calculate model performance statistics.",
	Long: `evaluate reads the given collocation result files and prints the
model performance statistics for each of them. File names may contain
glob patterns.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := NewLogger(Cfg.GetString("LogLevel"))
		if err != nil {
			return err
		}
		evals, err := Evaluate(args, Cfg.GetBool("Plot"), log)
		if err != nil {
			return err
		}
		if f := os.ExpandEnv(Cfg.GetString("SummaryFile")); f != "" {
			return WriteSummary(f, evals)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

// StartWebServer starts the web server.
func StartWebServer() {
	setConfig() // Ignore any errors for now.

	http.HandleFunc("/setConfig", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		Root.PersistentFlags().Set("config", r.Form.Get("config"))
		if err := setConfig(); err != nil {
			http.Error(w, err.Error(), http.StatusNoContent)
			return
		}
		config := make(map[string]interface{})
		for _, option := range options {
			config[option.name] = Cfg.Get(option.name)
		}
		b := new(bytes.Buffer)
		if err := json.NewEncoder(b).Encode(config); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Write(b.Bytes())
	})

	for _, cmd := range []*cobra.Command{Root, versionCmd, collocateCmd, downloadCmd, evaluateCmd} {
		cmd.SilenceUsage = true // We don't want the usage messages in the GUI.
	}

	const address = "localhost:7272"
	const tmpl = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>colloc</title>
	<style>
		body { font-family: sans-serif; max-width: 760px; margin: 2% auto; padding: 10px; }
		div[id^="gobra-"] blockquote { border-left: 3px solid #bbb; margin: .3em; color: #333; padding-left: 5px; font-size: 75%; }
		div[id^="gobra-"] input { font-family: monospace; width: 50%; }
		.loaded { border: 1px solid #3c5; }
		.failed { border: 1px solid #c35; }
	</style>
</head>
<body>
	<h1>colloc</h1>
	<p>Configure the collocation below. Fields outlined in green were read from the configuration file.</p>
	<div>{{.}}</div>
<script>
let flags = [...document.querySelectorAll('[data-name]')];
let configInput = flags.filter(x => x.dataset.name == "config")[0].children[0];
configInput.addEventListener("change", e => {
	fetch("/setConfig?config=" + encodeURIComponent(configInput.value)).then(res => {
		if (res.status !== 200) {
			configInput.classList.add("failed");
			return;
		}
		configInput.classList.remove("failed");
		res.json().then(data => {
			for (let f of flags) {
				if (!(f.dataset.name in data)) continue;
				let input = f.children[0];
				input.value = JSON.stringify(data[f.dataset.name]).replace(/^"+|"+$/g, '');
				input.classList.add("loaded");
			}
		});
	});
});
</script>
</body>
</html>`

	output := template.Must(template.New("").Parse(tmpl))
	server := gobra.Server{Root: Root, ServerAddress: address, AllowCORS: false, HTML: output}
	log.Println("Server starting... ")
	open.Run("http://" + address)
	fmt.Println("If not opened automatically, please visit http://" + address)
	server.Start()
}
