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
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/spatialmodel/colloc"
)

func TestVersion(t *testing.T) {
	b := new(bytes.Buffer)
	Root.SetOutput(b)
	Root.SetArgs([]string{"version"})
	defer Root.SetArgs(nil)
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "colloc v" + colloc.Version; !strings.Contains(b.String(), want) {
		t.Errorf("have %q, want %q", b.String(), want)
	}
}

func TestOptions(t *testing.T) {
	for _, name := range []string{"Collocate.StepM", "CTM.Type", "Pandora.Product", "NumWorkers", "Download.Interval"} {
		if Cfg.Get(name) == nil {
			t.Errorf("option %s has no default", name)
		}
	}
	if Cfg.GetString("Pandora.Product") != "rnvs3" {
		t.Errorf("Pandora.Product = %s", Cfg.GetString("Pandora.Product"))
	}
	if Cfg.GetFloat64("Collocate.MaxDistM") != colloc.DefaultMaxDist {
		t.Errorf("Collocate.MaxDistM = %g", Cfg.GetFloat64("Collocate.MaxDistM"))
	}
}

func TestEnvironmentOptions(t *testing.T) {
	for name, val := range map[string]string{
		"COLLOC_GAS":                "HCHO",
		"COLLOC_CTM_MONTH":          "201908",
		"COLLOC_COLLOCATE_MAXDISTM": "5000",
	} {
		os.Setenv(name, val)
		defer os.Unsetenv(name)
	}
	if g := Cfg.GetString("Gas"); g != "HCHO" {
		t.Errorf("Gas = %q, want HCHO", g)
	}
	if m := Cfg.GetString("CTM.Month"); m != "201908" {
		t.Errorf("CTM.Month = %q, want 201908", m)
	}
	if d := Cfg.GetFloat64("Collocate.MaxDistM"); d != 5000 {
		t.Errorf("Collocate.MaxDistM = %g, want 5000", d)
	}
}
