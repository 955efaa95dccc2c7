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
	"math"
	"sort"

	"github.com/spatialmodel/colloc"
	"github.com/tealeg/xlsx"
)

var summaryColumns = []string{"File", "N", "MB", "ME", "MFB", "MFE", "Slope", "Intercept", "R2"}

// WriteSummary saves the evaluation statistics for each result file
// to a spreadsheet, one row per file.
func WriteSummary(path string, evals map[string]colloc.Evaluation) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Evaluation")
	if err != nil {
		return fmt.Errorf("collocutil: creating summary: %v", err)
	}
	row := sheet.AddRow()
	for _, c := range summaryColumns {
		row.AddCell().SetString(c)
	}

	files := make([]string, 0, len(evals))
	for file := range evals {
		files = append(files, file)
	}
	sort.Strings(files)
	for _, file := range files {
		e := evals[file]
		row := sheet.AddRow()
		row.AddCell().SetString(file)
		row.AddCell().SetInt(e.N)
		for _, v := range []float64{e.MB, e.ME, e.MFB, e.MFE, e.Slope, e.Intercept, e.R2} {
			cell := row.AddCell()
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				cell.SetFloat(v)
			}
		}
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("collocutil: saving summary: %v", err)
	}
	return nil
}
