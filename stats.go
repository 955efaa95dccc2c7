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

	"github.com/GaryBoone/GoStats/stats"
	"github.com/ctessum/atmos/evalstats"
)

// Evaluation holds statistics comparing model and observed
// vertical columns.
type Evaluation struct {
	// N is the number of observations where both the model and
	// observed columns are finite.
	N int

	// MB and ME are the mean bias and mean error [1e15 molecules cm-2].
	MB, ME float64

	// MFB and MFE are the mean fractional bias and error [fraction].
	MFB, MFE float64

	// Slope, Intercept and R2 describe the linear regression of the
	// model columns on the observed columns.
	Slope, Intercept, R2 float64
}

func (e Evaluation) String() string {
	return fmt.Sprintf("N=%d MB=%.4g ME=%.4g MFB=%.3g%% MFE=%.3g%% slope=%.3g intercept=%.3g R²=%.3g",
		e.N, e.MB, e.ME, e.MFB*100, e.MFE*100, e.Slope, e.Intercept, e.R2)
}

// finitePairs returns the observed and model vertical columns in r
// for which both values are finite.
func finitePairs(r *Results) (obs, model []float64) {
	for i, o := range r.ObsVCD {
		m := r.ModelVCD[i]
		if math.IsNaN(o) || math.IsInf(o, 0) || math.IsNaN(m) || math.IsInf(m, 0) {
			continue
		}
		obs = append(obs, o)
		model = append(model, m)
	}
	return
}

// Evaluate calculates statistics comparing the model and observed
// vertical columns in r. Statistics that cannot be calculated
// because there are too few finite pairs are NaN.
func Evaluate(r *Results) Evaluation {
	obs, model := finitePairs(r)
	e := Evaluation{
		N:  len(obs),
		MB: math.NaN(), ME: math.NaN(), MFB: math.NaN(), MFE: math.NaN(),
		Slope: math.NaN(), Intercept: math.NaN(), R2: math.NaN(),
	}
	if e.N == 0 {
		return e
	}
	e.MB = evalstats.MB(obs, model)
	e.ME = evalstats.ME(obs, model)
	e.MFB = evalstats.MFB(obs, model)
	e.MFE = evalstats.MFE(obs, model)
	if e.N > 1 {
		e.Slope, e.Intercept, e.R2, _, _, _ = stats.LinearRegression(obs, model)
	}
	return e
}
