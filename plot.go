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
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PlotScatter writes a PNG scatter plot of the model versus observed
// vertical columns in r to w, along with a 1:1 line and, if e has a
// valid regression, the regression line.
func PlotScatter(w io.Writer, r *Results, e Evaluation) error {
	obs, model := finitePairs(r)
	if len(obs) == 0 {
		return fmt.Errorf("colloc: plotting %q: no valid model/observation pairs", r.Label)
	}
	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("colloc: plotting %q: %v", r.Label, err)
	}
	p.Title.Text = fmt.Sprintf("%s\n%s", r.Label, e)
	p.X.Label.Text = "Observed VCD (1e15 molecules cm-2)"
	p.Y.Label.Text = "Model VCD (1e15 molecules cm-2)"

	xy := make(plotter.XYs, len(obs))
	min, max := 0., 0.
	for i, o := range obs {
		xy[i].X = o
		xy[i].Y = model[i]
		min = math.Min(min, math.Min(o, model[i]))
		max = math.Max(max, math.Max(o, model[i]))
	}
	if max == min {
		max = min + 1
	}
	s, err := plotter.NewScatter(xy)
	if err != nil {
		return fmt.Errorf("colloc: plotting %q: %v", r.Label, err)
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = 0.5 * vg.Millimeter
	s.GlyphStyle.Color = color.NRGBA{R: 31, G: 119, B: 180, A: 200}
	p.Add(s)

	one := plotter.NewFunction(func(x float64) float64 { return x })
	one.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(one)
	if !math.IsNaN(e.Slope) {
		fit := plotter.NewFunction(func(x float64) float64 { return e.Intercept + e.Slope*x })
		fit.Color = color.NRGBA{R: 214, G: 39, B: 40, A: 255}
		p.Add(fit)
	}
	p.X.Min, p.Y.Min = min, min
	p.X.Max, p.Y.Max = max, max

	wt, err := p.WriterTo(5*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("colloc: plotting %q: %v", r.Label, err)
	}
	if _, err = wt.WriteTo(w); err != nil {
		return fmt.Errorf("colloc: plotting %q: %v", r.Label, err)
	}
	return nil
}
