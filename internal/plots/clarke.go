// Package plots renders model-evaluation artifacts for review of the
// glucose regression behind contribution scoring.
package plots

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/eigen-blood/contribution.report/internal/units"
)

// Clinical boundaries of the Clarke error grid, in mg/dL.
const (
	hypoMgDl  = 70.0
	hyperMgDl = 180.0
	axisMax   = 400.0
)

// ZoneCounts holds per-zone point counts from a Clarke error grid
// analysis. Zones A/B are clinically acceptable; D and E mark dangerous
// prediction failures.
type ZoneCounts struct {
	A int `json:"zone_a"`
	B int `json:"zone_b"`
	C int `json:"zone_c"`
	D int `json:"zone_d"`
	E int `json:"zone_e"`
}

// Total returns the number of classified points.
func (z ZoneCounts) Total() int {
	return z.A + z.B + z.C + z.D + z.E
}

// Percentages returns per-zone shares in percent, zero for an empty grid.
func (z ZoneCounts) Percentages() map[string]float64 {
	out := map[string]float64{"A": 0, "B": 0, "C": 0, "D": 0, "E": 0}
	total := z.Total()
	if total == 0 {
		return out
	}
	out["A"] = 100 * float64(z.A) / float64(total)
	out["B"] = 100 * float64(z.B) / float64(total)
	out["C"] = 100 * float64(z.C) / float64(total)
	out["D"] = 100 * float64(z.D) / float64(total)
	out["E"] = 100 * float64(z.E) / float64(total)
	return out
}

// Zones classifies reference/predicted glucose pairs (mmol/L) into Clarke
// error grid zones.
func Zones(yTrueMmol, yPredMmol []float64) (ZoneCounts, error) {
	if len(yTrueMmol) != len(yPredMmol) {
		return ZoneCounts{}, fmt.Errorf("length mismatch: %d reference vs %d predicted", len(yTrueMmol), len(yPredMmol))
	}

	var z ZoneCounts
	for i := range yTrueMmol {
		t := units.ConvertGlucose(yTrueMmol[i], units.MGDL)
		p := units.ConvertGlucose(yPredMmol[i], units.MGDL)

		switch {
		case t > 0 && (abs(t-p)/t < 0.2 || (t < hypoMgDl && p < hypoMgDl)):
			z.A++
		case (t >= hypoMgDl && p <= 50) || (t <= hypoMgDl && p >= hyperMgDl):
			z.D++
		case (t > hyperMgDl && p < hypoMgDl) || (t < hypoMgDl && p > hyperMgDl):
			z.E++
		default:
			z.B++
		}
	}
	return z, nil
}

// ClarkeGrid classifies the points and, when path is non-empty, saves the
// grid as a PNG: scatter of reference vs predicted glucose in mg/dL with
// the identity line and zone boundary lines.
func ClarkeGrid(yTrueMmol, yPredMmol []float64, title, path string) (ZoneCounts, error) {
	zones, err := Zones(yTrueMmol, yPredMmol)
	if err != nil {
		return zones, err
	}
	if path == "" {
		return zones, nil
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Reference Glucose (mg/dL)"
	p.Y.Label.Text = "Predicted Glucose (mg/dL)"
	p.X.Min, p.X.Max = 0, axisMax
	p.Y.Min, p.Y.Max = 0, axisMax

	pts := make(plotter.XYs, len(yTrueMmol))
	for i := range yTrueMmol {
		pts[i] = plotter.XY{
			X: units.ConvertGlucose(yTrueMmol[i], units.MGDL),
			Y: units.ConvertGlucose(yPredMmol[i], units.MGDL),
		}
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return zones, fmt.Errorf("building scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	scatter.GlyphStyle.Color = color.Black
	p.Add(scatter)

	// Identity line plus the hypo/hyper boundaries.
	if err := addLine(p, 0, 0, axisMax, axisMax, nil); err != nil {
		return zones, err
	}
	dashes := []vg.Length{vg.Points(4), vg.Points(2)}
	for _, b := range []float64{hypoMgDl, hyperMgDl} {
		if err := addLine(p, 0, b, axisMax, b, dashes); err != nil {
			return zones, err
		}
		if err := addLine(p, b, 0, b, axisMax, dashes); err != nil {
			return zones, err
		}
	}

	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return zones, fmt.Errorf("saving clarke grid: %w", err)
	}
	return zones, nil
}

func addLine(p *plot.Plot, x0, y0, x1, y1 float64, dashes []vg.Length) error {
	line, err := plotter.NewLine(plotter.XYs{{X: x0, Y: y0}, {X: x1, Y: y1}})
	if err != nil {
		return fmt.Errorf("building line: %w", err)
	}
	line.Width = vg.Points(1)
	if dashes != nil {
		line.Dashes = dashes
	}
	p.Add(line)
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
