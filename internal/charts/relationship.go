package charts

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/dairyreport/internal/report"
)

var (
	pointColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	fitColor   = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	bandColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Relationship draws the selected pairing as a scatter plot, with the fitted
// line for regression entries and dashed normal-band bounds when banded.
func Relationship(rel *report.Relationship) (Chart, error) {
	var out Chart
	if rel == nil {
		return out, fmt.Errorf("relationship: %w", ErrNotEnoughPoints)
	}
	var pts plotter.XYs
	for i := 0; i < len(rel.Xs) && i < len(rel.Ys); i++ {
		x, y := rel.Xs[i], rel.Ys[i]
		if !finite(x) || !finite(y) {
			out.Dropped++
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	if len(pts) < 2 {
		return out, fmt.Errorf("%s: %w", rel.Name, ErrNotEnoughPoints)
	}

	p := plot.New()
	p.Title.Text = rel.Name
	p.X.Label.Text = rel.X
	p.Y.Label.Text = rel.Y
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return out, fmt.Errorf("%s: %w", rel.Name, err)
	}
	sc.GlyphStyle.Color = pointColor
	sc.GlyphStyle.Radius = vg.Points(3)
	p.Add(sc)

	if rel.Fit != nil {
		fn := plotter.NewFunction(rel.Fit.At)
		fn.Color = fitColor
		fn.Width = vg.Points(2)
		p.Add(fn)
		p.Legend.Add("least squares", fn)
	}
	if rel.Band != nil && rel.Band.Defined() {
		for _, bound := range []struct {
			name string
			y    float64
		}{{"upper", rel.Band.Upper}, {"lower", rel.Band.Lower}} {
			y := bound.y
			fn := plotter.NewFunction(func(float64) float64 { return y })
			fn.Color = bandColor
			fn.Width = vg.Points(1)
			fn.Dashes = []vg.Length{vg.Points(5), vg.Points(4)}
			p.Add(fn)
			p.Legend.Add(fmt.Sprintf("%s %.3g", bound.name, y), fn)
		}
		pad := (rel.Band.Upper - rel.Band.Lower) * 0.1
		p.Y.Min = math.Min(p.Y.Min, rel.Band.Lower-pad)
		p.Y.Max = math.Max(p.Y.Max, rel.Band.Upper+pad)
	}

	wt, err := p.WriterTo(16*vg.Centimeter, 11*vg.Centimeter, "svg")
	if err != nil {
		return out, fmt.Errorf("%s: %w", rel.Name, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return out, fmt.Errorf("%s: %w", rel.Name, err)
	}
	out.SVG = buf.Bytes()
	return out, nil
}
