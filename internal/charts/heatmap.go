package charts

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/dairyreport/internal/analysis"
)

// corrGrid adapts a correlation matrix to plotter.GridXYZ with the first
// column drawn at the top.
type corrGrid struct{ m *analysis.CorrMatrix }

func (g corrGrid) Dims() (c, r int) {
	n := len(g.m.Columns)
	return n, n
}

func (g corrGrid) Z(c, r int) float64 {
	n := len(g.m.Columns)
	return g.m.Values[n-1-r][c]
}

func (g corrGrid) X(c int) float64 { return float64(c) }
func (g corrGrid) Y(r int) float64 { return float64(r) }
func (g corrGrid) Min() float64 { return -1 }
func (g corrGrid) Max() float64 { return 1 }

// Heatmap draws an annotated blue-to-red correlation matrix.
func Heatmap(m *analysis.CorrMatrix) (Chart, error) {
	var out Chart
	if m == nil || len(m.Columns) < 2 {
		return out, fmt.Errorf("heatmap: %w", ErrNotEnoughPoints)
	}
	n := len(m.Columns)

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)
	hm := plotter.NewHeatMap(corrGrid{m}, cmap.Palette(255))
	hm.NaN = color.Gray{Y: 200}

	var cells plotter.XYLabels
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			v := m.Values[r][c]
			text := "n/a"
			if !math.IsNaN(v) {
				text = fmt.Sprintf("%.2f", v)
			}
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(c), Y: float64(n - 1 - r)})
			cells.Labels = append(cells.Labels, text)
		}
	}
	labels, err := plotter.NewLabels(cells)
	if err != nil {
		return out, fmt.Errorf("heatmap labels: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
		labels.TextStyle[i].Font.Size = vg.Points(7)
	}

	p := plot.New()
	p.Title.Text = "Correlation Matrix"
	p.Add(hm, labels)
	p.NominalX(m.Columns...)
	rev := make([]string, n)
	for i, c := range m.Columns {
		rev[n-1-i] = c
	}
	p.NominalY(rev...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	side := vg.Length(n)*vg.Centimeter*1.4 + 7*vg.Centimeter
	wt, err := p.WriterTo(side, side, "svg")
	if err != nil {
		return out, fmt.Errorf("heatmap: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return out, fmt.Errorf("heatmap: %w", err)
	}
	out.SVG = buf.Bytes()
	return out, nil
}
