package charts

import (
	"bytes"
	"fmt"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/KaramelBytes/dairyreport/internal/report"
)

const (
	trendWidth  = 960
	trendHeight = 340
)

// Trend draws a daily series as a line with its normal band or reference line
// dashed across it. Abnormal days are marked.
func Trend(t report.Trend) (Chart, error) {
	var out Chart
	var xs, ax []time.Time
	var ys, ay []float64
	for i, v := range t.Values {
		if i >= len(t.Dates) {
			break
		}
		if !finite(v) {
			out.Dropped++
			continue
		}
		xs = append(xs, t.Dates[i])
		ys = append(ys, v)
		if i < len(t.Classes) && t.Classes[i].Abnormal() {
			ax = append(ax, t.Dates[i])
			ay = append(ay, v)
		}
	}
	if len(xs) < 2 {
		return out, fmt.Errorf("%s: %w", t.Column, ErrNotEnoughPoints)
	}
	first, last := span(xs)
	if first.Equal(last) {
		return out, fmt.Errorf("%s: %w", t.Column, ErrNotEnoughPoints)
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name:    t.Column,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				StrokeWidth: 2,
				DotColor:    chart.ColorBlue,
				DotWidth:    2.5,
			},
		},
	}
	lo, hi := minMax(ys)
	hline := func(name string, y float64, color chart.Style) {
		series = append(series, chart.TimeSeries{
			Name:    name,
			XValues: []time.Time{first, last},
			YValues: []float64{y, y},
			Style:   color,
		})
		if y < lo {
			lo = y
		}
		if y > hi {
			hi = y
		}
	}
	dashed := func(c chart.Style) chart.Style {
		c.StrokeWidth = 1.5
		c.StrokeDashArray = []float64{6, 4}
		return c
	}
	switch {
	case t.Band != nil && t.Band.Defined():
		hline(fmt.Sprintf("Upper %.4g", t.Band.Upper), t.Band.Upper, dashed(chart.Style{StrokeColor: chart.ColorRed}))
		hline(fmt.Sprintf("Lower %.4g", t.Band.Lower), t.Band.Lower, dashed(chart.Style{StrokeColor: chart.ColorRed}))
		hline(fmt.Sprintf("Mean %.4g", t.Band.Mean), t.Band.Mean, dashed(chart.Style{StrokeColor: chart.ColorGreen}))
	case t.Reference != nil:
		hline(fmt.Sprintf("Target %.4g", *t.Reference), *t.Reference, dashed(chart.Style{StrokeColor: chart.ColorRed}))
	}
	if len(ax) > 0 {
		series = append(series, chart.TimeSeries{
			Name:    "Abnormal",
			XValues: ax,
			YValues: ay,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotColor:    chart.ColorOrange,
				DotWidth:    5,
			},
		})
	}

	graph := chart.Chart{
		Title:  t.Title,
		Width:  trendWidth,
		Height: trendHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat("02 Jan"),
		},
		YAxis: chart.YAxis{
			Name:  t.Column,
			Range: yRange(lo, hi),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return out, fmt.Errorf("render %s: %w", t.Column, err)
	}
	out.SVG = buf.Bytes()
	return out, nil
}

// yRange pads the value range so flat series and band lines stay visible.
func yRange(lo, hi float64) chart.Range {
	pad := (hi - lo) * 0.08
	if pad == 0 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func span(ts []time.Time) (first, last time.Time) {
	first, last = ts[0], ts[0]
	for _, t := range ts[1:] {
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	return first, last
}

func minMax(vs []float64) (lo, hi float64) {
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
