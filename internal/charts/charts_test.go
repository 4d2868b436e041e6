package charts

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/KaramelBytes/dairyreport/internal/analysis"
	"github.com/KaramelBytes/dairyreport/internal/report"
	"github.com/KaramelBytes/dairyreport/internal/testutil"
)

func sampleReport(t *testing.T, relationship string) *report.Report {
	t.Helper()
	b := testutil.Workbook(t, testutil.DataSheet(testutil.SampleDays()...))
	rep, err := report.Build(report.Request{Name: "march.xlsx", Workbook: b, Sheet: "Data", Relationship: relationship}, report.DefaultOptions())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return rep
}

func isSVG(b []byte) bool { return bytes.Contains(b, []byte("<svg")) }

func TestTrendRendersEveryReportSeries(t *testing.T) {
	rep := sampleReport(t, "")
	for _, tr := range rep.Trends {
		c, err := Trend(tr)
		if err != nil {
			t.Fatalf("%s: %v", tr.Column, err)
		}
		if !isSVG(c.SVG) || c.Dropped != 0 || c.Caption() != "" {
			t.Fatalf("%s: unexpected chart (dropped %d)", tr.Column, c.Dropped)
		}
	}
}

func TestTrendDropsNonFinitePoints(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	vals := []float64{20, math.Inf(1), 21, math.NaN(), 22}
	band := analysis.NewBand(vals, 1)
	tr := report.Trend{
		Column:  "Yield_Percent",
		Title:   "Daily Yield %",
		Dates:   []time.Time{day(1), day(2), day(3), day(4), day(5)},
		Values:  vals,
		Band:    &band,
		Classes: analysis.ClassifyAll(vals, band),
	}
	c, err := Trend(tr)
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	if c.Dropped != 2 || c.Caption() != "2 non-finite points not drawn" {
		t.Fatalf("dropped = %d, caption %q", c.Dropped, c.Caption())
	}
}

func TestTrendFlatSeries(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	ref := 100.0
	tr := report.Trend{
		Column:    "Capacity_Utilization_Percent",
		Title:     "Capacity",
		Dates:     []time.Time{day(1), day(2), day(3)},
		Values:    []float64{100, 100, 100},
		Reference: &ref,
	}
	if _, err := Trend(tr); err != nil {
		t.Fatalf("flat series should still render: %v", err)
	}
}

func TestTrendNeedsTwoPoints(t *testing.T) {
	tr := report.Trend{
		Column: "Yield_Percent",
		Dates:  []time.Time{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		Values: []float64{20},
	}
	_, err := Trend(tr)
	if !errors.Is(err, ErrNotEnoughPoints) {
		t.Fatalf("expected ErrNotEnoughPoints, got %v", err)
	}
}

func TestHeatmap(t *testing.T) {
	rep := sampleReport(t, "")
	c, err := Heatmap(rep.Corr)
	if err != nil {
		t.Fatalf("Heatmap: %v", err)
	}
	if !isSVG(c.SVG) {
		t.Fatalf("not an svg document")
	}
	if !bytes.Contains(c.SVG, []byte("Yield_Percent")) {
		t.Fatalf("column names should label the axes")
	}

	_, err = Heatmap(&analysis.CorrMatrix{Columns: []string{"a"}, Values: [][]float64{{1}}})
	if !errors.Is(err, ErrNotEnoughPoints) {
		t.Fatalf("single column: %v", err)
	}
}

func TestRelationshipEveryMenuEntry(t *testing.T) {
	for _, name := range report.RelationshipNames() {
		rep := sampleReport(t, name)
		c, err := Relationship(rep.Relationship)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !isSVG(c.SVG) {
			t.Fatalf("%s: not an svg document", name)
		}
	}
}
