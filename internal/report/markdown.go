package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/dairyreport/internal/analysis"
)

// Markdown renders the report for a terminal or a standalone document.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[WORKBOOK]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Sheets: %s\n", strings.Join(r.Sheets, ", ")))
	b.WriteString(fmt.Sprintf("Selected: %s (%d rows, %d columns)\n", r.Sheet, r.Rows, len(r.Header)))

	b.WriteString("\n[PREVIEW]\n")
	if len(r.Header) == 0 {
		b.WriteString("(empty sheet)\n")
	} else {
		writeTable(&b, r.Header, r.Preview)
	}
	if !r.Derived {
		return b.String()
	}

	b.WriteString("\n[KPIS]\n")
	for _, k := range r.KPIs {
		b.WriteString(fmt.Sprintf("- %s: %s\n", k.Label, k.Display))
	}

	b.WriteString("\n[NORMAL BANDS]\n")
	for _, t := range r.Trends {
		if t.Band == nil {
			if t.Reference != nil {
				b.WriteString(fmt.Sprintf("- %s: reference line at %.4g\n", t.Column, *t.Reference))
			}
			continue
		}
		band := *t.Band
		b.WriteString(fmt.Sprintf("- %s: mean %.4g, std %.4g, band [%.4g, %.4g] (n=%d)", t.Column, band.Mean, band.StdDev, band.Lower, band.Upper, band.N))
		if hi, lo := countClasses(t.Classes); hi+lo > 0 {
			b.WriteString(fmt.Sprintf("; %d above, %d below", hi, lo))
		}
		if n := countNonFinite(t.Values); n > 0 {
			b.WriteString(fmt.Sprintf("; %d non-finite", n))
		}
		b.WriteString("\n")
	}

	for _, a := range r.Abnormal {
		b.WriteString(fmt.Sprintf("\n[%s]\n", strings.ToUpper(a.Title)))
		if len(a.Rows) == 0 {
			b.WriteString("None\n")
			continue
		}
		writeTable(&b, a.Header, a.Rows)
	}

	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range r.Corr.TopPairs(10) {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}

	if rel := r.Relationship; rel != nil {
		b.WriteString("\n[RELATIONSHIP]\n")
		b.WriteString(fmt.Sprintf("%s: %s (x) vs %s (y)\n", rel.Name, rel.X, rel.Y))
		if !math.IsNaN(rel.Corr) {
			b.WriteString(fmt.Sprintf("r=%.3f\n", rel.Corr))
		}
		if rel.Fit != nil {
			b.WriteString(fmt.Sprintf("fit: y = %.4g + %.4g·x (n=%d)\n", rel.Fit.Intercept, rel.Fit.Slope, rel.Fit.N))
		}
		if rel.Band != nil && rel.Band.Defined() {
			b.WriteString(fmt.Sprintf("normal %s: [%.4g, %.4g]\n", rel.Y, rel.Band.Lower, rel.Band.Upper))
		}
	}
	return b.String()
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| " + strings.Join(cells(header), " | ") + " |\n")
	seps := make([]string, len(header))
	for i := range seps {
		seps[i] = "---"
	}
	b.WriteString("| " + strings.Join(seps, " | ") + " |\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(cells(row), " | ") + " |\n")
	}
}

func cells(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		v = strings.ReplaceAll(v, "|", "\\|")
		out[i] = strings.ReplaceAll(v, "\n", " ")
	}
	return out
}

func countClasses(classes []analysis.Class) (higher, lower int) {
	for _, c := range classes {
		switch c {
		case analysis.AbnormalHigher:
			higher++
		case analysis.AbnormalLower:
			lower++
		}
	}
	return higher, lower
}

func countNonFinite(values []float64) int {
	n := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n++
		}
	}
	return n
}
