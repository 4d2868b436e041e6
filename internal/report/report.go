// Package report runs the production report pipeline: load a sheet, derive
// metrics, flag abnormal days and assemble everything a view needs.
package report

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/dairyreport/internal/analysis"
	"github.com/KaramelBytes/dairyreport/internal/config"
	"github.com/KaramelBytes/dairyreport/internal/production"
	"github.com/KaramelBytes/dairyreport/internal/workbook"
)

// Classification columns appended to the data sheet.
const (
	ColAbnormalYield  = "Abnormal_Yield"
	ColAbnormalMargin = "Abnormal_Gross_Margin"
)

// Options controls report generation.
type Options struct {
	Year              int
	BandWidth         float64
	DataSheet         string
	Required          []string
	SplitDirection    bool
	PreviewRows       int
	CapacityReference float64
	Locale            string
	Currency          string
}

// DefaultOptions returns the options of a default configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig maps the global configuration onto report options.
func OptionsFromConfig(c *config.Global) Options {
	return Options{
		Year:              c.TargetYear,
		BandWidth:         c.AnomalyBandWidth,
		DataSheet:         c.DataSheetName,
		Required:          append([]string(nil), c.RequiredColumns...),
		SplitDirection:    c.SplitAbnormalDirection,
		PreviewRows:       c.PreviewRows,
		CapacityReference: c.CapacityReferencePercent,
		Locale:            c.Locale,
		Currency:          c.CurrencySymbol,
	}
}

// Request is one pipeline invocation.
type Request struct {
	Name         string
	Workbook     []byte
	Sheet        string // empty selects the first sheet
	Relationship string // empty selects the first menu entry
}

// Report is the result of one pipeline run. Fields from Derived on are only
// set for the data sheet.
type Report struct {
	Name    string
	Sheets  []string
	Sheet   string
	Header  []string
	Preview [][]string
	Rows    int

	Derived      bool
	Dataset      *production.Dataset
	Bands        map[string]analysis.Band
	KPIs         []KPI
	Trends       []Trend
	Abnormal     []AbnormalTable
	Corr         *analysis.CorrMatrix
	Relationship *Relationship

	Options Options
}

// Trend is a daily series with either a normal band or a fixed reference line.
type Trend struct {
	Column    string
	Title     string
	Dates     []time.Time
	Values    []float64
	Band      *analysis.Band
	Reference *float64
	Classes   []analysis.Class
}

// AbnormalTable lists the days outside the band of one metric.
type AbnormalTable struct {
	Column string
	Title  string
	Band   analysis.Band
	Header []string
	Rows   [][]string
}

// bandedColumns get a normal band; yield and margin also get a classification column.
var bandedColumns = []string{
	production.ColYield,
	production.ColGrossMargin,
	production.ColSOP,
	production.ColUtilityPerLitre,
}

// Build runs the pipeline on req. Every call starts from the raw bytes.
// When the selected sheet loads but cannot be analysed, Build returns the
// preview part of the report (Sheets, Sheet, Header, Preview, Rows) together
// with the error.
func Build(req Request, opt Options) (*Report, error) {
	wb, err := workbook.Open(bytes.NewReader(req.Workbook), req.Name)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	rep := &Report{Name: req.Name, Sheets: wb.Sheets(), Sheet: req.Sheet, Options: opt}
	if rep.Sheet == "" {
		rep.Sheet = rep.Sheets[0]
	}
	tbl, err := wb.Table(rep.Sheet)
	if err != nil {
		return nil, err
	}
	rep.Header = tbl.Header
	rep.Preview = tbl.Head(opt.PreviewRows)
	rep.Rows = len(tbl.Rows)
	if rep.Sheet != opt.DataSheet {
		return rep, nil
	}

	spec, err := LookupRelationship(req.Relationship)
	if err != nil {
		return rep, err
	}
	ds, err := production.Derive(tbl.Frame, production.Options{Year: opt.Year, Required: opt.Required})
	if err != nil {
		return rep, fmt.Errorf("sheet %q: %w", rep.Sheet, err)
	}

	rep.Bands = make(map[string]analysis.Band, len(bandedColumns))
	for _, c := range bandedColumns {
		rep.Bands[c] = analysis.NewBand(ds.Column(c), opt.BandWidth)
	}
	yieldClasses := analysis.ClassifyAll(ds.Column(production.ColYield), rep.Bands[production.ColYield])
	marginClasses := analysis.ClassifyAll(ds.Column(production.ColGrossMargin), rep.Bands[production.ColGrossMargin])
	ds.Frame = ds.Frame.
		Mutate(series.New(labels(yieldClasses, opt.SplitDirection), series.String, ColAbnormalYield)).
		Mutate(series.New(labels(marginClasses, opt.SplitDirection), series.String, ColAbnormalMargin))
	if ds.Frame.Err != nil {
		return nil, fmt.Errorf("classify: %w", ds.Frame.Err)
	}
	rep.Derived = true
	rep.Dataset = ds

	rep.KPIs = computeKPIs(ds, NewFormatter(opt.Locale, opt.Currency))
	rep.Trends = buildTrends(ds, rep.Bands, opt.CapacityReference)

	yieldTable, err := abnormalTable(ds.Frame, production.ColYield, ColAbnormalYield, "Abnormal Yield Days",
		[]string{production.ColMilkInput, production.ColOutput, production.ColFat, production.ColSNF})
	if err != nil {
		return nil, err
	}
	yieldTable.Band = rep.Bands[production.ColYield]
	marginTable, err := abnormalTable(ds.Frame, production.ColGrossMargin, ColAbnormalMargin, "Abnormal Gross Margin Days",
		[]string{production.ColTotalSales, production.ColTotalCost, production.ColCostPerKg})
	if err != nil {
		return nil, err
	}
	marginTable.Band = rep.Bands[production.ColGrossMargin]
	rep.Abnormal = []AbnormalTable{yieldTable, marginTable}

	names := numericColumns(ds.Frame)
	cols := make([][]float64, len(names))
	for i, n := range names {
		cols[i] = ds.Column(n)
	}
	rep.Corr = analysis.Correlate(names, cols)
	rep.Relationship = buildRelationship(spec, ds, rep.Bands)
	return rep, nil
}

// Label is the display text of a classification under the report's options.
func (r *Report) Label(c analysis.Class) string { return c.Label(r.Options.SplitDirection) }

// Trend returns the trend of the named column.
func (r *Report) Trend(column string) (Trend, bool) {
	for _, t := range r.Trends {
		if t.Column == column {
			return t, true
		}
	}
	return Trend{}, false
}

func labels(classes []analysis.Class, split bool) []string {
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = c.Label(split)
	}
	return out
}

func buildTrends(ds *production.Dataset, bands map[string]analysis.Band, capacityRef float64) []Trend {
	banded := func(col, title string) Trend {
		b := bands[col]
		vals := ds.Column(col)
		return Trend{Column: col, Title: title, Dates: ds.Dates, Values: vals, Band: &b, Classes: analysis.ClassifyAll(vals, b)}
	}
	ref := capacityRef
	return []Trend{
		banded(production.ColYield, "Daily Yield %"),
		banded(production.ColGrossMargin, "Daily Gross Margin"),
		{
			Column:    production.ColCapacity,
			Title:     "Capacity Utilization %",
			Dates:     ds.Dates,
			Values:    ds.Column(production.ColCapacity),
			Reference: &ref,
		},
		banded(production.ColSOP, "SOP Adherence Score"),
		banded(production.ColUtilityPerLitre, "Utility Cost per Litre"),
	}
}

// abnormalTable selects the rows whose flag column is not Normal.
func abnormalTable(frame dataframe.DataFrame, metric, flag, title string, context []string) (AbnormalTable, error) {
	t := AbnormalTable{Column: metric, Title: title}
	t.Header = append([]string{production.ColDate, metric, flag}, context...)
	if frame.Nrow() == 0 || !anyAbnormal(frame.Col(flag)) {
		return t, nil
	}
	sub := frame.Filter(dataframe.F{
		Colname:    flag,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool { return el.String() != "Normal" },
	})
	if sub.Err != nil {
		return t, fmt.Errorf("select %s: %w", flag, sub.Err)
	}
	names := sub.Names()
	for i := 0; i < sub.Nrow(); i++ {
		row := make([]string, len(t.Header))
		for j, c := range t.Header {
			if contains(names, c) {
				row[j] = cellText(sub.Col(c).Elem(i))
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func anyAbnormal(s series.Series) bool {
	for _, v := range s.Records() {
		if v != "Normal" {
			return true
		}
	}
	return false
}

func cellText(e series.Element) string {
	switch {
	case e.Type() == series.Float:
		return formatFloat(e.Float())
	case e.IsNA():
		return ""
	default:
		return e.String()
	}
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// numericColumns lists the int and float columns of the frame in order.
func numericColumns(frame dataframe.DataFrame) []string {
	var out []string
	types := frame.Types()
	for i, n := range frame.Names() {
		if types[i] == series.Int || types[i] == series.Float {
			out = append(out, n)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
