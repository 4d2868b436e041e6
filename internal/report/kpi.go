package report

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/dairyreport/internal/analysis"
	"github.com/KaramelBytes/dairyreport/internal/production"
)

// KPI is one row of the summary table.
type KPI struct {
	Label   string
	Value   float64
	Display string
}

// Formatter renders numbers for a locale and currency symbol.
type Formatter struct {
	p        *message.Printer
	currency string
}

// NewFormatter returns a Formatter for a BCP 47 locale such as "en-IN". Unknown
// locales fall back to the root formatting.
func NewFormatter(locale, currency string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return Formatter{p: message.NewPrinter(tag), currency: currency}
}

// Currency formats v with two decimals and the currency symbol.
func (f Formatter) Currency(v float64) string {
	if nonFinite(v) {
		return nonFiniteText(v)
	}
	return f.p.Sprintf("%s%.2f", f.currency, v)
}

// Percent formats v as a percentage with two decimals.
func (f Formatter) Percent(v float64) string {
	if nonFinite(v) {
		return nonFiniteText(v)
	}
	return f.p.Sprintf("%.2f%%", v)
}

// Number formats v with two decimals.
func (f Formatter) Number(v float64) string {
	if nonFinite(v) {
		return nonFiniteText(v)
	}
	return f.p.Sprintf("%.2f", v)
}

func nonFinite(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }

// nonFiniteText shows an infinite aggregate as it is; NaN means nothing to aggregate.
func nonFiniteText(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return formatFloat(v)
}

func computeKPIs(ds *production.Dataset, f Formatter) []KPI {
	sales := analysis.Sum(ds.Column(production.ColTotalSales))
	avgMargin := analysis.MeanOf(ds.Column(production.ColGrossMargin))
	perLitre := analysis.Sum(ds.Column(production.ColGrossMargin)) / analysis.Sum(ds.Column(production.ColMilkInput))
	yield := analysis.MeanOf(ds.Column(production.ColYield))
	capacity := analysis.MeanOf(ds.Column(production.ColCapacity))
	sop := analysis.MeanOf(ds.Column(production.ColSOP))
	return []KPI{
		{Label: "Total Revenue", Value: sales, Display: f.Currency(sales)},
		{Label: "Average Daily Profit", Value: avgMargin, Display: f.Currency(avgMargin)},
		{Label: "Profit per Litre", Value: perLitre, Display: f.Currency(perLitre)},
		{Label: "Average Yield", Value: yield, Display: f.Percent(yield)},
		{Label: "Average Capacity Utilization", Value: capacity, Display: f.Percent(capacity)},
		{Label: "Average SOP Adherence", Value: sop, Display: f.Number(sop)},
	}
}
