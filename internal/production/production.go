// Package production turns a raw daily production sheet into a dataset with
// cost, sales, yield and margin columns.
package production

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Raw sheet columns.
const (
	ColDate         = "Date"
	ColMilkInput    = "Milk_Input_Ltrs"
	ColMilkPrice    = "Milk_Purchase_Price_per_Litre"
	ColIngredient   = "Ingredient_Cost_RS"
	ColLabour       = "Labour_Cost_RS"
	ColUtility      = "Utility_Cost_RS"
	ColOutput       = "Paneer_Output_Kg"
	ColSellingPrice = "Selling_Price_per_Kg_RS"
	ColFat          = "Fat_Percent"
	ColSNF          = "SNF_Percent"
	ColSOP          = "SOP_Adherence_Score"
	ColCapacity     = "Capacity_Utilization_Percent"
)

// Derived columns, in the order they are appended.
const (
	ColTotalCost       = "Total_Cost"
	ColTotalSales      = "Total_Sales"
	ColYield           = "Yield_Percent"
	ColCostPerKg       = "Cost_per_kg"
	ColGrossMargin     = "Gross_Margin"
	ColUtilityPerLitre = "Utility_Cost_per_Litre"
)

// DerivedColumns lists the derived columns in append order.
var DerivedColumns = []string{
	ColTotalCost, ColTotalSales, ColYield, ColCostPerKg, ColGrossMargin, ColUtilityPerLitre,
}

// MeasuredColumns lists the raw numeric columns in sheet order.
var MeasuredColumns = []string{
	ColMilkInput, ColMilkPrice, ColIngredient, ColLabour, ColUtility, ColOutput,
	ColSellingPrice, ColFat, ColSNF, ColSOP, ColCapacity,
}

// DateLayout is the layout of the normalized Date column.
const DateLayout = "2006-01-02"

// formulaInputs are needed by Compute regardless of the configured required set.
var formulaInputs = []string{
	ColMilkInput, ColMilkPrice, ColIngredient, ColLabour, ColUtility, ColOutput, ColSellingPrice,
}

// Inputs are the per-day values the derived metrics are computed from.
type Inputs struct {
	MilkLitres        float64
	MilkPricePerLitre float64
	IngredientCost    float64
	LabourCost        float64
	UtilityCost       float64
	OutputKg          float64
	PricePerKg        float64
}

// Metrics are the derived per-day values.
type Metrics struct {
	TotalCost       float64
	TotalSales      float64
	YieldPercent    float64
	CostPerKg       float64
	GrossMargin     float64
	UtilityPerLitre float64
}

// Compute applies the production formulas to one day. Zero divisors yield
// ±Inf or NaN, which are returned as is.
func Compute(in Inputs) Metrics {
	var m Metrics
	m.TotalCost = in.MilkLitres*in.MilkPricePerLitre + in.IngredientCost + in.LabourCost + in.UtilityCost
	m.TotalSales = in.OutputKg * in.PricePerKg
	m.YieldPercent = in.OutputKg / in.MilkLitres * 100
	m.CostPerKg = m.TotalCost / in.OutputKg
	m.GrossMargin = m.TotalSales - m.TotalCost
	m.UtilityPerLitre = in.UtilityCost / in.MilkLitres
	return m
}

// NormalizeDate appends year to a day-month token such as "15-03" and parses
// the result as day-month-year.
func NormalizeDate(token string, year int) (time.Time, error) {
	return time.Parse("2-1-2006", strings.TrimSpace(token)+"-"+strconv.Itoa(year))
}

// Options controls derivation.
type Options struct {
	Year     int
	Required []string
}

// Dataset is a production sheet with derived columns appended and Date
// normalized to DateLayout.
type Dataset struct {
	Frame dataframe.DataFrame
	Dates []time.Time
}

// Len returns the number of days.
func (d *Dataset) Len() int { return d.Frame.Nrow() }

// Column returns the values of a numeric column. Missing cells and absent
// columns read as NaN.
func (d *Dataset) Column(name string) []float64 {
	if !hasColumn(d.Frame, name) {
		out := make([]float64, d.Frame.Nrow())
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	return d.Frame.Col(name).Float()
}

// Derive validates frame against the required columns and returns it with the
// derived columns appended. Nothing is returned on error.
func Derive(frame dataframe.DataFrame, opt Options) (*Dataset, error) {
	if err := validate(frame, opt.Required); err != nil {
		return nil, err
	}
	n := frame.Nrow()
	col := func(name string) []float64 {
		if n == 0 {
			return nil
		}
		return frame.Col(name).Float()
	}
	milk, price := col(ColMilkInput), col(ColMilkPrice)
	ingredient, labour, utility := col(ColIngredient), col(ColLabour), col(ColUtility)
	output, selling := col(ColOutput), col(ColSellingPrice)

	derived := map[string][]float64{}
	for _, name := range DerivedColumns {
		derived[name] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		m := Compute(Inputs{
			MilkLitres:        milk[i],
			MilkPricePerLitre: price[i],
			IngredientCost:    ingredient[i],
			LabourCost:        labour[i],
			UtilityCost:       utility[i],
			OutputKg:          output[i],
			PricePerKg:        selling[i],
		})
		derived[ColTotalCost][i] = m.TotalCost
		derived[ColTotalSales][i] = m.TotalSales
		derived[ColYield][i] = m.YieldPercent
		derived[ColCostPerKg][i] = m.CostPerKg
		derived[ColGrossMargin][i] = m.GrossMargin
		derived[ColUtilityPerLitre][i] = m.UtilityPerLitre
	}

	dates := make([]time.Time, n)
	iso := make([]string, n)
	if n > 0 {
		ds := frame.Col(ColDate)
		for i := 0; i < n; i++ {
			e := ds.Elem(i)
			if e.IsNA() {
				return nil, &DateFormatError{Row: i + 1}
			}
			t, err := NormalizeDate(e.String(), opt.Year)
			if err != nil {
				return nil, &DateFormatError{Row: i + 1, Value: e.String(), Err: err}
			}
			dates[i] = t
			iso[i] = t.Format(DateLayout)
		}
	}

	out := frame.Mutate(series.New(iso, series.String, ColDate))
	for _, name := range DerivedColumns {
		out = out.Mutate(series.New(derived[name], series.Float, name))
	}
	if out.Err != nil {
		return nil, out.Err
	}
	return &Dataset{Frame: out, Dates: dates}, nil
}

func validate(frame dataframe.DataFrame, required []string) error {
	names := frame.Names()
	need := append([]string{ColDate}, formulaInputs...)
	for _, r := range required {
		if !contains(need, r) {
			need = append(need, r)
		}
	}
	var missing []string
	for _, c := range need {
		if !contains(names, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnError{Columns: missing, Available: names}
	}
	if frame.Nrow() == 0 {
		return nil
	}
	for _, c := range need {
		if c == ColDate {
			continue
		}
		s := frame.Col(c)
		switch s.Type() {
		case series.Int, series.Float:
		default:
			if allNA(s) {
				continue
			}
			return &ColumnTypeError{Column: c, Type: string(s.Type())}
		}
	}
	return nil
}

func allNA(s series.Series) bool {
	for i := 0; i < s.Len(); i++ {
		if !s.Elem(i).IsNA() {
			return false
		}
	}
	return true
}

func hasColumn(frame dataframe.DataFrame, name string) bool {
	return contains(frame.Names(), name)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
