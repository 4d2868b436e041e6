package report

import (
	"github.com/KaramelBytes/dairyreport/internal/analysis"
	"github.com/KaramelBytes/dairyreport/internal/production"
)

// RelationshipSpec is one entry of the bivariate plot menu.
type RelationshipSpec struct {
	Name       string
	X, Y       string
	Regression bool
	// Banded draws the normal band of Y.
	Banded bool
}

// relationships is the fixed menu, in display order.
var relationships = []RelationshipSpec{
	{Name: "Fat vs Yield", X: production.ColFat, Y: production.ColYield, Banded: true},
	{Name: "SNF vs Yield", X: production.ColSNF, Y: production.ColYield, Regression: true, Banded: true},
	{Name: "SOP vs Yield", X: production.ColSOP, Y: production.ColYield, Regression: true, Banded: true},
	{Name: "Capacity vs Yield", X: production.ColCapacity, Y: production.ColYield, Banded: true},
	{Name: "Capacity_Utilization vs SOP", X: production.ColSOP, Y: production.ColCapacity},
}

// RelationshipNames lists the menu labels.
func RelationshipNames() []string {
	out := make([]string, len(relationships))
	for i, r := range relationships {
		out[i] = r.Name
	}
	return out
}

// LookupRelationship resolves a menu label. The empty name selects the first entry.
func LookupRelationship(name string) (RelationshipSpec, error) {
	if name == "" {
		return relationships[0], nil
	}
	for _, r := range relationships {
		if r.Name == name {
			return r, nil
		}
	}
	return RelationshipSpec{}, &UnknownRelationshipError{Name: name}
}

// Relationship is a resolved bivariate plot.
type Relationship struct {
	RelationshipSpec
	Xs, Ys []float64
	Band   *analysis.Band
	Fit    *analysis.Fit
	Corr   float64
}

func buildRelationship(spec RelationshipSpec, ds *production.Dataset, bands map[string]analysis.Band) *Relationship {
	r := &Relationship{
		RelationshipSpec: spec,
		Xs:               ds.Column(spec.X),
		Ys:               ds.Column(spec.Y),
	}
	if spec.Banded {
		if b, ok := bands[spec.Y]; ok {
			r.Band = &b
		}
	}
	if spec.Regression {
		if f, ok := analysis.LinearFit(r.Xs, r.Ys); ok {
			r.Fit = &f
		}
	}
	r.Corr = analysis.Correlate([]string{spec.X, spec.Y}, [][]float64{r.Xs, r.Ys}).Values[0][1]
	return r
}
