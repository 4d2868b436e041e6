package analysis

import "gonum.org/v1/gonum/stat"

// Fit is a least-squares line y = Intercept + Slope·x.
type Fit struct {
	Intercept float64
	Slope     float64
	N         int
}

// At evaluates the line at x.
func (f Fit) At(x float64) float64 { return f.Intercept + f.Slope*x }

// LinearFit regresses ys on xs over the rows where both are finite. ok is false
// when fewer than two rows remain or x is constant.
func LinearFit(xs, ys []float64) (Fit, bool) {
	var x, y []float64
	for i := 0; i < len(xs) && i < len(ys); i++ {
		if finite(xs[i]) && finite(ys[i]) {
			x = append(x, xs[i])
			y = append(y, ys[i])
		}
	}
	if len(x) < 2 || stat.Variance(x, nil) == 0 {
		return Fit{N: len(x)}, false
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return Fit{Intercept: alpha, Slope: beta, N: len(x)}, true
}
