// Package analysis holds the statistics behind the production report: the
// mean ± k·σ band used to flag abnormal days, correlations and line fits.
package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Band is the normal range of a series: Mean ± Width·StdDev.
type Band struct {
	Mean   float64
	StdDev float64 // sample standard deviation (n-1)
	Width  float64
	Lower  float64
	Upper  float64
	N      int // non-NaN values the band was computed from
}

// NewBand computes the band of values. NaN values are skipped; ±Inf is kept,
// so an infinite value makes the mean infinite and the deviation NaN. Fewer
// than two values also leave StdDev, and therefore the bounds, NaN.
func NewBand(values []float64, width float64) Band {
	xs := dropNaN(values)
	b := Band{Width: width, N: len(xs)}
	switch {
	case len(xs) == 0:
		b.Mean, b.StdDev = math.NaN(), math.NaN()
	case len(xs) == 1:
		b.Mean, b.StdDev = xs[0], math.NaN()
	case hasInf(xs):
		b.Mean, b.StdDev = stat.Mean(xs, nil), math.NaN()
	default:
		b.Mean, b.StdDev = stat.MeanStdDev(xs, nil)
	}
	b.Lower = b.Mean - width*b.StdDev
	b.Upper = b.Mean + width*b.StdDev
	return b
}

// Defined reports whether the band has finite bounds.
func (b Band) Defined() bool {
	return !math.IsNaN(b.Lower) && !math.IsNaN(b.Upper)
}

// Classify places v relative to the band. NaN values, and every value of an
// undefined band, are Normal.
func (b Band) Classify(v float64) Class {
	switch {
	case v > b.Upper:
		return AbnormalHigher
	case v < b.Lower:
		return AbnormalLower
	default:
		return Normal
	}
}

// ClassifyAll classifies each value against b.
func ClassifyAll(values []float64, b Band) []Class {
	out := make([]Class, len(values))
	for i, v := range values {
		out[i] = b.Classify(v)
	}
	return out
}

// Class is the anomaly classification of one value.
type Class int

const (
	Normal Class = iota
	AbnormalHigher
	AbnormalLower
)

// Abnormal reports whether c is outside the band in either direction.
func (c Class) Abnormal() bool { return c != Normal }

// Label is the display text of c. With split unset both directions read "Abnormal".
func (c Class) Label(split bool) string {
	switch {
	case c == Normal:
		return "Normal"
	case !split:
		return "Abnormal"
	case c == AbnormalHigher:
		return "Abnormal (higher)"
	default:
		return "Abnormal (lower)"
	}
}

func (c Class) String() string { return c.Label(true) }

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func hasInf(values []float64) bool {
	for _, v := range values {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// MeanOf is the mean of the non-NaN values, or NaN when there are none. An
// infinite value makes the mean infinite.
func MeanOf(values []float64) float64 {
	xs := dropNaN(values)
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

// Sum adds the non-NaN values.
func Sum(values []float64) float64 {
	var s float64
	for _, v := range dropNaN(values) {
		s += v
	}
	return s
}
