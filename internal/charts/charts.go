// Package charts renders report views as SVG.
package charts

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotEnoughPoints is returned when a series has fewer than two drawable points.
var ErrNotEnoughPoints = errors.New("not enough finite points to draw")

// Chart is a rendered SVG document.
type Chart struct {
	SVG []byte
	// Dropped counts NaN and ±Inf points left out of the drawing.
	Dropped int
}

// Caption describes points that could not be drawn, or is empty.
func (c Chart) Caption() string {
	switch c.Dropped {
	case 0:
		return ""
	case 1:
		return "1 non-finite point not drawn"
	default:
		return fmt.Sprintf("%d non-finite points not drawn", c.Dropped)
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
