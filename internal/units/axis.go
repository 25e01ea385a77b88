package units

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// RangeAxis returns the distance axis for a measurement range sampled at n
// evenly spaced points, startM and endM inclusive. Bin i of a sweep maps to
// axis[i] metres. The axis is strictly increasing with uniform spacing.
func RangeAxis(startM, endM float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, fmt.Errorf("range axis needs at least 2 points, got %d", n)
	}
	if endM <= startM {
		return nil, fmt.Errorf("range end %.3f m must be greater than range start %.3f m", endM, startM)
	}
	return floats.Span(make([]float64, n), startM, endM), nil
}

// BinSpacing returns the distance between adjacent bins of an axis.
func BinSpacing(axis []float64) float64 {
	if len(axis) < 2 {
		return 0
	}
	return axis[1] - axis[0]
}
