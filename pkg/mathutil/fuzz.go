// Package mathutil provides the floating-point helpers shared by the
// consistency engines.
package mathutil

import (
	"math"

	"github.com/iwvelando/grimcheck/pkg/constants"
	"gonum.org/v1/gonum/floats/scalar"
)

// DefaultTolerance is the tolerance used when matching rounded values.
var DefaultTolerance = constants.SqrtEpsilon

// Dustify widens x into the pair {x - 1e-12, x + 1e-12} so that values that
// drifted through several roundings still match.
func Dustify(x float64) [2]float64 {
	return [2]float64{x - constants.FuzzValue, x + constants.FuzzValue}
}

// DustifyAll dustifies every value and flattens the result.
func DustifyAll(xs []float64) []float64 {
	out := make([]float64, 0, 2*len(xs))
	for _, x := range xs {
		d := Dustify(x)
		out = append(out, d[0], d[1])
	}
	return out
}

// IsNear checks if two values are within a specified tolerance
func IsNear(a, b, tolerance float64) bool {
	return scalar.EqualWithinAbs(a, b, tolerance)
}

// AnyNear reports whether any value in xs is within tolerance of target.
func AnyNear(xs []float64, target, tolerance float64) bool {
	for _, x := range xs {
		if IsNear(x, target, tolerance) {
			return true
		}
	}
	return false
}

// Pow10 returns 10 raised to an integer power.
func Pow10(digits int) float64 {
	return math.Pow10(digits)
}
