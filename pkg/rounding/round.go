package rounding

import (
	"math"

	"github.com/iwvelando/grimcheck/pkg/constants"
)

// RoundHalfAway rounds x to digits decimal places, ties away from zero.
func RoundHalfAway(x float64, digits int) float64 {
	p10 := math.Pow10(digits)
	return math.Round(x*p10) / p10
}

// tieDigit returns the value of the digit just past the target precision,
// including whatever fraction trails it.
func tieDigit(x float64, digits int) float64 {
	return x*math.Pow10(digits+1) - math.Floor(x*math.Pow10(digits))*10
}

// RoundUp rounds half up. An exact 5 past the target precision is always
// rounded towards positive infinity.
func RoundUp(x float64, digits int) float64 {
	if tieDigit(x, digits) == 5 {
		p10 := math.Pow10(digits)
		return math.Ceil(x*p10) / p10
	}
	return RoundHalfAway(x, digits)
}

// RoundDown rounds half down. An exact 5 past the target precision is always
// rounded towards negative infinity.
func RoundDown(x float64, digits int) float64 {
	if tieDigit(x, digits) == 5 {
		p10 := math.Pow10(digits)
		return math.Floor(x*p10) / p10
	}
	return RoundHalfAway(x, digits)
}

// RoundEven rounds half to even.
func RoundEven(x float64, digits int) float64 {
	p10 := math.Pow10(digits)
	return math.RoundToEven(x*p10) / p10
}

// RoundTrunc truncates towards zero.
func RoundTrunc(x float64, digits int) float64 {
	p10 := math.Pow10(digits)
	core := math.Trunc(math.Abs(x)*p10) / p10
	if x < 0 {
		return -core
	}
	return core
}

// antiTrunc moves x one unit away from zero past its integer part.
func antiTrunc(x float64) float64 {
	core := math.Trunc(math.Abs(x)) + 1
	if x < 0 {
		return -core
	}
	return core
}

// RoundAntiTrunc is the opposite of RoundTrunc at the given precision.
func RoundAntiTrunc(x float64, digits int) float64 {
	p10 := math.Pow10(digits)
	return antiTrunc(x*p10) / p10
}

// RoundCeiling rounds towards positive infinity.
func RoundCeiling(x float64, digits int) float64 {
	p10 := math.Pow10(digits)
	return math.Ceil(x*p10) / p10
}

// RoundFloor rounds towards negative infinity.
func RoundFloor(x float64, digits int) float64 {
	p10 := math.Pow10(digits)
	return math.Floor(x*p10) / p10
}

// RoundUpFrom rounds up from threshold instead of from 5. With symmetric set,
// negative numbers are rounded as their absolute value and negated.
func RoundUpFrom(x float64, digits int, threshold float64, symmetric bool) float64 {
	p10 := math.Pow10(digits)
	shift := 1 - (threshold-constants.SqrtEpsilon)/10

	if symmetric && x < 0 {
		return -(math.Floor(math.Abs(x)*p10+shift) / p10)
	}
	return math.Floor(x*p10+shift) / p10
}

// RoundDownFrom rounds down from threshold instead of from 5. With symmetric
// set, negative numbers are rounded as their absolute value and negated.
func RoundDownFrom(x float64, digits int, threshold float64, symmetric bool) float64 {
	p10 := math.Pow10(digits)
	shift := 1 - (threshold-constants.SqrtEpsilon)/10

	if symmetric && x < 0 {
		return -(math.Ceil(math.Abs(x)*p10-shift) / p10)
	}
	return math.Ceil(x*p10-shift) / p10
}
