// Package grim implements the GRIM test: whether a reported mean can arise
// from an integer sum over the given sample size at the reported precision.
package grim

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/grimcheck/pkg/constants"
	"github.com/iwvelando/grimcheck/pkg/mathutil"
	"github.com/iwvelando/grimcheck/pkg/numeral"
	"github.com/iwvelando/grimcheck/pkg/rounding"
)

var (
	// ErrInvalidSampleSize is returned when n * items is zero or overflows.
	ErrInvalidSampleSize = errors.New("sample size times items must be positive")

	// ErrLengthMismatch is returned when parallel inputs cannot be aligned.
	ErrLengthMismatch = errors.New("input lengths do not match")
)

// Options controls how a GRIM check is run.
type Options struct {
	Items     uint            `json:"items"`
	Percent   bool            `json:"percent"`
	Modes     []rounding.Mode `json:"rounding"`
	Threshold float64         `json:"threshold"`
	Symmetric bool            `json:"symmetric"`
	Tolerance float64         `json:"tolerance"`
	ShowRec   bool            `json:"showRec"`
}

// DefaultOptions returns the conventional GRIM settings.
func DefaultOptions() Options {
	return Options{
		Items:     constants.DefaultItems,
		Modes:     []rounding.Mode{rounding.UpOrDown},
		Threshold: constants.DefaultThreshold,
		Tolerance: mathutil.DefaultTolerance,
	}
}

// Diagnostics holds the intermediate values of a GRIM check.
type Diagnostics struct {
	Digits     int       `json:"digits"`
	NItems     uint      `json:"nItems"`
	RecSum     float64   `json:"recSum"`
	RecXUpper  float64   `json:"recXUpper"`
	RecXLower  float64   `json:"recXLower"`
	Candidates []float64 `json:"candidates"`
	Matches    int       `json:"matches"`
}

// Result is the outcome of a GRIM check. Diagnostics is only set when
// Options.ShowRec is true.
type Result struct {
	Consistent  bool         `json:"consistent"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
}

// Scalar runs GRIM on a single reported mean x with sample size n.
func Scalar(x string, n uint, opts Options) (Result, error) {
	lit, err := numeral.Parse(x)
	if err != nil {
		return Result{}, err
	}
	if err := rounding.CheckModes(opts.Modes, opts.Threshold); err != nil {
		return Result{}, err
	}

	xNum, digits := scale(lit, opts.Percent)

	nItems := n * opts.Items
	if nItems == 0 || nItems/opts.Items != n {
		return Result{}, fmt.Errorf("grim: n=%d items=%d: %w", n, opts.Items, ErrInvalidSampleSize)
	}

	recSum := xNum * float64(nItems)
	recUpper := math.Ceil(recSum) / float64(nItems)
	recLower := math.Floor(recSum) / float64(nItems)

	fuzzed := mathutil.DustifyAll([]float64{recUpper, recLower})
	candidates, err := rounding.Reround(fuzzed, digits, opts.Modes, opts.Threshold, opts.Symmetric)
	if err != nil {
		return Result{}, err
	}

	matches := 0
	for _, c := range candidates {
		if mathutil.IsNear(c, xNum, opts.Tolerance) {
			matches++
		}
	}

	result := Result{Consistent: matches > 0}
	if opts.ShowRec {
		result.Diagnostics = &Diagnostics{
			Digits:     digits,
			NItems:     nItems,
			RecSum:     recSum,
			RecXUpper:  recUpper,
			RecXLower:  recLower,
			Candidates: candidates,
			Matches:    matches,
		}
	}
	return result, nil
}

// scale applies the percent conversion to a parsed literal.
func scale(lit numeral.Literal, percent bool) (float64, int) {
	value, digits := lit.Value, lit.Precision()
	if percent {
		value /= constants.PercentageMultiplier
		digits += constants.PercentDigits
	}
	return value, digits
}
