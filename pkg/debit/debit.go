// Package debit implements the DEBIT test for binary variables: a reported
// mean (a proportion) and SD must be jointly attainable at the reported
// precision.
package debit

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
	// ErrInvalidFormula is returned for an unknown reconstruction formula.
	ErrInvalidFormula = errors.New("invalid reconstruction formula")

	// ErrProportionOutOfRange is returned when a binary mean lies outside [0, 1]
	// or a group count exceeds the sample size.
	ErrProportionOutOfRange = errors.New("proportion out of range")

	// ErrTooFewObservations is returned when fewer than two observations are given.
	ErrTooFewObservations = errors.New("at least two observations are required")
)

// Options controls how a DEBIT check is run.
type Options struct {
	Formula   Formula       `json:"formula"`
	Mode      rounding.Mode `json:"rounding"`
	Threshold float64       `json:"threshold"`
	Symmetric bool          `json:"symmetric"`
	ShowRec   bool          `json:"showRec"`
}

// DefaultOptions returns the conventional DEBIT settings.
func DefaultOptions() Options {
	return Options{
		Formula:   MeanN,
		Mode:      rounding.UpOrDown,
		Threshold: constants.DefaultThreshold,
	}
}

// Diagnostics holds the bounds and reconstructions behind a DEBIT verdict.
type Diagnostics struct {
	XBound        rounding.Bound `json:"xBound"`
	SDBound       rounding.Bound `json:"sdBound"`
	SDRecLower    float64        `json:"sdRecLower"`
	SDRecUpper    float64        `json:"sdRecUpper"`
	Reconstructed []float64      `json:"reconstructed"`
}

// Result is the outcome of a DEBIT check. Diagnostics is only set when
// Options.ShowRec is true.
type Result struct {
	Consistent  bool         `json:"consistent"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
}

// Scalar runs DEBIT on a reported binary mean x and SD sd over n observations.
func Scalar(x, sd string, n uint, opts Options) (Result, error) {
	xLit, err := numeral.Parse(x)
	if err != nil {
		return Result{}, err
	}
	sdLit, err := numeral.Parse(sd)
	if err != nil {
		return Result{}, err
	}
	if xLit.Value < 0 || xLit.Value > 1 {
		return Result{}, fmt.Errorf("debit: mean %s: %w", x, ErrProportionOutOfRange)
	}
	if n < 2 {
		return Result{}, fmt.Errorf("debit: n=%d: %w", n, ErrTooFewObservations)
	}
	if err := rounding.CheckModes([]rounding.Mode{opts.Mode}, opts.Threshold); err != nil {
		return Result{}, err
	}

	xBound, err := rounding.UnroundLiteral(xLit, opts.Mode, constants.SqrtEpsilon)
	if err != nil {
		return Result{}, err
	}
	sdBound, err := rounding.UnroundLiteral(sdLit, opts.Mode, constants.SqrtEpsilon)
	if err != nil {
		return Result{}, err
	}

	sdRecLower, err := Reconstruct(opts.Formula, clamp01(xBound.Lower), n)
	if err != nil {
		return Result{}, err
	}
	sdRecUpper, err := Reconstruct(opts.Formula, clamp01(xBound.Upper), n)
	if err != nil {
		return Result{}, err
	}

	rerounded, err := rounding.Reround([]float64{sdRecLower, sdRecUpper}, sdLit.Precision(),
		[]rounding.Mode{opts.Mode}, opts.Threshold, opts.Symmetric)
	if err != nil {
		return Result{}, err
	}
	reconstructed := mathutil.DustifyAll(rerounded)

	lower := mathutil.Dustify(sdBound.Lower)
	upper := mathutil.Dustify(sdBound.Upper)

	result := Result{Consistent: overlaps(lower[:], reconstructed, upper[:], sdBound.InclLower, sdBound.InclUpper)}
	if opts.ShowRec {
		result.Diagnostics = &Diagnostics{
			XBound:        xBound,
			SDBound:       sdBound,
			SDRecLower:    sdRecLower,
			SDRecUpper:    sdRecUpper,
			Reconstructed: reconstructed,
		}
	}
	return result, nil
}

// overlaps reports whether some reconstruction lies above a lower value and
// some reconstruction lies below an upper value. Each side compares with <=
// when inclusive and < otherwise. An empty reconstruction set never overlaps.
func overlaps(lower, rec, upper []float64, inclLower, inclUpper bool) bool {
	return anyPair(lower, rec, inclLower) && anyPair(rec, upper, inclUpper)
}

func anyPair(left, right []float64, inclusive bool) bool {
	for _, l := range left {
		for _, r := range right {
			if l < r || (inclusive && l == r) {
				return true
			}
		}
	}
	return false
}

func clamp01(p float64) float64 {
	return math.Min(math.Max(p, 0), 1)
}
