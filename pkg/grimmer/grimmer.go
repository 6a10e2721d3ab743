// Package grimmer extends GRIM to standard deviations. A reported SD must be
// reachable from an integer sum of squares that is consistent with the mean,
// and that sum of squares must share the parity of the integer sum.
package grimmer

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/grimcheck/pkg/constants"
	"github.com/iwvelando/grimcheck/pkg/grim"
	"github.com/iwvelando/grimcheck/pkg/mathutil"
	"github.com/iwvelando/grimcheck/pkg/numeral"
	"github.com/iwvelando/grimcheck/pkg/rounding"
)

var (
	// ErrUnsupportedItems is returned for any item count other than one. The
	// sum of squares bound is not defined for multi-item scales.
	ErrUnsupportedItems = errors.New("grimmer supports only items = 1")

	// ErrSumOfSquaresRange is returned when the candidate sums of squares are
	// too large to tell apart in float64 or too many to enumerate.
	ErrSumOfSquaresRange = errors.New("sum of squares range cannot be enumerated")
)

// Reason names the test that decided a GRIMMER verdict.
type Reason string

const (
	ReasonPassed Reason = "passed all tests"
	ReasonGRIM   Reason = "failed GRIM"
	ReasonTest1  Reason = "failed test 1"
	ReasonTest2  Reason = "failed test 2"
	ReasonTest3  Reason = "failed test 3"
)

// Options controls how a GRIMMER check is run. Tolerance applies to the GRIM
// step; SD matching always uses the default tolerance.
type Options struct {
	Items      uint            `json:"items"`
	Modes      []rounding.Mode `json:"rounding"`
	Threshold  float64         `json:"threshold"`
	Symmetric  bool            `json:"symmetric"`
	Tolerance  float64         `json:"tolerance"`
	ShowReason bool            `json:"showReason"`
}

// DefaultOptions returns the conventional GRIMMER settings.
func DefaultOptions() Options {
	g := grim.DefaultOptions()
	return Options{
		Items:     g.Items,
		Modes:     g.Modes,
		Threshold: g.Threshold,
		Tolerance: g.Tolerance,
	}
}

// Result is the outcome of a GRIMMER check. Reason is only set when
// Options.ShowReason is true.
type Result struct {
	Consistent bool   `json:"consistent"`
	Reason     Reason `json:"reason,omitempty"`
}

func verdict(ok bool, reason Reason, opts Options) Result {
	res := Result{Consistent: ok}
	if opts.ShowReason {
		res.Reason = reason
	}
	return res
}

// Scalar runs GRIMMER on a reported mean x and standard deviation sd.
func Scalar(x, sd string, n uint, opts Options) (Result, error) {
	if opts.Items != constants.DefaultItems {
		return Result{}, fmt.Errorf("grimmer: items=%d: %w", opts.Items, ErrUnsupportedItems)
	}
	if n < 2 {
		return Result{}, fmt.Errorf("grimmer: n=%d: %w", n, grim.ErrInvalidSampleSize)
	}

	xLit, err := numeral.Parse(x)
	if err != nil {
		return Result{}, err
	}
	sdLit, err := numeral.Parse(sd)
	if err != nil {
		return Result{}, err
	}

	grimRes, err := grim.Scalar(x, n, grim.Options{
		Items:     opts.Items,
		Modes:     opts.Modes,
		Threshold: opts.Threshold,
		Symmetric: opts.Symmetric,
		Tolerance: opts.Tolerance,
	})
	if err != nil {
		return Result{}, err
	}
	if !grimRes.Consistent {
		return verdict(false, ReasonGRIM, opts), nil
	}

	nf := float64(n)
	items := float64(opts.Items)
	nItems := nf * items

	sumReal := math.Round(xLit.Value * nItems)
	xReal := sumReal / nItems

	digitsSD := sdLit.Precision()
	half := 5 / math.Pow10(digitsSD+1)
	sdLower := math.Max(0, sdLit.Value-half)
	sdUpper := sdLit.Value + half

	ssLower := ((nf-1)*sdLower*sdLower + nf*xReal*xReal) * items * items
	ssUpper := ((nf-1)*sdUpper*sdUpper + nf*xReal*xReal) * items * items

	if ssUpper > constants.MaxExactInteger {
		return Result{}, fmt.Errorf("grimmer: sum of squares up to %g: %w", ssUpper, ErrSumOfSquaresRange)
	}
	if ssUpper < math.Ceil(ssLower) {
		return verdict(false, ReasonTest1, opts), nil
	}
	first, last := uint64(math.Ceil(ssLower)), uint64(math.Floor(ssUpper))
	if last-first >= constants.MaxSumOfSquaresCandidates {
		return Result{}, fmt.Errorf("grimmer: %d sums of squares between %d and %d: %w",
			last-first+1, first, last, ErrSumOfSquaresRange)
	}

	reported := mathutil.Dustify(sdLit.Value)
	parity := uint64(math.Abs(sumReal)) % 2

	passedTest2 := false
	for k := first; k <= last; k++ {
		variance := (float64(k)/(items*items) - nf*xReal*xReal) / (nf - 1)
		predicted := math.Sqrt(math.Max(variance, 0))

		rerounded, err := rounding.Reround([]float64{predicted}, digitsSD, opts.Modes, opts.Threshold, opts.Symmetric)
		if err != nil {
			return Result{}, err
		}
		if !matchesReported(mathutil.DustifyAll(rerounded), reported) {
			continue
		}
		passedTest2 = true
		if k%2 == parity {
			return verdict(true, ReasonPassed, opts), nil
		}
	}

	if !passedTest2 {
		return verdict(false, ReasonTest2, opts), nil
	}
	return verdict(false, ReasonTest3, opts), nil
}

func matchesReported(predicted []float64, reported [2]float64) bool {
	for _, s := range reported {
		if mathutil.AnyNear(predicted, s, mathutil.DefaultTolerance) {
			return true
		}
	}
	return false
}
