package rounding

import (
	"fmt"
	"math"

	"github.com/iwvelando/grimcheck/pkg/numeral"
)

// Bound is the interval of values that round to a reported literal.
type Bound struct {
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	InclLower bool    `json:"inclLower"`
	InclUpper bool    `json:"inclUpper"`
}

// Contains reports whether v falls inside the bound, honoring inclusivity.
func (b Bound) Contains(v float64) bool {
	lowerOK := v > b.Lower || (b.InclLower && v == b.Lower)
	upperOK := v < b.Upper || (b.InclUpper && v == b.Upper)
	return lowerOK && upperOK
}

// Unround computes the interval of true values that the literal raw could have
// been rounded from under mode. For up_or_down, up and down the half-width is
// threshold over 10^(digits+1); the other modes use half a unit at the reported
// precision.
func Unround(raw string, mode Mode, threshold float64) (Bound, error) {
	lit, err := numeral.Parse(raw)
	if err != nil {
		return Bound{}, err
	}
	return UnroundLiteral(lit, mode, threshold)
}

// UnroundLiteral is Unround for an already parsed literal.
func UnroundLiteral(lit numeral.Literal, mode Mode, threshold float64) (Bound, error) {
	p10 := math.Pow10(lit.Precision() + 1)
	d := 5 / p10
	dVar := threshold / p10
	x := lit.Value

	switch mode {
	case Trunc:
		switch {
		case x > 0:
			return Bound{Lower: x, Upper: x + 2*d, InclLower: true}, nil
		case x < 0:
			return Bound{Lower: x - 2*d, Upper: x, InclUpper: true}, nil
		default:
			return Bound{Lower: x - 2*d, Upper: x + 2*d}, nil
		}
	case AntiTrunc:
		switch {
		case x > 0:
			return Bound{Lower: x - 2*d, Upper: x, InclLower: true}, nil
		case x < 0:
			return Bound{Lower: x, Upper: x + 2*d, InclLower: true}, nil
		default:
			return Bound{}, fmt.Errorf("unround %q: %w", lit.Raw, ErrZeroValue)
		}
	case UpOrDown:
		return Bound{Lower: x - dVar, Upper: x + dVar, InclLower: true, InclUpper: true}, nil
	case Up:
		return Bound{Lower: x - dVar, Upper: x + dVar, InclLower: true}, nil
	case Down:
		return Bound{Lower: x - dVar, Upper: x + dVar, InclUpper: true}, nil
	case Even:
		return Bound{Lower: x - d, Upper: x + d}, nil
	case Ceiling:
		return Bound{Lower: x - 2*d, Upper: x, InclUpper: true}, nil
	case Floor:
		return Bound{Lower: x, Upper: x + 2*d, InclLower: true}, nil
	}
	return Bound{}, fmt.Errorf("unround: %w: %s has no bound", ErrInvalidMode, mode)
}
