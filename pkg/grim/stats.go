package grim

import (
	"math"

	"github.com/iwvelando/grimcheck/pkg/numeral"
)

// granularity returns 10^digits for x, widened by two digits for percentages.
func granularity(x string, percent bool) (float64, error) {
	lit, err := numeral.Parse(x)
	if err != nil {
		return 0, err
	}
	_, digits := scale(lit, percent)
	return math.Pow10(digits), nil
}

// Probability is the share of possible means at x's precision that no integer
// sum over n*items observations can produce. It is the chance that a random
// mean at that precision would be GRIM-inconsistent, floored at zero.
func Probability(x string, n, items uint, percent bool) (float64, error) {
	ratio, err := Ratio(x, n, items, percent)
	if err != nil {
		return 0, err
	}
	return math.Max(ratio, 0), nil
}

// Ratio is Probability without the floor. Negative values mean every mean at
// that precision is attainable.
func Ratio(x string, n, items uint, percent bool) (float64, error) {
	p10, err := granularity(x, percent)
	if err != nil {
		return 0, err
	}
	return (p10 - float64(n)*float64(items)) / p10, nil
}

// Total is the number of possible means at x's precision that cannot be
// produced, before normalizing.
func Total(x string, n, items uint, percent bool) (float64, error) {
	p10, err := granularity(x, percent)
	if err != nil {
		return 0, err
	}
	return p10 - float64(n)*float64(items), nil
}
