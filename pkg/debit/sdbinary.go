package debit

import (
	"fmt"
	"math"
)

// SDGroups returns the sample standard deviation of binary data with the
// given number of zeros and ones.
func SDGroups(zeros, ones uint) (float64, error) {
	n := zeros + ones
	if n < 2 {
		return 0, fmt.Errorf("sd of %d zeros and %d ones: %w", zeros, ones, ErrTooFewObservations)
	}
	nf := float64(n)
	return math.Sqrt(nf / (nf - 1) * float64(zeros) * float64(ones) / (nf * nf)), nil
}

// SD0N returns the sample standard deviation of binary data from the number of
// zeros and the total number of observations.
func SD0N(zeros, n uint) (float64, error) {
	if zeros > n {
		return 0, fmt.Errorf("%d zeros out of %d: %w", zeros, n, ErrProportionOutOfRange)
	}
	return SDGroups(zeros, n-zeros)
}

// SD1N returns the sample standard deviation of binary data from the number of
// ones and the total number of observations.
func SD1N(ones, n uint) (float64, error) {
	if ones > n {
		return 0, fmt.Errorf("%d ones out of %d: %w", ones, n, ErrProportionOutOfRange)
	}
	return SDGroups(n-ones, ones)
}

// SDMeanN returns the sample standard deviation of binary data from its mean,
// the proportion of ones, and the total number of observations.
func SDMeanN(mean float64, n uint) (float64, error) {
	if mean < 0 || mean > 1 {
		return 0, fmt.Errorf("mean %g: %w", mean, ErrProportionOutOfRange)
	}
	if n < 2 {
		return 0, fmt.Errorf("mean of %d observations: %w", n, ErrTooFewObservations)
	}
	nf := float64(n)
	return math.Sqrt(nf / (nf - 1) * mean * (1 - mean)), nil
}

// counts splits n observations with proportion p of ones into zeros and ones.
func counts(p float64, n uint) (zeros, ones uint) {
	ones = uint(math.Round(p * float64(n)))
	if ones > n {
		ones = n
	}
	return n - ones, ones
}

// Reconstruct returns the SD that formula assigns to a binary variable with
// proportion p of ones over n observations.
func Reconstruct(formula Formula, p float64, n uint) (float64, error) {
	switch formula {
	case MeanN:
		return SDMeanN(p, n)
	case ZeroN:
		zeros, _ := counts(p, n)
		return SD0N(zeros, n)
	case OneN:
		_, ones := counts(p, n)
		return SD1N(ones, n)
	case Groups:
		zeros, ones := counts(p, n)
		return SDGroups(zeros, ones)
	}
	return 0, fmt.Errorf("reconstruct: %w: %s", ErrInvalidFormula, formula)
}
