// Package numeral parses reported numbers while keeping the decimal precision
// they were written with. A float cannot tell "5.0" from "5.00", so the digit
// count always comes from the text.
package numeral

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/grimcheck/pkg/constants"
)

// ErrNotNumeric is returned when a literal cannot be read as a finite number.
var ErrNotNumeric = errors.New("not numeric")

// Literal is a reported number together with its textual precision.
type Literal struct {
	Raw   string
	Value float64

	digits    int
	hasDigits bool
}

// Parse reads raw as a plain base-10 number such as "-5.10". Exponent and hex
// forms are rejected since their written digits are not their decimal places.
// Surrounding whitespace is not stripped.
func Parse(raw string) (Literal, error) {
	if !plainDecimal(raw) {
		return Literal{}, fmt.Errorf("parse %q: %w", raw, ErrNotNumeric)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Literal{}, fmt.Errorf("parse %q: %w", raw, ErrNotNumeric)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Literal{}, fmt.Errorf("parse %q: %w", raw, ErrNotNumeric)
	}

	digits, ok := DecimalPlaces(raw)
	return Literal{Raw: raw, Value: value, digits: digits, hasDigits: ok}, nil
}

// plainDecimal reports whether s is an optional sign, then digits with at
// most one decimal separator, and at least one digit.
func plainDecimal(s string) bool {
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	intPart, fracPart, _ := strings.Cut(s, constants.DecimalSeparator)
	if intPart == "" && fracPart == "" {
		return false
	}
	return allDigits(intPart) && allDigits(fracPart)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Digits returns the number of digits after the decimal separator. The second
// return value is false when the literal has no fractional digits at all.
func (l Literal) Digits() (int, bool) {
	return l.digits, l.hasDigits
}

// Precision returns the digit count, treating a missing count as zero places.
func (l Literal) Precision() int {
	if !l.hasDigits {
		return 0
	}
	return l.digits
}

// DecimalPlaces counts the digits that directly follow the first decimal
// separator in s. Only the first separator is considered, so "1.52.1" has two
// places. No separator, or a separator without a digit after it, reports false.
func DecimalPlaces(s string) (int, bool) {
	idx := strings.Index(s, constants.DecimalSeparator)
	if idx < 0 {
		return 0, false
	}

	count := 0
	for _, r := range s[idx+len(constants.DecimalSeparator):] {
		if r < '0' || r > '9' {
			break
		}
		count++
	}
	if count == 0 {
		return 0, false
	}
	return count, true
}
