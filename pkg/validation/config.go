// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/grimcheck/pkg/constants"
)

// ChecksConfig is the subset of the check settings that is validated.
type ChecksConfig struct {
	Rounding  []string
	Threshold float64
	Tolerance float64
	Items     uint
}

// ChecksValidator reports settings that are legal but probably not intended.
type ChecksValidator struct {
	Checks ChecksConfig
}

// ValidateThreshold warns when a custom threshold is set but no "_from" mode
// would use it.
func ValidateThreshold(rounding []string, threshold float64) string {
	if threshold == constants.DefaultThreshold {
		return ""
	}
	for _, mode := range rounding {
		if strings.Contains(mode, "_from") {
			return ""
		}
	}
	return fmt.Sprintf("threshold %g only affects up_from and down_from rounding, none of which is selected (%s)",
		threshold, strings.Join(rounding, ", "))
}

// ValidateTolerance warns when the tolerance is wide enough to accept
// neighbouring values at two decimal places.
func ValidateTolerance(tolerance float64) string {
	if tolerance >= 0.005 {
		return fmt.Sprintf("tolerance %g is as wide as half a unit at two decimal places; most means will pass GRIM", tolerance)
	}
	return ""
}

// NumericColumnWarning returns the warning shown when literals were read
// from a numeric spreadsheet column, where trailing zeros are already lost.
func NumericColumnWarning(column string) string {
	return fmt.Sprintf("column %s is stored as numbers; trailing zeros cannot be recovered, so values such as 5.10 are checked as 5.1", column)
}

// ValidateAll validates the check settings and returns warnings
func (cv *ChecksValidator) ValidateAll() []string {
	var warnings []string

	if w := ValidateThreshold(cv.Checks.Rounding, cv.Checks.Threshold); w != "" {
		warnings = append(warnings, w)
	}
	if w := ValidateTolerance(cv.Checks.Tolerance); w != "" {
		warnings = append(warnings, w)
	}
	if cv.Checks.Items > 1 {
		warnings = append(warnings, fmt.Sprintf("items is %d; GRIMMER only supports a single item and will reject every row", cv.Checks.Items))
	}

	return warnings
}
