package debit

import (
	"fmt"
	"strings"
)

// Formula selects how the SD of a binary variable is reconstructed.
type Formula int

const (
	// MeanN uses the proportion of ones and the sample size.
	MeanN Formula = iota
	// ZeroN uses the count of zeros and the sample size.
	ZeroN
	// OneN uses the count of ones and the sample size.
	OneN
	// Groups uses the counts of zeros and ones.
	Groups
)

var formulaNames = map[Formula]string{
	MeanN:  "mean_n",
	ZeroN:  "0_n",
	OneN:   "1_n",
	Groups: "groups",
}

func (f Formula) String() string {
	if name, ok := formulaNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Formula(%d)", int(f))
}

// MarshalText implements encoding.TextMarshaler.
func (f Formula) MarshalText() ([]byte, error) {
	if _, ok := formulaNames[f]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFormula, int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Formula) UnmarshalText(text []byte) error {
	parsed, err := ParseFormula(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFormula converts a formula name such as "mean_n" into a Formula.
func ParseFormula(s string) (Formula, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for formula, formulaName := range formulaNames {
		if formulaName == name {
			return formula, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidFormula, s)
}
