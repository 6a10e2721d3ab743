// Package rounding reconstructs what a rounded number could have been
// (unrounding) and what a candidate value would have been reported as
// (rerounding) under a set of rounding conventions.
package rounding

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iwvelando/grimcheck/pkg/constants"
)

var (
	// ErrInvalidMode is returned for a rounding mode that is unknown or not
	// supported by the requested operation.
	ErrInvalidMode = errors.New("invalid rounding mode")

	// ErrZeroValue is returned when anti-truncation bounds are requested for zero.
	ErrZeroValue = errors.New("anti_trunc bounds are undefined at zero")

	// ErrThresholdNotSpecified is returned when a "_from" mode is used with the
	// default threshold.
	ErrThresholdNotSpecified = errors.New("threshold must be set to a value other than 5")

	// ErrIncompatibleModes is returned when a paired mode is requested together
	// with one of its component modes.
	ErrIncompatibleModes = errors.New("incompatible rounding modes")

	// ErrNoModes is returned when no rounding mode is given.
	ErrNoModes = errors.New("no rounding mode given")
)

// Mode is a rounding convention.
type Mode int

const (
	UpOrDown Mode = iota
	Up
	Down
	UpFrom
	DownFrom
	UpFromOrDownFrom
	Ceiling
	Floor
	CeilingOrFloor
	Even
	Trunc
	AntiTrunc
)

var modeNames = map[Mode]string{
	UpOrDown:         "up_or_down",
	Up:               "up",
	Down:             "down",
	UpFrom:           "up_from",
	DownFrom:         "down_from",
	UpFromOrDownFrom: "up_from_or_down_from",
	Ceiling:          "ceiling",
	Floor:            "floor",
	CeilingOrFloor:   "ceiling_or_floor",
	Even:             "even",
	Trunc:            "trunc",
	AntiTrunc:        "anti_trunc",
}

// Modes lists every supported mode in declaration order.
func Modes() []Mode {
	return []Mode{UpOrDown, Up, Down, UpFrom, DownFrom, UpFromOrDownFrom,
		Ceiling, Floor, CeilingOrFloor, Even, Trunc, AntiTrunc}
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if _, ok := modeNames[m]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode converts a mode name such as "up_or_down" into a Mode.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for mode, modeName := range modeNames {
		if modeName == name {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// ParseModes converts a list of mode names, stopping at the first bad one.
func ParseModes(names []string) ([]Mode, error) {
	modes := make([]Mode, 0, len(names))
	for _, name := range names {
		mode, err := ParseMode(name)
		if err != nil {
			return nil, err
		}
		modes = append(modes, mode)
	}
	return modes, nil
}

// Paired reports whether m stands for two single modes at once.
func (m Mode) Paired() bool {
	switch m {
	case UpOrDown, UpFromOrDownFrom, CeilingOrFloor:
		return true
	}
	return false
}

// Components returns the two single modes behind a paired mode, or m itself.
func (m Mode) Components() []Mode {
	switch m {
	case UpOrDown:
		return []Mode{Up, Down}
	case UpFromOrDownFrom:
		return []Mode{UpFrom, DownFrom}
	case CeilingOrFloor:
		return []Mode{Ceiling, Floor}
	}
	return []Mode{m}
}

// NeedsThreshold reports whether m models a non-standard rounding threshold.
func (m Mode) NeedsThreshold() bool {
	switch m {
	case UpFrom, DownFrom, UpFromOrDownFrom:
		return true
	}
	return false
}

// CheckModes validates a mode selection once, before any arithmetic runs.
func CheckModes(modes []Mode, threshold float64) error {
	if len(modes) == 0 {
		return ErrNoModes
	}

	requested := make(map[Mode]bool, len(modes))
	for _, m := range modes {
		if _, ok := modeNames[m]; !ok {
			return fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
		}
		if m.NeedsThreshold() && threshold == constants.DefaultThreshold {
			return fmt.Errorf("%s: %w", m, ErrThresholdNotSpecified)
		}
		requested[m] = true
	}

	if len(modes) > 1 {
		for _, m := range modes {
			if !m.Paired() {
				continue
			}
			for _, c := range m.Components() {
				if requested[c] {
					return fmt.Errorf("%w: %s cannot be combined with %s; list the single modes instead",
						ErrIncompatibleModes, m, c)
				}
			}
		}
	}
	return nil
}
