package rounding

import "fmt"

// ReconstructScalar returns what x would be reported as under mode at the
// given precision. Paired modes yield two values, all others one.
func ReconstructScalar(x float64, digits int, mode Mode, threshold float64, symmetric bool) ([]float64, error) {
	switch mode {
	case UpOrDown:
		return []float64{RoundUp(x, digits), RoundDown(x, digits)}, nil
	case UpFromOrDownFrom:
		return []float64{
			RoundUpFrom(x, digits, threshold, symmetric),
			RoundDownFrom(x, digits, threshold, symmetric),
		}, nil
	case CeilingOrFloor:
		return []float64{RoundCeiling(x, digits), RoundFloor(x, digits)}, nil
	case Even:
		return []float64{RoundEven(x, digits)}, nil
	case Up:
		return []float64{RoundUp(x, digits)}, nil
	case Down:
		return []float64{RoundDown(x, digits)}, nil
	case UpFrom:
		return []float64{RoundUpFrom(x, digits, threshold, symmetric)}, nil
	case DownFrom:
		return []float64{RoundDownFrom(x, digits, threshold, symmetric)}, nil
	case Ceiling:
		return []float64{RoundCeiling(x, digits)}, nil
	case Floor:
		return []float64{RoundFloor(x, digits)}, nil
	case Trunc:
		return []float64{RoundTrunc(x, digits)}, nil
	case AntiTrunc:
		return []float64{RoundAntiTrunc(x, digits)}, nil
	}
	return nil, fmt.Errorf("reround: %w: %s", ErrInvalidMode, mode)
}

// Reround applies every mode to every value and flattens the candidates.
func Reround(values []float64, digits int, modes []Mode, threshold float64, symmetric bool) ([]float64, error) {
	if err := CheckModes(modes, threshold); err != nil {
		return nil, err
	}

	out := make([]float64, 0, 2*len(values)*len(modes))
	for _, mode := range modes {
		for _, v := range values {
			rec, err := ReconstructScalar(v, digits, mode, threshold, symmetric)
			if err != nil {
				return nil, err
			}
			out = append(out, rec...)
		}
	}
	return out, nil
}
