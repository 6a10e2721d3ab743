package grim

import (
	"errors"
	"math"
	"testing"

	"github.com/iwvelando/grimcheck/pkg/numeral"
	"github.com/iwvelando/grimcheck/pkg/rounding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalar(t *testing.T) {
	tests := []struct {
		name     string
		x        string
		n        uint
		items    uint
		percent  bool
		expected bool
	}{
		{"Impossible mean", "5.19", 40, 1, false, false},
		{"Possible mean", "5.18", 40, 1, false, true},
		{"Exact grain", "5.2", 40, 1, false, true},
		{"Thirds", "2.33", 3, 1, false, true},
		{"Between thirds", "2.34", 3, 1, false, false},
		{"Several items", "2.5", 3, 2, false, true},
		{"Percentage", "33.33", 3, 1, true, true},
		{"Integer mean", "7", 12, 1, false, true},
		{"Large sample", "5.19", 200, 1, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Items = tt.items
			opts.Percent = tt.percent

			res, err := Scalar(tt.x, tt.n, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res.Consistent)
			assert.Nil(t, res.Diagnostics)
		})
	}
}

func TestScalarErrors(t *testing.T) {
	tests := []struct {
		name    string
		x       string
		n       uint
		mutate  func(*Options)
		wantErr error
	}{
		{"Not numeric", "abc", 10, nil, numeral.ErrNotNumeric},
		{"Exponent form", "1.5e-1", 10, nil, numeral.ErrNotNumeric},
		{"Zero sample", "5.18", 0, nil, ErrInvalidSampleSize},
		{"Zero items", "5.18", 10, func(o *Options) { o.Items = 0 }, ErrInvalidSampleSize},
		{"Sample size overflows", "5.18", math.MaxUint/2 + 1, func(o *Options) { o.Items = 3 }, ErrInvalidSampleSize},
		{"No modes", "5.18", 10, func(o *Options) { o.Modes = nil }, rounding.ErrNoModes},
		{"From mode at default threshold", "5.18", 10, func(o *Options) {
			o.Modes = []rounding.Mode{rounding.UpFrom}
		}, rounding.ErrThresholdNotSpecified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			_, err := Scalar(tt.x, tt.n, opts)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestScalarDiagnostics(t *testing.T) {
	opts := DefaultOptions()
	opts.ShowRec = true

	res, err := Scalar("5.18", 40, opts)
	require.NoError(t, err)
	require.NotNil(t, res.Diagnostics)

	d := res.Diagnostics
	assert.Equal(t, 2, d.Digits)
	assert.Equal(t, uint(40), d.NItems)
	assert.InDelta(t, 207.2, d.RecSum, 1e-9)
	assert.InDelta(t, 5.2, d.RecXUpper, 1e-12)
	assert.InDelta(t, 5.175, d.RecXLower, 1e-12)
	assert.Len(t, d.Candidates, 8)
	assert.Equal(t, 2, d.Matches)

	opts.ShowRec = false
	terse, err := Scalar("5.18", 40, opts)
	require.NoError(t, err)
	assert.Equal(t, res.Consistent, terse.Consistent)
}

func TestToleranceMonotonicity(t *testing.T) {
	inputs := []struct {
		x string
		n uint
	}{
		{"5.19", 40},
		{"5.18", 40},
		{"2.34", 3},
		{"0.47", 17},
		{"12.71", 28},
	}
	tolerances := []float64{0, 1e-12, 1e-8, 1e-4, 0.005, 0.01, 0.1, 1}

	for _, in := range inputs {
		seenTrue := false
		for _, tol := range tolerances {
			opts := DefaultOptions()
			opts.Tolerance = tol
			res, err := Scalar(in.x, in.n, opts)
			require.NoError(t, err)
			if seenTrue {
				assert.True(t, res.Consistent, "%s n=%d turned false at tolerance %g", in.x, in.n, tol)
			}
			seenTrue = seenTrue || res.Consistent
		}
		assert.True(t, seenTrue, "%s n=%d never consistent", in.x, in.n)
	}
}

func TestMap(t *testing.T) {
	res, err := Map([]string{"5.19", "5.18", "x", "5.18"}, []uint{40, 40, 40, 0}, nil, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, res.Rows, 4)
	assert.Equal(t, []bool{false, true, false, false}, res.Consistent())
	assert.Equal(t, []int{2, 3}, res.Failed())
	assert.True(t, errors.Is(res.Rows[2].Err, numeral.ErrNotNumeric))
	assert.True(t, errors.Is(res.Rows[3].Err, ErrInvalidSampleSize))
}

func TestMapItems(t *testing.T) {
	xs := []string{"2.5", "2.5"}
	ns := []uint{3, 3}

	broadcast, err := Map(xs, ns, []uint{2}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, broadcast.Consistent())

	perRow, err := Map(xs, ns, []uint{2, 1}, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, perRow.Failed())
	assert.Len(t, perRow.Rows, 2)
}

func TestMapLengthMismatch(t *testing.T) {
	_, err := Map([]string{"1.5", "2.5"}, []uint{3}, nil, DefaultOptions())
	assert.True(t, errors.Is(err, ErrLengthMismatch))

	_, err = Map([]string{"1.5", "2.5", "3.5"}, []uint{3, 3, 3}, []uint{1, 2}, DefaultOptions())
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestProbability(t *testing.T) {
	tests := []struct {
		name     string
		x        string
		n        uint
		items    uint
		percent  bool
		expected float64
	}{
		{"Percentage", "8.2", 6, 1, true, 0.994},
		{"One decimal", "6.7", 9, 1, false, 0.1},
		{"Several items", "3.333", 3, 3, false, 0.991},
		{"Floored at zero", "60.7", 9, 7, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Probability(tt.x, tt.n, tt.items, tt.percent)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestRatioAndTotal(t *testing.T) {
	ratio, err := Ratio("8.2", 6, 1, true)
	require.NoError(t, err)
	assert.InDelta(t, 0.994, ratio, 1e-12)

	ratio, err = Ratio("60.7", 9, 7, false)
	require.NoError(t, err)
	assert.InDelta(t, -5.3, ratio, 1e-12)

	total, err := Total("60.7", 9, 7, false)
	require.NoError(t, err)
	assert.Equal(t, -53.0, total)

	total, err = Total("8.2", 6, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 994.0, total)

	_, err = Total("n/a", 6, 1, false)
	assert.True(t, errors.Is(err, numeral.ErrNotNumeric))
}
